// Package biz wires the game actors and the session routing index.
package biz

import (
	"github.com/google/wire"

	"github.com/gamehall/monopoly/internal/biz/game"
	"github.com/gamehall/monopoly/internal/biz/player"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	player.NewManager,
	game.NewManager,
	NewBinder,
)

// NewBinder exposes the session index to the game actors.
func NewBinder(pm *player.Manager) game.Binder { return pm }

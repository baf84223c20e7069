// Package service bridges the websocket transport and the game actors: it
// owns session lifecycle and routes decoded frames to the right actor.
package service

import (
	"github.com/google/wire"
	"github.com/yola1107/kratos/v2/log"

	"github.com/gamehall/monopoly/internal/biz/game"
	"github.com/gamehall/monopoly/internal/biz/player"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewService)

// Service implements ws.Handler.
type Service struct {
	games   *game.Manager
	players *player.Manager
	log     *log.Helper
}

// NewService new a service.
func NewService(gm *game.Manager, pm *player.Manager, logger log.Logger) *Service {
	return &Service{
		games:   gm,
		players: pm,
		log:     log.NewHelper(logger),
	}
}

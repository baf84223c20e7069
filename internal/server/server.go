// Package server assembles the transport servers from configuration.
package server

import (
	"github.com/google/wire"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewWebsocketServer, NewHTTPServer)

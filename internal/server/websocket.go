package server

import (
	"github.com/gamehall/monopoly/internal/conf"
	"github.com/gamehall/monopoly/internal/server/ws"
	"github.com/gamehall/monopoly/internal/service"
)

// NewWebsocketServer new the websocket front configured from the bootstrap.
func NewWebsocketServer(c *conf.Server, svc *service.Service) *ws.Server {
	opts := []ws.ServerOption{
		ws.WithHandler(svc),
		ws.Heartbeat(c.Ws.ReadDeadline(), c.Ws.PingInterval(), c.Ws.WriteTimeout()),
	}
	if c.Ws.Addr != "" {
		opts = append(opts, ws.Address(c.Ws.Addr))
	}
	if c.Ws.Path != "" {
		opts = append(opts, ws.Path(c.Ws.Path))
	}
	if c.Ws.MaxConn > 0 {
		opts = append(opts, ws.MaxConnLimit(c.Ws.MaxConn))
	}
	if c.Ws.SendChanSize > 0 {
		opts = append(opts, ws.SendChanSize(c.Ws.SendChanSize))
	}
	return ws.NewServer(opts...)
}

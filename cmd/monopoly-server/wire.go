//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"github.com/google/wire"
	"github.com/yola1107/kratos/v2"
	"github.com/yola1107/kratos/v2/log"

	"github.com/gamehall/monopoly/internal/biz"
	"github.com/gamehall/monopoly/internal/conf"
	"github.com/gamehall/monopoly/internal/data"
	"github.com/gamehall/monopoly/internal/server"
	"github.com/gamehall/monopoly/internal/service"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Game, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, biz.ProviderSet, service.ProviderSet, newApp))
}

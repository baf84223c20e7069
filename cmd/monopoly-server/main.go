package main

import (
	"flag"
	xhttp "net/http"
	_ "net/http/pprof"
	"os"

	"github.com/yola1107/kratos/v2"
	"github.com/yola1107/kratos/v2/library/log/zap"
	"github.com/yola1107/kratos/v2/log"
	"github.com/yola1107/kratos/v2/transport/http"

	"github.com/gamehall/monopoly/internal/conf"
	"github.com/gamehall/monopoly/internal/server/ws"
)

var (
	Name     = conf.Name
	Version  = conf.Version
	flagconf string // -conf path
	id, _    = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, e.g. -conf config.yaml")
}

func newApp(logger log.Logger, hs *http.Server, wss *ws.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
			wss,
		),
	)
}

func main() {
	flag.Parse()

	go func() {
		log.Fatal(xhttp.ListenAndServe(":6060", nil))
	}()

	c, bc, lc := conf.LoadConfig(flagconf)
	defer c.Close()

	logger := zap.NewLogger(lc)
	log.SetLogger(logger)
	defer logger.Close()

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Game, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}

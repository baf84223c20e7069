package data

import (
	"net/http"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"github.com/yola1107/kratos/v2/log"

	"github.com/gamehall/monopoly/internal/biz/game"
	"github.com/gamehall/monopoly/internal/conf"
	"github.com/gamehall/monopoly/pkg/xredis"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(NewData, NewGameRepo, NewRedis)

const (
	keyEvents    = "monopoly:events:" // stream per game
	keySnapshot  = "monopoly:snap:"   // latest snapshot per game
	keyRecent    = "monopoly:recent"  // zset of recently active games
	maxStreamLen = 10000
)

// Data bundles the external resources: redis for the event journal and
// snapshots, an http client for the advisory backend.
type Data struct {
	redis    *redis.Client
	http     *http.Client
	advisory *conf.Advisory
	log      *log.Helper
}

// NewData .
func NewData(c *conf.Data, logger log.Logger, rdb *redis.Client) (*Data, func(), error) {
	d := &Data{
		redis:    rdb,
		advisory: c.Advisory,
		log:      log.NewHelper(logger),
	}
	if c.Advisory != nil && c.Advisory.Endpoint != "" {
		d.http = &http.Client{Timeout: c.Advisory.Timeout()}
	}
	cleanup := func() {
		log.Info("closing the data resources")
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	return d, cleanup, nil
}

func NewRedis(c *conf.Data) *redis.Client {
	return xredis.NewClient(
		xredis.WithAddress(c.Redis.Addr),
		xredis.WithPassword(c.Redis.Password),
		xredis.WithDB(c.Redis.DB),
		xredis.WithPoolSize(c.Redis.PoolSize),
	)
}

type gameRepo struct {
	data *Data
	log  *log.Helper
}

// NewGameRepo .
func NewGameRepo(data *Data, logger log.Logger) game.Repo {
	return &gameRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

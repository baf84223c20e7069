package xredis

import (
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultHost        = "127.0.0.1"
	defaultPort        = 6379
	defaultMinIdle     = 5
	defaultMaxIdle     = 10
	defaultPoolSize    = 10
	defaultMaxLifetime = 2 * time.Minute
	defaultMaxIdleTime = 5 * time.Minute
)

type ClientOption func(*redis.Options)

// NewClient builds a redis client with pooled defaults suitable for the
// fire-and-forget event export path.
func NewClient(opts ...ClientOption) *redis.Client {
	options := &redis.Options{
		Addr:            fmt.Sprintf("%s:%d", defaultHost, defaultPort),
		Password:        "",
		DB:              0,
		PoolSize:        defaultPoolSize,
		MinIdleConns:    defaultMinIdle,
		MaxIdleConns:    defaultMaxIdle,
		ConnMaxLifetime: defaultMaxLifetime,
		ConnMaxIdleTime: defaultMaxIdleTime,
	}
	for _, opt := range opts {
		opt(options)
	}
	return redis.NewClient(options)
}

func WithAddress(addr string) ClientOption {
	return func(o *redis.Options) {
		if _, _, err := net.SplitHostPort(addr); err == nil {
			o.Addr = addr
		}
	}
}

func WithPassword(password string) ClientOption {
	return func(o *redis.Options) {
		o.Password = password
	}
}

func WithDB(db int) ClientOption {
	return func(o *redis.Options) {
		o.DB = db
	}
}

func WithPoolSize(size int) ClientOption {
	return func(o *redis.Options) {
		if size > 0 {
			o.PoolSize = size
		}
	}
}

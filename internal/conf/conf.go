// Package conf holds the bootstrap configuration scanned from the yaml
// config tree. Durations are plain seconds so the file stays scannable
// without generated types.
package conf

import (
	"errors"
	"time"
)

const (
	Name    = "monopoly-server"
	Version = "v0.1.0"
)

type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Game   *Game   `json:"game"`
}

type Server struct {
	Ws   *Ws   `json:"ws"`
	Http *Http `json:"http"`
}

type Ws struct {
	Addr            string `json:"addr"`
	Path            string `json:"path"`
	MaxConn         int32  `json:"maxConn"`
	ReadDeadlineSec int64  `json:"readDeadlineSec"`
	PingIntervalSec int64  `json:"pingIntervalSec"`
	WriteTimeoutSec int64  `json:"writeTimeoutSec"`
	SendChanSize    int    `json:"sendChanSize"`
}

type Http struct {
	Addr       string `json:"addr"`
	TimeoutSec int64  `json:"timeoutSec"`
}

type Data struct {
	Redis    *Redis    `json:"redis"`
	Advisory *Advisory `json:"advisory"`
}

type Redis struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"poolSize"`
}

// Advisory is the optional move-advisor backend; an empty endpoint disables
// the advice operation entirely.
type Advisory struct {
	Endpoint   string `json:"endpoint"`
	TimeoutSec int64  `json:"timeoutSec"`
}

type Game struct {
	AuctionWindowSec  int64  `json:"auctionWindowSec"`
	TradeWindowSec    int64  `json:"tradeWindowSec"`
	TurnTimeoutSec    int64  `json:"turnTimeoutSec"`
	ReconnectGraceSec int64  `json:"reconnectGraceSec"`
	IdleEvictionSec   int64  `json:"idleEvictionSec"`
	RobotTakeover     bool   `json:"robotTakeover"`
	LogDir            string `json:"logDir"`
}

func (b *Bootstrap) Validate() error {
	if b.Server == nil || b.Server.Ws == nil || b.Server.Http == nil {
		return errors.New("conf: server section incomplete")
	}
	if b.Data == nil || b.Data.Redis == nil {
		return errors.New("conf: data section incomplete")
	}
	if b.Game == nil {
		return errors.New("conf: game section missing")
	}
	return nil
}

func seconds(v, def int64) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}

func (w *Ws) ReadDeadline() time.Duration { return seconds(w.ReadDeadlineSec, 60) }
func (w *Ws) PingInterval() time.Duration { return seconds(w.PingIntervalSec, 15) }
func (w *Ws) WriteTimeout() time.Duration { return seconds(w.WriteTimeoutSec, 10) }

func (h *Http) Timeout() time.Duration { return seconds(h.TimeoutSec, 5) }

func (a *Advisory) Timeout() time.Duration { return seconds(a.TimeoutSec, 2) }

func (g *Game) AuctionWindow() time.Duration  { return seconds(g.AuctionWindowSec, 15) }
func (g *Game) TradeWindow() time.Duration    { return seconds(g.TradeWindowSec, 30) }
func (g *Game) TurnTimeout() time.Duration    { return seconds(g.TurnTimeoutSec, 45) }
func (g *Game) ReconnectGrace() time.Duration { return seconds(g.ReconnectGraceSec, 60) }
func (g *Game) IdleEviction() time.Duration   { return seconds(g.IdleEvictionSec, 600) }

package game

import (
	"context"
	"time"

	"github.com/gamehall/monopoly/internal/model"
	"github.com/gamehall/monopoly/internal/server/ws"
)

// Repo is the persistence bridge plus the advisory backend. Append and save
// calls must never block the actor loop for long; implementations absorb
// transient failures and log them.
type Repo interface {
	AppendEvents(ctx context.Context, gameID string, evs []model.Event)
	SaveSnapshot(ctx context.Context, gameID string, seq int64, snap []byte)
	LoadSnapshot(ctx context.Context, gameID string) ([]byte, error)
	TouchRecent(ctx context.Context, gameID string)
	Advice(ctx context.Context, snapshot []byte) ([]byte, error)
}

// Binder keeps the session routing index in sync with slot bindings made
// inside the actor loop.
type Binder interface {
	Bind(sessionID, gameID string, playerID int32)
	Drop(sessionID string)
}

// Slot is the connection-side state of one player: the reconnect token, the
// live socket if any, and the offline bookkeeping. Slots are only touched
// from the game's actor loop.
type Slot struct {
	PlayerID   int32
	Token      string
	Sess       *ws.Session
	LastSeq    int64 // highest processed request seq, for idempotent retries
	OfflineAt  time.Time
	GraceTimer int64
	RobotCtl   bool // a robot plays the slot until the owner returns
}

func (s *Slot) online() bool {
	return s.Sess != nil && !s.Sess.Closed()
}

// snapshotEvery bounds how many events may pass between two snapshot
// exports.
const snapshotEvery = 25

// evictCheckInterval is how often an actor checks itself for idleness.
const evictCheckInterval = time.Minute

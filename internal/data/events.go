package data

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yola1107/kratos/v2/library/xgo"

	"github.com/gamehall/monopoly/internal/model"
)

// opTimeout bounds the detached persistence writes; the actor loop never
// waits on redis.
const opTimeout = 3 * time.Second

// AppendEvents exports accepted events to the per-game stream. Write errors
// are logged and swallowed: the journal is an export, the live actor state
// stays authoritative.
func (r *gameRepo) AppendEvents(_ context.Context, gameID string, evs []model.Event) {
	if len(evs) == 0 {
		return
	}
	body := make([][]byte, 0, len(evs))
	for _, ev := range evs {
		b, err := json.Marshal(ev)
		if err != nil {
			r.log.Errorf("event marshal game=%s seq=%d: %v", gameID, ev.Seq, err)
			return
		}
		body = append(body, b)
	}
	go func() {
		defer xgo.RecoverFromError(nil)
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		pipe := r.data.redis.Pipeline()
		for i, ev := range evs {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: keyEvents + gameID,
				MaxLen: maxStreamLen,
				Approx: true,
				ID:     strconv.FormatInt(ev.Seq, 10) + "-0",
				Values: map[string]any{"ev": body[i]},
			})
		}
		if _, err := pipe.Exec(ctx); err != nil {
			r.log.Warnf("event append game=%s n=%d: %v", gameID, len(evs), err)
		}
	}()
}

// TouchRecent bumps the game in the recent-activity index used by lobby
// listings and by offline sweepers.
func (r *gameRepo) TouchRecent(_ context.Context, gameID string) {
	go func() {
		defer xgo.RecoverFromError(nil)
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		err := r.data.redis.ZAdd(ctx, keyRecent, redis.Z{
			Score:  float64(time.Now().Unix()),
			Member: gameID,
		}).Err()
		if err != nil {
			r.log.Warnf("touch recent game=%s: %v", gameID, err)
		}
	}()
}

package data

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/yola1107/kratos/v2/library/xgo"

	"github.com/gamehall/monopoly/pkg/codes"
)

// SaveSnapshot overwrites the latest snapshot for the game. The seq guard in
// the lua script keeps a slow older write from clobbering a newer snapshot.
var saveSnapScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'seq')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'seq', ARGV[1], 'snap', ARGV[2])
return 1
`)

func (r *gameRepo) SaveSnapshot(_ context.Context, gameID string, seq int64, snap []byte) {
	go func() {
		defer xgo.RecoverFromError(nil)
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		err := saveSnapScript.Run(ctx, r.data.redis, []string{keySnapshot + gameID}, seq, snap).Err()
		if err != nil {
			r.log.Warnf("snapshot save game=%s seq=%d: %v", gameID, seq, err)
		}
	}()
}

// LoadSnapshot returns the latest snapshot, or (nil, nil) when the game has
// never been saved. This one call is synchronous: it runs during actor
// construction, before any session is bound.
func (r *gameRepo) LoadSnapshot(ctx context.Context, gameID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	snap, err := r.data.redis.HGet(ctx, keySnapshot+gameID, "snap").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, codes.ErrPersistence.WithCause(err)
	}
	return snap, nil
}

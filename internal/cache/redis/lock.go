package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fhuezo/solarb/internal/domain"
)

// unlockLua deletes a lock key only when its value matches the caller's
// token, so one holder cannot release another holder's lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockManager implements domain.LockManager using Redis SETNX with a TTL.
// The run mode takes a lock per trading pair so two bot instances pointed at
// the same Redis never execute trades against each other.
type LockManager struct {
	rdb      *redis.Client
	unlockSc *redis.Script
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:      c.Underlying(),
		unlockSc: redis.NewScript(unlockLua),
	}
}

func lockKey(key string) string {
	return "lock:" + key
}

// Acquire obtains the lock for key with the given TTL and returns a release
// func that is safe to call more than once. It returns domain.ErrLockHeld
// when another party owns the lock.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := lockKey(key)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		// Fresh context so release works even after the caller's context
		// is cancelled during shutdown.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = lm.unlockSc.Run(releaseCtx, lm.rdb, []string{lk}, token).Err()
	}

	return release, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)

package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld means another worker owns the critical section.
var ErrLockHeld = errors.New("shared: lock already held")

// PostingLockKey builds the redis key serializing posting batches against a
// fiscal period.
func PostingLockKey(periodID int64) string {
	return fmt.Sprintf("ledger:period:%d:posting", periodID)
}

// PeriodLockKey builds the redis key serializing period lifecycle events.
func PeriodLockKey(periodID int64) string {
	return fmt.Sprintf("ledger:period:%d:lifecycle", periodID)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker hands out TTL-bounded redis locks. The TTL is a crash backstop;
// holders release explicitly.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{client: client, ttl: ttl}
}

// Acquire takes the lock or fails with ErrLockHeld. The returned release
// function only deletes the key if this holder still owns it.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, key)
	}
	release := func() {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = releaseScript.Run(rctx, l.client, []string{key}, token).Result()
	}
	return release, nil
}

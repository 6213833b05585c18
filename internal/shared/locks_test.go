package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, time.Minute), mr
}

func TestLockerMutualExclusion(t *testing.T) {
	locker, _ := newTestLocker(t)

	release, err := locker.Acquire(context.Background(), PostingLockKey(1))
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), PostingLockKey(1))
	require.ErrorIs(t, err, ErrLockHeld)

	// Different periods do not contend.
	other, err := locker.Acquire(context.Background(), PostingLockKey(2))
	require.NoError(t, err)
	other()

	release()
	release2, err := locker.Acquire(context.Background(), PostingLockKey(1))
	require.NoError(t, err)
	release2()
}

func TestLockerReleaseIsOwnerScoped(t *testing.T) {
	locker, mr := newTestLocker(t)

	release, err := locker.Acquire(context.Background(), PeriodLockKey(1))
	require.NoError(t, err)

	// TTL expires and another holder takes over.
	mr.FastForward(2 * time.Minute)
	takeover, err := locker.Acquire(context.Background(), PeriodLockKey(1))
	require.NoError(t, err)

	// The stale release must not delete the new holder's lock.
	release()
	_, err = locker.Acquire(context.Background(), PeriodLockKey(1))
	require.ErrorIs(t, err, ErrLockHeld)
	takeover()
}

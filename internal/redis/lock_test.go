package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*miniredis.Miniredis, Locker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisScheduleLocker(client, 5*time.Second)
}

func TestWithScheduleLockRunsAndReleases(t *testing.T) {
	mr, locker := newTestLocker(t)
	therapistID := uuid.New()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	ran := false
	err := locker.WithScheduleLock(context.Background(), therapistID, day, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:schedule:"+therapistID.String()+":2026-03-02"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("lock:schedule:"+therapistID.String()+":2026-03-02"), "lock released after fn returns")
}

func TestWithScheduleLockContention(t *testing.T) {
	_, locker := newTestLocker(t)
	therapistID := uuid.New()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	err := locker.WithScheduleLock(context.Background(), therapistID, day, func(ctx context.Context) error {
		// second acquisition for the same therapist and day must fail
		inner := locker.WithScheduleLock(ctx, therapistID, day, func(ctx context.Context) error {
			t.Fatal("contended lock body must not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)

		// a different day is a different lock
		otherDay := day.AddDate(0, 0, 1)
		return locker.WithScheduleLock(ctx, therapistID, otherDay, func(ctx context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
}

func TestWithScheduleLockPropagatesError(t *testing.T) {
	mr, locker := newTestLocker(t)
	therapistID := uuid.New()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	wantErr := assert.AnError
	err := locker.WithScheduleLock(context.Background(), therapistID, day, func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.False(t, mr.Exists("lock:schedule:"+therapistID.String()+":2026-03-02"), "lock released on error too")
}

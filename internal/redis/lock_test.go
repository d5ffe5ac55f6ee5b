package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, wait time.Duration) (Locker, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, 5*time.Second, wait), mr, client
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	locker, mr, _ := newTestLocker(t, 100*time.Millisecond)

	ran := false
	err := locker.WithLock(context.Background(), "slot:a", func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:slot:a"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("lock:slot:a"), "lock is released after fn returns")
}

func TestRedisLocker_ReturnsFnError(t *testing.T) {
	locker, mr, _ := newTestLocker(t, 100*time.Millisecond)
	boom := errors.New("boom")

	err := locker.WithLock(context.Background(), "slot:a", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lock:slot:a"))
}

func TestRedisLocker_ContentionTimesOut(t *testing.T) {
	locker, mr, _ := newTestLocker(t, 60*time.Millisecond)
	require.NoError(t, mr.Set("lock:slot:a", "someone-else"))

	called := false
	err := locker.WithLock(context.Background(), "slot:a", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.False(t, called)

	// the other holder's lock is untouched
	got, err := mr.Get("lock:slot:a")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	locker, mr, _ := newTestLocker(t, 100*time.Millisecond)

	err := locker.WithLock(context.Background(), "slot:a", func(context.Context) error {
		// our lock expired and another instance took the key
		require.NoError(t, mr.Set("lock:slot:a", "other-token"))
		return nil
	})
	require.NoError(t, err)

	got, err := mr.Get("lock:slot:a")
	require.NoError(t, err)
	assert.Equal(t, "other-token", got)
}

func TestRedisLocker_WaitsForRelease(t *testing.T) {
	locker, mr, _ := newTestLocker(t, time.Second)
	require.NoError(t, mr.Set("lock:slot:a", "someone-else"))

	go func() {
		time.Sleep(50 * time.Millisecond)
		mr.Del("lock:slot:a")
	}()

	err := locker.WithLock(context.Background(), "slot:a", func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestRedisLocker_RedisDown(t *testing.T) {
	locker, mr, _ := newTestLocker(t, 50*time.Millisecond)
	mr.Close()

	err := locker.WithLock(context.Background(), "slot:a", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLockNotAcquired))
}

func TestNopLocker(t *testing.T) {
	calls := 0
	err := NopLocker{}.WithLock(context.Background(), "any", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

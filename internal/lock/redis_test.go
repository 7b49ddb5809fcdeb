package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLock(t *testing.T, opts RedisOptions) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, opts), server
}

func TestRedis_AcquireAndRelease(t *testing.T) {
	t.Parallel()

	l, server := newRedisLock(t, RedisOptions{TTL: 5 * time.Second})
	l.token = func() string { return "token-1" }

	release, err := l.Acquire(context.Background(), "date:2024-05-06")
	require.NoError(t, err)

	got, err := server.Get("roombook:lock:date:2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, "token-1", got)
	assert.Equal(t, 5*time.Second, server.TTL("roombook:lock:date:2024-05-06"))

	release()
	assert.False(t, server.Exists("roombook:lock:date:2024-05-06"))
}

func TestRedis_WaitsForHolder(t *testing.T) {
	t.Parallel()

	l, _ := newRedisLock(t, RedisOptions{RetryInterval: 5 * time.Millisecond})

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		next, err := l.Acquire(ctx, "k")
		if err == nil {
			next()
		}
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	release()
	require.NoError(t, <-done)
}

func TestRedis_GivesUpWithContext(t *testing.T) {
	t.Parallel()

	l, _ := newRedisLock(t, RedisOptions{RetryInterval: 5 * time.Millisecond})

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.True(t, errors.Is(err, ErrNotAcquired))
}

func TestRedis_ReleaseKeepsForeignToken(t *testing.T) {
	t.Parallel()

	l, server := newRedisLock(t, RedisOptions{TTL: time.Second})

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	// Simulate expiry followed by another holder taking the key.
	server.FastForward(2 * time.Second)
	require.NoError(t, server.Set("roombook:lock:k", "someone-else"))

	release()
	got, err := server.Get("roombook:lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_ReportsServerFailure(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedis(client, RedisOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := l.Acquire(ctx, "k")
	require.Error(t, err)
	assert.Error(t, l.Ping(ctx))
}

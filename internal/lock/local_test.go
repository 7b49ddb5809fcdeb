package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SerializesSameKey(t *testing.T) {
	t.Parallel()

	l := NewLocal()
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "date:2024-05-06")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, l.keys())
}

func TestLocal_IndependentKeys(t *testing.T) {
	t.Parallel()

	l := NewLocal()
	first, err := l.Acquire(context.Background(), "date:2024-05-06")
	require.NoError(t, err)
	defer first()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	second, err := l.Acquire(ctx, "date:2024-05-07")
	require.NoError(t, err)
	second()
}

func TestLocal_ContextCancelled(t *testing.T) {
	t.Parallel()

	l := NewLocal()
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	release()
	release()
	assert.Equal(t, 0, l.keys())

	again, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	again()
}

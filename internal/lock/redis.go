package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token so an
// expired lock taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrNotAcquired is returned when the lock stayed busy until ctx expired.
var ErrNotAcquired = errors.New("lock: not acquired")

// RedisOptions tunes the distributed lock.
type RedisOptions struct {
	// Prefix is prepended to every key. Defaults to "roombook:lock:".
	Prefix string
	// TTL bounds how long a crashed holder can block others. Defaults to 10s.
	TTL time.Duration
	// RetryInterval is the pause between SET NX attempts. Defaults to 25ms.
	RetryInterval time.Duration
	Logger        *slog.Logger
}

// Redis is a single-instance lock built on SET NX PX.
type Redis struct {
	client redis.UniversalClient
	opts   RedisOptions
	token  func() string
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, opts RedisOptions) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = "roombook:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 25 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Redis{client: client, opts: opts, token: uuid.NewString}
}

// Acquire polls until the key is set by us, ctx is done or Redis fails.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	name := r.opts.Prefix + key
	token := r.token()

	ticker := time.NewTicker(r.opts.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, name, token, r.opts.TTL).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrNotAcquired, ctxErr)
			}
			return nil, fmt.Errorf("set %s: %w", name, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; release anyway.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.TTL)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{name}, token).Err(); err != nil {
				r.opts.Logger.WarnContext(ctx, "failed to release lock", "key", name, "error", err)
			}
		})
	}, nil
}

// Ping reports whether the Redis server answers. It backs the readiness check.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

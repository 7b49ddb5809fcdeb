package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxThrottledEmails bounds the limiter map. Full buckets are dropped first.
const maxThrottledEmails = 4096

// LoginThrottle hands out a token bucket per normalized email.
type LoginThrottle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	now      func() time.Time
	limiters map[string]*rate.Limiter
}

// NewLoginThrottle allows perMinute attempts per email, bursting up to the
// same amount. A non-positive perMinute returns nil, which never throttles.
func NewLoginThrottle(perMinute int, now func() time.Time) *LoginThrottle {
	if perMinute <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &LoginThrottle{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		now:      now,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow spends one attempt for email.
func (t *LoginThrottle) Allow(email string) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	limiter, ok := t.limiters[email]
	if !ok {
		if len(t.limiters) >= maxThrottledEmails {
			t.pruneLocked(now)
		}
		limiter = rate.NewLimiter(t.limit, t.burst)
		t.limiters[email] = limiter
	}
	return limiter.AllowN(now, 1)
}

// Reset forgets the attempts recorded for email.
func (t *LoginThrottle) Reset(email string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	delete(t.limiters, email)
	t.mu.Unlock()
}

func (t *LoginThrottle) pruneLocked(now time.Time) {
	for email, limiter := range t.limiters {
		if limiter.TokensAt(now) >= float64(t.burst) {
			delete(t.limiters, email)
		}
	}
	if len(t.limiters) >= maxThrottledEmails {
		clear(t.limiters)
	}
}

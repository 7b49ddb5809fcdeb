package http

import (
	"testing"
	"time"
)

func TestLoginThrottle(t *testing.T) {
	t.Parallel()

	t.Run("disabled throttle always allows", func(t *testing.T) {
		t.Parallel()
		throttle := NewLoginThrottle(0, nil)
		if throttle != nil {
			t.Fatalf("expected nil throttle for a zero budget")
		}
		for i := 0; i < 100; i++ {
			if !throttle.Allow("a@example.com") {
				t.Fatalf("nil throttle must allow every attempt")
			}
		}
		throttle.Reset("a@example.com")
	})

	t.Run("budget refills over time", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
		throttle := NewLoginThrottle(3, func() time.Time { return now })

		for i := 0; i < 3; i++ {
			if !throttle.Allow("a@example.com") {
				t.Fatalf("attempt %d should be allowed", i+1)
			}
		}
		if throttle.Allow("a@example.com") {
			t.Fatalf("fourth attempt within the minute should be throttled")
		}

		now = now.Add(20 * time.Second)
		if !throttle.Allow("a@example.com") {
			t.Fatalf("one attempt should refill after 20s at 3 per minute")
		}
		if throttle.Allow("a@example.com") {
			t.Fatalf("only one attempt should have refilled")
		}
	})

	t.Run("reset clears an exhausted bucket", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
		throttle := NewLoginThrottle(1, func() time.Time { return now })

		if !throttle.Allow("a@example.com") || throttle.Allow("a@example.com") {
			t.Fatalf("expected a single attempt budget")
		}
		throttle.Reset("a@example.com")
		if !throttle.Allow("a@example.com") {
			t.Fatalf("expected reset to restore the budget")
		}
	})

	t.Run("prunes idle buckets when full", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
		throttle := NewLoginThrottle(5, func() time.Time { return now })
		for i := 0; i < maxThrottledEmails; i++ {
			throttle.Allow(time.Duration(i).String())
		}
		now = now.Add(time.Hour)
		throttle.Allow("late@example.com")
		if got := len(throttle.limiters); got != 1 {
			t.Fatalf("expected refilled buckets to be pruned, %d remain", got)
		}
	})
}

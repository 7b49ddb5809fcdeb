package testfixtures

import (
	"sync"
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	if got := NewClock(time.Time{}).Now(); !got.Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", got)
	}

	start := time.Date(2024, time.March, 14, 9, 30, 0, 0, time.UTC)
	clock := NewClock(start)
	nowFn := clock.NowFunc()

	if got := clock.Advance(90 * time.Minute); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", got)
	}
	if got := nowFn(); !got.Equal(clock.Current()) {
		t.Fatalf("NowFunc returned %v, clock is at %v", got, clock.Current())
	}

	clock.Set(start)
	if got := nowFn(); !got.Equal(start) {
		t.Fatalf("expected %v after Set, got %v", start, got)
	}

	var nilClock *Clock
	if nilClock.NowFunc() == nil {
		t.Fatalf("nil clock must fall back to time.Now")
	}
}

func TestIDGenerator(t *testing.T) {
	gen := NewIDGenerator("token")
	if first, second := gen.Next(), gen.Next(); first != "token-1" || second != "token-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}

	gen.Reset("session")
	if next := gen.Next(); next != "session-1" {
		t.Fatalf("expected session-1 after reset, got %q", next)
	}
	gen.Reset("")
	if next := gen.Next(); next != "session-1" {
		t.Fatalf("expected prefix to survive an empty reset, got %q", next)
	}
}

func TestIDGeneratorConcurrentUse(t *testing.T) {
	gen := NewIDGenerator("")
	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Next()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != 50 {
		t.Fatalf("expected 50 unique ids, got %d", len(seen))
	}
}

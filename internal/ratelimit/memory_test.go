package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	t.Parallel()

	l, err := NewMemoryLimiter(3, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryLimiter() error = %v", err)
	}

	current := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return current }

	key := Key("10.0.0.1", "/v1/messages/bulk-text")

	for i := 1; i <= 3; i++ {
		decision, err := l.Allow(context.Background(), key)
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if decision.Remaining != 3-i {
			t.Fatalf("request %d remaining = %d, want %d", i, decision.Remaining, 3-i)
		}
	}

	for i := 4; i <= 5; i++ {
		decision, err := l.Allow(context.Background(), key)
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if decision.Allowed {
			t.Fatalf("request %d should be denied", i)
		}
		if decision.RetryAfter <= 0 {
			t.Fatalf("request %d RetryAfter = %v, want > 0", i, decision.RetryAfter)
		}
	}

	// A fresh window admits requests again.
	current = current.Add(time.Minute + time.Second)
	decision, err := l.Allow(context.Background(), key)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !decision.Allowed {
		t.Fatal("request after window reset should be allowed")
	}
	if decision.Remaining != 2 {
		t.Fatalf("remaining after reset = %d, want 2", decision.Remaining)
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	t.Parallel()

	l, err := NewMemoryLimiter(1, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryLimiter() error = %v", err)
	}

	first, _ := l.Allow(context.Background(), Key("10.0.0.1", "/v1/otp"))
	second, _ := l.Allow(context.Background(), Key("10.0.0.2", "/v1/otp"))
	third, _ := l.Allow(context.Background(), Key("10.0.0.1", "/v1/login"))

	if !first.Allowed || !second.Allowed || !third.Allowed {
		t.Fatalf("distinct keys must not share counters: %v %v %v", first, second, third)
	}

	repeat, _ := l.Allow(context.Background(), Key("10.0.0.1", "/v1/otp"))
	if repeat.Allowed {
		t.Fatal("same key should hit the limit")
	}
}

func TestMemoryLimiterConcurrentIncrements(t *testing.T) {
	t.Parallel()

	const workers = 50

	l, err := NewMemoryLimiter(workers, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryLimiter() error = %v", err)
	}

	key := Key("10.0.0.9", "/v1/messages/bulk-text")

	var wg sync.WaitGroup
	allowed := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := l.Allow(context.Background(), key)
			if err != nil {
				t.Errorf("Allow() error = %v", err)
				return
			}
			allowed <- decision.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	allowedCount := 0
	for ok := range allowed {
		if ok {
			allowedCount++
		}
	}
	if allowedCount != workers {
		t.Fatalf("allowed = %d, want %d (no lost increments)", allowedCount, workers)
	}

	decision, _ := l.Allow(context.Background(), key)
	if decision.Allowed {
		t.Fatal("request beyond the max should be denied")
	}
}

func TestNewMemoryLimiterValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewMemoryLimiter(0, time.Minute); err == nil {
		t.Fatal("expected error for max = 0")
	}
	if _, err := NewMemoryLimiter(3, 0); err == nil {
		t.Fatal("expected error for window = 0")
	}
}

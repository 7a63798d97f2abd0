package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial events", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst is refused", rps: 1, burst: 2, calls: 5, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("book-1") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_Every(t *testing.T) {
	rl := Every(time.Hour, 1)
	defer rl.Stop()

	if !rl.Allow("book-1") {
		t.Fatal("first push should be allowed")
	}
	if rl.Allow("book-1") {
		t.Error("second push within the interval should be refused")
	}
	if !rl.Allow("book-2") {
		t.Error("other books are independent")
	}
}

func TestKeyedRateLimiter_Forget(t *testing.T) {
	rl := Every(time.Hour, 1)
	defer rl.Stop()

	rl.Allow("book-1")
	rl.Forget("book-1")

	if !rl.Allow("book-1") {
		t.Error("forgotten key should start with a full bucket")
	}
}

func TestKeyedRateLimiter_Wait(t *testing.T) {
	rl := New(100, 1)
	defer rl.Stop()

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx, "book-1"); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("Wait() returned too quickly: %v", elapsed)
	}
}

func TestKeyedRateLimiter_WaitContextCancelled(t *testing.T) {
	rl := New(0.001, 1)
	defer rl.Stop()

	rl.Allow("book-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rl.Wait(ctx, "book-1"); err == nil {
		t.Error("Wait() should fail on a cancelled context")
	}
}

func TestKeyedRateLimiter_EvictIdle(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(DefaultIdleTTL - time.Minute)
	rl.Allow("recent")
	now = now.Add(2 * time.Minute)

	rl.evictIdle()

	if got := rl.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	rl.mu.Lock()
	_, ok := rl.limiters["recent"]
	rl.mu.Unlock()
	if !ok {
		t.Error("recently used key should survive the sweep")
	}
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(1, 1)
	rl.Stop()
	rl.Stop()
}

package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMethodLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial requests",
			rps:      1,
			burst:    3,
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      1,
			burst:    2,
			calls:    5,
			wantPass: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ml := New(tt.rps, tt.burst)

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if ml.Allow("getClock") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestMethodLimiter_Wait(t *testing.T) {
	ml := New(10, 1) // 10 rps, burst of 1

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// First call should succeed immediately
	start := time.Now()
	if err := ml.Wait(ctx, "getClock"); err != nil {
		t.Errorf("first Wait() failed: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("first Wait() should be immediate")
	}

	// Second call should wait ~100ms (1/10 rps)
	start = time.Now()
	if err := ml.Wait(ctx, "getClock"); err != nil {
		t.Errorf("second Wait() failed: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 80*time.Millisecond || elapsed > 200*time.Millisecond {
		t.Errorf("second Wait() took %v, want ~100ms", elapsed)
	}
}

func TestMethodLimiter_WaitContextCancelled(t *testing.T) {
	ml := New(0.1, 1) // One call per 10 seconds

	// Exhaust the burst
	ml.Allow("getClock")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := ml.Wait(ctx, "getClock"); err == nil {
		t.Error("Wait() should fail when context canceled")
	}
}

func TestMethodLimiter_IndependentMethods(t *testing.T) {
	ml := New(1, 1)

	// Exhaust the clock method
	ml.Allow("getClock")
	if ml.Allow("getClock") {
		t.Error("getClock should be exhausted")
	}

	// Submissions should still pass
	if !ml.Allow("submitEvent") {
		t.Error("submitEvent should be independent and allowed")
	}
}

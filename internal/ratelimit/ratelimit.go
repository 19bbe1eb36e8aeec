// Package ratelimit provides a per-method token bucket limiter for
// outbound ledger RPC traffic. It supports both non-blocking (Allow)
// and blocking (Wait) operations.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// MethodLimiter rate-limits outbound calls per RPC method. Each method
// gets its own independent token bucket, so a chatty clock poll cannot
// starve event submissions.
type MethodLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a per-method limiter.
// rps: requests per second allowed per method.
// burst: tokens available immediately per method.
func New(rps float64, burst int) *MethodLimiter {
	return &MethodLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether a call for the method may proceed right now.
// It never blocks.
func (ml *MethodLimiter) Allow(method string) bool {
	return ml.getLimiter(method).Allow()
}

// Wait blocks until a call for the method is allowed or the context is
// cancelled. Use this on the outbound path so remote limits are
// respected rather than tripped.
func (ml *MethodLimiter) Wait(ctx context.Context, method string) error {
	return ml.getLimiter(method).Wait(ctx)
}

// getLimiter returns the limiter for a method, creating one if needed.
func (ml *MethodLimiter) getLimiter(method string) *rate.Limiter {
	ml.mu.RLock()
	limiter, exists := ml.limiters[method]
	ml.mu.RUnlock()

	if exists {
		return limiter
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	// Double-check after acquiring the write lock.
	if limiter, exists = ml.limiters[method]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(ml.limit, ml.burst)
	ml.limiters[method] = limiter
	return limiter
}

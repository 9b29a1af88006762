package ratelimiter

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// RateLimiter throttles a byte stream using the token bucket algorithm.
//
// This implementation wraps golang.org/x/time/rate with one token per byte:
//   - Sustained throughput is capped at the configured bytes per second
//   - A burst of up to one second of traffic passes without waiting
//   - Waiting is context-aware (respects cancellation)
//
// Transfers larger than the burst are split into burst-sized reservations,
// since rate.Limiter rejects a single WaitN above its burst.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing bytesPerSecond of sustained throughput.
//
// Special cases:
//   - bytesPerSecond = 0: No rate limiting (unlimited)
//
// Example:
//
//	// Cap uploads at 10 MiB/s
//	limiter := New(10 << 20)
func New(bytesPerSecond uint64) *RateLimiter {
	if bytesPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	burst := bytesPerSecond
	if burst > math.MaxInt32 {
		burst = math.MaxInt32
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), int(burst)),
	}
}

// WaitN blocks until n bytes may be transferred or ctx is cancelled.
//
// Returns nil once the bytes are granted, or the context error.
func (r *RateLimiter) WaitN(ctx context.Context, n int) error {
	if r.Unlimited() {
		return ctx.Err()
	}
	burst := r.limiter.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := r.limiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

// Unlimited reports whether the limiter lets everything through.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// BytesPerSecond returns the configured throughput, or 0 when unlimited.
func (r *RateLimiter) BytesPerSecond() uint64 {
	if r.Unlimited() {
		return 0
	}
	return uint64(r.limiter.Limit())
}

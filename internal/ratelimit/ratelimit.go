package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter paces requests to the target site.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// SimpleRateLimiter pauses for the same delay on every Wait call.
type SimpleRateLimiter struct {
	delay time.Duration
	mu    sync.Mutex
	waits int
}

// NewFixedDelay returns a limiter that always pauses for exactly delay.
func NewFixedDelay(delay time.Duration) *SimpleRateLimiter {
	return &SimpleRateLimiter{delay: delay}
}

// Wait blocks for the full delay or until ctx is done.
func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	r.waits++
	r.mu.Unlock()

	if r.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(r.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Waits reports how many times Wait has been called.
func (r *SimpleRateLimiter) Waits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waits
}

package frappekit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket shared by every request of a Client.
type RateLimiter struct {
	maxTokens  int
	refillRate time.Duration
	limiter    *rate.Limiter
}

// NewRateLimiter creates a bucket of maxTokens refilled one token per refillRate.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	limit := rate.Inf
	if refillRate > 0 {
		limit = rate.Every(refillRate)
	}
	return &RateLimiter{
		maxTokens:  maxTokens,
		refillRate: refillRate,
		limiter:    rate.NewLimiter(limit, maxTokens),
	}
}

// Allow checks if a request is allowed by the rate limiter
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// Tokens returns the number of tokens currently available.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}

package frappekit

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	internalbackoff "github.com/ambiyansyah-risyal/frappekit/internal/backoff"
)

// BackoffStrategy selects how the delay between query retries grows.
type BackoffStrategy int

const (
	// ConstantDelay waits InitialBackoff before every retry.
	ConstantDelay BackoffStrategy = iota
	// ExponentialJitter multiplies the delay per attempt and adds jitter.
	ExponentialJitter
	// DecorrelatedJitter picks a random delay in a growing window.
	DecorrelatedJitter
)

// String returns the string representation of the backoff strategy.
func (s BackoffStrategy) String() string {
	switch s {
	case ExponentialJitter:
		return "ExponentialJitter"
	case DecorrelatedJitter:
		return "DecorrelatedJitter"
	default:
		return "ConstantDelay"
	}
}

// RetryPolicy controls the silent retries of a query fetch. Intermediate
// failures are never surfaced; only the error of the last attempt is.
type RetryPolicy struct {
	MaxRetries     int
	Strategy       BackoffStrategy
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64
	// Retryable reports whether err may be retried. Nil retries every error
	// except a cancelled context.
	Retryable func(err error) bool
}

// DefaultRetryPolicy is one retry after a second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     1,
		Strategy:       ConstantDelay,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2,
	}
}

// NoRetry disables retries.
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

func (p RetryPolicy) strategy() internalbackoff.Strategy {
	switch p.Strategy {
	case ExponentialJitter:
		return internalbackoff.ExponentialJitterStrategy{}
	case DecorrelatedJitter:
		return internalbackoff.DecorrelatedJitterStrategy{}
	default:
		return internalbackoff.ConstantStrategy{}
	}
}

func (p RetryPolicy) params() internalbackoff.Params {
	maxBackoff := p.MaxBackoff
	if maxBackoff < p.InitialBackoff {
		maxBackoff = p.InitialBackoff
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}
	return internalbackoff.Params{
		Initial:    p.InitialBackoff,
		Max:        maxBackoff,
		Multiplier: multiplier,
		Jitter:     p.Jitter,
	}
}

func (p RetryPolicy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrQueryDisabled) {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return true
}

// run calls fetch until it succeeds, the error is not retryable or the
// retries are spent. onRetry is called before each retry.
func (p RetryPolicy) run(ctx context.Context, fetch fetchFunc, onRetry func(attempt int, err error, delay time.Duration)) (any, error) {
	if p.MaxRetries <= 0 {
		return fetch(ctx)
	}

	var b backoff.BackOff = internalbackoff.NewSequence(p.strategy(), p.params())
	b = backoff.WithMaxRetries(b, uint64(p.MaxRetries))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	op := func() (any, error) {
		v, err := fetch(ctx)
		if err != nil && !p.retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, delay time.Duration) {
		attempt++
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
	}
	return backoff.RetryNotifyWithData(op, b, notify)
}

func retryLogger(logger hclog.Logger, metrics *MetricsCollector, key Key) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		logger.Debug("retrying query", "key", key.String(), "attempt", attempt, "delay", delay, "error", err)
		metrics.RecordQueryRetry(key.Resource, key.Op)
	}
}

// Package backoff computes the delay between query retry attempts. Strategies
// are pure functions of the attempt number; Sequence adapts a strategy to the
// cenkalti/backoff BackOff interface so it can drive a retry loop.
package backoff

import (
	"math/rand"
	"time"
)

// Params holds the tunables shared by every strategy.
type Params struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Strategy returns the delay before retry number attempt (zero based).
type Strategy interface {
	Delay(attempt int, p Params) time.Duration
}

// ConstantStrategy waits Params.Initial before every retry.
type ConstantStrategy struct{}

// Delay implements Strategy.
func (ConstantStrategy) Delay(_ int, p Params) time.Duration {
	if p.Initial < 0 {
		return 0
	}
	return p.Initial
}

// ExponentialJitterStrategy grows the delay by Multiplier per attempt, capped
// at Max, and adds up to Jitter*delay of uniform noise.
type ExponentialJitterStrategy struct{}

// Delay implements Strategy.
func (ExponentialJitterStrategy) Delay(attempt int, p Params) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Keeps the float product far from overflow.
	if attempt > 30 {
		attempt = 30
	}

	d := time.Duration(float64(p.Initial) * pow(p.Multiplier, attempt))
	if d < 0 || d > p.Max {
		d = p.Max
	}

	jitter := clampJitter(p.Jitter)
	if jitter > 0 {
		extra := time.Duration(float64(d) * jitter * rand.Float64())
		if d+extra > p.Max {
			return p.Max
		}
		d += extra
	}
	return d
}

// DecorrelatedJitterStrategy picks a random delay between Initial and
// min(Max, Initial*3^attempt).
type DecorrelatedJitterStrategy struct{}

// Delay implements Strategy.
func (DecorrelatedJitterStrategy) Delay(attempt int, p Params) time.Duration {
	if attempt <= 0 {
		return p.Initial
	}
	if attempt > 10 {
		attempt = 10
	}

	base := float64(p.Initial)
	upper := base * pow(3.0, attempt)
	if upper > float64(p.Max) || upper < 0 {
		upper = float64(p.Max)
	}
	if upper < base {
		upper = base
	}

	d := time.Duration(base + rand.Float64()*(upper-base))
	if d < 0 || d > p.Max {
		d = p.Max
	}
	return d
}

func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}

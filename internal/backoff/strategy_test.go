package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstantStrategy(t *testing.T) {
	p := Params{Initial: 250 * time.Millisecond, Max: time.Second}
	for attempt := 0; attempt < 5; attempt++ {
		assert.Equal(t, 250*time.Millisecond, ConstantStrategy{}.Delay(attempt, p))
	}
	assert.Zero(t, ConstantStrategy{}.Delay(0, Params{Initial: -time.Second}))
}

func TestExponentialJitterStrategy(t *testing.T) {
	p := Params{Initial: 100 * time.Millisecond, Max: 5 * time.Second, Multiplier: 2}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{10, 5 * time.Second},
		{100, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ExponentialJitterStrategy{}.Delay(tt.attempt, p), "attempt %d", tt.attempt)
	}
}

func TestExponentialJitterStaysWithinBounds(t *testing.T) {
	p := Params{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2, Jitter: 0.5}
	for i := 0; i < 50; i++ {
		d := ExponentialJitterStrategy{}.Delay(1, p)
		assert.GreaterOrEqual(t, d, 200*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestDecorrelatedJitterStrategy(t *testing.T) {
	p := Params{Initial: 100 * time.Millisecond, Max: 5 * time.Second}

	assert.Equal(t, 100*time.Millisecond, DecorrelatedJitterStrategy{}.Delay(0, p))
	for i := 0; i < 50; i++ {
		d := DecorrelatedJitterStrategy{}.Delay(1, p)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
	assert.LessOrEqual(t, DecorrelatedJitterStrategy{}.Delay(50, p), 5*time.Second)
}

func TestClampJitter(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.5, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, clampJitter(tt.input))
	}
}

package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSequenceAdvancesAndResets(t *testing.T) {
	s := NewSequence(ExponentialJitterStrategy{}, Params{
		Initial:    10 * time.Millisecond,
		Max:        time.Second,
		Multiplier: 2,
	})

	assert.Equal(t, 10*time.Millisecond, s.NextBackOff())
	assert.Equal(t, 20*time.Millisecond, s.NextBackOff())
	assert.Equal(t, 40*time.Millisecond, s.NextBackOff())

	s.Reset()
	assert.Equal(t, 10*time.Millisecond, s.NextBackOff())
}

func TestSequenceDefaultsToConstant(t *testing.T) {
	s := NewSequence(nil, Params{Initial: 5 * time.Millisecond})
	assert.Equal(t, 5*time.Millisecond, s.NextBackOff())
	assert.Equal(t, 5*time.Millisecond, s.NextBackOff())
}

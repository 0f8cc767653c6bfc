package backoff

import (
	"sync"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

// Sequence is a stateful cenkalti BackOff that asks a Strategy for each
// successive delay.
type Sequence struct {
	mu       sync.Mutex
	strategy Strategy
	params   Params
	attempt  int
}

var _ cbackoff.BackOff = (*Sequence)(nil)

// NewSequence returns a Sequence starting at attempt zero. A nil strategy
// falls back to ConstantStrategy.
func NewSequence(strategy Strategy, p Params) *Sequence {
	if strategy == nil {
		strategy = ConstantStrategy{}
	}
	return &Sequence{strategy: strategy, params: p}
}

// NextBackOff implements cenkalti/backoff.BackOff.
func (s *Sequence) NextBackOff() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.strategy.Delay(s.attempt, s.params)
	s.attempt++
	return d
}

// Reset implements cenkalti/backoff.BackOff.
func (s *Sequence) Reset() {
	s.mu.Lock()
	s.attempt = 0
	s.mu.Unlock()
}

package frappekit

import (
	"context"
	"sync"
)

// Phase is the lifecycle position of a Mutation.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// MutationState is a snapshot of a Mutation.
type MutationState[T any] struct {
	Phase     Phase
	Result    T
	HasResult bool
	Err       error
}

// IsIdle, IsRunning, IsSuccess and IsError mirror Phase.
func (s MutationState[T]) IsIdle() bool    { return s.Phase == PhaseIdle }
func (s MutationState[T]) IsRunning() bool { return s.Phase == PhaseRunning }
func (s MutationState[T]) IsSuccess() bool { return s.Phase == PhaseSucceeded }
func (s MutationState[T]) IsError() bool   { return s.Phase == PhaseFailed }

// MutationFunc performs one write.
type MutationFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// Mutation wraps a one-shot write with an idle/running/succeeded/failed
// lifecycle. It never retries and never touches the query cache.
//
// Run does not guard against overlapping calls: when two runs overlap, the
// one that completes last decides the state.
type Mutation[In, Out any] struct {
	name    string
	fn      MutationFunc[In, Out]
	metrics *MetricsCollector

	mu    sync.Mutex
	state MutationState[Out]
}

// NewMutation returns an idle mutation. name labels metrics.
func NewMutation[In, Out any](name string, fn MutationFunc[In, Out]) *Mutation[In, Out] {
	return &Mutation[In, Out]{name: name, fn: fn}
}

// WithMutationMetrics records the outcome of every run on m.
func (m *Mutation[In, Out]) WithMutationMetrics(mc *MetricsCollector) *Mutation[In, Out] {
	m.metrics = mc
	return m
}

// Name returns the mutation's label.
func (m *Mutation[In, Out]) Name() string {
	return m.name
}

// Run performs the write. The error is both stored and returned.
func (m *Mutation[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	m.mu.Lock()
	m.state = MutationState[Out]{Phase: PhaseRunning}
	m.mu.Unlock()

	out, err := m.fn(ctx, in)
	err = asClientError(err)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = MutationState[Out]{Phase: PhaseFailed, Err: err}
		m.metrics.RecordMutation(m.name, "failed")
		var zero Out
		return zero, err
	}
	m.state = MutationState[Out]{Phase: PhaseSucceeded, Result: out, HasResult: true}
	m.metrics.RecordMutation(m.name, "succeeded")
	return out, nil
}

// Reset returns the mutation to idle. It is always allowed.
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	m.state = MutationState[Out]{}
	m.mu.Unlock()
}

// State returns the current snapshot.
func (m *Mutation[In, Out]) State() MutationState[Out] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

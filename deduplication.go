package frappekit

import (
	"context"
)

// fetchFunc is a type-erased query fetcher.
type fetchFunc func(ctx context.Context) (any, error)

// flight is an in-flight fetch shared between every caller of a key. It is
// registered on the cache entry before its goroutine starts, so an
// observation made right after sees the key as loading.
type flight struct {
	seq  uint64
	done chan struct{}
	val  any
	err  error
}

func newFlight(seq uint64) *flight {
	return &flight{seq: seq, done: make(chan struct{})}
}

// complete publishes the result and releases waiters. It must be called
// exactly once.
func (f *flight) complete(val any, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

// Wait blocks until the owning fetch completes or ctx cancels.
func (f *flight) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done reports whether the fetch has completed.
func (f *flight) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Package clock abstracts the time operations frappekit depends on so that
// staleness windows and debounce timers can be driven deterministically in
// tests.
//
// Production code uses Real(). Tests use Fake(), whose time only moves when
// Advance is called; AfterFunc callbacks that become due fire synchronously
// inside Advance, in deadline order.
package clock

import "time"

// Clock is the subset of the time package used by the cache engine and the
// debounced search.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop cancels the call. It reports false when the call already fired
	// or was stopped before.
	Stop() bool
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

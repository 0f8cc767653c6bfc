package frappekit

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ambiyansyah-risyal/frappekit/internal/clock"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeTransport records requests and answers them with respond.
type fakeTransport struct {
	mu       sync.Mutex
	requests []*Request
	respond  func(ctx context.Context, r *Request) (*Envelope, error)
}

func (f *fakeTransport) Send(ctx context.Context, r *Request) (*Envelope, error) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return jsonEnvelope(`{}`), nil
	}
	return respond(ctx, r)
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTransport) last() *Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func jsonEnvelope(body string) *Envelope {
	return &Envelope{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

func newTestQueryClient(t Transport, opts ...CacheOption) (*QueryClient, *clock.FakeClock) {
	fc := clock.Fake(testEpoch)
	opts = append([]CacheOption{WithClock(fc), WithDefaultRetry(NoRetry())}, opts...)
	return NewQueryClient(t, opts...), fc
}

// waitIdle blocks until the key has no fetch running.
func waitIdle[T any](t *testing.T, q *Query[T]) Status[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := q.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}
	return st
}

package frappekit

import (
	"context"
	"time"
)

// QueryOption configures a Query.
type QueryOption func(*queryConfig)

type queryConfig struct {
	enabled   bool
	staleTime *time.Duration
	retry     *RetryPolicy
}

// WithEnabled turns automatic fetching on or off. A disabled query keeps
// reporting the last known data and error.
func WithEnabled(enabled bool) QueryOption {
	return func(c *queryConfig) {
		c.enabled = c.enabled && enabled
	}
}

// WithStaleTime overrides the client's default stale time.
func WithStaleTime(d time.Duration) QueryOption {
	return func(c *queryConfig) {
		c.staleTime = &d
	}
}

// WithRetry overrides the client's default retry policy.
func WithRetry(p RetryPolicy) QueryOption {
	return func(c *queryConfig) {
		c.retry = &p
	}
}

// Query is a typed view of one cache key together with the function that
// fetches it. Queries are cheap; several may share a key and then share its
// entry and its in-flight fetch.
type Query[T any] struct {
	qc        *QueryClient
	key       Key
	fetch     func(ctx context.Context) (T, error)
	enabled   bool
	staleTime time.Duration
	retry     RetryPolicy
}

// NewQuery binds key and fetch to qc.
func NewQuery[T any](qc *QueryClient, key Key, fetch func(ctx context.Context) (T, error), opts ...QueryOption) *Query[T] {
	cfg := queryConfig{enabled: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	q := &Query[T]{
		qc:        qc,
		key:       key,
		fetch:     fetch,
		enabled:   cfg.enabled,
		staleTime: qc.staleTime,
		retry:     qc.retry,
	}
	if cfg.staleTime != nil {
		q.staleTime = *cfg.staleTime
	}
	if cfg.retry != nil {
		q.retry = *cfg.retry
	}
	return q
}

// Key returns the cache key of q.
func (q *Query[T]) Key() Key {
	return q.key
}

// Enabled reports whether q fetches automatically.
func (q *Query[T]) Enabled() bool {
	return q.enabled
}

func (q *Query[T]) erased() fetchFunc {
	fetch := q.fetch
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}

// bindLocked returns the entry of q, creating it, and records q's fetcher
// for InvalidateQueries.
func (q *Query[T]) bindLocked() *cacheEntry {
	e := q.qc.entryLocked(q.key)
	e.fetch = q.erased()
	e.retry = q.retry
	return e
}

// register binds q's fetcher to its key without fetching, so that
// InvalidateQueries refetches the key even if q was never observed.
func (q *Query[T]) register() {
	q.qc.mu.Lock()
	q.bindLocked()
	q.qc.mu.Unlock()
}

// Observe reports the current status of q and, if q is enabled and its data
// is missing or stale, starts a background fetch. Stale data is still
// returned, flagged IsValidating. A key whose last fetch failed before any
// data arrived is left alone until Refetch, Fetch or an invalidation.
func (q *Query[T]) Observe(ctx context.Context) Status[T] {
	qc := q.qc
	qc.mu.Lock()
	if !q.enabled {
		snap := qc.entries[q.key].snapshot()
		qc.mu.Unlock()
		return project[T](snap, false)
	}

	e := q.bindLocked()
	switch {
	case e.flight != nil:
	case e.failed():
	case e.stale(qc.clock.Now(), q.staleTime):
		qc.metrics.RecordCacheMiss(q.key.Resource, q.key.Op)
		qc.startFetchLocked(ctx, q.key, e, e.fetch, q.retry)
	default:
		qc.metrics.RecordCacheHit(q.key.Resource, q.key.Op)
	}
	snap := e.snapshot()
	qc.mu.Unlock()

	return project[T](snap, true)
}

// Fetch returns fresh data for q, waiting for a fetch when the cached data is
// missing or stale. Concurrent callers share one network call.
func (q *Query[T]) Fetch(ctx context.Context) (T, error) {
	var zero T
	if !q.enabled {
		return zero, ErrQueryDisabled
	}

	qc := q.qc
	qc.mu.Lock()
	e := q.bindLocked()
	f := e.flight
	switch {
	case f != nil:
		qc.metrics.RecordDeduplicationHit(q.key.Resource, q.key.Op)
	case e.stale(qc.clock.Now(), q.staleTime):
		qc.metrics.RecordCacheMiss(q.key.Resource, q.key.Op)
		f, _ = qc.startFetchLocked(ctx, q.key, e, e.fetch, q.retry)
	default:
		qc.metrics.RecordCacheHit(q.key.Resource, q.key.Op)
		v, _ := e.data.(T)
		qc.mu.Unlock()
		return v, nil
	}
	qc.mu.Unlock()

	return waitTyped[T](ctx, f)
}

// Refetch forces a fetch regardless of staleness or the enabled flag. If a
// fetch for the key is already running, Refetch waits for that one.
func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	qc := q.qc
	qc.mu.Lock()
	e := q.bindLocked()
	f, started := qc.startFetchLocked(ctx, q.key, e, e.fetch, q.retry)
	if !started {
		qc.metrics.RecordDeduplicationHit(q.key.Resource, q.key.Op)
	}
	qc.mu.Unlock()

	return waitTyped[T](ctx, f)
}

// Wait blocks until no fetch is running for the key and returns the
// resulting status.
func (q *Query[T]) Wait(ctx context.Context) (Status[T], error) {
	for {
		q.qc.mu.Lock()
		var f *flight
		if e, ok := q.qc.entries[q.key]; ok {
			f = e.flight
		}
		q.qc.mu.Unlock()

		if f == nil {
			return q.Status(), nil
		}
		select {
		case <-f.done:
		case <-ctx.Done():
			return q.Status(), ctx.Err()
		}
	}
}

// Status is the pure view of q's entry. It never fetches.
func (q *Query[T]) Status() Status[T] {
	q.qc.mu.Lock()
	snap := q.qc.entries[q.key].snapshot()
	q.qc.mu.Unlock()
	return project[T](snap, q.enabled)
}

func waitTyped[T any](ctx context.Context, f *flight) (T, error) {
	var zero T
	val, err := f.Wait(ctx)
	if err != nil {
		return zero, err
	}
	v, _ := val.(T)
	return v, nil
}

// project derives the status tuple from an entry snapshot.
func project[T any](s entrySnapshot, enabled bool) Status[T] {
	st := Status[T]{
		HasData:      s.hasData,
		Err:          s.err,
		UpdatedAt:    s.fetchedAt,
		IsValidating: s.inFlight,
		IsLoading:    enabled && s.inFlight && !s.hasData,
	}
	if s.hasData {
		st.Data, _ = s.data.(T)
	}
	return st
}

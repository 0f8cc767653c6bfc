package frappekit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/ambiyansyah-risyal/frappekit/internal/clock"
)

// DefaultStaleTime is how long fetched data is served without revalidation.
const DefaultStaleTime = 30 * time.Second

// cacheEntry is the state kept per Key. Every field is guarded by
// QueryClient.mu.
type cacheEntry struct {
	data      any
	hasData   bool
	err       error
	fetchedAt time.Time

	invalidated   bool
	invalidatedAt uint64

	flight *flight
	// issued counts fetches started and explicit writes; completed is the
	// sequence number of the newest result applied to the entry.
	issued    uint64
	completed uint64

	fetch fetchFunc
	retry RetryPolicy
}

type entrySnapshot struct {
	data      any
	hasData   bool
	err       error
	fetchedAt time.Time
	inFlight  bool
}

func (e *cacheEntry) snapshot() entrySnapshot {
	if e == nil {
		return entrySnapshot{}
	}
	return entrySnapshot{
		data:      e.data,
		hasData:   e.hasData,
		err:       e.err,
		fetchedAt: e.fetchedAt,
		inFlight:  e.flight != nil,
	}
}

// failed reports an entry holding only an error that nobody invalidated.
func (e *cacheEntry) failed() bool {
	return !e.hasData && e.err != nil && !e.invalidated
}

func (e *cacheEntry) stale(now time.Time, staleTime time.Duration) bool {
	if !e.hasData || e.invalidated {
		return true
	}
	return now.Sub(e.fetchedAt) >= staleTime
}

// QueryClient is the session-wide query cache shared by every query,
// search and the auth manager. It is safe for concurrent use.
type QueryClient struct {
	transport Transport
	clock     clock.Clock
	staleTime time.Duration
	retry     RetryPolicy
	logger    hclog.Logger
	metrics   *MetricsCollector

	mu      sync.Mutex
	entries map[Key]*cacheEntry
}

// CacheOption configures a QueryClient.
type CacheOption func(*QueryClient)

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) CacheOption {
	return func(qc *QueryClient) {
		qc.clock = c
	}
}

// WithDefaultStaleTime sets the stale time of queries that do not set one.
func WithDefaultStaleTime(d time.Duration) CacheOption {
	return func(qc *QueryClient) {
		qc.staleTime = d
	}
}

// WithDefaultRetry sets the retry policy of queries that do not set one.
func WithDefaultRetry(p RetryPolicy) CacheOption {
	return func(qc *QueryClient) {
		qc.retry = p
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(logger hclog.Logger) CacheOption {
	return func(qc *QueryClient) {
		if logger == nil {
			logger = hclog.NewNullLogger()
		}
		qc.logger = logger.Named("cache")
	}
}

// WithCacheMetrics sets the metrics collector.
func WithCacheMetrics(m *MetricsCollector) CacheOption {
	return func(qc *QueryClient) {
		qc.metrics = m
	}
}

// NewQueryClient returns an empty cache over t.
func NewQueryClient(t Transport, opts ...CacheOption) *QueryClient {
	qc := &QueryClient{
		transport: t,
		clock:     clock.Real(),
		staleTime: DefaultStaleTime,
		retry:     DefaultRetryPolicy(),
		logger:    hclog.NewNullLogger(),
		entries:   make(map[Key]*cacheEntry),
	}
	for _, opt := range opts {
		opt(qc)
	}
	return qc
}

// Transport returns the transport queries fetch through.
func (qc *QueryClient) Transport() Transport {
	return qc.transport
}

// Clock returns the clock driving staleness and debounce timers.
func (qc *QueryClient) Clock() clock.Clock {
	return qc.clock
}

// Logger returns the cache logger.
func (qc *QueryClient) Logger() hclog.Logger {
	return qc.logger
}

func (qc *QueryClient) entryLocked(key Key) *cacheEntry {
	e, ok := qc.entries[key]
	if !ok {
		e = &cacheEntry{}
		qc.entries[key] = e
		qc.metrics.RecordCacheSize(len(qc.entries))
	}
	return e
}

// startFetchLocked returns the flight for key, starting one when none is
// running. The fetch runs detached from ctx cancellation.
func (qc *QueryClient) startFetchLocked(ctx context.Context, key Key, e *cacheEntry, fetch fetchFunc, retry RetryPolicy) (*flight, bool) {
	if e.flight != nil {
		return e.flight, false
	}
	e.issued++
	f := newFlight(e.issued)
	e.flight = f

	qc.logger.Debug("fetch started", "key", key.String(), "seq", f.seq)
	go qc.runFlight(context.WithoutCancel(ctx), key, e, f, fetch, retry)
	return f, true
}

func (qc *QueryClient) runFlight(ctx context.Context, key Key, e *cacheEntry, f *flight, fetch fetchFunc, retry RetryPolicy) {
	val, err := retry.run(ctx, fetch, retryLogger(qc.logger, qc.metrics, key))
	err = asClientError(err)

	qc.mu.Lock()
	if e.flight == f {
		e.flight = nil
	}
	switch {
	case qc.entries[key] != e:
		qc.logger.Debug("fetch result dropped, entry replaced", "key", key.String(), "seq", f.seq)
	case f.seq <= e.completed:
		qc.logger.Debug("fetch result dropped, newer result applied", "key", key.String(), "seq", f.seq)
	default:
		e.completed = f.seq
		if err != nil {
			e.err = err
			qc.logger.Debug("fetch failed", "key", key.String(), "seq", f.seq, "error", err)
		} else {
			e.data = val
			e.hasData = true
			e.err = nil
			e.fetchedAt = qc.clock.Now()
			if f.seq > e.invalidatedAt {
				e.invalidated = false
			}
			qc.logger.Debug("fetch completed", "key", key.String(), "seq", f.seq)
		}
	}
	qc.mu.Unlock()

	f.complete(val, err)
}

// Invalidate marks key stale. The next observation refetches it.
func (qc *QueryClient) Invalidate(key Key) {
	qc.InvalidateMatching(MatchKey(key))
}

// InvalidateResource marks every key of resource stale.
func (qc *QueryClient) InvalidateResource(resource string) {
	qc.InvalidateMatching(MatchResource(resource))
}

// InvalidateMatching marks every matching key stale and returns how many
// entries it touched.
func (qc *QueryClient) InvalidateMatching(match KeyMatcher) int {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	n := 0
	for k, e := range qc.entries {
		if match(k) {
			qc.invalidateLocked(e)
			n++
		}
	}
	return n
}

func (qc *QueryClient) invalidateLocked(e *cacheEntry) {
	e.invalidated = true
	e.invalidatedAt = e.issued
}

// InvalidateQueries marks every matching key stale and refetches, in
// parallel, those that have been observed with a fetcher. A fetch already
// running when the key is invalidated does not count; a new one is started
// after it. It returns the first refetch error.
func (qc *QueryClient) InvalidateQueries(ctx context.Context, match KeyMatcher) error {
	type target struct {
		key   Key
		entry *cacheEntry
		after uint64
	}

	qc.mu.Lock()
	var targets []target
	for k, e := range qc.entries {
		if !match(k) {
			continue
		}
		qc.invalidateLocked(e)
		if e.fetch != nil {
			targets = append(targets, target{key: k, entry: e, after: e.invalidatedAt})
		}
	}
	qc.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			return qc.refetchAfter(gctx, t.key, t.entry, t.after)
		})
	}
	return g.Wait()
}

// refetchAfter waits until e holds a result of a fetch with a sequence number
// above after, starting that fetch if needed.
func (qc *QueryClient) refetchAfter(ctx context.Context, key Key, e *cacheEntry, after uint64) error {
	for {
		qc.mu.Lock()
		if qc.entries[key] != e || e.fetch == nil {
			qc.mu.Unlock()
			return nil
		}
		f := e.flight
		if f == nil {
			if e.completed > after {
				err := e.err
				qc.mu.Unlock()
				return err
			}
			f, _ = qc.startFetchLocked(ctx, key, e, e.fetch, e.retry)
		}
		qc.mu.Unlock()

		_, err := f.Wait(ctx)
		if f.seq > after || ctx.Err() != nil {
			return err
		}
	}
}

// SetData stores v as the fresh value of key. A fetch in flight for key when
// SetData is called does not overwrite v.
func (qc *QueryClient) SetData(key Key, v any) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	e := qc.entryLocked(key)
	e.issued++
	e.completed = e.issued
	e.data = v
	e.hasData = true
	e.err = nil
	e.fetchedAt = qc.clock.Now()
	e.invalidated = false
}

// GetData returns the cached value of key.
func (qc *QueryClient) GetData(key Key) (any, bool) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	e, ok := qc.entries[key]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// Remove drops key. A fetch in flight for it is discarded on completion.
func (qc *QueryClient) Remove(key Key) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	delete(qc.entries, key)
	qc.metrics.RecordCacheSize(len(qc.entries))
}

// Clear drops every entry. Fetches in flight are discarded on completion.
func (qc *QueryClient) Clear() {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	qc.entries = make(map[Key]*cacheEntry)
	qc.metrics.RecordCacheSize(0)
	qc.logger.Debug("cache cleared")
}

// Len returns the number of entries.
func (qc *QueryClient) Len() int {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	return len(qc.entries)
}

// Keys returns the keys currently cached, in no particular order.
func (qc *QueryClient) Keys() []Key {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	keys := make([]Key, 0, len(qc.entries))
	for k := range qc.entries {
		keys = append(keys, k)
	}
	return keys
}

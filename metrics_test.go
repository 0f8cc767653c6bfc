package frappekit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) (*MetricsCollector, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	return NewMetricsCollectorWithRegistry(registry), registry
}

func TestNewMetricsCollectorWithRegistry(t *testing.T) {
	mc, registry := newTestMetrics(t)

	if mc.Registerer() != prometheus.Registerer(registry) {
		t.Error("Expected the collector to keep its registerer")
	}
	mc.RecordCacheSize(3)
	if got := testutil.ToFloat64(mc.cacheSize); got != 3 {
		t.Errorf("Expected cache size 3, got %v", got)
	}
}

func TestNilMetricsCollector(t *testing.T) {
	var mc *MetricsCollector

	mc.RecordRequest("GET", "/", 200, time.Second)
	mc.RecordRequestStart("GET", "/")
	mc.RecordRequestEnd("GET", "/")
	mc.RecordError("Network", "GET", "/")
	mc.RecordRateLimiterTokens("default", 1)
	mc.RecordCacheHit("ToDo", "doc")
	mc.RecordCacheMiss("ToDo", "doc")
	mc.RecordCacheSize(1)
	mc.RecordDeduplicationHit("ToDo", "doc")
	mc.RecordQueryRetry("ToDo", "doc")
	mc.RecordMutation("x", "succeeded")
	mc.RecordRedirect("guard", "/login")
	if mc.Registerer() != nil {
		t.Error("Expected a nil registerer")
	}
}

func TestClientRecordsRequestMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/resource/ToDo/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	mc, _ := newTestMetrics(t)
	client := New(WithBaseURL(server.URL), WithMetricsCollector(mc))
	client.Send(context.Background(), &Request{Path: "/api/resource/ToDo/a"})
	client.Send(context.Background(), &Request{Path: "/api/resource/ToDo/missing"})

	if got := testutil.ToFloat64(mc.requestsTotal.WithLabelValues("GET", "200", "/api/resource/ToDo/:id")); got != 1 {
		t.Errorf("Expected 1 successful request, got %v", got)
	}
	if got := testutil.ToFloat64(mc.errorsTotal.WithLabelValues("Server", "GET", "/api/resource/ToDo/:id")); got != 1 {
		t.Errorf("Expected 1 server error, got %v", got)
	}
	if got := testutil.ToFloat64(mc.requestsInFlight.WithLabelValues("GET", "/api/resource/ToDo/:id")); got != 0 {
		t.Errorf("Expected no requests in flight, got %v", got)
	}
}

func TestQueryCacheMetrics(t *testing.T) {
	mc, _ := newTestMetrics(t)
	tr := &fakeTransport{}
	qc, fc := newTestQueryClient(tr, WithCacheMetrics(mc))
	q := GetDoc[Document](qc, "ToDo", "a")

	q.Fetch(context.Background())
	q.Fetch(context.Background())
	q.Observe(context.Background())
	fc.Advance(DefaultStaleTime)
	q.Fetch(context.Background())

	if got := testutil.ToFloat64(mc.cacheMisses.WithLabelValues("ToDo", "doc")); got != 2 {
		t.Errorf("Expected 2 misses, got %v", got)
	}
	if got := testutil.ToFloat64(mc.cacheHits.WithLabelValues("ToDo", "doc")); got != 2 {
		t.Errorf("Expected 2 hits, got %v", got)
	}
	if got := testutil.ToFloat64(mc.cacheSize); got != 1 {
		t.Errorf("Expected 1 entry, got %v", got)
	}
}

func TestQueryRetryMetrics(t *testing.T) {
	mc, _ := newTestMetrics(t)
	tr := &fakeTransport{respond: func(ctx context.Context, r *Request) (*Envelope, error) {
		return nil, &ClientError{Kind: ErrorKindServer, StatusCode: 503, Message: "down"}
	}}
	qc, _ := newTestQueryClient(tr, WithCacheMetrics(mc),
		WithDefaultRetry(RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond}))

	GetDoc[Document](qc, "ToDo", "a").Fetch(context.Background())
	if got := testutil.ToFloat64(mc.queryRetries.WithLabelValues("ToDo", "doc")); got != 2 {
		t.Errorf("Expected 2 retries, got %v", got)
	}
}

func TestMutationMetrics(t *testing.T) {
	mc, _ := newTestMetrics(t)
	ok := true
	m := NewMutation("save", func(ctx context.Context, in int) (int, error) {
		if !ok {
			return 0, &ClientError{Kind: ErrorKindServer, Message: "no"}
		}
		return in, nil
	}).WithMutationMetrics(mc)

	m.Run(context.Background(), 1)
	ok = false
	m.Run(context.Background(), 2)

	if got := testutil.ToFloat64(mc.mutationsTotal.WithLabelValues("save", "succeeded")); got != 1 {
		t.Errorf("Expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(mc.mutationsTotal.WithLabelValues("save", "failed")); got != 1 {
		t.Errorf("Expected 1 failure, got %v", got)
	}
}

func TestRedirectMetrics(t *testing.T) {
	mc, _ := newTestMetrics(t)
	nav := &fakeNavigator{path: "/app"}
	backend := &sessionBackend{identityErr: &ClientError{Kind: ErrorKindUnauthorized, StatusCode: 401}}
	qc, _ := newTestQueryClient(backend)

	resolve(t, NewAuth(qc, nav, WithAuthMetrics(mc)))
	if got := testutil.ToFloat64(mc.redirectsTotal.WithLabelValues("auth", DefaultLoginPath)); got != 1 {
		t.Errorf("Expected 1 redirect, got %v", got)
	}
}

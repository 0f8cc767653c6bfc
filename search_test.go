package frappekit

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func searchTransport() *fakeTransport {
	return &fakeTransport{respond: func(ctx context.Context, r *Request) (*Envelope, error) {
		return jsonEnvelope(`{"data":[{"name":"T1"}]}`), nil
	}}
}

func filtersOf(t *testing.T, r *Request) []Filter {
	t.Helper()
	var filters []Filter
	if err := json.Unmarshal([]byte(r.Params.Get("filters")), &filters); err != nil {
		t.Fatalf("bad filters %q: %v", r.Params.Get("filters"), err)
	}
	return filters
}

func TestSearchDebounce(t *testing.T) {
	tr := searchTransport()
	qc, fc := newTestQueryClient(tr)
	s := NewSearch[Document](qc, "Task", "", SearchOptions{Field: "subject"})
	defer s.Close()

	for _, text := range []string{"a", "ab", "abc"} {
		s.SetText(text)
		fc.Advance(50 * time.Millisecond)
	}
	if tr.calls() != 0 {
		t.Fatalf("Expected no request before the text settles, got %d", tr.calls())
	}
	if s.Text() != "abc" || s.DebouncedText() != "" {
		t.Errorf("Unexpected text %q / %q", s.Text(), s.DebouncedText())
	}

	fc.Advance(DefaultSearchDebounce)
	st, err := s.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}

	if tr.calls() != 1 {
		t.Fatalf("Expected exactly 1 request, got %d", tr.calls())
	}
	filters := filtersOf(t, tr.last())
	if len(filters) != 1 || filters[0].Field != "subject" || filters[0].Operator != OpLike || filters[0].Value != "%abc%" {
		t.Errorf("Unexpected filters %+v", filters)
	}
	if len(st.Data) != 1 || st.Data[0].Name() != "T1" {
		t.Errorf("Unexpected results %+v", st)
	}
}

func TestSearchBlankTextNeverFetches(t *testing.T) {
	tr := searchTransport()
	qc, fc := newTestQueryClient(tr)
	s := NewSearch[Document](qc, "Task", "   ", SearchOptions{})
	defer s.Close()

	st := s.Observe(context.Background())
	s.SetText("")
	fc.Advance(time.Second)

	if st.IsLoading || st.HasData {
		t.Errorf("Expected an idle status, got %+v", st)
	}
	if tr.calls() != 0 {
		t.Errorf("Expected no requests, got %d", tr.calls())
	}
}

func TestSearchInitialTextIsSettled(t *testing.T) {
	tr := searchTransport()
	qc, _ := newTestQueryClient(tr)
	s := NewSearch[Document](qc, "Task", "docs", SearchOptions{
		ListArgs: ListArgs{Filters: []Filter{F("status", OpEquals, "Open")}, Limit: Int(5)},
	})
	defer s.Close()

	s.Observe(context.Background())
	if _, err := s.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}

	req := tr.last()
	if req == nil {
		t.Fatal("Expected a request for the initial text")
	}
	filters := filtersOf(t, req)
	if len(filters) != 2 || filters[0].Field != DefaultSearchField || filters[1].Field != "status" {
		t.Errorf("Expected the search filter before the extra filters, got %+v", filters)
	}
	if req.Params.Get("limit") != "5" {
		t.Errorf("Expected limit 5, got %q", req.Params.Get("limit"))
	}
}

func TestSearchSharesListCache(t *testing.T) {
	tr := searchTransport()
	qc, fc := newTestQueryClient(tr)
	s := NewSearch[Document](qc, "Task", "", SearchOptions{})
	defer s.Close()

	s.SetText("x")
	fc.Advance(DefaultSearchDebounce)
	s.Wait(context.Background())

	list := GetList[Document](qc, "Task", s.Args())
	if st := list.Status(); !st.HasData {
		t.Errorf("Expected the search results under the list key, got %+v", st)
	}
}

func TestSearchClose(t *testing.T) {
	tr := searchTransport()
	qc, fc := newTestQueryClient(tr)
	s := NewSearch[Document](qc, "Task", "", SearchOptions{})

	s.SetText("abc")
	s.Close()
	s.Close()
	fc.Advance(time.Second)
	s.SetText("abcd")
	fc.Advance(time.Second)

	if tr.calls() != 0 {
		t.Errorf("Expected no requests after Close, got %d", tr.calls())
	}
	if fc.Pending() != 0 {
		t.Errorf("Expected no pending timers, got %d", fc.Pending())
	}
	if !strings.Contains(s.Text(), "abc") || s.DebouncedText() != "" {
		t.Errorf("Unexpected text %q / %q", s.Text(), s.DebouncedText())
	}
}

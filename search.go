package frappekit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ambiyansyah-risyal/frappekit/internal/clock"
)

const (
	// DefaultSearchDebounce is the quiet period before search text settles.
	DefaultSearchDebounce = 300 * time.Millisecond
	// DefaultSearchField is matched against the search text.
	DefaultSearchField = "name"
)

// SearchOptions configures a Search. The embedded ListArgs are passed to the
// list query; its Filters are AND-ed after the search filter.
type SearchOptions struct {
	ListArgs
	Field    string
	Debounce time.Duration
	// QueryOptions are applied to every underlying list query.
	QueryOptions []QueryOption
}

// Search is a debounced "contains" search over a doctype. Only text that
// stays unchanged for the debounce period reaches the backend; each settled
// text is an ordinary GetList query and shares its cache.
type Search[T any] struct {
	qc      *QueryClient
	doctype string
	opts    SearchOptions
	clock   clock.Clock

	mu        sync.Mutex
	text      string
	debounced string
	gen       uint64
	timer     clock.Timer
	closed    bool
}

// NewSearch returns a search whose initial text is already settled.
func NewSearch[T any](qc *QueryClient, doctype, initialText string, opts SearchOptions) *Search[T] {
	if opts.Field == "" {
		opts.Field = DefaultSearchField
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultSearchDebounce
	}
	return &Search[T]{
		qc:        qc,
		doctype:   doctype,
		opts:      opts,
		clock:     qc.Clock(),
		text:      initialText,
		debounced: initialText,
	}
}

// SetText records new search text and restarts the debounce timer. When the
// timer fires the settled text is fetched without further calls.
func (s *Search[T]) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.text = text
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(s.opts.Debounce, func() {
		s.settle(gen, text)
	})
}

func (s *Search[T]) settle(gen uint64, text string) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.debounced = text
	s.timer = nil
	s.mu.Unlock()

	s.qc.Logger().Debug("search text settled", "doctype", s.doctype, "text", text)
	s.query().Observe(context.Background())
}

// Text returns the latest text passed to SetText.
func (s *Search[T]) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// DebouncedText returns the settled text the results are for.
func (s *Search[T]) DebouncedText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debounced
}

// Args returns the list arguments of the settled text.
func (s *Search[T]) Args() ListArgs {
	args, _ := s.args()
	return args
}

func (s *Search[T]) args() (ListArgs, bool) {
	text := strings.TrimSpace(s.DebouncedText())

	args := s.opts.ListArgs
	var filters []Filter
	if text != "" {
		filters = append(filters, F(s.opts.Field, OpLike, "%"+text+"%"))
	}
	filters = append(filters, s.opts.Filters...)
	args.Filters = nil
	if len(filters) > 0 {
		args.Filters = filters
	}
	return args, text != ""
}

func (s *Search[T]) query() *Query[[]T] {
	args, enabled := s.args()
	opts := make([]QueryOption, 0, len(s.opts.QueryOptions)+1)
	opts = append(opts, s.opts.QueryOptions...)
	opts = append(opts, WithEnabled(enabled))
	return GetList[T](s.qc, s.doctype, args, opts...)
}

// Observe reports the results for the settled text, fetching them if needed.
// Empty or whitespace text never fetches. A closed search only reports.
func (s *Search[T]) Observe(ctx context.Context) Status[[]T] {
	q := s.query()
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return q.Status()
	}
	return q.Observe(ctx)
}

// Wait blocks until the settled text's query has no fetch running.
func (s *Search[T]) Wait(ctx context.Context) (Status[[]T], error) {
	return s.query().Wait(ctx)
}

// Close cancels a pending debounce timer. It is safe to call more than once.
func (s *Search[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

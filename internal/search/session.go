// Package search drives paginated, filtered catalog browsing for one screen.
//
// A Session owns the current query (text, genre, sort), the pages loaded so
// far and the fetch state. At most one catalog request is in flight per
// session: LoadMore while fetching is dropped, and a query change while
// fetching supersedes the running request instead of starting a second one.
// Responses are applied only if they belong to the current query generation.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanm101/gameshelf/internal/catalog"
	"github.com/ryanm101/gameshelf/internal/logging"
	"github.com/ryanm101/gameshelf/internal/metrics"
	"github.com/ryanm101/gameshelf/internal/safety"
	"github.com/ryanm101/gameshelf/internal/tracing"
)

// State is the fetch state of a session.
type State int

const (
	Idle      State = iota // nothing requested yet
	Fetching               // a page request is in flight
	Loaded                 // last page had results, more may follow
	Exhausted              // last page was empty after screening
	Failed                 // last request failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Loaded:
		return "loaded"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a copy of a session's state for rendering.
type Snapshot struct {
	ID         string
	Draft      string // text typed but not yet submitted
	Query      string
	Genre      string
	Sort       string
	Page       int // last requested page, 0 before the first fetch
	Results    []catalog.Item
	State      State
	Generation uint64
	Err        error // set in the Failed state
}

// IsLoading reports whether a request is in flight.
func (s Snapshot) IsLoading() bool {
	return s.State == Fetching
}

// HasMore reports whether LoadMore would fetch another page.
func (s Snapshot) HasMore() bool {
	return s.State == Idle || s.State == Loaded
}

// Option customizes a Session.
type Option func(*Session)

// WithFilter replaces the content screen applied to every fetched page.
func WithFilter(f func([]catalog.Item) []catalog.Item) Option {
	return func(s *Session) {
		if f != nil {
			s.filter = f
		}
	}
}

// WithGenre sets the initial genre filter.
func WithGenre(genre string) Option {
	return func(s *Session) { s.genre = genre }
}

// WithSort sets the initial sort key.
func WithSort(key string) Option {
	return func(s *Session) { s.sort = normalizeSort(key) }
}

// Session is the search state of one catalog screen.
type Session struct {
	client catalog.Client
	filter func([]catalog.Item) []catalog.Item
	id     string
	log    *slog.Logger

	mu         sync.Mutex
	draft      string
	query      string
	genre      string
	sort       string
	page       int
	results    []catalog.Item
	state      State
	err        error
	generation uint64
	pending    bool               // query changed while fetching
	cancel     context.CancelFunc // cancels the in-flight request
}

// New creates an idle session over client. Nothing is fetched until Start,
// LoadMore or a query change.
func New(client catalog.Client, opts ...Option) *Session {
	s := &Session{
		client: client,
		filter: safety.Filter,
		id:     uuid.NewString(),
		sort:   catalog.SortRelevance,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.With("session", s.id, "provider", client.Name())
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:         s.id,
		Draft:      s.draft,
		Query:      s.query,
		Genre:      s.genre,
		Sort:       s.sort,
		Page:       s.page,
		Results:    append([]catalog.Item(nil), s.results...),
		State:      s.state,
		Generation: s.generation,
		Err:        s.err,
	}
}

// Err returns the error of the last failed fetch, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// SetQueryText records typed text without searching. SubmitQuery applies it.
func (s *Session) SetQueryText(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

// Start loads page 1 for the current query. It is the first call after New.
// The return value of every operation reports whether this call issued a request.
func (s *Session) Start(ctx context.Context) bool {
	return s.reset(ctx, "start", func() {})
}

// SubmitQuery searches for text, replacing the current results.
func (s *Session) SubmitQuery(ctx context.Context, text string) bool {
	return s.reset(ctx, "submit", func() {
		s.draft = text
		s.query = strings.TrimSpace(text)
	})
}

// SubmitDraft searches for the text recorded by SetQueryText.
func (s *Session) SubmitDraft(ctx context.Context) bool {
	return s.reset(ctx, "submit", func() {
		s.query = strings.TrimSpace(s.draft)
	})
}

// ClearQuery drops the text filter and reloads.
func (s *Session) ClearQuery(ctx context.Context) bool {
	return s.reset(ctx, "clear", func() {
		s.draft = ""
		s.query = ""
	})
}

// SetGenre switches the genre filter ("" for all) and reloads.
func (s *Session) SetGenre(ctx context.Context, genre string) bool {
	return s.reset(ctx, "genre", func() { s.genre = genre })
}

// SetSort switches the ordering and reloads.
func (s *Session) SetSort(ctx context.Context, key string) bool {
	return s.reset(ctx, "sort", func() { s.sort = normalizeSort(key) })
}

// LoadMore appends the next page. It does nothing while a request is in
// flight or once the results are exhausted or failed.
func (s *Session) LoadMore(ctx context.Context) bool {
	s.mu.Lock()
	if s.state != Idle && s.state != Loaded {
		s.mu.Unlock()
		return false
	}
	s.page++
	s.state = Fetching
	gen := s.generation
	q := s.queryLocked()
	replace := s.page == 1
	s.mu.Unlock()

	s.run(ctx, gen, q, replace)
	return true
}

// reset applies change and reloads page 1. While a request is in flight the
// change is recorded, the running request is superseded and the reload is
// left to the goroutine that owns it.
func (s *Session) reset(ctx context.Context, reason string, change func()) bool {
	s.mu.Lock()
	change()
	s.generation++

	if s.state == Fetching {
		s.pending = true
		if s.cancel != nil {
			s.cancel()
		}
		s.log.Debug("query changed during fetch", "reason", reason, "generation", s.generation)
		s.mu.Unlock()
		return false
	}

	s.restartLocked()
	gen := s.generation
	q := s.queryLocked()
	s.mu.Unlock()

	s.log.Debug("query reset", "reason", reason, "generation", gen)
	s.run(ctx, gen, q, true)
	return true
}

func (s *Session) restartLocked() {
	s.page = 1
	s.results = nil
	s.err = nil
	s.state = Fetching
}

func (s *Session) queryLocked() catalog.Query {
	return catalog.Query{Page: s.page, Search: s.query, Genre: s.genre, Sort: s.sort}
}

// run performs fetches until one belongs to the current generation. The
// Fetching state is released on every path.
func (s *Session) run(ctx context.Context, gen uint64, q catalog.Query, replace bool) {
	released := false
	defer func() {
		if !released {
			s.mu.Lock()
			s.state = Failed
			s.err = fmt.Errorf("fetch page %d aborted", q.Page)
			s.cancel = nil
			s.mu.Unlock()
		}
	}()

	for {
		items, err := s.fetch(ctx, gen, q)

		s.mu.Lock()
		s.cancel = nil
		if gen != s.generation {
			metrics.SessionFetches.WithLabelValues("stale").Inc()
			s.log.Debug("discarding stale page", "page", q.Page, "generation", gen, "current", s.generation)
			if s.pending {
				s.pending = false
				s.restartLocked()
				gen = s.generation
				q = s.queryLocked()
				replace = true
				s.mu.Unlock()
				continue
			}
			s.state = Idle
			released = true
			s.mu.Unlock()
			return
		}

		s.applyLocked(q, items, err, replace)
		released = true
		s.mu.Unlock()
		return
	}
}

func (s *Session) fetch(ctx context.Context, gen uint64, q catalog.Query) ([]catalog.Item, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "search.fetch", tracing.WithAttributes(
		attribute.String("search.session", s.id),
		attribute.Int64("search.generation", int64(gen)),
		attribute.Int("search.page", q.Page),
	))
	defer span.End()

	raw, err := s.client.FetchPage(ctx, q)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	items := s.filter(raw)
	tracing.AddSpanAttributes(span,
		attribute.Int("search.raw", len(raw)),
		attribute.Int("search.kept", len(items)),
	)
	return items, nil
}

func (s *Session) applyLocked(q catalog.Query, items []catalog.Item, err error, replace bool) {
	switch {
	case err != nil:
		// Keep what was loaded; the failed page is not counted.
		if !replace {
			s.page--
		}
		s.state = Failed
		s.err = err
		metrics.SessionFetches.WithLabelValues("failed").Inc()
		s.log.Warn("catalog fetch failed", "page", q.Page, "query", q.Search, "error", err)
	case len(items) == 0:
		// An entirely screened page also ends the listing.
		s.state = Exhausted
		metrics.SessionFetches.WithLabelValues("exhausted").Inc()
		s.log.Debug("no more results", "page", q.Page)
	default:
		if replace {
			s.results = items
		} else {
			s.results = append(s.results, items...)
		}
		s.state = Loaded
		metrics.SessionFetches.WithLabelValues("loaded").Inc()
		s.log.Debug("page loaded", "page", q.Page, "count", len(items), "total", len(s.results))
	}
}

func normalizeSort(key string) string {
	if strings.TrimSpace(key) == "" {
		return catalog.SortRelevance
	}
	return key
}

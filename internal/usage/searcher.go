package usage

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"mcsrc/internal/observable"
)

// SearchWindow is how long the query must stay unchanged before a search runs.
const SearchWindow = 200 * time.Millisecond

// Source answers raw usage lookups, typically the jar index of the loaded
// version.
type Source interface {
	Usage(ctx context.Context, key string) ([]string, error)
}

// Results is one completed search.
type Results struct {
	Query Key
	Sites []Site
	Err   error
}

// Search runs a single lookup. An empty query returns no sites.
func Search(ctx context.Context, src Source, q Key) ([]Site, error) {
	if q == "" {
		return nil, nil
	}
	if src == nil {
		return nil, fmt.Errorf("usage source is nil")
	}
	raw, err := src.Usage(ctx, string(q))
	if err != nil {
		return nil, fmt.Errorf("usage %s: %w", q, err)
	}
	out := make([]Site, len(raw))
	for i, s := range raw {
		out[i] = Site(s)
	}
	return out, nil
}

// Searcher turns a stream of queries into results. Only the outcome of the
// most recent query is published; earlier searches still finishing are
// discarded.
type Searcher struct {
	src     Source
	window  time.Duration
	queries chan Key
	results *observable.Subject[Results]

	mu     sync.Mutex
	latest uint64
}

func NewSearcher(src Source, window time.Duration) *Searcher {
	if window <= 0 {
		window = SearchWindow
	}
	return &Searcher{
		src:     src,
		window:  window,
		queries: make(chan Key),
		results: observable.NewWithValue(Results{}),
	}
}

// Results exposes the latest published search.
func (s *Searcher) Results() *observable.Subject[Results] {
	return s.results
}

// Query submits a new query. It blocks until Run accepts it or ctx ends.
func (s *Searcher) Query(ctx context.Context, q Key) error {
	select {
	case s.queries <- q:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes queries until ctx is canceled.
func (s *Searcher) Run(ctx context.Context) {
	for q := range observable.Settle(ctx, s.queries, s.window) {
		s.mu.Lock()
		s.latest++
		gen := s.latest
		s.mu.Unlock()

		go func(q Key, gen uint64) {
			sites, err := Search(ctx, s.src, q)
			if err != nil {
				log.Printf("usage: search %s failed: %v", q, err)
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			if gen != s.latest {
				return
			}
			s.results.Set(Results{Query: q, Sites: sites, Err: err})
		}(q, gen)
	}
}

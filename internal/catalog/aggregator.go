package catalog

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/logging"
	"eatdecider/backend/internal/metrics"
)

const (
	defaultSourceTimeout = 4 * time.Second
	maxConcurrentFetches = 8
)

// Aggregator fans out to every source concurrently and merges the results in
// the order the sources were given. A source that fails or outlives its
// timeout contributes nothing.
type Aggregator struct {
	sources   []Source
	searchers []Searcher
	timeout   time.Duration
}

func NewAggregator(timeout time.Duration, sources []Source, searchers []Searcher) *Aggregator {
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}
	return &Aggregator{sources: sources, searchers: searchers, timeout: timeout}
}

type fetchFunc func(ctx context.Context) ([]domain.MenuItem, error)

type namedFetch struct {
	name  string
	fetch fetchFunc
}

// Collect returns the merged, deduplicated catalog, filtered by query when
// that leaves at least one item. Searchers run only for a non-empty query.
func (a *Aggregator) Collect(ctx context.Context, query string) []domain.MenuItem {
	fetches := make([]namedFetch, 0, len(a.sources)+len(a.searchers))
	for _, src := range a.sources {
		fetches = append(fetches, namedFetch{name: src.Name(), fetch: src.GetCatalog})
	}
	if len(Tokenize(query)) > 0 {
		for _, s := range a.searchers {
			s := s
			fetches = append(fetches, namedFetch{name: s.Name(), fetch: func(ctx context.Context) ([]domain.MenuItem, error) {
				return s.Search(ctx, query)
			}})
		}
	}

	results := make([][]domain.MenuItem, len(fetches))
	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i, f := range fetches {
		i, f := i, f
		g.Go(func() error {
			results[i] = a.fetchOne(ctx, f)
			return nil // a failed source only drops its own items
		})
	}
	_ = g.Wait()

	return FilterByQuery(Merge(results...), query)
}

func (a *Aggregator) fetchOne(ctx context.Context, f namedFetch) []domain.MenuItem {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		items []domain.MenuItem
		err   error
	}
	done := make(chan result, 1)
	started := time.Now()
	go func() {
		items, err := f.fetch(ctx)
		done <- result{items: items, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	metrics.CatalogSourceDuration.WithLabelValues(f.name).Observe(time.Since(started).Seconds())

	if res.err != nil {
		metrics.CatalogSourceFailures.WithLabelValues(f.name).Inc()
		logging.Ctx(ctx).Warn().
			Str("component", "catalog").
			Str("source", f.name).
			Err(fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, res.err)).
			Msg("catalog source skipped")
		return nil
	}
	metrics.CatalogSourceItems.WithLabelValues(f.name).Set(float64(len(res.items)))
	return res.items
}

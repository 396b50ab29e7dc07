package resolver

import (
	"context"
	"strings"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/scraper"
	"github.com/alvarorichard/anistream/internal/util"
	"github.com/samber/lo"
)

// SearchQuery selects how a search is run.
type SearchQuery struct {
	Query string
	// Provider restricts the search to one provider.
	Provider string
	// Order overrides the parallel search priority. Unknown names are
	// ignored.
	Order []string
}

// Search runs every candidate provider concurrently, each under its own
// timeout, and merges the answers in priority order. A provider that
// fails or times out contributes nothing. With an explicit provider only
// that provider is asked and its failure is returned.
func (r *Resolver) Search(ctx context.Context, q SearchQuery) ([]models.SearchResult, error) {
	query := strings.TrimSpace(q.Query)

	only, err := r.explicit("search", q.Provider)
	if err != nil {
		return nil, err
	}
	if only != nil {
		ctx, cancel := r.deadline(ctx)
		defer cancel()
		results, err := observe(ctx, only, "search", func(ctx context.Context) ([]models.SearchResult, error) {
			return only.Search(ctx, query)
		})
		if err != nil {
			rerr := &Error{Op: "search"}
			rerr.add(only.Name(), err)
			return nil, rerr
		}
		return r.merge([][]models.SearchResult{results}), nil
	}

	providers := r.registry.Ordered(r.searchOrder(q.Order))
	answers := make([][]models.SearchResult, len(providers))

	tasks := make([]func(), len(providers))
	for i, p := range providers {
		tasks[i] = func() {
			answers[i] = r.searchOne(ctx, p, query)
		}
	}
	util.ParallelExecute(len(tasks), tasks...)

	merged := r.merge(answers)
	util.Debug("Search merged", "query", query, "providers", len(providers), "results", len(merged))
	return merged, nil
}

// searchOne bounds a single provider by the search timeout. The call runs
// in its own goroutine so that an adapter ignoring its context cannot
// hold the join past the timeout.
func (r *Resolver) searchOne(ctx context.Context, p scraper.Provider, query string) []models.SearchResult {
	ctx, cancel := context.WithTimeout(ctx, r.opts.SearchTimeout)
	defer cancel()

	type answer struct {
		results []models.SearchResult
		err     error
	}
	done := make(chan answer, 1)
	go func() {
		results, err := observe(ctx, p, "search", func(ctx context.Context) ([]models.SearchResult, error) {
			return p.Search(ctx, query)
		})
		done <- answer{results, err}
	}()

	select {
	case a := <-done:
		if a.err != nil {
			util.Warn("Search failed", "provider", p.Name(), "error", a.err)
			return nil
		}
		return a.results
	case <-ctx.Done():
		util.Warn("Search timed out", "provider", p.Name(), "timeout", r.opts.SearchTimeout)
		return nil
	}
}

func (r *Resolver) searchOrder(override []string) []models.ProviderName {
	if len(override) == 0 {
		return r.opts.Orders.Search
	}
	order := lo.FilterMap(override, func(name string, _ int) (models.ProviderName, bool) {
		p, err := models.ParseProviderName(name)
		return p, err == nil
	})
	if len(order) == 0 {
		return r.opts.Orders.Search
	}
	return lo.Uniq(order)
}

// merge flattens answers in order, drops titles already seen (ignoring
// case and whitespace) and caps the result.
func (r *Resolver) merge(answers [][]models.SearchResult) []models.SearchResult {
	all := lo.Flatten(answers)
	all = lo.Filter(all, func(s models.SearchResult, _ int) bool {
		return s.ID != "" && util.NormalizeTitle(s.Title) != ""
	})
	merged := lo.UniqBy(all, func(s models.SearchResult) string {
		return util.NormalizeTitle(s.Title)
	})
	if len(merged) > r.opts.SearchLimit {
		merged = merged[:r.opts.SearchLimit]
	}
	if merged == nil {
		merged = []models.SearchResult{}
	}
	return merged
}

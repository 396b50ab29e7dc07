// Package resolver sequences provider adapters into fallback chains and
// exposes one result or one aggregate failure per logical request.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/alvarorichard/anistream/internal/api"
	"github.com/alvarorichard/anistream/internal/metrics"
	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/scraper"
	"github.com/alvarorichard/anistream/internal/util"
)

// Orders fixes the provider priority of every operation.
type Orders struct {
	Search   []models.ProviderName
	Chain    []models.ProviderName
	Popular  []models.ProviderName
	Recent   []models.ProviderName
	Top      []models.ProviderName
	Trending []models.ProviderName
	AZ       []models.ProviderName
	Genre    []models.ProviderName
	Home     []models.ProviderName
	Servers  models.ProviderName
}

// DefaultOrders returns the priorities the service ships with.
func DefaultOrders() Orders {
	return Orders{
		Search:   []models.ProviderName{models.AllAnime, models.Anikai, models.HiAnime, models.AniWatch},
		Chain:    []models.ProviderName{models.AllAnime, models.HiAnime, models.AniWatch, models.Anikai},
		Popular:  []models.ProviderName{models.AllAnime, models.Anikai},
		Recent:   []models.ProviderName{models.AllAnime, models.Anikai, models.AniWatch, models.HiAnime},
		Top:      []models.ProviderName{models.AllAnime, models.HiAnime},
		Trending: []models.ProviderName{models.Anikai, models.AllAnime},
		AZ:       []models.ProviderName{models.AniWatch, models.HiAnime},
		Genre:    []models.ProviderName{models.AniWatch, models.HiAnime},
		Home:     []models.ProviderName{models.Anikai},
		Servers:  models.HiAnime,
	}
}

// Options tunes the resolver.
type Options struct {
	// SearchTimeout bounds each provider in a parallel search.
	SearchTimeout time.Duration
	// SearchLimit caps the merged search results.
	SearchLimit int
	// Deadline bounds one complete fallback run.
	Deadline time.Duration
	Orders   Orders
}

func (o Options) withDefaults() Options {
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = 5 * time.Second
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = 40
	}
	if o.Deadline <= 0 {
		o.Deadline = 45 * time.Second
	}
	if o.Orders.Chain == nil {
		o.Orders = DefaultOrders()
	}
	return o
}

// Resolver runs requests against the registered providers.
type Resolver struct {
	registry *scraper.Registry
	titles   api.TitleLookup
	opts     Options
}

// New creates a resolver. titles may be nil, in which case numeric ids are
// treated like any other id.
func New(registry *scraper.Registry, titles api.TitleLookup, opts Options) *Resolver {
	return &Resolver{registry: registry, titles: titles, opts: opts.withDefaults()}
}

func (r *Resolver) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opts.Deadline)
}

// explicit parses a caller supplied provider. An empty name is not an
// error and yields a nil provider.
func (r *Resolver) explicit(op, name string) (scraper.Provider, error) {
	if name == "" {
		return nil, nil
	}
	p, err := r.registry.Lookup(name)
	if err != nil {
		rerr := &Error{Op: op}
		rerr.add(models.ProviderName(name), err)
		return nil, rerr
	}
	return p, nil
}

// chainFrom returns first followed by the chain order without it.
func (r *Resolver) chainFrom(first models.ProviderName) []scraper.Provider {
	order := append([]models.ProviderName{first}, slices.DeleteFunc(slices.Clone(r.opts.Orders.Chain), func(n models.ProviderName) bool {
		return n == first
	})...)
	return r.registry.Ordered(order)
}

// observe times one provider call and records its outcome.
func observe[T any](ctx context.Context, p scraper.Provider, op string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := fn(ctx)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome = metrics.OutcomeTimeout
	case scraper.IsNotFound(err):
		outcome = metrics.OutcomeNotFound
	default:
		outcome = metrics.OutcomeError
	}
	metrics.ObserveProvider(string(p.Name()), op, outcome, elapsed)

	if err != nil {
		util.Debug("Provider attempt failed", "provider", p.Name(), "op", op, "elapsed", elapsed, "error", err)
	} else {
		util.Debug("Provider attempt succeeded", "provider", p.Name(), "op", op, "elapsed", elapsed)
	}
	return v, err
}

// notFound builds the failure used when a call succeeded with nothing in it.
func notFound(p models.ProviderName, op, format string, args ...any) error {
	return &scraper.ProviderError{Provider: p, Op: op, Kind: scraper.ErrNotFound, Err: fmt.Errorf(format, args...)}
}

func hop(op string, attempt int) {
	if attempt > 0 {
		metrics.FallbackHops.WithLabelValues(op).Inc()
		util.Debugf("Fallback hop %d for %s", attempt, op)
	}
}

// lookupTitle resolves a numeric catalog id.
func (r *Resolver) lookupTitle(ctx context.Context, op string, id int) (string, error) {
	title, err := r.titles.Title(ctx, id)
	if err != nil {
		util.Warn("Title lookup failed", "source", r.titles.Name(), "id", id, "error", err)
		rerr := &Error{Op: op, Suggestion: "Try searching for the show by name"}
		kind := scraper.ErrUpstream
		if errors.Is(err, api.ErrTitleNotFound) {
			kind = scraper.ErrNotFound
		}
		rerr.add("", &scraper.ProviderError{Op: "title lookup", Kind: kind, Err: err})
		return "", rerr
	}
	return title, nil
}

// numericID reports whether id should go through title resolution.
func (r *Resolver) numericID(id string) (int, bool) {
	if r.titles == nil {
		return 0, false
	}
	return api.ParseID(id)
}

package resolver

import (
	"context"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/scraper"
	"github.com/alvarorichard/anistream/internal/util"
	"github.com/samber/mo"
)

// ListKind names a catalog listing.
type ListKind string

const (
	ListPopular  ListKind = "popular"
	ListRecent   ListKind = "recent"
	ListTop      ListKind = "top"
	ListTrending ListKind = "trending"
	ListAZ       ListKind = "az"
	ListGenre    ListKind = "genre"
)

// ListQuery parameterizes a listing.
type ListQuery struct {
	Page     int
	Provider string
	Letter   string
	Genre    string
}

// Listing is a page of shows and the provider that produced it.
type Listing struct {
	Shows    []models.SearchResult
	Provider models.ProviderName
}

type listFunc func(ctx context.Context) ([]models.SearchResult, error)

// lister returns the call serving kind on p, if p supports it.
func lister(kind ListKind, p scraper.Provider, q ListQuery) mo.Option[listFunc] {
	wrap := func(f listFunc) mo.Option[listFunc] { return mo.Some(f) }
	switch kind {
	case ListPopular, ListTrending:
		if l, ok := scraper.Capability[scraper.PopularLister](p).Get(); ok {
			return wrap(func(ctx context.Context) ([]models.SearchResult, error) { return l.Popular(ctx, q.Page) })
		}
	case ListRecent:
		if l, ok := scraper.Capability[scraper.RecentLister](p).Get(); ok {
			return wrap(func(ctx context.Context) ([]models.SearchResult, error) { return l.Recent(ctx, q.Page) })
		}
	case ListTop:
		if l, ok := scraper.Capability[scraper.TopLister](p).Get(); ok {
			return wrap(func(ctx context.Context) ([]models.SearchResult, error) { return l.Top(ctx, q.Page) })
		}
	case ListAZ:
		if l, ok := scraper.Capability[scraper.AZLister](p).Get(); ok {
			return wrap(func(ctx context.Context) ([]models.SearchResult, error) { return l.AZList(ctx, q.Letter, q.Page) })
		}
	case ListGenre:
		if l, ok := scraper.Capability[scraper.GenreLister](p).Get(); ok {
			return wrap(func(ctx context.Context) ([]models.SearchResult, error) { return l.Genre(ctx, q.Genre, q.Page) })
		}
	}
	return mo.None[listFunc]()
}

func (r *Resolver) listOrder(kind ListKind) []models.ProviderName {
	o := r.opts.Orders
	switch kind {
	case ListPopular:
		return o.Popular
	case ListRecent:
		return o.Recent
	case ListTop:
		return o.Top
	case ListTrending:
		return o.Trending
	case ListAZ:
		return o.AZ
	case ListGenre:
		return o.Genre
	}
	return nil
}

// List walks the listing order and returns the first non-empty page.
// Providers lacking the capability are skipped. When nothing is found the
// listing is empty and the error carries every provider failure; an
// explicitly requested provider without the capability is a caller error.
func (r *Resolver) List(ctx context.Context, kind ListKind, q ListQuery) (*Listing, error) {
	ctx, cancel := r.deadline(ctx)
	defer cancel()

	op := string(kind)
	empty := &Listing{Shows: []models.SearchResult{}}

	only, err := r.explicit(op, q.Provider)
	if err != nil {
		return empty, err
	}

	providers := r.registry.Ordered(r.listOrder(kind))
	if only != nil {
		providers = []scraper.Provider{only}
	}

	rerr := &Error{Op: op}
	attempt := 0
	for _, p := range providers {
		call, ok := lister(kind, p, q).Get()
		if !ok {
			if only != nil {
				rerr.add(p.Name(), &scraper.ProviderError{Provider: p.Name(), Op: op, Kind: scraper.ErrUnsupported})
				rerr.Message = "Provider does not support " + op
				return empty, rerr
			}
			util.Debug("Provider lacks listing", "provider", p.Name(), "kind", kind)
			continue
		}

		hop(op, attempt)
		attempt++
		shows, err := observe(ctx, p, op, call)
		if err != nil {
			util.Warn("Listing failed", "provider", p.Name(), "kind", kind, "error", err)
			rerr.add(p.Name(), err)
			continue
		}
		if len(shows) == 0 {
			rerr.add(p.Name(), notFound(p.Name(), op, "empty %s listing", kind))
			continue
		}
		return &Listing{Shows: shows, Provider: p.Name()}, nil
	}

	if len(rerr.Attempts) > 0 {
		rerr.Message = "All providers failed to fetch " + op + " list"
	}
	return empty, rerr.orNil()
}

// Home returns the landing page feed of the first provider offering one.
func (r *Resolver) Home(ctx context.Context) (*models.HomeFeed, error) {
	ctx, cancel := r.deadline(ctx)
	defer cancel()

	rerr := &Error{Op: "home"}
	for _, p := range r.registry.Ordered(r.opts.Orders.Home) {
		home, ok := scraper.Capability[scraper.HomeProvider](p).Get()
		if !ok {
			continue
		}
		feed, err := observe(ctx, p, "home", home.Home)
		if err != nil {
			rerr.add(p.Name(), err)
			continue
		}
		return feed, nil
	}
	return &models.HomeFeed{Slides: []models.SearchResult{}, Trending: []models.SearchResult{}, Latest: []models.SearchResult{}}, rerr.orNil()
}

// Servers lists the hosting options of a provider internal episode id.
// Episode ids are never portable, so there is no fallback.
func (r *Resolver) Servers(ctx context.Context, episodeID, provider string) ([]models.Server, error) {
	ctx, cancel := r.deadline(ctx)
	defer cancel()

	if provider == "" {
		provider = string(r.opts.Orders.Servers)
	}
	p, err := r.explicit("servers", provider)
	if err != nil {
		return nil, err
	}

	rerr := &Error{Op: "servers"}
	lister, ok := scraper.Capability[scraper.ServerLister](p).Get()
	if !ok {
		rerr.add(p.Name(), &scraper.ProviderError{Provider: p.Name(), Op: "servers", Kind: scraper.ErrUnsupported})
		rerr.Message = "Provider does not support servers"
		return nil, rerr
	}

	servers, err := observe(ctx, p, "servers", func(ctx context.Context) ([]models.Server, error) {
		return lister.Servers(ctx, episodeID)
	})
	if err != nil {
		rerr.add(p.Name(), err)
		return nil, rerr
	}
	if servers == nil {
		servers = []models.Server{}
	}
	return servers, nil
}

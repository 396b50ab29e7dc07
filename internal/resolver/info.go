package resolver

import (
	"context"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/scraper"
	"github.com/alvarorichard/anistream/internal/util"
)

// Info returns the details of a show.
//
// Numeric ids are catalog ids: they are resolved to a title, the title is
// searched provider by provider, and the best match is fetched from the
// provider that returned it. Other ids go to the explicit provider, or to
// the provider inferred from the id shape followed by the rest of the
// chain when none was given.
func (r *Resolver) Info(ctx context.Context, id, provider string) (*models.ShowDetails, error) {
	ctx, cancel := r.deadline(ctx)
	defer cancel()

	only, err := r.explicit("info", provider)
	if err != nil {
		return nil, err
	}

	if catalogID, ok := r.numericID(id); ok {
		title, err := r.lookupTitle(ctx, "info", catalogID)
		if err != nil {
			return nil, err
		}
		return r.infoByTitle(ctx, title, r.candidates(only))
	}

	var providers []scraper.Provider
	if only != nil {
		providers = []scraper.Provider{only}
	} else {
		providers = r.chainFrom(InferProvider(id))
	}

	rerr := &Error{Op: "info", Suggestion: "Try searching for this anime to find an alternative version"}
	for i, p := range providers {
		hop("info", i)
		details, err := observe(ctx, p, "info", func(ctx context.Context) (*models.ShowDetails, error) {
			return p.Info(ctx, id)
		})
		if err == nil {
			return details, nil
		}
		rerr.add(p.Name(), err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, rerr
}

// candidates is the explicit provider alone, or the whole chain.
func (r *Resolver) candidates(only scraper.Provider) []scraper.Provider {
	if only != nil {
		return []scraper.Provider{only}
	}
	return r.registry.Ordered(r.opts.Orders.Chain)
}

// infoByTitle searches each provider for title and fetches the best
// match's details from that same provider.
func (r *Resolver) infoByTitle(ctx context.Context, title string, providers []scraper.Provider) (*models.ShowDetails, error) {
	rerr := &Error{Op: "info", Suggestion: "Try searching for the show by name"}
	for i, p := range providers {
		hop("info", i)
		match, err := r.matchOn(ctx, p, title)
		if err != nil {
			rerr.add(p.Name(), err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		details, err := observe(ctx, p, "info", func(ctx context.Context) (*models.ShowDetails, error) {
			return p.Info(ctx, match.ID)
		})
		if err != nil {
			rerr.add(p.Name(), err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		util.Debug("Resolved title", "title", title, "provider", p.Name(), "id", match.ID)
		return details, nil
	}
	return nil, rerr
}

// matchOn searches p for title and returns the best match, which is only
// ever used with p itself.
func (r *Resolver) matchOn(ctx context.Context, p scraper.Provider, title string) (models.ProviderRef, error) {
	results, err := observe(ctx, p, "search", func(ctx context.Context) ([]models.SearchResult, error) {
		return p.Search(ctx, title)
	})
	if err != nil {
		return models.ProviderRef{}, err
	}
	match, ok := scraper.BestMatch(title, results).Get()
	if !ok {
		return models.ProviderRef{}, notFound(p.Name(), "search", "no results for %q", title)
	}
	return models.ProviderRef{Provider: p.Name(), ID: match.ID}, nil
}

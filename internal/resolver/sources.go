package resolver

import (
	"context"
	"net/http"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/scraper"
	"github.com/alvarorichard/anistream/internal/util"
)

// SourceQuery identifies the episode whose streams are wanted.
type SourceQuery struct {
	ID       string
	Episode  string
	Mode     models.Mode
	ServerID string
	Provider string
}

// SourceResult is a successful source resolution. ServedMode differs from
// RequestedMode when a provider substituted another track.
type SourceResult struct {
	Sources       []models.VideoSource
	Provider      models.ProviderName
	ShowID        string
	RequestedMode models.Mode
	ServedMode    models.Mode
}

// sourceRun accumulates the attempts of one Sources call.
type sourceRun struct {
	r     *Resolver
	q     SourceQuery
	err   *Error
	tried map[models.ProviderRef]bool
}

// Sources resolves playable streams.
//
// Numeric ids are resolved to a title first and then matched on each
// provider. Other ids are tried on the explicit or inferred provider, then
// (without an explicit provider) on the rest of the chain with the same
// id, and finally by title: the show's title is fetched, every chain
// provider is searched for it and the best match is tried with that
// provider's own id.
func (r *Resolver) Sources(ctx context.Context, q SourceQuery) (*SourceResult, error) {
	ctx, cancel := r.deadline(ctx)
	defer cancel()

	if q.Mode == "" {
		q.Mode = models.ModeSub
	}

	only, err := r.explicit("sources", q.Provider)
	if err != nil {
		return nil, err
	}

	run := &sourceRun{
		r:     r,
		q:     q,
		err:   &Error{Op: "sources", Suggestion: modeSuggestion(q.Mode)},
		tried: make(map[models.ProviderRef]bool),
	}

	if catalogID, ok := r.numericID(q.ID); ok {
		title, err := r.lookupTitle(ctx, "sources", catalogID)
		if err != nil {
			return nil, err
		}
		if res := run.byTitle(ctx, title, r.candidates(only)); res != nil {
			return res, nil
		}
		return nil, run.failure()
	}

	primary := only
	if primary == nil {
		p, err := r.registry.Get(InferProvider(q.ID))
		if err != nil {
			return nil, err
		}
		primary = p
	}

	if res := run.attempt(ctx, primary, q.ID, q.ServerID); res != nil {
		return res, nil
	}
	if !run.fallbackable() {
		return nil, run.failure()
	}

	if only == nil {
		for _, p := range r.chainFrom(primary.Name())[1:] {
			if ctx.Err() != nil {
				return nil, run.failure()
			}
			if res := run.attempt(ctx, p, q.ID, ""); res != nil {
				return res, nil
			}
		}
	}

	if ctx.Err() == nil {
		if title := run.title(ctx, primary, only == nil); title != "" {
			if res := run.byTitle(ctx, title, r.registry.Ordered(r.opts.Orders.Chain)); res != nil {
				return res, nil
			}
		}
	}
	return nil, run.failure()
}

// attempt calls Sources on p with an id p is known to accept. An empty
// answer counts as not found.
func (s *sourceRun) attempt(ctx context.Context, p scraper.Provider, id, serverID string) *SourceResult {
	ref := models.ProviderRef{Provider: p.Name(), ID: id}
	if s.tried[ref] {
		return nil
	}
	hop("sources", len(s.tried))
	s.tried[ref] = true

	req := scraper.SourceRequest{ShowID: id, Episode: s.q.Episode, Mode: s.q.Mode, ServerID: serverID}
	sources, err := observe(ctx, p, "sources", func(ctx context.Context) ([]models.VideoSource, error) {
		return p.Sources(ctx, req)
	})
	if err == nil && len(sources) == 0 {
		err = notFound(p.Name(), "sources", "no %s sources for %s episode %s", s.q.Mode, id, s.q.Episode)
	}
	if err != nil {
		util.Warn("Source attempt failed", "provider", p.Name(), "id", id, "episode", s.q.Episode, "error", err)
		s.err.add(p.Name(), err)
		return nil
	}

	for i := range sources {
		if sources[i].Mode == "" {
			sources[i].Mode = s.q.Mode
		}
		if sources[i].Provider == "" {
			sources[i].Provider = p.Name()
		}
	}
	served := sources[0].Mode
	if served != s.q.Mode {
		util.Info("Serving substitute track", "provider", p.Name(), "requested", s.q.Mode, "served", served)
	}

	return &SourceResult{
		Sources:       sources,
		Provider:      sources[0].Provider,
		ShowID:        id,
		RequestedMode: s.q.Mode,
		ServedMode:    served,
	}
}

// title asks for the show's title, first from the primary provider and,
// when allowed, from the rest of the chain with the same id.
func (s *sourceRun) title(ctx context.Context, primary scraper.Provider, widen bool) string {
	providers := []scraper.Provider{primary}
	if widen {
		providers = s.r.chainFrom(primary.Name())
	}
	for _, p := range providers {
		details, err := observe(ctx, p, "info", func(ctx context.Context) (*models.ShowDetails, error) {
			return p.Info(ctx, s.q.ID)
		})
		if err == nil && details.Title != "" {
			return details.Title
		}
		if ctx.Err() != nil {
			return ""
		}
	}
	return ""
}

// byTitle matches title on each provider and tries the match with the
// provider's own id.
func (s *sourceRun) byTitle(ctx context.Context, title string, providers []scraper.Provider) *SourceResult {
	for _, p := range providers {
		if ctx.Err() != nil {
			return nil
		}
		match, err := s.r.matchOn(ctx, p, title)
		if err != nil {
			s.err.add(p.Name(), err)
			continue
		}
		if res := s.attempt(ctx, p, match.ID, ""); res != nil {
			return res
		}
	}
	return nil
}

// fallbackable reports whether the latest failure allows another provider.
func (s *sourceRun) fallbackable() bool {
	n := len(s.err.Attempts)
	return n == 0 || scraper.IsFallbackable(s.err.Attempts[n-1].Err)
}

func (s *sourceRun) failure() error {
	if s.err.Status() == http.StatusNotFound {
		s.err.Message = noSourcesMessage(s.q.Mode)
	}
	return s.err
}

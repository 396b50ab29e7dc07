package scraper

import (
	"context"
	"strconv"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/util"
)

// titleFallback re-resolves a show on the designated high-reliability
// provider by title. It is the last step of a scraping adapter before it
// gives up, and is independent of the orchestrator's cross-provider chain.
type titleFallback struct {
	target Provider
}

// sources searches the target for title and fetches the episode from the
// best match, always with the id the target itself issued.
func (f *titleFallback) sources(ctx context.Context, owner models.ProviderName, title string, req SourceRequest, cause error) ([]models.VideoSource, error) {
	if f == nil || f.target == nil || title == "" {
		return nil, cause
	}
	// Internal episode ids do not carry over, only display numbers do.
	if _, err := strconv.Atoi(req.Episode); err != nil {
		return nil, cause
	}

	util.Debug("Adapter title fallback", "provider", owner, "target", f.target.Name(), "title", title, "cause", cause)
	results, err := f.target.Search(ctx, title)
	if err != nil {
		util.Debug("Adapter title fallback search failed", "target", f.target.Name(), "error", err)
		return nil, cause
	}
	match, ok := BestMatch(title, results).Get()
	if !ok {
		return nil, cause
	}

	sources, err := f.target.Sources(ctx, SourceRequest{ShowID: match.ID, Episode: req.Episode, Mode: req.Mode})
	if err != nil {
		util.Debug("Adapter title fallback sources failed", "target", f.target.Name(), "id", match.ID, "error", err)
		return nil, cause
	}
	return sources, nil
}

// info searches the target for title and returns the best match's details.
func (f *titleFallback) info(ctx context.Context, title string) (*models.ShowDetails, bool) {
	if f == nil || f.target == nil || title == "" {
		return nil, false
	}
	results, err := f.target.Search(ctx, title)
	if err != nil {
		return nil, false
	}
	match, ok := BestMatch(title, results).Get()
	if !ok {
		return nil, false
	}
	details, err := f.target.Info(ctx, match.ID)
	if err != nil {
		return nil, false
	}
	return details, true
}

// sourcesOrFallback runs the site pipeline and, if it fails, retries the
// episode on the fallback target under the show's title.
func (s *ajaxSite) sourcesOrFallback(ctx context.Context, req SourceRequest, fb *titleFallback) ([]models.VideoSource, error) {
	sources, err := s.sources(ctx, req)
	if err == nil {
		return sources, nil
	}
	if fb == nil || ctx.Err() != nil {
		return nil, err
	}

	page, perr := s.show(ctx, req.ShowID)
	if perr != nil {
		return nil, err
	}
	return fb.sources(ctx, s.name(), page.Title, req, err)
}

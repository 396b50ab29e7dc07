package scraper

import (
	"context"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/util"
)

const AniWatchBase = "https://aniwatchtv.to"

// AniWatchProvider scrapes aniwatchtv.to, a mirror of the same site engine
// as HiAnime with its own catalog.
type AniWatchProvider struct {
	site     ajaxSite
	fallback *titleFallback
}

func NewAniWatchProvider(cfg Config, fallback Provider) *AniWatchProvider {
	return &AniWatchProvider{
		site:     newAjaxSite(models.AniWatch, cfg, util.FirstNonEmpty(cfg.AniWatchBase, AniWatchBase), zoroLayout),
		fallback: &titleFallback{target: fallback},
	}
}

func (p *AniWatchProvider) Name() models.ProviderName { return models.AniWatch }

func (p *AniWatchProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	return p.site.search(ctx, query)
}

func (p *AniWatchProvider) Info(ctx context.Context, id string) (*models.ShowDetails, error) {
	return p.site.info(ctx, id)
}

func (p *AniWatchProvider) Sources(ctx context.Context, req SourceRequest) ([]models.VideoSource, error) {
	return p.site.sourcesOrFallback(ctx, req, p.fallback)
}

func (p *AniWatchProvider) Servers(ctx context.Context, episodeID string) ([]models.Server, error) {
	return p.site.servers(ctx, episodeID)
}

func (p *AniWatchProvider) AZList(ctx context.Context, letter string, page int) ([]models.SearchResult, error) {
	return p.site.azList(ctx, letter, page)
}

func (p *AniWatchProvider) Genre(ctx context.Context, genre string, page int) ([]models.SearchResult, error) {
	return p.site.genre(ctx, genre, page)
}

func (p *AniWatchProvider) Recent(ctx context.Context, page int) ([]models.SearchResult, error) {
	return p.site.recent(ctx, page)
}

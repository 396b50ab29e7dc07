package scraper

import (
	"context"
	"slices"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/util"
)

const HiAnimeBase = "https://hianime.to"

var zoroLayout = siteLayout{
	titles:       []string{".film-name", "h2.film-name"},
	images:       []string{".film-poster img"},
	descriptions: []string{".film-description"},
}

// HiAnimeProvider scrapes hianime.to.
type HiAnimeProvider struct {
	site     ajaxSite
	fallback *titleFallback
}

func NewHiAnimeProvider(cfg Config, fallback Provider) *HiAnimeProvider {
	return &HiAnimeProvider{
		site:     newAjaxSite(models.HiAnime, cfg, util.FirstNonEmpty(cfg.HiAnimeBase, HiAnimeBase), zoroLayout),
		fallback: &titleFallback{target: fallback},
	}
}

func (p *HiAnimeProvider) Name() models.ProviderName { return models.HiAnime }

func (p *HiAnimeProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	return p.site.search(ctx, query)
}

func (p *HiAnimeProvider) Info(ctx context.Context, id string) (*models.ShowDetails, error) {
	return p.site.info(ctx, id)
}

func (p *HiAnimeProvider) Sources(ctx context.Context, req SourceRequest) ([]models.VideoSource, error) {
	return p.site.sourcesOrFallback(ctx, req, p.fallback)
}

func (p *HiAnimeProvider) Servers(ctx context.Context, episodeID string) ([]models.Server, error) {
	return p.site.servers(ctx, episodeID)
}

func (p *HiAnimeProvider) AZList(ctx context.Context, letter string, page int) ([]models.SearchResult, error) {
	return p.site.azList(ctx, letter, page)
}

func (p *HiAnimeProvider) Genre(ctx context.Context, genre string, page int) ([]models.SearchResult, error) {
	return p.site.genre(ctx, genre, page)
}

func (p *HiAnimeProvider) Recent(ctx context.Context, page int) ([]models.SearchResult, error) {
	return p.site.recent(ctx, page)
}

// Top serves a fixed list so the landing page loads without touching the
// site. Only the first page has entries.
func (p *HiAnimeProvider) Top(_ context.Context, page int) ([]models.SearchResult, error) {
	if pageOrFirst(page) > 1 {
		return nil, nil
	}
	return slices.Clone(hiAnimeTop), nil
}

const hiAnimeThumbs = "https://cdn.noitatnemucod.net/thumbnail/300x400/100/"

func topEntry(id, title, thumb string, sub, dub int) models.SearchResult {
	return models.SearchResult{
		ID:           id,
		Title:        title,
		Image:        hiAnimeThumbs + thumb,
		Availability: models.Availability{Sub: sub, Dub: dub, Raw: sub},
		Provider:     models.HiAnime,
	}
}

var hiAnimeTop = []models.SearchResult{
	topEntry("one-piece-100", "One Piece", "bcd84731a3eda4f4a306250769675065.jpg", 1155, 1143),
	topEntry("naruto-shippuden-355", "Naruto: Shippuden", "9cbcf87f54194742e7686119089478f8.jpg", 500, 500),
	topEntry("bleach-806", "Bleach", "bd5ae1d387a59c5abcf5e1a6a616728c.jpg", 366, 366),
	topEntry("jujutsu-kaisen-2nd-season-18413", "Jujutsu Kaisen 2nd Season", "b51f863b05f30576cf9d85fa9b911bb5.png", 23, 23),
	topEntry("black-clover-2404", "Black Clover", "f58b0204c20ae3310f65ae7b8cb9987e.jpg", 170, 170),
	topEntry("hunter-x-hunter-2", "Hunter x Hunter", "5567ce9631cf543666dd934005b6329e.jpg", 148, 148),
	topEntry("naruto-677", "Naruto", "5db400c33f7494bc8ae96f9e634958d0.jpg", 220, 220),
	topEntry("demon-slayer-kimetsu-no-yaiba-swordsmith-village-arc-18056", "Demon Slayer: Kimetsu no Yaiba Swordsmith Village Arc", "db2f3ce7b9cab7fdc160b005bffb899a.png", 11, 11),
	topEntry("boruto-naruto-next-generations-8143", "Boruto: Naruto Next Generations", "32c83e2ad4a43229996356840db3982c.jpg", 293, 293),
	topEntry("jujutsu-kaisen-tv-534", "Jujutsu Kaisen (TV)", "82402f796b7d84d7071ab1e03ff7747a.jpg", 24, 24),
	topEntry("solo-leveling-18718", "Solo Leveling", "b147d331e311a5d5c8ee81269725fc92.png", 12, 12),
	topEntry("spy-x-family-17977", "Spy x Family", "3b4fb50c768e1a6be17f2231bd47dd84.jpg", 25, 25),
}

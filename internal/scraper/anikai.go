package scraper

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/util"
)

const (
	AnikaiBase = "https://anikai.to"

	anikaiImageCache = "https://img.anikai.to/i/cache/images/"
	aniListBanner    = "https://s4.anilist.co/file/anilistcdn/media/anime/banner/"
)

var backgroundURL = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// AnikaiProvider scrapes anikai.to. Its pages use newer markup but the
// episode AJAX endpoints are the same as HiAnime's.
type AnikaiProvider struct {
	site     ajaxSite
	fallback *titleFallback
}

func NewAnikaiProvider(cfg Config, fallback Provider) *AnikaiProvider {
	layout := siteLayout{
		showPrefix:   "/watch",
		titles:       []string{"h1.title", ".film-name"},
		images:       []string{".poster img", ".film-poster img"},
		descriptions: []string{".desc", ".film-description"},
		anyServer:    true,
	}
	return &AnikaiProvider{
		site:     newAjaxSite(models.Anikai, cfg, util.FirstNonEmpty(cfg.AnikaiBase, AnikaiBase), layout),
		fallback: &titleFallback{target: fallback},
	}
}

func (p *AnikaiProvider) Name() models.ProviderName { return models.Anikai }

func (p *AnikaiProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	return p.site.search(ctx, query)
}

// Info returns the show details. When the site has no episodes for the
// show, the details of the best title match on the fallback provider are
// returned instead, tagged with that provider.
func (p *AnikaiProvider) Info(ctx context.Context, id string) (*models.ShowDetails, error) {
	page, err := p.site.show(ctx, id)
	if err != nil {
		return nil, err
	}

	var episodes []models.Episode
	if page.CatalogID != "" {
		episodes, err = p.site.episodes(ctx, page.CatalogID)
		if err != nil {
			util.Warn("Anikai episode list failed", "id", id, "error", err)
		}
	} else {
		util.Warn("Anikai show page has no catalog id", "id", id)
	}

	if len(episodes) == 0 {
		if details, ok := p.fallback.info(ctx, page.Title); ok {
			util.Info("Anikai info served by fallback", "id", id, "provider", details.Provider, "match", details.ID)
			return details, nil
		}
	}
	return p.site.details(id, page, episodes), nil
}

// looksLikeAllAnimeID reports whether id has the shape of an AllAnime id,
// which the frontend sometimes routes here.
func looksLikeAllAnimeID(id string) bool {
	return len(id) > 10 && !strings.Contains(id, "-")
}

func (p *AnikaiProvider) Sources(ctx context.Context, req SourceRequest) ([]models.VideoSource, error) {
	if looksLikeAllAnimeID(req.ShowID) && p.fallback.target != nil && p.fallback.target.Name() == models.AllAnime {
		sources, err := p.fallback.target.Sources(ctx, req)
		if err == nil {
			return sources, nil
		}
		util.Debug("Anikai AllAnime shortcut failed", "id", req.ShowID, "error", err)
	}
	return p.site.sourcesOrFallback(ctx, req, p.fallback)
}

func (p *AnikaiProvider) Servers(ctx context.Context, episodeID string) ([]models.Server, error) {
	return p.site.servers(ctx, episodeID)
}

// Recent returns the latest updates block of the home page. The site has
// no paged listing, so pages after the first are empty.
func (p *AnikaiProvider) Recent(ctx context.Context, page int) ([]models.SearchResult, error) {
	if pageOrFirst(page) > 1 {
		return nil, nil
	}
	doc, err := p.site.fetch.document(ctx, "recent", p.site.base+"/home", nil)
	if err != nil {
		return nil, err
	}
	return parseLatest(doc), nil
}

// Popular returns the spotlight slides of the home page.
func (p *AnikaiProvider) Popular(ctx context.Context, page int) ([]models.SearchResult, error) {
	if pageOrFirst(page) > 1 {
		return nil, nil
	}
	doc, err := p.site.fetch.document(ctx, "popular", p.site.base+"/home", nil)
	if err != nil {
		return nil, err
	}
	return parseSlides(doc), nil
}

// Home returns the spotlight slides and latest updates from one fetch.
func (p *AnikaiProvider) Home(ctx context.Context) (*models.HomeFeed, error) {
	doc, err := p.site.fetch.document(ctx, "home", p.site.base+"/home", nil)
	if err != nil {
		return nil, err
	}
	return &models.HomeFeed{
		Slides:   parseSlides(doc),
		Trending: []models.SearchResult{},
		Latest:   parseLatest(doc),
	}, nil
}

func parseSlides(doc *goquery.Document) []models.SearchResult {
	var slides []models.SearchResult
	doc.Find(".swiper-wrapper .swiper-slide").Each(func(_ int, el *goquery.Selection) {
		title := strings.TrimSpace(el.Find(".title").First().Text())
		href, _ := el.Find(".watch-btn").First().Attr("href")
		_, id, _ := strings.Cut(href, "/watch/")
		id = idFromHref("/watch/" + id)
		if id == "" || title == "" {
			return
		}

		slide := models.SearchResult{
			ID:          id,
			Title:       title,
			Description: strings.TrimSpace(el.Find(".desc").First().Text()),
			Provider:    models.Anikai,
		}

		style, _ := el.Find(".bg-img").First().Attr("style")
		if m := backgroundURL.FindStringSubmatch(style); m != nil {
			slide.Image = m[1]
		}
		if slide.Image == "" {
			slide.Image = anikaiImageCache + id + ".jpg"
		}

		if alid, ok := el.Find(".user-bookmark").First().Attr("data-alid"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(alid)); err == nil && n > 0 {
				slide.AniListID = n
				slide.Cover = aniListBanner + strconv.Itoa(n) + ".jpg"
			}
		}
		slides = append(slides, slide)
	})
	return slides
}

func parseLatest(doc *goquery.Document) []models.SearchResult {
	var latest []models.SearchResult
	doc.Find("#latest-updates .tab-body .aitem-wrapper").Each(func(_ int, el *goquery.Selection) {
		href := firstAttr(el, "href", ".inner a", ".poster")
		id := idFromHref(href)
		title := strings.TrimSpace(el.Find(".title").First().Text())
		if id == "" || title == "" {
			return
		}

		img := el.Find(".poster img").First()
		image, _ := img.Attr("data-src")
		if image == "" {
			image, _ = img.Attr("src")
		}

		sub := badgeCount(el, ".tick-sub")
		dub := badgeCount(el, ".tick-dub")
		item := models.SearchResult{
			ID:           id,
			Title:        title,
			Image:        image,
			Availability: models.Availability{Sub: sub, Dub: dub},
			Provider:     models.Anikai,
		}
		if n := max(sub, dub, badgeCount(el, ".ep-status")); n > 0 {
			item.LatestEpisode = strconv.Itoa(n)
		}
		latest = append(latest, item)
	})
	return latest
}

package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/util"
)

// embedPattern splits an embed link into host, embed version, episode
// number and opaque source id.
var embedPattern = regexp.MustCompile(`^(.*)/embed-(\d+)/(?:v\d+/)?e-(\d+)/(.+)\?k=1$`)

// siteLayout holds the per-site differences of the shared AJAX protocol.
// Selector lists are tried in order and the first non-empty value wins.
type siteLayout struct {
	// showPrefix is prepended to the id to build the show page path.
	showPrefix   string
	titles       []string
	images       []string
	descriptions []string
	// anyServer accepts the first listed server when neither the
	// requested mode nor raw is offered.
	anyServer bool
}

// ajaxSite implements the scrape and embed pipeline shared by the sites
// running the same episode/server/source AJAX endpoints.
type ajaxSite struct {
	fetch  fetcher
	base   string
	layout siteLayout
}

func newAjaxSite(name models.ProviderName, cfg Config, base string, layout siteLayout) ajaxSite {
	return ajaxSite{
		fetch:  newFetcher(name, cfg.Client, map[string]string{"Referer": strings.TrimRight(base, "/") + "/"}),
		base:   strings.TrimRight(base, "/"),
		layout: layout,
	}
}

func (s *ajaxSite) name() models.ProviderName { return s.fetch.name }

// showPage is what the show page exposes before the episode list is fetched.
type showPage struct {
	Title        string
	Image        string
	Description  string
	CatalogID    string
	Availability models.Availability
}

// search runs a keyword search.
func (s *ajaxSite) search(ctx context.Context, query string) ([]models.SearchResult, error) {
	u := s.base + "/search?keyword=" + url.QueryEscape(query)
	return s.listing(ctx, "search", u)
}

// listing fetches a page of show cards.
func (s *ajaxSite) listing(ctx context.Context, op, rawURL string) ([]models.SearchResult, error) {
	doc, err := s.fetch.document(ctx, op, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return parseCards(doc, s.name()), nil
}

// parseCards extracts show cards from a listing page. Both the classic
// grid and the newer item wrapper markup are understood.
func parseCards(doc *goquery.Document, provider models.ProviderName) []models.SearchResult {
	items := doc.Find(".film_list-wrap .flw-item")
	if items.Length() == 0 {
		items = doc.Find(".aitem-wrapper")
	}

	var results []models.SearchResult
	items.Each(func(_ int, el *goquery.Selection) {
		href := firstAttr(el, "href", ".film-poster-ahref", ".film-poster", ".poster", ".film-name a", "a")
		id := idFromHref(href)
		title := strings.TrimSpace(el.Find(".film-name a").First().Text())
		if title == "" {
			title = strings.TrimSpace(el.Find(".title").First().Text())
		}
		if id == "" || title == "" {
			return
		}

		img := el.Find(".film-poster img, .poster img").First()
		image, _ := img.Attr("data-src")
		if image == "" {
			image, _ = img.Attr("src")
		}

		sub := badgeCount(el, ".tick-sub")
		dub := badgeCount(el, ".tick-dub")
		eps := badgeCount(el, ".tick-eps")

		result := models.SearchResult{
			ID:           id,
			Title:        title,
			Image:        image,
			Availability: models.Availability{Sub: sub, Dub: dub},
			Provider:     provider,
		}
		if latest := max(eps, sub, dub); latest > 0 {
			result.LatestEpisode = strconv.Itoa(latest)
		}
		results = append(results, result)
	})
	return results
}

// firstAttr returns attr of the first selector that matches an element
// carrying a non-empty value.
func firstAttr(sel *goquery.Selection, attr string, selectors ...string) string {
	for _, s := range selectors {
		if v, ok := sel.Find(s).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, s := range selectors {
		if v := strings.TrimSpace(doc.Find(s).First().Text()); v != "" {
			return v
		}
	}
	return ""
}

// idFromHref turns a show link into a show id: the part after /watch/ when
// present, otherwise the last path segment.
func idFromHref(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	if _, after, ok := strings.Cut(href, "/watch/"); ok {
		return strings.Trim(after, "/")
	}
	href = strings.TrimRight(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}

func badgeCount(sel *goquery.Selection, selector string) int {
	n, _ := leadingInt(sel.Find(selector).First().Text())
	return n
}

// show fetches and parses a show page.
func (s *ajaxSite) show(ctx context.Context, id string) (*showPage, error) {
	u := id
	if !strings.HasPrefix(id, "http://") && !strings.HasPrefix(id, "https://") {
		u = s.base + s.layout.showPrefix + "/" + url.PathEscape(id)
	}
	doc, err := s.fetch.document(ctx, "info", u, nil)
	if err != nil {
		return nil, err
	}

	page := &showPage{
		Title:       firstText(doc, s.layout.titles...),
		Description: firstText(doc, s.layout.descriptions...),
		CatalogID:   catalogID(doc),
	}
	for _, sel := range s.layout.images {
		if v, ok := doc.Find(sel).First().Attr("src"); ok && v != "" {
			page.Image = v
			break
		}
	}
	stats := doc.Find(".film-stats, .anisc-info, .info").First()
	page.Availability = models.Availability{
		Sub: badgeCount(stats, ".tick-sub"),
		Dub: badgeCount(stats, ".tick-dub"),
	}

	if page.Title == "" && page.CatalogID == "" {
		return nil, newError(s.name(), "info", ErrNotFound, "no show at %s", u)
	}
	return page, nil
}

// catalogID finds the internal numeric id used by the AJAX endpoints.
func catalogID(doc *goquery.Document) string {
	for _, sel := range []string{"#wrapper", "#anime-rating", ".user-bookmark", ".w2g-trigger"} {
		if v, ok := doc.Find(sel).First().Attr("data-id"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}

	raw := strings.TrimSpace(doc.Find("#syncData").First().Text())
	if raw == "" {
		return ""
	}
	var sync struct {
		AnimeID json.RawMessage `json:"anime_id"`
	}
	if err := json.Unmarshal([]byte(raw), &sync); err != nil || len(sync.AnimeID) == 0 {
		return ""
	}
	return strings.Trim(string(sync.AnimeID), `"`)
}

// episodes fetches the episode list fragment of a catalog id.
func (s *ajaxSite) episodes(ctx context.Context, catalogID string) ([]models.Episode, error) {
	doc, err := s.fetch.fragment(ctx, "episodes", s.base+"/ajax/v2/episode/list/"+url.PathEscape(catalogID))
	if err != nil {
		return nil, err
	}

	var episodes []models.Episode
	doc.Find(".ep-item").Each(func(_ int, el *goquery.Selection) {
		id, _ := el.Attr("data-id")
		num, _ := el.Attr("data-number")
		n, _ := strconv.Atoi(strings.TrimSpace(num))
		if id == "" || n == 0 {
			return
		}
		title, _ := el.Attr("title")
		episodes = append(episodes, models.Episode{ID: id, Number: n, Title: strings.TrimSpace(title)})
	})
	return episodes, nil
}

// info combines the show page with its episode list.
func (s *ajaxSite) info(ctx context.Context, id string) (*models.ShowDetails, error) {
	page, err := s.show(ctx, id)
	if err != nil {
		return nil, err
	}
	if page.CatalogID == "" {
		return nil, newError(s.name(), "info", ErrParse, "no catalog id on show page %s", id)
	}

	episodes, err := s.episodes(ctx, page.CatalogID)
	if err != nil {
		return nil, err
	}
	return s.details(id, page, episodes), nil
}

func (s *ajaxSite) details(id string, page *showPage, episodes []models.Episode) *models.ShowDetails {
	availability := page.Availability
	if availability.Sub == 0 {
		availability.Sub = len(episodes)
	}
	return &models.ShowDetails{
		ID:           id,
		Provider:     s.name(),
		Title:        page.Title,
		Image:        page.Image,
		Description:  page.Description,
		Episodes:     episodes,
		Availability: availability,
	}
}

// episodeID maps a bare episode number onto the site's internal episode
// id. Anything that is not a plain number is assumed to be an id already.
func (s *ajaxSite) episodeID(ctx context.Context, showID, episode string) (string, error) {
	n, err := strconv.Atoi(episode)
	if err != nil {
		return episode, nil
	}

	page, err := s.show(ctx, showID)
	if err != nil {
		return "", err
	}
	if page.CatalogID == "" {
		return "", newError(s.name(), "sources", ErrParse, "no catalog id on show page %s", showID)
	}
	episodes, err := s.episodes(ctx, page.CatalogID)
	if err != nil {
		return "", err
	}
	for _, ep := range episodes {
		if ep.Number == n {
			util.Debug("Resolved episode number", "provider", s.name(), "number", n, "id", ep.ID)
			return ep.ID, nil
		}
	}
	return "", newError(s.name(), "sources", ErrNotFound, "episode %d not found for show %s", n, showID)
}

// servers lists the hosting options of an episode.
func (s *ajaxSite) servers(ctx context.Context, episodeID string) ([]models.Server, error) {
	doc, err := s.fetch.fragment(ctx, "servers", s.base+"/ajax/v2/episode/servers?episodeId="+url.QueryEscape(episodeID))
	if err != nil {
		return nil, err
	}

	var servers []models.Server
	doc.Find(".server-item").Each(func(_ int, el *goquery.Selection) {
		id, _ := el.Attr("data-id")
		if id == "" {
			return
		}
		kind, _ := el.Attr("data-type")
		servers = append(servers, models.Server{
			ID:   id,
			Name: strings.TrimSpace(el.Text()),
			Mode: models.Mode(strings.ToLower(strings.TrimSpace(kind))),
		})
	})
	return servers, nil
}

// pickServer returns the first server of the requested mode, else the
// first raw server, else (when the layout allows it) the first server.
func (s *ajaxSite) pickServer(servers []models.Server, mode models.Mode) (models.Server, bool) {
	for _, want := range []models.Mode{mode, models.ModeRaw} {
		for _, srv := range servers {
			if srv.Mode == want {
				return srv, true
			}
		}
	}
	if s.layout.anyServer && len(servers) > 0 {
		return servers[0], true
	}
	return models.Server{}, false
}

// embedLink asks the site for the player iframe of a server.
func (s *ajaxSite) embedLink(ctx context.Context, serverID string) (string, error) {
	var payload struct {
		Link string `json:"link"`
	}
	u := s.base + "/ajax/v2/episode/sources?id=" + url.QueryEscape(serverID)
	if err := s.fetch.json(ctx, "sources", u, xhr, &payload); err != nil {
		return "", err
	}
	if payload.Link == "" {
		return "", newError(s.name(), "sources", ErrNotFound, "no embed link for server %s", serverID)
	}
	return payload.Link, nil
}

// embedSources is the getSources payload. Sources is either a list of
// entries or, when the host encrypts it, a string.
type embedSources struct {
	Sources json.RawMessage `json:"sources"`
	Source  string          `json:"source"`
}

type embedEntry struct {
	File    string `json:"file"`
	URL     string `json:"url"`
	Type    string `json:"type"`
	Label   string `json:"label"`
	Quality string `json:"quality"`
}

// extract resolves an embed link into playable sources.
func (s *ajaxSite) extract(ctx context.Context, embed string, mode models.Mode) ([]models.VideoSource, error) {
	m := embedPattern.FindStringSubmatch(embed)
	if m == nil {
		return nil, newError(s.name(), "sources", ErrParse, "unrecognised embed link %s", embed)
	}
	host, version, number, sourceID := m[1], m[2], m[3], m[4]

	ajaxURL := fmt.Sprintf("%s/embed-%s/ajax/e-%s/getSources?id=%s", host, version, number, url.QueryEscape(sourceID))
	util.Debug("Embed sources", "provider", s.name(), "embed", embed, "ajax", ajaxURL)

	var payload embedSources
	headers := map[string]string{"X-Requested-With": "XMLHttpRequest", "Referer": embed}
	if err := s.fetch.json(ctx, "sources", ajaxURL, headers, &payload); err != nil {
		return nil, err
	}

	referer := map[string]string{"Referer": embed}
	var out []models.VideoSource

	if len(payload.Sources) > 0 && payload.Sources[0] == '[' {
		var entries []embedEntry
		if err := json.Unmarshal(payload.Sources, &entries); err != nil {
			return nil, newError(s.name(), "sources", ErrParse, "failed to parse sources: %v", err)
		}
		for _, e := range entries {
			link := util.FirstNonEmpty(e.File, e.URL)
			if link == "" {
				continue
			}
			out = append(out, models.VideoSource{
				URL:      link,
				IsHLS:    e.Type == "hls" || strings.Contains(link, ".m3u8"),
				Quality:  util.FirstNonEmpty(e.Label, e.Quality, "auto"),
				Headers:  referer,
				Mode:     mode,
				Provider: s.name(),
			})
		}
	} else if len(payload.Sources) > 0 && payload.Sources[0] == '"' {
		return nil, newError(s.name(), "sources", ErrParse, "encrypted sources from %s are not supported", host)
	}

	if len(out) == 0 && payload.Source != "" {
		out = append(out, models.VideoSource{
			URL:      payload.Source,
			IsHLS:    strings.Contains(payload.Source, ".m3u8"),
			Quality:  "auto",
			Headers:  referer,
			Mode:     mode,
			Provider: s.name(),
		})
	}

	if len(out) == 0 {
		return nil, newError(s.name(), "sources", ErrNotFound, "embed %s returned no sources", embed)
	}
	return out, nil
}

// sources runs the full pipeline: episode id, server, embed link, sources.
// The mode on the returned sources is the mode of the server actually used.
func (s *ajaxSite) sources(ctx context.Context, req SourceRequest) ([]models.VideoSource, error) {
	mode := req.Mode
	if mode == "" {
		mode = models.ModeSub
	}

	if req.ServerID != "" {
		served := s.serverMode(ctx, req, mode)
		embed, err := s.embedLink(ctx, req.ServerID)
		if err != nil {
			return nil, err
		}
		return s.extract(ctx, embed, served)
	}

	episodeID, err := s.episodeID(ctx, req.ShowID, req.Episode)
	if err != nil {
		return nil, err
	}

	servers, err := s.servers(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	server, ok := s.pickServer(servers, mode)
	if !ok {
		return nil, newError(s.name(), "sources", ErrNotFound, "no %s server among %d", mode, len(servers))
	}
	if server.Mode != mode {
		util.Info("Serving substitute track", "provider", s.name(), "requested", mode, "served", server.Mode)
	}

	embed, err := s.embedLink(ctx, server.ID)
	if err != nil {
		return nil, err
	}
	served := server.Mode
	if served == "" {
		served = mode
	}
	return s.extract(ctx, embed, served)
}

// serverMode finds the track type of an explicitly chosen server in the
// episode's server list. The requested mode stands when the list cannot
// tell.
func (s *ajaxSite) serverMode(ctx context.Context, req SourceRequest, mode models.Mode) models.Mode {
	if req.ShowID == "" || req.Episode == "" {
		return mode
	}
	episodeID, err := s.episodeID(ctx, req.ShowID, req.Episode)
	if err != nil {
		util.Debug("Server mode lookup failed", "provider", s.name(), "server", req.ServerID, "error", err)
		return mode
	}
	servers, err := s.servers(ctx, episodeID)
	if err != nil {
		util.Debug("Server mode lookup failed", "provider", s.name(), "server", req.ServerID, "error", err)
		return mode
	}
	for _, srv := range servers {
		if srv.ID != req.ServerID || srv.Mode == "" {
			continue
		}
		if srv.Mode != mode {
			util.Info("Serving substitute track", "provider", s.name(), "requested", mode, "served", srv.Mode)
		}
		return srv.Mode
	}
	return mode
}

// azPath maps a letter onto the A-Z listing path.
func azPath(letter string) string {
	letter = strings.ToLower(strings.TrimSpace(letter))
	switch {
	case letter == "" || letter == "all":
		return "/az-list"
	case letter == "0-9" || letter == "other":
		return "/az-list/other"
	case len(letter) == 1 && letter[0] >= 'a' && letter[0] <= 'z':
		return "/az-list/" + letter
	}
	return "/az-list/other"
}

func (s *ajaxSite) azList(ctx context.Context, letter string, page int) ([]models.SearchResult, error) {
	return s.listing(ctx, "az", fmt.Sprintf("%s%s?page=%d", s.base, azPath(letter), pageOrFirst(page)))
}

func (s *ajaxSite) genre(ctx context.Context, genre string, page int) ([]models.SearchResult, error) {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(genre), " ", "-"))
	if slug == "" {
		return nil, newError(s.name(), "genre", ErrNotFound, "empty genre")
	}
	return s.listing(ctx, "genre", fmt.Sprintf("%s/genre/%s?page=%d", s.base, url.PathEscape(slug), pageOrFirst(page)))
}

func (s *ajaxSite) recent(ctx context.Context, page int) ([]models.SearchResult, error) {
	return s.listing(ctx, "recent", fmt.Sprintf("%s/recently-updated?page=%d", s.base, pageOrFirst(page)))
}

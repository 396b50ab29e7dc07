package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/alvarorichard/anistream/internal/cipher"
	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/util"
)

const (
	AllAnimeReferer = "https://allmanga.to"
	AllAnimeBase    = "https://allanime.day"
	AllAnimeAPI     = "https://api.allanime.day/api"
	AllAnimeCDN     = "https://wp.youtube-anime.com/aln.youtube-anime.com"

	allAnimeListSize   = 30
	allAnimeSearchSize = 40
)

// sourcePriority is the order in which named upstream sources are tried.
// Sources not listed here are tried last, in their original order.
var sourcePriority = []string{"Default", "Luf-Mp4", "S-mp4", "Yt-mp4"}

const searchGQL = `query($search: SearchInput, $limit: Int, $page: Int) { shows(search: $search, limit: $limit, page: $page) { edges { _id name englishName thumbnail availableEpisodes __typename } } }`

const listGQL = `query($search: SearchInput, $limit: Int, $page: Int) { shows(search: $search, limit: $limit, page: $page) { edges { _id name englishName thumbnail availableEpisodes lastEpisodeDate } } }`

const showGQL = `query ($showId: String!) { show( _id: $showId ) { _id name englishName nativeName thumbnail description aniListId malId availableEpisodesDetail } }`

const episodeGQL = `query ($showId: String!, $translationType: VaildTranslationTypeEnumType!, $episodeString: String!) { episode( showId: $showId translationType: $translationType episodeString: $episodeString ) { episodeString sourceUrls } }`

// AllAnimeProvider talks to the AllAnime GraphQL API.
type AllAnimeProvider struct {
	fetch    fetcher
	apiURL   string
	siteBase string
	cdn      string
}

// NewAllAnimeProvider creates the provider. Empty arguments use the public
// endpoints.
func NewAllAnimeProvider(cfg Config) *AllAnimeProvider {
	return &AllAnimeProvider{
		fetch:    newFetcher(models.AllAnime, cfg.Client, map[string]string{"Referer": AllAnimeReferer}),
		apiURL:   util.FirstNonEmpty(cfg.AllAnimeAPI, AllAnimeAPI),
		siteBase: util.FirstNonEmpty(cfg.AllAnimeBase, AllAnimeBase),
		cdn:      AllAnimeCDN,
	}
}

func (p *AllAnimeProvider) Name() models.ProviderName { return models.AllAnime }

type gqlResponse[T any] struct {
	Data   T `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type showEdge struct {
	ID                string              `json:"_id"`
	Name              string              `json:"name"`
	EnglishName       string              `json:"englishName"`
	Thumbnail         string              `json:"thumbnail"`
	AvailableEpisodes models.Availability `json:"availableEpisodes"`
}

type showsData struct {
	Shows struct {
		Edges []showEdge `json:"edges"`
	} `json:"shows"`
}

type showData struct {
	Show *struct {
		ID                      string              `json:"_id"`
		Name                    string              `json:"name"`
		EnglishName             string              `json:"englishName"`
		Thumbnail               string              `json:"thumbnail"`
		Description             string              `json:"description"`
		AniListID               flexInt             `json:"aniListId"`
		MalID                   flexInt             `json:"malId"`
		AvailableEpisodesDetail models.EpisodeLists `json:"availableEpisodesDetail"`
	} `json:"show"`
}

type episodeData struct {
	Episode *struct {
		EpisodeString string         `json:"episodeString"`
		SourceURLs    []sourceURLRef `json:"sourceUrls"`
	} `json:"episode"`
}

type sourceURLRef struct {
	SourceURL  string `json:"sourceUrl"`
	SourceName string `json:"sourceName"`
}

// clockResponse is the payload of the decoded source endpoint.
type clockResponse struct {
	Link  string `json:"link"`
	Links []struct {
		Link          string `json:"link"`
		HLS           bool   `json:"hls"`
		ResolutionStr string `json:"resolutionStr"`
	} `json:"links"`
}

// flexInt accepts ids encoded either as JSON numbers or as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

// query runs one GraphQL request as a GET with variables and query in the
// query string, which is what the public site does.
func (p *AllAnimeProvider) query(ctx context.Context, op, gql string, variables map[string]any, out any) error {
	vars, err := json.Marshal(variables)
	if err != nil {
		return newError(p.Name(), op, ErrParse, "failed to encode variables: %v", err)
	}

	u, err := url.Parse(p.apiURL)
	if err != nil {
		return newError(p.Name(), op, ErrParse, "invalid api url: %v", err)
	}
	q := u.Query()
	q.Add("variables", string(vars))
	q.Add("query", gql)
	u.RawQuery = q.Encode()

	return p.fetch.json(ctx, op, u.String(), nil, out)
}

func gqlError[T any](resp *gqlResponse[T]) error {
	if len(resp.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("graphql: %s", strings.Join(msgs, "; "))
}

// Search searches shows by title.
func (p *AllAnimeProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	vars := map[string]any{
		"search": map[string]any{"allowAdult": false, "allowUnknown": false, "query": query},
		"limit":  allAnimeSearchSize,
		"page":   1,
	}
	return p.listShows(ctx, "search", searchGQL, vars)
}

// Popular returns trending shows.
func (p *AllAnimeProvider) Popular(ctx context.Context, page int) ([]models.SearchResult, error) {
	return p.sorted(ctx, "popular", "Trending", page)
}

// Recent returns recently updated shows.
func (p *AllAnimeProvider) Recent(ctx context.Context, page int) ([]models.SearchResult, error) {
	return p.sorted(ctx, "recent", "Recent", page)
}

// Top returns the most popular shows of all time.
func (p *AllAnimeProvider) Top(ctx context.Context, page int) ([]models.SearchResult, error) {
	return p.sorted(ctx, "top", "Popular", page)
}

func (p *AllAnimeProvider) sorted(ctx context.Context, op, sortBy string, page int) ([]models.SearchResult, error) {
	vars := map[string]any{
		"search": map[string]any{"sortBy": sortBy},
		"limit":  allAnimeListSize,
		"page":   pageOrFirst(page),
	}
	return p.listShows(ctx, op, listGQL, vars)
}

func (p *AllAnimeProvider) listShows(ctx context.Context, op, gql string, vars map[string]any) ([]models.SearchResult, error) {
	var resp gqlResponse[showsData]
	if err := p.query(ctx, op, gql, vars, &resp); err != nil {
		return nil, err
	}
	if err := gqlError(&resp); err != nil && len(resp.Data.Shows.Edges) == 0 {
		return nil, newError(p.Name(), op, ErrUpstream, "%v", err)
	}

	results := make([]models.SearchResult, 0, len(resp.Data.Shows.Edges))
	for _, edge := range resp.Data.Shows.Edges {
		if edge.ID == "" {
			continue
		}
		results = append(results, models.SearchResult{
			ID:           edge.ID,
			Title:        util.FirstNonEmpty(edge.EnglishName, edge.Name),
			Image:        p.thumbnailURL(edge.Thumbnail),
			Availability: edge.AvailableEpisodes,
			Provider:     p.Name(),
		})
	}
	return results, nil
}

// Info fetches show metadata and the episode numbers available per mode.
func (p *AllAnimeProvider) Info(ctx context.Context, id string) (*models.ShowDetails, error) {
	var resp gqlResponse[showData]
	if err := p.query(ctx, "info", showGQL, map[string]any{"showId": id}, &resp); err != nil {
		return nil, err
	}
	show := resp.Data.Show
	if show == nil || show.ID == "" {
		if err := gqlError(&resp); err != nil {
			return nil, newError(p.Name(), "info", ErrUpstream, "%v", err)
		}
		return nil, newError(p.Name(), "info", ErrNotFound, "show %s not found", id)
	}

	lists := show.AvailableEpisodesDetail
	details := &models.ShowDetails{
		ID:          show.ID,
		Provider:    p.Name(),
		Title:       util.FirstNonEmpty(show.EnglishName, show.Name),
		Image:       p.thumbnailURL(show.Thumbnail),
		Description: show.Description,
		MalID:       int(show.MalID),
		AniListID:   int(show.AniListID),
		Episodes:    episodesFromLists(lists),
		Availability: models.Availability{
			Sub: len(lists.Sub),
			Dub: len(lists.Dub),
			Raw: len(lists.Raw),
		},
		Lists: &lists,
	}
	return details, nil
}

// episodesFromLists merges the per-mode episode strings into one list
// keyed by episode number. The episode string doubles as the id.
func episodesFromLists(lists models.EpisodeLists) []models.Episode {
	seen := make(map[int]bool)
	var episodes []models.Episode
	for _, list := range [][]string{lists.Sub, lists.Dub, lists.Raw} {
		for _, ep := range list {
			n, ok := leadingInt(ep)
			if !ok || seen[n] {
				continue
			}
			seen[n] = true
			episodes = append(episodes, models.Episode{ID: ep, Number: n})
		}
	}
	slices.SortFunc(episodes, func(a, b models.Episode) int { return a.Number - b.Number })
	return episodes
}

// leadingInt parses the integer prefix of s, so "12.5" yields 12.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

// Sources resolves the first usable stream of an episode. Candidates are
// tried in priority order and the first one whose endpoint answers with a
// link wins; the remaining candidates are not checked.
func (p *AllAnimeProvider) Sources(ctx context.Context, req SourceRequest) ([]models.VideoSource, error) {
	mode := req.Mode
	if mode == "" {
		mode = models.ModeSub
	}

	vars := map[string]any{
		"showId":          req.ShowID,
		"translationType": string(mode),
		"episodeString":   req.Episode,
	}
	var resp gqlResponse[episodeData]
	if err := p.query(ctx, "sources", episodeGQL, vars, &resp); err != nil {
		return nil, err
	}

	episode := resp.Data.Episode
	if episode == nil {
		return nil, newError(p.Name(), "sources", ErrNotFound, "episode %s not found", req.Episode)
	}
	if len(episode.SourceURLs) == 0 {
		return nil, newError(p.Name(), "sources", ErrNotFound, "no %s sources available", strings.ToUpper(string(mode)))
	}

	candidates := sortSources(episode.SourceURLs)
	util.Debug("AllAnime sources", "show", req.ShowID, "episode", req.Episode, "mode", mode, "count", len(candidates))

	var lastErr error
	for _, src := range candidates {
		link, err := p.resolveSource(ctx, src)
		if err != nil {
			util.Debug("AllAnime source failed", "source", src.SourceName, "error", err)
			lastErr = err
			continue
		}
		if link == "" {
			continue
		}
		return []models.VideoSource{{
			URL:      link,
			IsHLS:    strings.Contains(link, ".m3u8"),
			Quality:  src.SourceName,
			Mode:     mode,
			Provider: p.Name(),
		}}, nil
	}

	if lastErr != nil {
		return nil, newError(p.Name(), "sources", ErrUpstream, "all %d sources failed, last: %v", len(candidates), lastErr)
	}
	return nil, newError(p.Name(), "sources", ErrNotFound, "no usable link among %d sources", len(candidates))
}

// sortSources orders candidates by sourcePriority, keeping unknown names
// after the known ones in their original order.
func sortSources(sources []sourceURLRef) []sourceURLRef {
	sorted := slices.Clone(sources)
	rank := func(name string) int {
		if i := slices.Index(sourcePriority, name); i >= 0 {
			return i
		}
		return len(sourcePriority)
	}
	slices.SortStableFunc(sorted, func(a, b sourceURLRef) int {
		return rank(a.SourceName) - rank(b.SourceName)
	})
	return sorted
}

// resolveSource decodes one candidate and fetches the link it points to.
func (p *AllAnimeProvider) resolveSource(ctx context.Context, src sourceURLRef) (string, error) {
	encoded, ok := cipher.Strip(src.SourceURL)
	if !ok {
		return "", fmt.Errorf("source %s is not an encoded endpoint", src.SourceName)
	}

	path := cipher.Decode(encoded)
	if len(path) < 5 {
		return "", fmt.Errorf("source %s decoded to %q", src.SourceName, path)
	}

	var payload clockResponse
	if err := p.fetch.json(ctx, "sources", p.absoluteURL(path), nil, &payload); err != nil {
		return "", err
	}

	if len(payload.Links) > 0 && payload.Links[0].Link != "" {
		return strings.ReplaceAll(payload.Links[0].Link, `\`, ""), nil
	}
	return strings.ReplaceAll(payload.Link, `\`, ""), nil
}

// absoluteURL turns a decoded path into a fetchable URL.
func (p *AllAnimeProvider) absoluteURL(path string) string {
	switch {
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	case strings.HasPrefix(path, "/"):
		return strings.TrimRight(p.siteBase, "/") + path
	default:
		return "https://" + path
	}
}

// thumbnailURL makes relative thumbnail paths absolute against the CDN.
func (p *AllAnimeProvider) thumbnailURL(thumbnail string) string {
	switch {
	case thumbnail == "":
		return ""
	case strings.HasPrefix(thumbnail, "http://"), strings.HasPrefix(thumbnail, "https://"):
		return thumbnail
	case strings.HasPrefix(thumbnail, "/"):
		return p.cdn + thumbnail
	default:
		return p.cdn + "/" + thumbnail
	}
}

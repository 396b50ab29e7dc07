package handlers

import (
	"strconv"
	"strings"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/proxy"
	"github.com/alvarorichard/anistream/internal/resolver"
	"github.com/samber/lo"
)

// Hosts that refuse cross-origin playback and must go through the proxy.
var corsRestrictedHosts = []string{"sharepoint.com", "drive.google.com", "googleapis.com"}

// Show is one entry of a search or listing response.
type Show struct {
	ID                string              `json:"_id"`
	Name              string              `json:"name"`
	Thumbnail         string              `json:"thumbnail"`
	AvailableEpisodes models.Availability `json:"availableEpisodes"`
	Provider          models.ProviderName `json:"provider"`
	LatestEpisode     string              `json:"latestEpisode,omitempty"`
	Typename          string              `json:"__typename"`
}

// EpisodeDetail lists episode numbers, never provider ids, per mode.
type EpisodeDetail struct {
	Sub []string `json:"sub"`
	Dub []string `json:"dub"`
}

// ShowDetail is the body of the episodes endpoint.
type ShowDetail struct {
	ID                      string              `json:"_id"`
	Name                    string              `json:"name"`
	EnglishName             string              `json:"englishName"`
	Thumbnail               string              `json:"thumbnail"`
	Description             string              `json:"description,omitempty"`
	AniListID               int                 `json:"aniListId,omitempty"`
	MalID                   int                 `json:"malId,omitempty"`
	Provider                models.ProviderName `json:"provider"`
	AvailableEpisodesDetail EpisodeDetail       `json:"availableEpisodesDetail"`
}

// Link is one playable stream.
type Link struct {
	Link          string            `json:"link"`
	HLS           bool              `json:"hls"`
	ResolutionStr string            `json:"resolutionStr"`
	Mode          models.Mode       `json:"mode"`
	Headers       map[string]string `json:"headers,omitempty"`
}

// SourceBody is the body of the source endpoint.
type SourceBody struct {
	Links         []Link              `json:"links"`
	Provider      models.ProviderName `json:"provider"`
	RequestedMode models.Mode         `json:"requestedMode"`
	ServedMode    models.Mode         `json:"servedMode"`
}

func toShows(results []models.SearchResult, fallback models.ProviderName) []Show {
	return lo.Map(results, func(r models.SearchResult, _ int) Show {
		return Show{
			ID:                r.ID,
			Name:              r.Title,
			Thumbnail:         r.Image,
			AvailableEpisodes: r.Availability,
			Provider:          lo.Ternary(r.Provider != "", r.Provider, fallback),
			LatestEpisode:     r.LatestEpisode,
			Typename:          "Show",
		}
	})
}

func toShowDetail(d *models.ShowDetails) ShowDetail {
	detail := EpisodeDetail{Sub: d.EpisodeNumbers(), Dub: countTo(d.Availability.Dub)}
	if d.Lists != nil {
		detail = EpisodeDetail{Sub: d.Lists.Sub, Dub: d.Lists.Dub}
	}
	if detail.Sub == nil {
		detail.Sub = []string{}
	}
	if detail.Dub == nil {
		detail.Dub = []string{}
	}
	return ShowDetail{
		ID:                      d.ID,
		Name:                    d.Title,
		EnglishName:             d.Title,
		Thumbnail:               d.Image,
		Description:             d.Description,
		AniListID:               d.AniListID,
		MalID:                   d.MalID,
		Provider:                d.Provider,
		AvailableEpisodesDetail: detail,
	}
}

// countTo returns "1".."n".
func countTo(n int) []string {
	out := make([]string, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

func toSourceBody(res *resolver.SourceResult) SourceBody {
	return SourceBody{
		Links: lo.Map(res.Sources, func(s models.VideoSource, _ int) Link {
			return Link{
				Link:          proxied(s.URL),
				HLS:           s.IsHLS,
				ResolutionStr: lo.Ternary(s.Quality != "", s.Quality, "default"),
				Mode:          s.Mode,
				Headers:       s.Headers,
			}
		}),
		Provider:      res.Provider,
		RequestedMode: res.RequestedMode,
		ServedMode:    res.ServedMode,
	}
}

// proxied routes links on CORS restricted hosts through the proxy. The
// link stays relative so that the player resolves it against this server.
func proxied(link string) string {
	if !strings.HasPrefix(link, "http") {
		return link
	}
	for _, host := range corsRestrictedHosts {
		if strings.Contains(link, host) {
			return proxy.Link("", link)
		}
	}
	return link
}

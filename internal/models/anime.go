// Package models contains the request-scoped data structures shared by the
// providers, the resolver and the HTTP layer.
package models

import (
	"slices"
	"strconv"
)

// Availability counts the episodes a show has per audio mode.
type Availability struct {
	Sub int `json:"sub"`
	Dub int `json:"dub"`
	Raw int `json:"raw,omitempty"`
}

// IsZero reports whether no counts are known.
func (a Availability) IsZero() bool {
	return a.Sub == 0 && a.Dub == 0 && a.Raw == 0
}

// EpisodeLists holds explicit episode numbers per mode when a provider
// exposes them instead of plain counts.
type EpisodeLists struct {
	Sub []string `json:"sub"`
	Dub []string `json:"dub"`
	Raw []string `json:"raw,omitempty"`
}

// SearchResult is one show returned by a search or listing call.
// ID is only meaningful together with Provider.
type SearchResult struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Image        string       `json:"image,omitempty"`
	Availability Availability `json:"availability"`
	Provider     ProviderName `json:"provider"`

	// LatestEpisode is set by "recently updated" listings.
	LatestEpisode string `json:"latestEpisode,omitempty"`
	Description   string `json:"description,omitempty"`
	AniListID     int    `json:"anilistId,omitempty"`
	Cover         string `json:"cover,omitempty"`
}

// Ref returns the provider-tagged identifier of the result.
func (r SearchResult) Ref() ProviderRef {
	return ProviderRef{Provider: r.Provider, ID: r.ID}
}

// Episode is a single playable episode. Number is the stable key across
// providers, ID is provider internal.
type Episode struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
}

// ShowDetails is the full description of one show on one provider.
// Episodes may be empty on success, which means nothing is playable.
type ShowDetails struct {
	ID          string       `json:"id"`
	Provider    ProviderName `json:"provider"`
	Title       string       `json:"title"`
	Image       string       `json:"image,omitempty"`
	Description string       `json:"description,omitempty"`
	MalID       int          `json:"malId,omitempty"`
	AniListID   int          `json:"anilistId,omitempty"`
	Episodes    []Episode    `json:"episodes"`

	Availability Availability `json:"availability"`
	// Lists is filled when the provider reports explicit episode numbers.
	Lists *EpisodeLists `json:"lists,omitempty"`
}

// Ref returns the provider-tagged identifier of the show.
func (d *ShowDetails) Ref() ProviderRef {
	return ProviderRef{Provider: d.Provider, ID: d.ID}
}

// EpisodeNumbers returns the distinct episode numbers of the show as strings,
// in ascending order.
func (d *ShowDetails) EpisodeNumbers() []string {
	seen := make(map[int]struct{}, len(d.Episodes))
	nums := make([]int, 0, len(d.Episodes))
	for _, ep := range d.Episodes {
		if ep.Number <= 0 {
			continue
		}
		if _, ok := seen[ep.Number]; ok {
			continue
		}
		seen[ep.Number] = struct{}{}
		nums = append(nums, ep.Number)
	}
	slices.Sort(nums)

	out := make([]string, len(nums))
	for i, n := range nums {
		out[i] = strconv.Itoa(n)
	}
	return out
}

// FindEpisode returns the episode with the given display number.
func (d *ShowDetails) FindEpisode(number int) (Episode, bool) {
	for _, ep := range d.Episodes {
		if ep.Number == number {
			return ep, true
		}
	}
	return Episode{}, false
}

// HomeFeed is the landing page payload of providers that have one.
type HomeFeed struct {
	Slides   []SearchResult `json:"slides"`
	Trending []SearchResult `json:"trending"`
	Latest   []SearchResult `json:"latest"`
}

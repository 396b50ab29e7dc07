package scraper

import (
	"strings"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// BestMatch picks the search result whose normalized title contains the
// normalized query or is contained by it, falling back to the first
// result. It returns None for an empty result list.
func BestMatch(query string, results []models.SearchResult) mo.Option[models.SearchResult] {
	if len(results) == 0 {
		return mo.None[models.SearchResult]()
	}

	q := util.NormalizeTitle(query)
	if q == "" {
		return mo.Some(results[0])
	}

	match, ok := lo.Find(results, func(r models.SearchResult) bool {
		t := util.NormalizeTitle(r.Title)
		return t != "" && (strings.Contains(t, q) || strings.Contains(q, t))
	})
	if ok {
		return mo.Some(match)
	}
	return mo.Some(results[0])
}

// Package scraper implements the provider adapters: one GraphQL backed
// source and three HTML scraping sources sharing the same AJAX protocol.
package scraper

import (
	"context"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/samber/mo"
)

const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0"

// SourceRequest identifies the episode whose sources are wanted.
type SourceRequest struct {
	ShowID string
	// Episode is either a display number ("12") or a provider internal
	// episode id.
	Episode  string
	Mode     models.Mode
	ServerID string
}

// Provider is the capability set every adapter implements.
type Provider interface {
	Name() models.ProviderName
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	Info(ctx context.Context, id string) (*models.ShowDetails, error)
	Sources(ctx context.Context, req SourceRequest) ([]models.VideoSource, error)
}

// Optional capabilities. Callers probe with Capability before use.
type (
	PopularLister interface {
		Popular(ctx context.Context, page int) ([]models.SearchResult, error)
	}
	RecentLister interface {
		Recent(ctx context.Context, page int) ([]models.SearchResult, error)
	}
	TopLister interface {
		Top(ctx context.Context, page int) ([]models.SearchResult, error)
	}
	AZLister interface {
		AZList(ctx context.Context, letter string, page int) ([]models.SearchResult, error)
	}
	GenreLister interface {
		Genre(ctx context.Context, genre string, page int) ([]models.SearchResult, error)
	}
	ServerLister interface {
		Servers(ctx context.Context, episodeID string) ([]models.Server, error)
	}
	HomeProvider interface {
		Home(ctx context.Context) (*models.HomeFeed, error)
	}
)

// Capability returns p as C when the provider implements it.
func Capability[C any](p Provider) mo.Option[C] {
	if c, ok := any(p).(C); ok {
		return mo.Some(c)
	}
	return mo.None[C]()
}

func pageOrFirst(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

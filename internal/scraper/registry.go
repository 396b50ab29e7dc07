package scraper

import (
	"net/http"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/samber/lo"
)

// Config carries the endpoints and HTTP client shared by the adapters.
// Empty fields use the public defaults.
type Config struct {
	Client *http.Client

	AllAnimeAPI  string
	AllAnimeBase string
	HiAnimeBase  string
	AniWatchBase string
	AnikaiBase   string
}

// Registry maps provider names to adapters.
type Registry struct {
	providers map[models.ProviderName]Provider
	order     []models.ProviderName
}

// NewRegistry builds a registry from the given adapters, in order.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[models.ProviderName]Provider, len(providers))}
	for _, p := range providers {
		if _, exists := r.providers[p.Name()]; !exists {
			r.order = append(r.order, p.Name())
		}
		r.providers[p.Name()] = p
	}
	return r
}

// NewDefaultRegistry wires the four adapters. The scraping adapters fall
// back to AllAnime by title as their last resort.
func NewDefaultRegistry(cfg Config) *Registry {
	allAnime := NewAllAnimeProvider(cfg)
	return NewRegistry(
		allAnime,
		NewHiAnimeProvider(cfg, allAnime),
		NewAniWatchProvider(cfg, allAnime),
		NewAnikaiProvider(cfg, allAnime),
	)
}

// Get returns the adapter for name.
func (r *Registry) Get(name models.ProviderName) (Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, newError(name, "lookup", ErrUnknownProvider, "unknown provider: %s", name)
}

// Lookup parses a user supplied name and returns its adapter.
func (r *Registry) Lookup(name string) (Provider, error) {
	parsed, err := models.ParseProviderName(name)
	if err != nil {
		return nil, newError(models.ProviderName(name), "lookup", ErrUnknownProvider, "%v", err)
	}
	return r.Get(parsed)
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []models.ProviderName {
	return append([]models.ProviderName(nil), r.order...)
}

// Ordered returns the adapters named in order, skipping unknown names.
func (r *Registry) Ordered(order []models.ProviderName) []Provider {
	return lo.FilterMap(order, func(name models.ProviderName, _ int) (Provider, bool) {
		p, ok := r.providers[name]
		return p, ok
	})
}

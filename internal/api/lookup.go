// Package api resolves external catalog ids (AniList or MyAnimeList) to
// show titles so that streaming providers can be searched by name.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/alvarorichard/anistream/internal/metrics"
	"github.com/alvarorichard/anistream/internal/util"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrTitleNotFound is returned when the catalog has no entry for an id.
var ErrTitleNotFound = errors.New("title not found")

// TitleLookup maps a numeric catalog id to a searchable title.
type TitleLookup interface {
	Name() string
	Title(ctx context.Context, id int) (string, error)
}

// Options configures the metadata clients.
type Options struct {
	Client *http.Client
	// RequestsPerSecond throttles outbound calls. Zero disables throttling.
	RequestsPerSecond float64
	Retry             util.RetryPolicy
	Endpoint          string
}

func (o Options) limiter() *rate.Limiter {
	if o.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(o.RequestsPerSecond), 2)
}

func (o Options) retry() util.RetryPolicy {
	if o.Retry.MaxAttempts == 0 {
		return util.DefaultRetryPolicy
	}
	return o.Retry
}

// New returns the lookup for source ("anilist" or "jikan").
func New(source string, opts Options) (TitleLookup, error) {
	switch source {
	case "", "anilist":
		return NewAniListClient(opts), nil
	case "jikan", "mal":
		return NewJikanClient(opts), nil
	}
	return nil, errors.Errorf("unknown metadata source: %s", source)
}

// CachedLookup memoizes successful lookups in a bounded TTL cache.
type CachedLookup struct {
	next  TitleLookup
	cache *util.TTLCache[int, string]
}

func NewCachedLookup(next TitleLookup, ttl time.Duration, size int) *CachedLookup {
	return &CachedLookup{next: next, cache: util.NewTTLCache[int, string](ttl, size)}
}

func (c *CachedLookup) Name() string { return c.next.Name() }

func (c *CachedLookup) Title(ctx context.Context, id int) (string, error) {
	if title, ok := c.cache.Get(id); ok {
		metrics.TitleLookups.WithLabelValues(c.next.Name(), "cached").Inc()
		return title, nil
	}

	title, err := c.next.Title(ctx, id)
	switch {
	case errors.Is(err, ErrTitleNotFound):
		metrics.TitleLookups.WithLabelValues(c.next.Name(), "not_found").Inc()
		return "", err
	case err != nil:
		metrics.TitleLookups.WithLabelValues(c.next.Name(), "error").Inc()
		return "", err
	}

	metrics.TitleLookups.WithLabelValues(c.next.Name(), "ok").Inc()
	c.cache.Set(id, title)
	util.Debug("Resolved catalog id", "source", c.next.Name(), "id", id, "title", title)
	return title, nil
}

// ParseID reports whether s is a numeric catalog id.
func ParseID(s string) (int, bool) {
	if s == "" || len(s) > 9 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil && n > 0
}

package resolver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want models.ProviderName
	}{
		{"one-piece-100", models.HiAnime},
		{"jujutsu-kaisen-tv-534", models.HiAnime},
		{"frieren-xk2p", models.Anikai},
		{"ReooPAxPMsHM4KPMY", models.AllAnime},
		{"abc", models.AllAnime},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferProvider(tt.id), tt.id)
	}
}

func sourceCalls(log *callLog) []string {
	var out []string
	for _, c := range log.all() {
		if strings.Contains(c, " sources ") {
			out = append(out, c)
		}
	}
	return out
}

func TestSourcesFallbackOrdering(t *testing.T) {
	t.Parallel()

	chain := DefaultOrders().Chain
	for k := 1; k <= len(chain); k++ {
		t.Run(fmt.Sprintf("provider %d succeeds", k), func(t *testing.T) {
			t.Parallel()

			log := &callLog{}
			fakes := newFakes(log)
			for i, name := range chain {
				if i == k-1 {
					fakes[name].sources = okSources(name)
				} else {
					p := name
					fakes[name].sources = func(context.Context, scraper.SourceRequest) ([]models.VideoSource, error) {
						return nil, transient(p, "sources")
					}
				}
			}
			r := New(registryOf(fakes), nil, Options{})

			// "abc" has the AllAnime shape, so the chain starts at its head.
			res, err := r.Sources(context.Background(), SourceQuery{ID: "abc", Episode: "1", Mode: models.ModeSub})
			require.NoError(t, err)
			assert.Equal(t, chain[k-1], res.Provider)

			want := make([]string, 0, k)
			for _, name := range chain[:k] {
				want = append(want, fmt.Sprintf("%s sources abc", name))
			}
			assert.Equal(t, want, sourceCalls(log))
		})
	}
}

func TestInfoFallbackOrdering(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	fakes[models.AniWatch].info = func(_ context.Context, id string) (*models.ShowDetails, error) {
		return &models.ShowDetails{ID: id, Provider: models.AniWatch, Title: "Naruto"}, nil
	}
	r := New(registryOf(fakes), nil, Options{})

	details, err := r.Info(context.Background(), "naruto-677", "")
	require.NoError(t, err)
	assert.Equal(t, models.AniWatch, details.Provider)
	assert.Equal(t, []string{
		"hianime info naruto-677",
		"allanime info naruto-677",
		"aniwatch info naruto-677",
	}, log.all())
}

func TestInfoExplicitProviderDoesNotFallBack(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	fakes[models.AllAnime].info = func(_ context.Context, id string) (*models.ShowDetails, error) {
		return &models.ShowDetails{ID: id}, nil
	}
	r := New(registryOf(fakes), nil, Options{})

	_, err := r.Info(context.Background(), "abc", "hianime")
	require.Error(t, err)
	assert.Equal(t, []string{"hianime info abc"}, log.all())

	rerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, rerr.Status())
	assert.False(t, rerr.FallbackAttempted)
}

func TestUnknownProviderIsCallerError(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	r := New(registryOf(newFakes(log)), nil, Options{})

	_, err := r.Sources(context.Background(), SourceQuery{ID: "abc", Episode: "1", Provider: "crunchyroll"})
	require.Error(t, err)
	rerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, rerr.Status())
	assert.Empty(t, log.all())
}

// Every id handed to Sources is either the caller's id or one the same
// provider returned from its own search.
func TestSourcesNeverPortsIDsAcrossProviders(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	issued := map[models.ProviderName]string{
		models.AllAnime: "aa-op",
		models.HiAnime:  "one-piece-100",
		models.AniWatch: "one-piece-aw",
		models.Anikai:   "one-piece-kai",
	}
	for name, id := range issued {
		fakes[name].search = func(context.Context, string) ([]models.SearchResult, error) {
			return []models.SearchResult{{ID: id, Title: "One Piece", Provider: name}}, nil
		}
	}
	fakes[models.HiAnime].info = func(_ context.Context, id string) (*models.ShowDetails, error) {
		return &models.ShowDetails{ID: id, Provider: models.HiAnime, Title: "One Piece"}, nil
	}
	fakes[models.Anikai].sources = func(ctx context.Context, req scraper.SourceRequest) ([]models.VideoSource, error) {
		if req.ShowID != "one-piece-kai" {
			return nil, missing(models.Anikai, "sources")
		}
		return okSources(models.Anikai)(ctx, req)
	}
	r := New(registryOf(fakes), nil, Options{})

	res, err := r.Sources(context.Background(), SourceQuery{ID: "one-piece-100", Episode: "1", Mode: models.ModeSub, Provider: "hianime"})
	require.NoError(t, err)
	assert.Equal(t, models.Anikai, res.Provider)
	assert.Equal(t, "one-piece-kai", res.ShowID)

	for _, call := range sourceCalls(log) {
		parts := strings.Fields(call)
		provider, id := models.ProviderName(parts[0]), parts[2]
		if id == "one-piece-100" && provider == models.HiAnime {
			continue
		}
		assert.Equal(t, issued[provider], id, call)
	}
	assert.NotContains(t, sourceCalls(log), "allanime sources one-piece-100")
}

func TestSourcesNumericIDResolvesByTitle(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	fakes[models.HiAnime].search = func(context.Context, string) ([]models.SearchResult, error) {
		return []models.SearchResult{{ID: "one-piece-100", Title: "One Piece"}}, nil
	}
	fakes[models.HiAnime].sources = okSources(models.HiAnime)
	titles := &fakeTitles{titles: map[int]string{21: "One Piece"}}
	r := New(registryOf(fakes), titles, Options{})

	res, err := r.Sources(context.Background(), SourceQuery{ID: "21", Episode: "1", Mode: models.ModeSub})
	require.NoError(t, err)
	assert.Equal(t, models.HiAnime, res.Provider)
	assert.Equal(t, "one-piece-100", res.ShowID)
	assert.Equal(t, []string{"hianime sources one-piece-100"}, sourceCalls(log))
}

// Scenario: numeric catalog id to episode numbers.
func TestInfoNumericIDReturnsEpisodeNumbers(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	fakes[models.HiAnime].search = func(context.Context, string) ([]models.SearchResult, error) {
		return []models.SearchResult{
			{ID: "frieren-movie-1", Title: "Frieren Recap"},
			{ID: "frieren-18542", Title: "Frieren: Beyond Journey's End"},
		}, nil
	}
	fakes[models.HiAnime].info = func(_ context.Context, id string) (*models.ShowDetails, error) {
		return &models.ShowDetails{
			ID: id, Provider: models.HiAnime, Title: "Frieren: Beyond Journey's End",
			Episodes: []models.Episode{{ID: "hash-b", Number: 2}, {ID: "hash-a", Number: 1}},
		}, nil
	}
	titles := &fakeTitles{titles: map[int]string{21234: "Frieren: Beyond Journey's End"}}
	r := New(registryOf(fakes), titles, Options{})

	details, err := r.Info(context.Background(), "21234", "")
	require.NoError(t, err)
	assert.Equal(t, "frieren-18542", details.ID)
	assert.Equal(t, []string{"1", "2"}, details.EpisodeNumbers())
	assert.Equal(t, []string{
		"allanime search Frieren: Beyond Journey's End",
		"hianime search Frieren: Beyond Journey's End",
		"hianime info frieren-18542",
	}, log.all())
}

func TestInfoNumericIDTitleLookupFailure(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	r := New(registryOf(newFakes(log)), &fakeTitles{}, Options{})

	_, err := r.Info(context.Background(), "999", "")
	require.Error(t, err)
	rerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, rerr.Status())
	assert.Empty(t, log.all())
}

// Scenario: explicit dub request answered by a raw server is signalled.
func TestSourcesSignalsModeSubstitution(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	fakes[models.HiAnime].sources = func(context.Context, scraper.SourceRequest) ([]models.VideoSource, error) {
		return []models.VideoSource{{URL: "https://cdn.example/raw.m3u8", IsHLS: true, Mode: models.ModeRaw}}, nil
	}
	r := New(registryOf(fakes), nil, Options{})

	res, err := r.Sources(context.Background(), SourceQuery{ID: "one-piece-100", Episode: "1", Mode: models.ModeDub, Provider: "hianime"})
	require.NoError(t, err)
	assert.Equal(t, models.ModeDub, res.RequestedMode)
	assert.Equal(t, models.ModeRaw, res.ServedMode)
	assert.Equal(t, models.ModeRaw, res.Sources[0].Mode)
	assert.Equal(t, models.HiAnime, res.Sources[0].Provider)
}

func TestSourcesAllNotFoundIs404(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	fakes[models.AllAnime].sources = func(context.Context, scraper.SourceRequest) ([]models.VideoSource, error) {
		return []models.VideoSource{}, nil
	}
	r := New(registryOf(fakes), nil, Options{})

	_, err := r.Sources(context.Background(), SourceQuery{ID: "abc", Episode: "1", Mode: models.ModeDub})
	require.Error(t, err)
	rerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, rerr.Status())
	assert.Equal(t, "No DUB sources available. Try switching mode.", rerr.Error())
	assert.NotEmpty(t, rerr.Suggestion)
	assert.True(t, rerr.FallbackAttempted)
	assert.Equal(t, models.AllAnime, rerr.Provider)
}

func TestSourcesStopsOnUnsupportedRequest(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	fakes[models.AllAnime].sources = func(context.Context, scraper.SourceRequest) ([]models.VideoSource, error) {
		return nil, &scraper.ProviderError{Provider: models.AllAnime, Op: "sources", Kind: scraper.ErrUnsupported}
	}
	fakes[models.HiAnime].sources = okSources(models.HiAnime)
	r := New(registryOf(fakes), nil, Options{})

	_, err := r.Sources(context.Background(), SourceQuery{ID: "abc", Episode: "1"})
	require.Error(t, err)
	assert.Equal(t, []string{"allanime sources abc"}, sourceCalls(log))

	rerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, rerr.Status())
}

func TestSourcesHonoursDeadline(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	for _, f := range fakes {
		f.sources = func(ctx context.Context, _ scraper.SourceRequest) ([]models.VideoSource, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
	}
	r := New(registryOf(fakes), nil, Options{Deadline: 50 * time.Millisecond})

	start := time.Now()
	_, err := r.Sources(context.Background(), SourceQuery{ID: "abc", Episode: "1"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, sourceCalls(log), 1)
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	e := &Error{Op: "sources"}
	e.add(models.AllAnime, missing(models.AllAnime, "sources"))
	assert.Equal(t, http.StatusNotFound, e.Status())

	e.add(models.HiAnime, transient(models.HiAnime, "sources"))
	assert.Equal(t, http.StatusBadGateway, e.Status())
	assert.Equal(t, "allanime sources: fixture", e.Error())
	assert.Len(t, e.Details(), 2)
	assert.ErrorIs(t, e, scraper.ErrUpstream)
}

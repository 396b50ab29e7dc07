package resolver

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func results(p models.ProviderName, titles ...string) []models.SearchResult {
	out := make([]models.SearchResult, 0, len(titles))
	for i, title := range titles {
		out = append(out, models.SearchResult{ID: fmt.Sprintf("%s-%d", p, i), Title: title, Provider: p})
	}
	return out
}

func TestSearchSurvivesHangingProvider(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	release := make(chan struct{})
	defer close(release)

	// Ignores its context entirely.
	fakes[models.Anikai].search = func(context.Context, string) ([]models.SearchResult, error) {
		<-release
		return results(models.Anikai, "Never"), nil
	}
	fakes[models.AllAnime].search = func(context.Context, string) ([]models.SearchResult, error) {
		return results(models.AllAnime, "Naruto", "Naruto Shippuden"), nil
	}
	fakes[models.HiAnime].search = func(context.Context, string) ([]models.SearchResult, error) {
		return results(models.HiAnime, "Boruto"), nil
	}
	fakes[models.AniWatch].search = func(context.Context, string) ([]models.SearchResult, error) {
		return nil, transient(models.AniWatch, "search")
	}
	r := New(registryOf(fakes), nil, Options{SearchTimeout: 50 * time.Millisecond})

	start := time.Now()
	got, err := r.Search(context.Background(), SearchQuery{Query: "naruto"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	titles := make([]string, 0, len(got))
	for _, s := range got {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"Naruto", "Naruto Shippuden", "Boruto"}, titles)
}

func TestSearchDedupesAndCaps(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	fakes[models.AllAnime].search = func(context.Context, string) ([]models.SearchResult, error) {
		return results(models.AllAnime, "One Piece", "One Piece Film Red", "Bleach"), nil
	}
	fakes[models.Anikai].search = func(context.Context, string) ([]models.SearchResult, error) {
		return results(models.Anikai, "one  piece", "Frieren", ""), nil
	}
	r := New(registryOf(fakes), nil, Options{SearchLimit: 4})

	got, err := r.Search(context.Background(), SearchQuery{Query: "one piece"})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, models.AllAnime, got[0].Provider)
	assert.Equal(t, "Frieren", got[3].Title)
	assert.Equal(t, models.Anikai, got[3].Provider)
}

func TestSearchOrderOverride(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	for _, name := range models.ProviderNames {
		fakes[name].search = func(context.Context, string) ([]models.SearchResult, error) {
			return []models.SearchResult{{ID: string(name), Title: "Same Show", Provider: name}}, nil
		}
	}
	r := New(registryOf(fakes), nil, Options{})

	got, err := r.Search(context.Background(), SearchQuery{Query: "same", Order: []string{"bogus", "aniwatch", "hianime"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.AniWatch, got[0].Provider)
	assert.Len(t, log.all(), 2)
}

func TestSearchExplicitProvider(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	fakes[models.HiAnime].search = func(context.Context, string) ([]models.SearchResult, error) {
		return nil, transient(models.HiAnime, "search")
	}
	r := New(registryOf(fakes), nil, Options{})

	_, err := r.Search(context.Background(), SearchQuery{Query: "x", Provider: "hianime"})
	require.Error(t, err)
	rerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, rerr.Status())
	assert.Equal(t, []string{"hianime search x"}, log.all())
}

func TestSearchEmptyIsNotNil(t *testing.T) {
	t.Parallel()

	r := New(registryOf(newFakes(&callLog{})), nil, Options{})
	got, err := r.Search(context.Background(), SearchQuery{Query: "nothing"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchTagsResultsWithAnsweringProvider(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	fakes[models.AllAnime].search = func(context.Context, string) ([]models.SearchResult, error) {
		return []models.SearchResult{}, nil
	}
	fakes[models.HiAnime].search = func(context.Context, string) ([]models.SearchResult, error) {
		return results(models.HiAnime, "One Piece", "One Piece Film: Red"), nil
	}
	r := New(registryOf(fakes), nil, Options{})

	got, err := r.Search(context.Background(), SearchQuery{Query: "One Piece"})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, s := range got {
		assert.Equal(t, models.HiAnime, s.Provider)
	}
}

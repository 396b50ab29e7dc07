package resolver

import (
	"context"
	"net/http"
	"testing"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withPopular swaps the named fake for one that can list popular shows.
func withPopular(fakes map[models.ProviderName]*fakeProvider, name models.ProviderName, fn func(context.Context, int) ([]models.SearchResult, error)) *scraper.Registry {
	p := &popularFake{fakeProvider: fakes[name], popular: fn}
	rest := make(map[models.ProviderName]*fakeProvider, len(fakes))
	for n, f := range fakes {
		if n != name {
			rest[n] = f
		}
	}
	return registryOf(rest, p)
}

func TestListSkipsProvidersWithoutCapability(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	reg := withPopular(fakes, models.Anikai, func(context.Context, int) ([]models.SearchResult, error) {
		return results(models.Anikai, "Dandadan"), nil
	})
	r := New(reg, nil, Options{})

	// allanime comes first in the popular order but lacks the capability here.
	listing, err := r.List(context.Background(), ListPopular, ListQuery{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, models.Anikai, listing.Provider)
	require.Len(t, listing.Shows, 1)
	assert.Equal(t, []string{"anikai popular 1"}, log.all())
}

func TestListAllFailedDegradesToEmpty(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	fakes := newFakes(log)
	reg := withPopular(fakes, models.Anikai, func(context.Context, int) ([]models.SearchResult, error) {
		return nil, transient(models.Anikai, "popular")
	})
	r := New(reg, nil, Options{})

	listing, err := r.List(context.Background(), ListPopular, ListQuery{Page: 1})
	require.Error(t, err)
	require.NotNil(t, listing)
	assert.NotNil(t, listing.Shows)
	assert.Empty(t, listing.Shows)
	assert.Equal(t, "All providers failed to fetch popular list", err.Error())

	rerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"anikai popular: server returned: 503"}, rerr.Details())
}

func TestListExplicitProviderWithoutCapability(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	r := New(registryOf(newFakes(log)), nil, Options{})

	listing, err := r.List(context.Background(), ListTop, ListQuery{Page: 1, Provider: "anikai"})
	require.Error(t, err)
	assert.Empty(t, listing.Shows)
	assert.Equal(t, "Provider does not support top", err.Error())

	rerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, rerr.Status())
	assert.Empty(t, log.all())
}

func TestServersWithoutCapability(t *testing.T) {
	t.Parallel()

	r := New(registryOf(newFakes(&callLog{})), nil, Options{})

	_, err := r.Servers(context.Background(), "1234", "")
	require.Error(t, err)
	rerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, rerr.Status())
}

func TestHomeWithoutProviderIsEmpty(t *testing.T) {
	t.Parallel()

	r := New(registryOf(newFakes(&callLog{})), nil, Options{})

	feed, err := r.Home(context.Background())
	require.NoError(t, err)
	assert.Empty(t, feed.Slides)
	assert.NotNil(t, feed.Latest)
}

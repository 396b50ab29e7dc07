package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const anikaiHomeHTML = `<html><body>
<div class="swiper-wrapper">
  <div class="swiper-slide">
    <div class="bg-img" style="background-image: url('https://img.example/slide1.jpg');"></div>
    <h2 class="title">Frieren</h2>
    <p class="desc">An elf mage.</p>
    <a class="watch-btn" href="/watch/frieren-xk2p">Watch</a>
    <button class="user-bookmark" data-alid="154587"></button>
  </div>
  <div class="swiper-slide">
    <h2 class="title">Dandadan</h2>
    <a class="watch-btn" href="/watch/dandadan-q9v1">Watch</a>
  </div>
  <div class="swiper-slide"><h2 class="title">Broken</h2></div>
</div>
<section id="latest-updates"><div class="tab-body">
  <div class="aitem-wrapper">
    <div class="inner"><a href="/watch/princess-session-orchestra-p3eq#ep=38"></a></div>
    <a class="poster"><img data-src="https://img.example/pso.jpg"></a>
    <div class="title">Princess-Session Orchestra</div>
    <span class="tick-sub">38</span><span class="tick-dub">12</span>
  </div>
</div></section>
</body></html>`

func TestAnikaiHome(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/home", r.URL.Path)
		_, _ = fmt.Fprint(w, anikaiHomeHTML)
	}))
	defer server.Close()

	p := NewAnikaiProvider(Config{Client: server.Client(), AnikaiBase: server.URL}, nil)
	feed, err := p.Home(context.Background())
	require.NoError(t, err)

	require.Len(t, feed.Slides, 2)
	assert.Equal(t, "frieren-xk2p", feed.Slides[0].ID)
	assert.Equal(t, "https://img.example/slide1.jpg", feed.Slides[0].Image)
	assert.Equal(t, "An elf mage.", feed.Slides[0].Description)
	assert.Equal(t, 154587, feed.Slides[0].AniListID)
	assert.Equal(t, aniListBanner+"154587.jpg", feed.Slides[0].Cover)
	assert.Equal(t, anikaiImageCache+"dandadan-q9v1.jpg", feed.Slides[1].Image)
	assert.Empty(t, feed.Slides[1].Cover)

	require.Len(t, feed.Latest, 1)
	assert.Equal(t, "princess-session-orchestra-p3eq", feed.Latest[0].ID)
	assert.Equal(t, "https://img.example/pso.jpg", feed.Latest[0].Image)
	assert.Equal(t, "38", feed.Latest[0].LatestEpisode)
	assert.Equal(t, models.Availability{Sub: 38, Dub: 12}, feed.Latest[0].Availability)
	assert.NotNil(t, feed.Trending)
}

func TestAnikaiRecentOnlyHasFirstPage(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, anikaiHomeHTML)
	}))
	defer server.Close()

	p := NewAnikaiProvider(Config{Client: server.Client(), AnikaiBase: server.URL}, nil)

	first, err := p.Recent(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := p.Recent(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestAnikaiSearchItemWrapperMarkup(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `<div class="aitem-wrapper">
  <a class="poster" href="/watch/frieren-xk2p"><img src="https://img.example/f.jpg"></a>
  <a class="title">Frieren</a>
</div>`)
	}))
	defer server.Close()

	p := NewAnikaiProvider(Config{Client: server.Client(), AnikaiBase: server.URL}, nil)
	results, err := p.Search(context.Background(), "frieren")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "frieren-xk2p", results[0].ID)
	assert.Equal(t, "https://img.example/f.jpg", results[0].Image)
}

func TestAnikaiInfoFallsBackWhenNoEpisodes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/watch/frieren-xk2p", r.URL.Path)
		_, _ = fmt.Fprint(w, `<html><body><h1 class="title">Frieren</h1></body></html>`)
	}))
	defer server.Close()

	stub := &stubProvider{
		name:   models.AllAnime,
		search: []models.SearchResult{{ID: "aa-frieren", Title: "Frieren: Beyond Journey's End"}},
		info: &models.ShowDetails{
			ID: "aa-frieren", Provider: models.AllAnime, Title: "Frieren: Beyond Journey's End",
			Episodes: []models.Episode{{ID: "1", Number: 1}},
		},
	}
	p := NewAnikaiProvider(Config{Client: server.Client(), AnikaiBase: server.URL}, stub)

	details, err := p.Info(context.Background(), "frieren-xk2p")
	require.NoError(t, err)
	assert.Equal(t, models.AllAnime, details.Provider)
	assert.Equal(t, "aa-frieren", details.ID)
	assert.Equal(t, []string{"aa-frieren"}, stub.infoIDs)
}

func TestAnikaiSourcesTriesAllAnimeForAllAnimeShapedIDs(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		name:    models.AllAnime,
		sources: []models.VideoSource{{URL: "https://aa.example/x.m3u8", Provider: models.AllAnime}},
	}
	p := NewAnikaiProvider(Config{AnikaiBase: "http://127.0.0.1:1"}, stub)

	sources, err := p.Sources(context.Background(), SourceRequest{ShowID: "ReooPAxPMsHM4KPMY", Episode: "1", Mode: models.ModeSub})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, []string{"ReooPAxPMsHM4KPMY"}, stub.sourceIDs)
}

func TestLooksLikeAllAnimeID(t *testing.T) {
	t.Parallel()

	assert.True(t, looksLikeAllAnimeID("ReooPAxPMsHM4KPMY"))
	assert.False(t, looksLikeAllAnimeID("frieren-xk2p"))
	assert.False(t, looksLikeAllAnimeID("short"))
}

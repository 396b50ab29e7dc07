package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/scraper"
)

// callLog records provider calls across all fakes of a test, in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// fakeProvider answers from function fields; nil fields mean not found.
type fakeProvider struct {
	name    models.ProviderName
	log     *callLog
	search  func(ctx context.Context, query string) ([]models.SearchResult, error)
	info    func(ctx context.Context, id string) (*models.ShowDetails, error)
	sources func(ctx context.Context, req scraper.SourceRequest) ([]models.VideoSource, error)
}

func missing(p models.ProviderName, op string) error {
	return &scraper.ProviderError{Provider: p, Op: op, Kind: scraper.ErrNotFound, Err: fmt.Errorf("fixture")}
}

func transient(p models.ProviderName, op string) error {
	return &scraper.ProviderError{Provider: p, Op: op, Kind: scraper.ErrUpstream, Err: fmt.Errorf("server returned: 503")}
}

func (f *fakeProvider) Name() models.ProviderName { return f.name }

func (f *fakeProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	f.log.add("%s search %s", f.name, query)
	if f.search == nil {
		return nil, nil
	}
	return f.search(ctx, query)
}

func (f *fakeProvider) Info(ctx context.Context, id string) (*models.ShowDetails, error) {
	f.log.add("%s info %s", f.name, id)
	if f.info == nil {
		return nil, missing(f.name, "info")
	}
	return f.info(ctx, id)
}

func (f *fakeProvider) Sources(ctx context.Context, req scraper.SourceRequest) ([]models.VideoSource, error) {
	f.log.add("%s sources %s", f.name, req.ShowID)
	if f.sources == nil {
		return nil, missing(f.name, "sources")
	}
	return f.sources(ctx, req)
}

// popularFake adds the popular listing capability.
type popularFake struct {
	*fakeProvider
	popular func(ctx context.Context, page int) ([]models.SearchResult, error)
}

func (p *popularFake) Popular(ctx context.Context, page int) ([]models.SearchResult, error) {
	p.log.add("%s popular %d", p.name, page)
	return p.popular(ctx, page)
}

// newFakes returns one fake per known provider sharing log.
func newFakes(log *callLog) map[models.ProviderName]*fakeProvider {
	fakes := make(map[models.ProviderName]*fakeProvider)
	for _, name := range models.ProviderNames {
		fakes[name] = &fakeProvider{name: name, log: log}
	}
	return fakes
}

func registryOf(fakes map[models.ProviderName]*fakeProvider, extra ...scraper.Provider) *scraper.Registry {
	providers := make([]scraper.Provider, 0, len(fakes)+len(extra))
	for _, name := range models.ProviderNames {
		if f, ok := fakes[name]; ok {
			providers = append(providers, f)
		}
	}
	providers = append(providers, extra...)
	return scraper.NewRegistry(providers...)
}

type fakeTitles struct {
	titles map[int]string
}

func (f *fakeTitles) Name() string { return "fake" }

func (f *fakeTitles) Title(_ context.Context, id int) (string, error) {
	if t, ok := f.titles[id]; ok {
		return t, nil
	}
	return "", fmt.Errorf("id %d: %w", id, errNoTitle)
}

var errNoTitle = fmt.Errorf("no title")

func okSources(p models.ProviderName) func(context.Context, scraper.SourceRequest) ([]models.VideoSource, error) {
	return func(_ context.Context, req scraper.SourceRequest) ([]models.VideoSource, error) {
		return []models.VideoSource{{URL: "https://" + string(p) + ".example/" + req.ShowID + ".m3u8", IsHLS: true, Mode: req.Mode}}, nil
	}
}

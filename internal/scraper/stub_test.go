package scraper

import (
	"context"
	"sync"

	"github.com/alvarorichard/anistream/internal/models"
)

// stubProvider records the calls made to it and answers from fixtures.
type stubProvider struct {
	name    models.ProviderName
	search  []models.SearchResult
	info    *models.ShowDetails
	sources []models.VideoSource
	err     error

	mu        sync.Mutex
	searched  []string
	infoIDs   []string
	sourceIDs []string
}

func (s *stubProvider) Name() models.ProviderName { return s.name }

func (s *stubProvider) Search(_ context.Context, query string) ([]models.SearchResult, error) {
	s.mu.Lock()
	s.searched = append(s.searched, query)
	s.mu.Unlock()
	return s.search, s.err
}

func (s *stubProvider) Info(_ context.Context, id string) (*models.ShowDetails, error) {
	s.mu.Lock()
	s.infoIDs = append(s.infoIDs, id)
	s.mu.Unlock()
	if s.info == nil {
		return nil, newError(s.name, "info", ErrNotFound, "no fixture")
	}
	return s.info, s.err
}

func (s *stubProvider) Sources(_ context.Context, req SourceRequest) ([]models.VideoSource, error) {
	s.mu.Lock()
	s.sourceIDs = append(s.sourceIDs, req.ShowID)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.sources, nil
}

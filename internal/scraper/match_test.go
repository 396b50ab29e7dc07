package scraper

import (
	"testing"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBestMatch(t *testing.T) {
	t.Parallel()

	results := []models.SearchResult{
		{ID: "1", Title: "Naruto: Shippuden Movie"},
		{ID: "2", Title: "Boruto"},
		{ID: "3", Title: "naruto"},
	}

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"result contains query", "Naruto", "1"},
		{"query contains result", "Boruto: Naruto Next Generations", "2"},
		{"whitespace and case are normalized", "  BORUTO ", "2"},
		{"no containment picks first", "Bleach", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BestMatch(tt.query, results).Get()
			assert.True(t, ok)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestBestMatchEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, BestMatch("anything", nil).IsAbsent())
}

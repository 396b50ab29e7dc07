package resolver

import (
	"regexp"

	"github.com/alvarorichard/anistream/internal/models"
)

var (
	// one-piece-100
	numericSuffix = regexp.MustCompile(`-\d+$`)
	// frieren-xk2p
	slugSuffix = regexp.MustCompile(`-[A-Za-z0-9]*[A-Za-z][A-Za-z0-9]*$`)
)

// InferProvider guesses which provider issued an id from its shape. It is
// a routing hint only; fallback absorbs wrong guesses.
func InferProvider(id string) models.ProviderName {
	switch {
	case numericSuffix.MatchString(id):
		return models.HiAnime
	case slugSuffix.MatchString(id):
		return models.Anikai
	}
	return models.AllAnime
}

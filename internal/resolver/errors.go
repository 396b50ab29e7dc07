package resolver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/scraper"
)

// Attempt is one provider call made while serving a request.
type Attempt struct {
	Provider models.ProviderName
	Err      error
}

// Error is the aggregate failure of a fallback run. The first attempt's
// error is the primary message; the others are diagnostic detail.
type Error struct {
	Op       string
	Attempts []Attempt
	// Message replaces the primary message when set.
	Message    string
	Suggestion string
	// Provider is the first provider tried.
	Provider          models.ProviderName
	FallbackAttempted bool
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Attempts) == 0 {
		return e.Op + ": no provider could serve the request"
	}
	return e.Attempts[0].Err.Error()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Details lists every attempt as "provider: message".
func (e *Error) Details() []string {
	out := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Err.Error())
	}
	return out
}

// Status maps the failure onto an HTTP status: 400 for caller errors, 404
// when every attempt reported the item as missing, 502 otherwise.
func (e *Error) Status() int {
	if len(e.Attempts) == 0 {
		return http.StatusNotFound
	}
	allNotFound := true
	for _, a := range e.Attempts {
		if scraper.IsConfiguration(a.Err) {
			return http.StatusBadRequest
		}
		if !scraper.IsNotFound(a.Err) {
			allNotFound = false
		}
	}
	if allNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func (e *Error) add(p models.ProviderName, err error) {
	if e.Provider == "" {
		e.Provider = p
	}
	if len(e.Attempts) > 0 {
		e.FallbackAttempted = true
	}
	e.Attempts = append(e.Attempts, Attempt{Provider: p, Err: err})
}

func (e *Error) orNil() error {
	if len(e.Attempts) == 0 && e.Message == "" {
		return nil
	}
	return e
}

// AsError extracts the aggregate failure from err.
func AsError(err error) (*Error, bool) {
	var re *Error
	ok := errors.As(err, &re)
	return re, ok
}

func modeSuggestion(mode models.Mode) string {
	switch mode {
	case models.ModeDub:
		return "Try switching to Sub mode or a different episode"
	case models.ModeSub:
		return "Try switching to Dub mode or a different episode"
	}
	return "Try switching to a different mode (Sub/Dub) or episode"
}

func noSourcesMessage(mode models.Mode) string {
	return "No " + strings.ToUpper(string(mode)) + " sources available. Try switching mode."
}

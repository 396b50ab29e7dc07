package scraper

import (
	"errors"
	"fmt"

	"github.com/alvarorichard/anistream/internal/models"
)

// Failure kinds. A *ProviderError always carries exactly one of them.
var (
	// ErrNotFound means the show, episode or server does not exist upstream.
	ErrNotFound = errors.New("not found")
	// ErrUpstream covers network failures, timeouts, rate limiting and
	// unexpected status codes.
	ErrUpstream = errors.New("upstream unavailable")
	// ErrParse means the expected markup or payload shape was missing.
	ErrParse = errors.New("unexpected upstream response")
	// ErrUnknownProvider is a caller error and is never retried.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrUnsupported is returned when a provider lacks an optional capability.
	ErrUnsupported = errors.New("operation not supported")
)

// ProviderError is the typed failure returned by every adapter.
type ProviderError struct {
	Provider models.ProviderName
	Op       string
	Kind     error
	Err      error
}

func (e *ProviderError) Error() string {
	detail := e.Kind.Error()
	if e.Err != nil {
		detail = e.Err.Error()
	}
	if e.Provider == "" {
		return fmt.Sprintf("%s: %s", e.Op, detail)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, detail)
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(p models.ProviderName, op string, kind error, format string, args ...any) *ProviderError {
	return &ProviderError{Provider: p, Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// wrapError tags a transport level failure as ErrUpstream. Errors that
// already are a *ProviderError keep their kind.
func wrapError(p models.ProviderName, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: p, Op: op, Kind: ErrUpstream, Err: err}
}

// IsNotFound reports whether err means the requested item does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConfiguration reports whether err is a caller error that must not be
// retried on another provider.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrUnknownProvider) || errors.Is(err, ErrUnsupported)
}

// IsFallbackable reports whether the next provider should be tried.
func IsFallbackable(err error) bool {
	return err != nil && !IsConfiguration(err)
}

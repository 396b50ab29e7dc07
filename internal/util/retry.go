package util

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy controls how DoWithRetry reacts to rate limiting.
type RetryPolicy struct {
	// MaxAttempts is the total number of requests sent, first one included.
	MaxAttempts int
	// FallbackWait is used when a 429 carries no usable Retry-After.
	FallbackWait time.Duration
	// MaxWait caps any single wait.
	MaxWait time.Duration
}

// DefaultRetryPolicy retries 429 responses up to three attempts in total.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  3,
	FallbackWait: 1 * time.Second,
	MaxWait:      30 * time.Second,
}

// DoWithRetry sends the request built by newReq and resends it after a 429,
// honouring Retry-After, until MaxAttempts is reached. Other statuses are
// returned as is. The last 429 response is returned when attempts run out.
// Caller must close resp.Body when err == nil.
func DoWithRetry(ctx context.Context, client *http.Client, newReq func(context.Context) (*http.Request, error), policy RetryPolicy) (*http.Response, error) {
	if client == nil {
		client = GetSharedClient()
	}
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		req, err := newReq(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= attempts {
			return resp, nil
		}

		wait := parseRetryAfter(resp.Header.Get("Retry-After"), policy.FallbackWait, policy.MaxWait)
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		Debug("rate limited, waiting", "url", req.URL.Host, "attempt", attempt, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// parseRetryAfter parses Retry-After (seconds or HTTP-date); returns fallback
// when absent or malformed and never more than max.
func parseRetryAfter(s string, fallback, max time.Duration) time.Duration {
	d := fallback
	s = strings.TrimSpace(s)
	if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
		d = time.Duration(sec) * time.Second
	} else if t, err := http.ParseTime(s); err == nil {
		d = time.Until(t)
		if d < 0 {
			d = 0
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

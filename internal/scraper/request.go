package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/util"
)

// maxBodySize bounds how much of an upstream page or payload is read.
const maxBodySize = 8 << 20

// fetcher performs GET requests on behalf of one provider and maps status
// codes onto the failure kinds.
type fetcher struct {
	name      models.ProviderName
	client    *http.Client
	userAgent string
	headers   map[string]string
}

func newFetcher(name models.ProviderName, client *http.Client, headers map[string]string) fetcher {
	if client == nil {
		client = util.GetSharedClient()
	}
	return fetcher{name: name, client: client, userAgent: UserAgent, headers: headers}
}

// xhr marks a request as an in-page AJAX call, which the sites require for
// their fragment endpoints.
var xhr = map[string]string{"X-Requested-With": "XMLHttpRequest"}

// get sends the request and returns the response when the status is 2xx.
func (f *fetcher) get(ctx context.Context, op, rawURL string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, newError(f.name, op, ErrParse, "failed to create request: %v", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, wrapError(f.name, op, fmt.Errorf("failed to make request: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, newError(f.name, op, ErrNotFound, "server returned: %s", resp.Status)
	}
	return nil, newError(f.name, op, ErrUpstream, "server returned: %s", resp.Status)
}

func (f *fetcher) document(ctx context.Context, op, rawURL string, headers map[string]string) (*goquery.Document, error) {
	resp, err := f.get(ctx, op, rawURL, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, newError(f.name, op, ErrParse, "failed to parse HTML: %v", err)
	}
	return doc, nil
}

func (f *fetcher) json(ctx context.Context, op, rawURL string, headers map[string]string, v any) error {
	resp, err := f.get(ctx, op, rawURL, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(v); err != nil {
		return newError(f.name, op, ErrParse, "failed to parse response: %v", err)
	}
	return nil
}

// fragment fetches an AJAX endpoint answering {"html": "..."} and parses
// the embedded markup.
func (f *fetcher) fragment(ctx context.Context, op, rawURL string) (*goquery.Document, error) {
	var payload struct {
		HTML string `json:"html"`
	}
	if err := f.json(ctx, op, rawURL, xhr, &payload); err != nil {
		return nil, err
	}
	if payload.HTML == "" {
		return nil, newError(f.name, op, ErrParse, "empty fragment from %s", rawURL)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload.HTML))
	if err != nil {
		return nil, newError(f.name, op, ErrParse, "failed to parse fragment: %v", err)
	}
	return doc, nil
}

// Package proxy relays media so that browser players can load third-party
// streams. HLS playlists are rewritten so that every segment, init segment,
// rendition, key and I-frame playlist they reference is fetched through the
// proxy too.
package proxy

import (
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/alvarorichard/anistream/internal/metrics"
	"github.com/alvarorichard/anistream/internal/util"
)

// Path is where the proxy is mounted.
const Path = "/api/proxy"

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0"
	referer   = "https://allmanga.to"

	playlistCache = "public, max-age=300"
	segmentCache  = "public, max-age=3600, immutable"
)

// Headers copied from upstream on binary responses.
var passthroughHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
	"Last-Modified",
	"ETag",
}

// Handler serves GET, HEAD and OPTIONS on Path?url=<target>.
type Handler struct {
	client *http.Client
	// publicBase overrides the origin derived from the request.
	publicBase string
}

// New creates a proxy handler. A nil client selects util.NewStreamClient.
func New(client *http.Client, publicBase string) *Handler {
	if client == nil {
		client = util.NewStreamClient()
	}
	return &Handler{client: client, publicBase: strings.TrimSuffix(publicBase, "/")}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORS(w.Header())
		w.WriteHeader(http.StatusNoContent)
		return
	}

	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	}
	if !isHTTPOrHTTPS(target) {
		http.Error(w, "Invalid url parameter", http.StatusBadRequest)
		return
	}

	if err := h.relay(w, r, target); err != nil {
		util.Warn("Proxy failed", "url", target, "error", err)
		metrics.ProxyRequests.WithLabelValues("error", strconv.Itoa(http.StatusInternalServerError)).Inc()
		http.Error(w, "Proxy Error: "+err.Error(), http.StatusInternalServerError)
	}
}

// relay fetches target and writes the answer. A returned error means
// nothing has been written yet.
func (h *Handler) relay(w http.ResponseWriter, r *http.Request, target string) error {
	method := http.MethodGet
	if r.Method == http.MethodHead {
		method = http.MethodHead
	}
	req, err := http.NewRequestWithContext(r.Context(), method, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)
	if rng := r.Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		util.Warn("Proxy upstream refused", "url", target, "status", resp.StatusCode)
		metrics.ProxyRequests.WithLabelValues("upstream", strconv.Itoa(resp.StatusCode)).Inc()
		http.Error(w, "Proxy Error: "+http.StatusText(resp.StatusCode), resp.StatusCode)
		return nil
	}

	contentType := resp.Header.Get("Content-Type")
	if method == http.MethodGet && IsPlaylist(contentType, target) {
		return h.playlist(w, r, resp, target, contentType)
	}
	h.binary(w, resp, target, contentType)
	return nil
}

func (h *Handler) playlist(w http.ResponseWriter, r *http.Request, resp *http.Response, target, contentType string) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	// Redirects move the directory relative references resolve against.
	resolved := target
	if resp.Request != nil && resp.Request.URL != nil {
		resolved = resp.Request.URL.String()
	}
	rewritten, err := RewritePlaylist(string(body), resolved, h.origin(r))
	if err != nil {
		return err
	}

	header := w.Header()
	header.Set("Content-Type", contentType)
	setCORS(header)
	header.Set("Cache-Control", playlistCache)
	w.WriteHeader(resp.StatusCode)
	n, _ := io.WriteString(w, rewritten)

	metrics.ProxyRequests.WithLabelValues("playlist", strconv.Itoa(resp.StatusCode)).Inc()
	metrics.ProxyBytes.WithLabelValues("playlist").Add(float64(n))
	util.Debug("Proxied playlist", "url", target, "bytes", n)
	return nil
}

func (h *Handler) binary(w http.ResponseWriter, resp *http.Response, target, contentType string) {
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	for _, name := range passthroughHeaders {
		if v := resp.Header.Get(name); v != "" {
			header.Set(name, v)
		}
	}
	if strings.Contains(contentType, "video") || isSegment(target) {
		header.Set("Cache-Control", segmentCache)
	}
	w.WriteHeader(resp.StatusCode)

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		// Headers are gone; the client sees a truncated body.
		util.Debug("Proxy stream interrupted", "url", target, "bytes", n, "error", err)
	}
	metrics.ProxyRequests.WithLabelValues("binary", strconv.Itoa(resp.StatusCode)).Inc()
	metrics.ProxyBytes.WithLabelValues("binary").Add(float64(n))
}

// isSegment reports whether target names a transport stream segment.
func isSegment(target string) bool {
	u, err := url.Parse(target)
	return err == nil && path.Ext(u.Path) == ".ts"
}

// origin is the scheme and host clients reach the proxy on.
func (h *Handler) origin(r *http.Request) string {
	if h.publicBase != "" {
		return h.publicBase
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Range")
}

// isHTTPOrHTTPS rejects file://, ftp:// and other schemes.
func isHTTPOrHTTPS(target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

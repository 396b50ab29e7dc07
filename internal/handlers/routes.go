// Package handlers provides the HTTP JSON surface of the resolver and
// mounts the stream proxy.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/alvarorichard/anistream/internal/metrics"
	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/proxy"
	"github.com/alvarorichard/anistream/internal/resolver"
	"github.com/alvarorichard/anistream/internal/util"
	"github.com/gorilla/mux"
)

// Resolver is the part of *resolver.Resolver the handlers use.
type Resolver interface {
	Search(ctx context.Context, q resolver.SearchQuery) ([]models.SearchResult, error)
	Info(ctx context.Context, id, provider string) (*models.ShowDetails, error)
	Sources(ctx context.Context, q resolver.SourceQuery) (*resolver.SourceResult, error)
	Servers(ctx context.Context, episodeID, provider string) ([]models.Server, error)
	List(ctx context.Context, kind resolver.ListKind, q resolver.ListQuery) (*resolver.Listing, error)
	Home(ctx context.Context) (*models.HomeFeed, error)
}

// Handler serves the anime endpoints.
type Handler struct {
	resolver Resolver
}

// NewHandler creates a Handler backed by res.
func NewHandler(res Resolver) *Handler {
	return &Handler{resolver: res}
}

// SetupRoutes configures all routes. The proxy is mounted at proxy.Path.
func SetupRoutes(h *Handler, streamProxy http.Handler) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Health).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/proxy", streamProxy).Methods("GET", "HEAD", "OPTIONS")

	anime := api.PathPrefix("/anime").Subrouter()
	anime.HandleFunc("/search", h.Search).Methods("GET", "OPTIONS")
	anime.HandleFunc("/episodes", h.Episodes).Methods("GET", "OPTIONS")
	anime.HandleFunc("/source", h.Source).Methods("GET", "OPTIONS")
	anime.HandleFunc("/servers", h.Servers).Methods("GET", "OPTIONS")
	anime.HandleFunc("/home", h.Home).Methods("GET", "OPTIONS")
	anime.HandleFunc("/az", h.list(resolver.ListAZ, false)).Methods("GET", "OPTIONS")
	anime.HandleFunc("/genre", h.list(resolver.ListGenre, false)).Methods("GET", "OPTIONS")
	anime.HandleFunc("/recent", h.list(resolver.ListRecent, false)).Methods("GET", "OPTIONS")
	anime.HandleFunc("/popular", h.list(resolver.ListPopular, true)).Methods("GET", "OPTIONS")
	anime.HandleFunc("/top", h.list(resolver.ListTop, true)).Methods("GET", "OPTIONS")
	anime.HandleFunc("/trending", h.list(resolver.ListTrending, true)).Methods("GET", "OPTIONS")

	r.Use(corsMiddleware)
	r.Use(loggingMiddleware)

	return r
}

// corsMiddleware adds CORS headers. The proxy answers its own preflights.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")

		if r.Method == http.MethodOptions && r.URL.Path != proxy.Path {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs every request. Server errors are logged at warn.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		keyvals := []interface{}{"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start)}
		if rec.status >= http.StatusInternalServerError {
			util.Warn("request", keyvals...)
			return
		}
		util.Debug("request", keyvals...)
	})
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

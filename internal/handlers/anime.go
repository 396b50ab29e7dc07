package handlers

import (
	"net/http"
	"strings"

	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/resolver"
	"github.com/alvarorichard/anistream/internal/util"
)

// showsBody is returned by search and listings. Failures keep the shape
// with an empty list.
type showsBody struct {
	Shows    []Show              `json:"shows"`
	Provider models.ProviderName `json:"provider,omitempty"`
	Error    string              `json:"error,omitempty"`
	Details  []string            `json:"details,omitempty"`
}

// Search handles GET /api/anime/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "Query is required")
		return
	}

	results, err := h.resolver.Search(r.Context(), resolver.SearchQuery{
		Query:    query,
		Provider: q.Get("provider"),
		Order:    listParam(r, "providers"),
	})
	if err != nil {
		respondShows(w, nil, err)
		return
	}
	respondJSON(w, http.StatusOK, showsBody{Shows: toShows(results, "")})
}

// Episodes handles GET /api/anime/episodes
func (h *Handler) Episodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "ID is required")
		return
	}

	details, err := h.resolver.Info(r.Context(), id, q.Get("provider"))
	if err != nil {
		util.Warn("Episodes failed", "id", id, "error", err)
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]ShowDetail{"show": toShowDetail(details)})
}

// Source handles GET /api/anime/source
func (h *Handler) Source(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("id"))
	episode := strings.TrimSpace(q.Get("ep"))
	if id == "" || episode == "" {
		respondError(w, http.StatusBadRequest, "Show ID and Episode Number are required")
		return
	}
	mode, err := models.ParseMode(q.Get("mode"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.resolver.Sources(r.Context(), resolver.SourceQuery{
		ID:       id,
		Episode:  episode,
		Mode:     mode,
		ServerID: q.Get("serverId"),
		Provider: q.Get("provider"),
	})
	if err != nil {
		util.Warn("Source failed", "id", id, "ep", episode, "mode", mode, "error", err)
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toSourceBody(res))
}

// Servers handles GET /api/anime/servers
func (h *Handler) Servers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	episodeID := strings.TrimSpace(q.Get("episodeId"))
	if episodeID == "" {
		respondError(w, http.StatusBadRequest, "Episode ID is required")
		return
	}

	servers, err := h.resolver.Servers(r.Context(), episodeID, q.Get("provider"))
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]models.Server{"servers": servers})
}

// Home handles GET /api/anime/home
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	feed, err := h.resolver.Home(r.Context())
	if err != nil {
		util.Warn("Home feed failed", "error", err)
	}
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	respondJSON(w, http.StatusOK, feed)
}

// list serves one listing kind. Volatile listings are never cached.
func (h *Handler) list(kind resolver.ListKind, volatile bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := resolver.ListQuery{
			Page:     pageParam(r),
			Provider: q.Get("provider"),
			Letter:   q.Get("letter"),
			Genre:    q.Get("name"),
		}
		if kind == resolver.ListGenre && strings.TrimSpace(query.Genre) == "" {
			respondError(w, http.StatusBadRequest, "Genre name is required")
			return
		}

		if volatile {
			w.Header().Set("Cache-Control", "no-store, max-age=0")
		}
		listing, err := h.resolver.List(r.Context(), kind, query)
		if err != nil {
			respondShows(w, listing, err)
			return
		}
		respondJSON(w, http.StatusOK, showsBody{Shows: toShows(listing.Shows, listing.Provider), Provider: listing.Provider})
	}
}

// respondShows reports a failed search or listing. Caller errors keep
// their status; provider failures answer 200 with an empty list.
func respondShows(w http.ResponseWriter, listing *resolver.Listing, err error) {
	status, body := failure(err)
	out := showsBody{Shows: []Show{}, Error: body.Error, Details: body.Details}
	if listing != nil && len(listing.Shows) > 0 {
		out.Shows = toShows(listing.Shows, listing.Provider)
	}
	if status != http.StatusBadRequest {
		util.Warn("Listing degraded", "error", err)
		status = http.StatusOK
	}
	respondJSON(w, status, out)
}

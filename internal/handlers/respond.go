package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/alvarorichard/anistream/internal/resolver"
	"github.com/alvarorichard/anistream/internal/util"
)

// errorBody is the JSON shape of every failure.
type errorBody struct {
	Error             string   `json:"error"`
	Suggestion        string   `json:"suggestion,omitempty"`
	Provider          string   `json:"provider,omitempty"`
	FallbackAttempted bool     `json:"fallbackAttempted"`
	Details           []string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		util.Debug("response encode failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Error: message})
}

// respondFailure writes err with the status and detail of a resolver
// failure. Other errors become a bare 500.
func respondFailure(w http.ResponseWriter, err error) {
	status, body := failure(err)
	respondJSON(w, status, body)
}

func failure(err error) (int, errorBody) {
	rerr, ok := resolver.AsError(err)
	if !ok {
		return http.StatusInternalServerError, errorBody{Error: err.Error()}
	}
	body := errorBody{
		Error:             rerr.Error(),
		Suggestion:        rerr.Suggestion,
		Provider:          string(rerr.Provider),
		FallbackAttempted: rerr.FallbackAttempted,
	}
	if details := rerr.Details(); len(details) > 1 || rerr.Message != "" {
		body.Details = details
	}
	return rerr.Status(), body
}

// pageParam parses ?page=, defaulting to 1.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// listParam splits a comma separated query value.
func listParam(r *http.Request, key string) []string {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/transit-display/octranspo/internal/db"
	"github.com/transit-display/octranspo/internal/live"
	"github.com/transit-display/octranspo/internal/search"
)

// Searcher defines the interface for stop query operations
type Searcher interface {
	Search(ctx context.Context, query string) ([]db.Stop, error)
	Autocomplete(ctx context.Context, query string) ([]search.Suggestion, error)
}

// SearchHandler handles HTTP requests for stop lookups
type SearchHandler struct {
	svc Searcher
}

// NewSearchHandler creates a new handler with the given search service
func NewSearchHandler(svc Searcher) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// SearchResponse is the JSON response structure for GET /api/stops/search
type SearchResponse struct {
	Stops []db.Stop `json:"stops"`
	Count int       `json:"count"`
}

// Search handles GET /api/stops/search?q=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required", nil)
		return
	}

	stops, err := h.svc.Search(ctx, query)
	if err != nil {
		status, msg := classifyLiveError(err)
		writeError(w, status, msg, map[string]interface{}{"query": query})
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Stops: stops, Count: len(stops)})
}

// AutocompleteResponse is the JSON response structure for GET /api/stops/autocomplete
type AutocompleteResponse struct {
	Suggestions []search.Suggestion `json:"suggestions"`
	Count       int                 `json:"count"`
}

// Autocomplete handles GET /api/stops/autocomplete?q=
func (h *SearchHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required", nil)
		return
	}

	suggestions, err := h.svc.Autocomplete(ctx, query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to autocomplete stops", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, AutocompleteResponse{Suggestions: suggestions, Count: len(suggestions)})
}

// classifyLiveError maps the upstream error kinds onto HTTP statuses
func classifyLiveError(err error) (int, string) {
	var bad *live.BadResponseError
	switch {
	case errors.Is(err, live.ErrNoSuchStop):
		return http.StatusNotFound, "No stop with that code"
	case errors.Is(err, live.ErrNoRoutesAtStop):
		return http.StatusNotFound, "No routes currently serve that stop"
	case errors.As(err, &bad):
		return http.StatusBadGateway, "Upstream returned an unparseable response"
	}
	return http.StatusInternalServerError, "Failed to search stops"
}

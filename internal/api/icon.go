package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/transit-display/octranspo/internal/worker"
)

// RouteIconRenderer composes a PNG badge for a route
type RouteIconRenderer interface {
	RenderRouteIcon(routeNo string) ([]byte, error)
}

// IconHandler handles HTTP requests for route badges
type IconHandler struct {
	renderer RouteIconRenderer
	pool     *worker.Pool
}

// NewIconHandler creates a new handler; rendering is offloaded to the pool so
// request-serving goroutines are not starved by image composition.
func NewIconHandler(renderer RouteIconRenderer, pool *worker.Pool) *IconHandler {
	return &IconHandler{renderer: renderer, pool: pool}
}

// RouteIcon handles GET /api/routes/{routeNo}/icon.png
func (h *IconHandler) RouteIcon(w http.ResponseWriter, r *http.Request) {
	routeNo := chi.URLParam(r, "routeNo")
	if routeNo == "" {
		writeError(w, http.StatusBadRequest, "routeNo parameter is required", nil)
		return
	}

	var data []byte
	err := h.pool.Do(r.Context(), func() error {
		var renderErr error
		data, renderErr = h.renderer.RenderRouteIcon(routeNo)
		return renderErr
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render route icon", map[string]interface{}{
			"routeNo":  routeNo,
			"internal": err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

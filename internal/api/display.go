package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/transit-display/octranspo/internal/db"
	"github.com/transit-display/octranspo/internal/display"
	"github.com/transit-display/octranspo/internal/search"
)

// StopGetter is the slice of the relational store the display flow needs
type StopGetter interface {
	GetStopByCode(ctx context.Context, code string) (db.Stop, error)
}

// StoreResolver adapts the relational store to the display resume path
type StoreResolver struct {
	stops StopGetter
}

// NewStoreResolver wraps a stop store for display reconstruction
func NewStoreResolver(stops StopGetter) *StoreResolver {
	return &StoreResolver{stops: stops}
}

// ResolveStop looks up the stored stop for a code. A code absent from the
// snapshot maps to display.ErrStopUnknown so the display layer can fall back
// to the live description.
func (r *StoreResolver) ResolveStop(ctx context.Context, code string) (display.StopInfo, error) {
	stop, err := r.stops.GetStopByCode(ctx, code)
	if errors.Is(err, db.ErrStopNotFound) {
		return display.StopInfo{}, fmt.Errorf("stop %s: %w", code, display.ErrStopUnknown)
	}
	if err != nil {
		return display.StopInfo{}, err
	}
	return display.StopInfo{Code: stop.Code, Name: stop.Name}, nil
}

var errBadAction = errors.New("bad action")

// DisplayHandler handles the interactive display lifecycle
type DisplayHandler struct {
	stops    display.StopResolver
	trips    display.TripFetcher
	registry *display.Registry
	opts     display.Options
	now      func() time.Time
}

// NewDisplayHandler creates a new handler over the given dependencies
func NewDisplayHandler(stops display.StopResolver, trips display.TripFetcher, registry *display.Registry, opts display.Options) *DisplayHandler {
	return &DisplayHandler{
		stops:    stops,
		trips:    trips,
		registry: registry,
		opts:     opts,
		now:      time.Now,
	}
}

// DisplayResponse is the JSON view of a display after any interaction
type DisplayResponse struct {
	ID            string                 `json:"id"`
	Page          display.Page           `json:"page"`
	PageKey       string                 `json:"pageKey"`
	SortMode      string                 `json:"sortMode"`
	SelectOptions []display.SelectOption `json:"selectOptions"`
	Token         string                 `json:"token"`
	Diagnostic    string                 `json:"diagnostic,omitempty"`
}

func displayResponse(d *display.StopDisplay, diagnostic string) DisplayResponse {
	return DisplayResponse{
		ID:            d.ID,
		Page:          d.CurrentPage(),
		PageKey:       d.CurrentPageKey,
		SortMode:      d.SortMode.String(),
		SelectOptions: d.SelectOptions(),
		Token:         d.Token().String(),
		Diagnostic:    diagnostic,
	}
}

// CreateDisplay handles POST /api/stops/{code}/display
func (h *DisplayHandler) CreateDisplay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	code := chi.URLParam(r, "code")
	if !search.IsStopCode(code) {
		writeError(w, http.StatusBadRequest, "code must be a 4-digit stop code", nil)
		return
	}

	d, err := h.buildDisplay(ctx, code)
	if err != nil {
		status, msg := classifyLiveError(err)
		writeError(w, status, msg, map[string]interface{}{"code": code})
		return
	}

	// Render before publishing so no concurrent action can touch the
	// display while it is being read.
	resp := displayResponse(d, "")
	h.registry.Put(d)
	writeJSON(w, http.StatusCreated, resp)
}

// ActionRequest is the JSON body of POST /api/display/{id}/action
type ActionRequest struct {
	Action string `json:"action"`
	Value  string `json:"value,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Action handles POST /api/display/{id}/action. When the display has expired
// or the process restarted, the control's token is the resume point: the
// display is reconstructed from it before the action is applied.
func (h *DisplayHandler) Action(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	id := chi.URLParam(r, "id")
	diagnostic := ""

	d, ok := h.registry.Get(id)
	if !ok {
		if req.Token == "" {
			writeError(w, http.StatusGone, "Display has expired and no resume token was supplied", nil)
			return
		}
		tok, err := display.ParseToken(req.Token)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid resume token", nil)
			return
		}
		d, diagnostic, err = display.Resume(ctx, tok, h.stops, h.trips, h.now(), h.opts)
		if err != nil {
			status, msg := classifyLiveError(err)
			writeError(w, status, msg, map[string]interface{}{"code": tok.StopCode})
			return
		}
	}

	// Actions on one display run serially in arrival order: the lock is
	// held across the mutation and the response render. A "new" action
	// returns a fresh display that is not yet published, so d's lock
	// covers it too.
	d.Lock()
	res, actionDiag, err := h.apply(ctx, d, req)
	if err != nil {
		d.Unlock()
		if errors.Is(err, errBadAction) {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		status, msg := classifyLiveError(err)
		writeError(w, status, msg, nil)
		return
	}
	if actionDiag != "" {
		diagnostic = actionDiag
	}
	resp := displayResponse(res, diagnostic)
	d.Unlock()

	h.registry.Touch(res)
	writeJSON(w, http.StatusOK, resp)
}

// apply runs one control action against the display. A "new" action replaces
// the display wholesale; everything else mutates it in place.
func (h *DisplayHandler) apply(ctx context.Context, d *display.StopDisplay, req ActionRequest) (*display.StopDisplay, string, error) {
	now := h.now()

	switch req.Action {
	case "prev":
		d.Prev(now)
	case "next":
		d.Next(now)
	case "refresh":
		if err := d.Refresh(ctx, h.trips, now); err != nil {
			if errors.Is(err, display.ErrPageKeyVanished) {
				return d, "That page is no longer available; showing the departure board instead.", nil
			}
			return nil, "", err
		}
	case "select":
		if err := d.Select(req.Value, now); err != nil {
			return d, "That page is no longer available.", nil
		}
	case "swap":
		d.Swap(now)
	case "new":
		if !search.IsStopCode(req.Value) {
			return nil, "", fmt.Errorf("%w: new lookup needs a 4-digit stop code", errBadAction)
		}
		fresh, err := h.buildDisplay(ctx, req.Value)
		if err != nil {
			return nil, "", err
		}
		h.registry.Drop(d.ID)
		return fresh, "", nil
	default:
		return nil, "", fmt.Errorf("%w: unknown action %q", errBadAction, req.Action)
	}
	return d, "", nil
}

func (h *DisplayHandler) buildDisplay(ctx context.Context, code string) (*display.StopDisplay, error) {
	resp, err := h.trips.FetchTrips(ctx, code)
	if err != nil {
		return nil, err
	}

	stop, err := h.stops.ResolveStop(ctx, code)
	if err != nil {
		if !errors.Is(err, display.ErrStopUnknown) {
			return nil, err
		}
		// Known upstream but missing from the last GTFS snapshot
		stop = display.StopInfo{Code: code, Name: resp.StopDescription}
	}

	return display.New(stop, resp, h.now(), h.opts), nil
}

// Package search resolves user queries to stops: exact 4-digit stop codes go
// through the live-trips upstream, everything else through trigram similarity
// over the stops table.
package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/transit-display/octranspo/internal/db"
	"github.com/transit-display/octranspo/internal/gtfs"
	"github.com/transit-display/octranspo/internal/live"
)

// StopStore is the slice of the relational store the service needs
type StopStore interface {
	SearchStops(ctx context.Context, query string, limit int) ([]db.Stop, error)
	GetStopByCode(ctx context.Context, code string) (db.Stop, error)
}

// TripFetcher verifies a stop code against the live upstream
type TripFetcher interface {
	FetchTrips(ctx context.Context, stopCode string) (*live.BusStopResponse, error)
}

// Service answers stop queries
type Service struct {
	store             StopStore
	live              TripFetcher
	searchLimit       int
	autocompleteLimit int
}

// New builds a search service. Limits of zero fall back to 10 results for
// search and 25 for autocomplete.
func New(store StopStore, liveClient TripFetcher, searchLimit, autocompleteLimit int) *Service {
	if searchLimit <= 0 {
		searchLimit = 10
	}
	if autocompleteLimit <= 0 {
		autocompleteLimit = 25
	}
	return &Service{
		store:             store,
		live:              liveClient,
		searchLimit:       searchLimit,
		autocompleteLimit: autocompleteLimit,
	}
}

var stopCodeRe = regexp.MustCompile(`^\d{4}$`)

// IsStopCode reports whether the query is an exact 4-digit stop code
func IsStopCode(query string) bool {
	return stopCodeRe.MatchString(query)
}

// Search resolves a query. A 4-digit code is verified against the live
// upstream and returns exactly one stop; anything else returns the top stops
// by name similarity.
func (s *Service) Search(ctx context.Context, query string) ([]db.Stop, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	if !IsStopCode(query) {
		stops, err := s.store.SearchStops(ctx, query, s.searchLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to search stops: %w", err)
		}
		return stops, nil
	}

	// The upstream is authoritative for code lookups; a stop with no routes
	// right now still exists.
	resp, err := s.live.FetchTrips(ctx, query)
	if err != nil && !errors.Is(err, live.ErrNoRoutesAtStop) {
		return nil, err
	}

	stop, err := s.store.GetStopByCode(ctx, query)
	if err == nil {
		return []db.Stop{stop}, nil
	}
	if !errors.Is(err, db.ErrStopNotFound) {
		return nil, fmt.Errorf("failed to look up stop %s: %w", query, err)
	}
	if resp == nil {
		return nil, live.ErrNoRoutesAtStop
	}
	// Known upstream but missing from the last GTFS snapshot
	return []db.Stop{{
		Code: query,
		Name: gtfs.NormalizeStopName(resp.StopDescription),
	}}, nil
}

// Suggestion is one decorated autocomplete entry
type Suggestion struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Autocomplete returns decorated suggestions for a partial query: stations
// are star-prefixed and listed before ordinary stops.
func (s *Service) Autocomplete(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	stops, err := s.store.SearchStops(ctx, query, s.autocompleteLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to autocomplete stops: %w", err)
	}

	out := make([]Suggestion, 0, len(stops))
	for _, st := range stops {
		label := st.Name
		if isStation(st.Name) {
			label = "★ " + label
		}
		out = append(out, Suggestion{Code: st.Code, Label: label})
	}
	sort.SliceStable(out, func(i, j int) bool {
		si := strings.HasPrefix(out[i].Label, "★ ")
		sj := strings.HasPrefix(out[j].Label, "★ ")
		return si && !sj
	})
	return out, nil
}

func isStation(name string) bool {
	return strings.HasSuffix(name, " Stn.")
}

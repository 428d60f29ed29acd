package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrStopNotFound is returned when a stop code has no row in the store
var ErrStopNotFound = errors.New("stop not found")

// Stop is a row of the stops table. Coordinates are kept as the raw GTFS
// strings; nothing in the core does arithmetic on them.
type Stop struct {
	Code string
	Name string
	Lat  string
	Lon  string
}

// RouteColour is a row of the routes table
type RouteColour struct {
	ShortName  string
	Colour     string
	TextColour string
}

// SearchStops returns up to limit stops ordered by trigram similarity of
// their name against the query, best match first.
func (s *Store) SearchStops(ctx context.Context, query string, limit int) ([]Stop, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT stop_code, stop_name, stop_lat, stop_lon
		FROM stops
		ORDER BY SIMILARITY(LOWER(stop_name), LOWER($1)) DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search stops: %w", err)
	}
	defer rows.Close()

	var stops []Stop
	for rows.Next() {
		var st Stop
		if err := rows.Scan(&st.Code, &st.Name, &st.Lat, &st.Lon); err != nil {
			return nil, fmt.Errorf("failed to scan stop row: %w", err)
		}
		stops = append(stops, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stop rows: %w", err)
	}

	return stops, nil
}

// GetStopByCode looks up a single stop by its 4-digit code
func (s *Store) GetStopByCode(ctx context.Context, code string) (Stop, error) {
	var st Stop
	err := s.pool.QueryRow(ctx, `
		SELECT stop_code, stop_name, stop_lat, stop_lon
		FROM stops
		WHERE stop_code = $1
	`, code).Scan(&st.Code, &st.Name, &st.Lat, &st.Lon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stop{}, ErrStopNotFound
		}
		return Stop{}, fmt.Errorf("failed to query stop %s: %w", code, err)
	}
	return st, nil
}

// AllRouteColours returns every row of the routes table, used to rebuild the
// in-process colour cache after an ingest.
func (s *Store) AllRouteColours(ctx context.Context) ([]RouteColour, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT route_short_name, route_color, route_text_color
		FROM routes
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var colours []RouteColour
	for rows.Next() {
		var rc RouteColour
		if err := rows.Scan(&rc.ShortName, &rc.Colour, &rc.TextColour); err != nil {
			return nil, fmt.Errorf("failed to scan route row: %w", err)
		}
		colours = append(colours, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating route rows: %w", err)
	}

	return colours, nil
}

package gtfs

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/transit-display/octranspo/internal/colours"
	"github.com/transit-display/octranspo/internal/db"
	"github.com/transit-display/octranspo/internal/worker"
)

// TableReplacer is the slice of the store the ingestor needs
type TableReplacer interface {
	ReplaceTables(ctx context.Context, tables []db.TableData) error
}

// Ingestor downloads the GTFS archive and rebuilds the stops and routes
// tables. Any failure aborts the run and leaves the prior dataset
// authoritative.
type Ingestor struct {
	store      TableReplacer
	cache      *colours.Cache
	pool       *worker.Pool
	client     *http.Client
	archiveURL string
	backoff    func(attempt int) time.Duration
}

// NewIngestor creates an ingestor for the given archive URL
func NewIngestor(store TableReplacer, cache *colours.Cache, pool *worker.Pool, archiveURL string) *Ingestor {
	return &Ingestor{
		store:      store,
		cache:      cache,
		pool:       pool,
		client:     &http.Client{Timeout: 2 * time.Minute},
		archiveURL: archiveURL,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1+2*attempt) * time.Second
		},
	}
}

// DefaultTables is the standard ingest set: the stops and routes columns the
// core uses.
func DefaultTables() map[string][]string {
	return map[string][]string{
		"stops":  {"stop_code", "stop_name", "stop_lat", "stop_lon"},
		"routes": {"route_short_name", "route_color", "route_text_color"},
	}
}

// BuildTables downloads the archive and replaces the requested tables'
// contents in a single transaction; a failure anywhere leaves every table at
// its pre-ingest contents. The route colour cache is rebuilt only after the
// swap commits.
func (ing *Ingestor) BuildTables(ctx context.Context, include map[string][]string) error {
	archive, err := ing.download(ctx)
	if err != nil {
		return err
	}

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}

	var tables []db.TableData
	var colourMap map[string]colours.Pair
	routesParsed := false

	for table, columns := range include {
		var present []string
		var raw [][]string
		parse := func() error {
			var perr error
			present, raw, perr = ProjectTable(zr, table, columns)
			return perr
		}
		if err := ing.pool.Do(ctx, parse); err != nil {
			if errors.Is(err, ErrNoSuchMember) {
				log.Printf("GTFS: archive has no %s.txt, skipping", table)
				continue
			}
			return err
		}
		if len(present) < len(columns) {
			log.Printf("GTFS: %s.txt is missing %d of %d requested columns, proceeding with %v",
				table, len(columns)-len(present), len(columns), present)
		}
		if len(present) == 0 {
			log.Printf("GTFS: none of the requested columns exist in %s.txt, skipping", table)
			continue
		}

		rows, pairs := transformRows(table, present, raw)
		tables = append(tables, db.TableData{Name: table, Columns: present, Rows: rows})

		if table == "routes" {
			colourMap = pairs
			routesParsed = true
		}
	}

	if len(tables) == 0 {
		return fmt.Errorf("archive contained none of the requested tables")
	}

	if err := ing.store.ReplaceTables(ctx, tables); err != nil {
		return fmt.Errorf("failed to replace tables: %w", err)
	}
	for _, t := range tables {
		log.Printf("GTFS: ingested %d %s rows", len(t.Rows), t.Name)
	}

	if routesParsed && ing.cache != nil {
		ing.cache.ReplaceAll(colourMap)
		log.Printf("GTFS: route colour cache rebuilt (%d routes)", len(colourMap))
	}

	return nil
}

// transformRows applies the per-table rewrites and drops rows with any empty
// projected column. For routes it also collects the colour mapping.
func transformRows(table string, columns []string, raw [][]string) ([][]any, map[string]colours.Pair) {
	nameIdx, shortIdx, colourIdx, textIdx := -1, -1, -1, -1
	for i, col := range columns {
		switch col {
		case "stop_name":
			nameIdx = i
		case "route_short_name":
			shortIdx = i
		case "route_color":
			colourIdx = i
		case "route_text_color":
			textIdx = i
		}
	}

	var pairs map[string]colours.Pair
	if table == "routes" {
		pairs = make(map[string]colours.Pair)
	}

	rows := make([][]any, 0, len(raw))
	for _, rec := range raw {
		if table == "stops" && nameIdx >= 0 {
			rec[nameIdx] = NormalizeStopName(rec[nameIdx])
		}

		empty := false
		for _, v := range rec {
			if v == "" {
				empty = true
				break
			}
		}
		if empty {
			continue
		}

		if pairs != nil && shortIdx >= 0 && colourIdx >= 0 && textIdx >= 0 {
			pairs[rec[shortIdx]] = colours.Pair{
				Background: rec[colourIdx],
				Text:       rec[textIdx],
			}
		}

		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		rows = append(rows, row)
	}

	return rows, pairs
}

// download fetches the archive, retrying 5xx responses with linear backoff.
// Other error statuses fail immediately; the store is never touched.
func (ing *Ingestor) download(ctx context.Context) ([]byte, error) {
	const maxAttempts = 5

	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ing.archiveURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := ing.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch archive: %w", err)
		}

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			wait := ing.backoff(attempt)
			log.Printf("GTFS: archive returned %d, retrying in %v", resp.StatusCode, wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("archive returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}
		return body, nil
	}

	return nil, fmt.Errorf("archive unavailable after %d attempts", maxAttempts)
}

// Schedule runs an ingest now, then at the next local midnight, then every
// 24h. Failures are logged; the previous dataset stays in place.
func (ing *Ingestor) Schedule(ctx context.Context, include map[string][]string) {
	run := func() {
		if err := ing.BuildTables(ctx, include); err != nil {
			log.Printf("GTFS ingest failed (keeping previous dataset): %v", err)
		}
	}

	go func() {
		run()

		timer := time.NewTimer(untilNextMidnight(time.Now()))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			log.Println("GTFS ingest loop stopped")
			return
		}
		run()

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				run()
			case <-ctx.Done():
				log.Println("GTFS ingest loop stopped")
				return
			}
		}
	}()
}

func untilNextMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return next.Sub(now)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

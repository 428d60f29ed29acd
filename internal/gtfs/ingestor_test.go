package gtfs

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/transit-display/octranspo/internal/colours"
	"github.com/transit-display/octranspo/internal/db"
	"github.com/transit-display/octranspo/internal/worker"
)

type fakeStore struct {
	tables map[string]db.TableData
	fail   bool
	calls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{tables: make(map[string]db.TableData)}
}

func (f *fakeStore) ReplaceTables(ctx context.Context, tables []db.TableData) error {
	f.calls++
	if f.fail {
		return errors.New("copy failed")
	}
	for _, t := range tables {
		f.tables[t.Name] = t
	}
	return nil
}

func buildArchive(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to create zip member %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write zip member %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

const stopsCSV = `stop_id,stop_code,stop_name,stop_lat,stop_lon,zone_id
AA010,3017,BAYSHORE 2A,45.345,-75.810,1
AA020,3018,BANK / SOMERSET,45.415,-75.690,1
AA030,3019,LAURIER,45.420,-75.690,1
AA040,,NO CODE STOP,45.1,-75.1,1
`

const routesCSV = `route_id,route_short_name,route_long_name,route_color,route_text_color
R6,6,Greenboro,D64424,FFFFFF
R95,95,Barrhaven,000000,FFFFFF
RX,,Missing,AAAAAA,BBBBBB
`

func newIngestorForTest(t *testing.T, store TableReplacer, cache *colours.Cache, archive []byte, status int) (*Ingestor, *int) {
	t.Helper()
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Write(archive)
	}))
	t.Cleanup(srv.Close)
	return NewIngestor(store, cache, worker.New(2), srv.URL), &attempts
}

func TestBuildTablesHappyPath(t *testing.T) {
	store := newFakeStore()
	cache := colours.New()
	archive := buildArchive(t, map[string]string{
		"stops.txt":  stopsCSV,
		"routes.txt": routesCSV,
		"other.txt":  "ignored\n",
	})
	ing, _ := newIngestorForTest(t, store, cache, archive, http.StatusOK)

	if err := ing.BuildTables(context.Background(), DefaultTables()); err != nil {
		t.Fatalf("BuildTables failed: %v", err)
	}

	stops := store.tables["stops"]
	if len(stops.Rows) != 3 {
		t.Fatalf("stops rows = %d, want 3 (empty stop_code dropped)", len(stops.Rows))
	}
	// Rows are projected in request order; check the normalized name column
	var bayshore []any
	for _, row := range stops.Rows {
		if row[0] == "3017" {
			bayshore = row
		}
	}
	if bayshore == nil {
		t.Fatal("stop 3017 missing from ingest")
	}
	if bayshore[1] != "Bayshore Stn." {
		t.Errorf("stop 3017 name = %q, want %q", bayshore[1], "Bayshore Stn.")
	}

	routes := store.tables["routes"]
	if len(routes.Rows) != 2 {
		t.Errorf("routes rows = %d, want 2 (empty short name dropped)", len(routes.Rows))
	}
}

func TestBuildTablesRefreshesColourCache(t *testing.T) {
	store := newFakeStore()
	cache := colours.New()
	archive := buildArchive(t, map[string]string{
		"stops.txt":  stopsCSV,
		"routes.txt": routesCSV,
	})
	ing, _ := newIngestorForTest(t, store, cache, archive, http.StatusOK)

	if err := ing.BuildTables(context.Background(), DefaultTables()); err != nil {
		t.Fatalf("BuildTables failed: %v", err)
	}

	// Every ingested route must be readable from the cache with its own pair
	routes := store.tables["routes"]
	for _, row := range routes.Rows {
		short, bg, text := row[0].(string), row[1].(string), row[2].(string)
		got := cache.Get(short)
		if got.Background != bg || got.Text != text {
			t.Errorf("cache.Get(%s) = %+v, want %s/%s", short, got, bg, text)
		}
	}
	if cache.Len() != 2 {
		t.Errorf("cache has %d routes, want 2", cache.Len())
	}
}

func TestBuildTablesMissingMemberSkipped(t *testing.T) {
	store := newFakeStore()
	archive := buildArchive(t, map[string]string{"stops.txt": stopsCSV})
	ing, _ := newIngestorForTest(t, store, nil, archive, http.StatusOK)

	if err := ing.BuildTables(context.Background(), DefaultTables()); err != nil {
		t.Fatalf("BuildTables failed: %v", err)
	}
	if _, ok := store.tables["routes"]; ok {
		t.Error("routes should have been skipped, archive has no routes.txt")
	}
	if _, ok := store.tables["stops"]; !ok {
		t.Error("stops should have been ingested")
	}
}

func TestBuildTablesMissingColumnsProceeds(t *testing.T) {
	store := newFakeStore()
	archive := buildArchive(t, map[string]string{
		"stops.txt": "stop_code,stop_name\n3017,BAYSHORE 2A\n",
	})
	ing, _ := newIngestorForTest(t, store, nil, archive, http.StatusOK)

	include := map[string][]string{"stops": {"stop_code", "stop_name", "stop_lat", "stop_lon"}}
	if err := ing.BuildTables(context.Background(), include); err != nil {
		t.Fatalf("BuildTables failed: %v", err)
	}

	stops := store.tables["stops"]
	if len(stops.Columns) != 2 {
		t.Fatalf("projected columns = %v, want the 2 present ones", stops.Columns)
	}
	if len(stops.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(stops.Rows))
	}
}

func TestBuildTablesUpstreamErrorLeavesStoreUntouched(t *testing.T) {
	store := newFakeStore()
	ing, attempts := newIngestorForTest(t, store, nil, nil, http.StatusNotFound)

	err := ing.BuildTables(context.Background(), DefaultTables())
	if err == nil {
		t.Fatal("expected error for 404 archive")
	}
	if store.calls != 0 {
		t.Errorf("store touched %d times on failed download, want 0", store.calls)
	}
	if *attempts != 1 {
		t.Errorf("4xx retried %d times, want a single attempt", *attempts)
	}
}

func TestBuildTablesRetriesServerErrors(t *testing.T) {
	store := newFakeStore()
	ing, attempts := newIngestorForTest(t, store, nil, nil, http.StatusBadGateway)
	ing.backoff = func(int) time.Duration { return 0 }

	err := ing.BuildTables(context.Background(), DefaultTables())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if *attempts != 5 {
		t.Errorf("5xx attempted %d times, want 5", *attempts)
	}
}

func TestBuildTablesSwapFailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	archive := buildArchive(t, map[string]string{
		"stops.txt":  stopsCSV,
		"routes.txt": routesCSV,
	})
	cache := colours.New()
	ing, _ := newIngestorForTest(t, store, cache, archive, http.StatusOK)

	if err := ing.BuildTables(context.Background(), DefaultTables()); err == nil {
		t.Fatal("expected error when table swap fails")
	}
	// Cache must not be rebuilt when the transaction failed
	if cache.Len() != 0 {
		t.Errorf("colour cache rebuilt after failed swap (%d entries)", cache.Len())
	}
}

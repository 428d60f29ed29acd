package gtfs

import (
	"archive/zip"
	"bytes"
	"errors"
	"log"
	"os"
	"reflect"
	"strings"
	"testing"
)

func zipReader(t *testing.T, members map[string]string) *zip.Reader {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip member %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("writing zip member %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("reopening zip: %v", err)
	}
	return zr
}

func TestProjectTable(t *testing.T) {
	zr := zipReader(t, map[string]string{
		"stops.txt": "stop_id,stop_code,stop_name,stop_lat,stop_lon,zone_id\n" +
			"S1, 3017 ,BAYSHORE 2A,45.34,-75.80,1\n" +
			"S2,3023,HURDMAN 1B,45.41,-75.66,1\n",
		"agency.txt": "agency_id,agency_name\nOC,OC Transpo\n",
	})

	cols, rows, err := ProjectTable(zr, "stops", []string{"stop_code", "stop_name"})
	if err != nil {
		t.Fatalf("ProjectTable failed: %v", err)
	}
	if !reflect.DeepEqual(cols, []string{"stop_code", "stop_name"}) {
		t.Errorf("columns = %v", cols)
	}
	want := [][]string{
		{"3017", "BAYSHORE 2A"},
		{"3023", "HURDMAN 1B"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestProjectTableMissingMember(t *testing.T) {
	zr := zipReader(t, map[string]string{"agency.txt": "agency_id\nOC\n"})

	if _, _, err := ProjectTable(zr, "stops", []string{"stop_code"}); !errors.Is(err, ErrNoSuchMember) {
		t.Errorf("err = %v, want ErrNoSuchMember", err)
	}
}

func TestProjectTableMissingColumns(t *testing.T) {
	zr := zipReader(t, map[string]string{
		"routes.txt": "route_id,route_short_name\nR1,95\n",
	})

	cols, rows, err := ProjectTable(zr, "routes", []string{"route_short_name", "route_color"})
	if err != nil {
		t.Fatalf("ProjectTable failed: %v", err)
	}
	// Only the columns present in the header are projected
	if !reflect.DeepEqual(cols, []string{"route_short_name"}) {
		t.Errorf("columns = %v", cols)
	}
	if !reflect.DeepEqual(rows, [][]string{{"95"}}) {
		t.Errorf("rows = %v", rows)
	}
}

func TestProjectTableLogsMalformedRecords(t *testing.T) {
	var logged bytes.Buffer
	log.SetOutput(&logged)
	defer log.SetOutput(os.Stderr)

	zr := zipReader(t, map[string]string{
		"stops.txt": "stop_code,stop_name\n" +
			"3017,BAYSHORE 2A\n" +
			"30\"23,HURDMAN 1B\n" +
			"3024,HURDMAN 2B\n",
	})

	_, rows, err := ProjectTable(zr, "stops", []string{"stop_code", "stop_name"})
	if err != nil {
		t.Fatalf("ProjectTable failed: %v", err)
	}
	want := [][]string{
		{"3017", "BAYSHORE 2A"},
		{"3024", "HURDMAN 2B"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
	if !strings.Contains(logged.String(), "malformed") {
		t.Errorf("skipped record left no trace in the log: %q", logged.String())
	}
}

func TestProjectTableBOMHeader(t *testing.T) {
	zr := zipReader(t, map[string]string{
		"routes.txt": "\uFEFFroute_short_name,route_color\n95,D62937\n",
	})

	cols, rows, err := ProjectTable(zr, "routes", []string{"route_short_name", "route_color"})
	if err != nil {
		t.Fatalf("ProjectTable failed: %v", err)
	}
	if len(cols) != 2 || len(rows) != 1 {
		t.Errorf("cols = %v, rows = %v", cols, rows)
	}
}

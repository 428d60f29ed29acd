package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// ErrNoSuchMember is returned when the archive has no <table>.txt member
var ErrNoSuchMember = errors.New("archive member not found")

// ProjectTable reads <table>.txt from the archive and projects every data row
// onto the requested columns. Requested columns missing from the header are
// dropped from the projection; the returned column list reflects what was
// actually found, in request order.
func ProjectTable(zr *zip.Reader, table string, columns []string) ([]string, [][]string, error) {
	var member *zip.File
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, table+".txt") {
			member = f
			break
		}
	}
	if member == nil {
		return nil, nil, fmt.Errorf("%w: %s.txt", ErrNoSuchMember, table)
	}

	rc, err := member.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s.txt: %w", table, err)
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s.txt header: %w", table, err)
	}

	idx := makeIndex(header)
	present := make([]string, 0, len(columns))
	indices := make([]int, 0, len(columns))
	for _, col := range columns {
		if i, ok := idx[col]; ok {
			present = append(present, col)
			indices = append(indices, i)
		}
	}
	if len(present) == 0 {
		return present, nil, nil
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("GTFS: skipping malformed %s.txt record: %v", table, err)
			continue
		}

		row := make([]string, len(indices))
		for j, i := range indices {
			if i < len(record) {
				row[j] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}

	return present, rows, nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		// The first header cell sometimes carries a UTF-8 BOM
		idx[strings.TrimPrefix(strings.TrimSpace(h), "\uFEFF")] = i
	}
	return idx
}

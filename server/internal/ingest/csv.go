package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// readDelimited decodes a delimited text table. Rows may be ragged; short
// rows read as empty trailing cells. Blank rows are dropped but still
// count towards the row numbers of later rows. An input with no header row
// is an empty table, not an error.
func readDelimited(name string, r io.Reader, comma rune) (*table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return newTable(name, nil, nil), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	headerLine, _ := cr.FieldPos(0)

	var (
		rows  [][]string
		lines []int
	)
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", n, err)
		}
		if isBlank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, line-headerLine)
	}
	t := newTable(name, header, rows)
	t.lines = lines
	return t, nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if c != "" {
			return false
		}
	}
	return true
}

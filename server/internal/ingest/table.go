package ingest

import (
	"strings"

	"github.com/storelens/storelens/pkg/types"
)

// table is a decoded text table with a normalised header.
type table struct {
	name string
	cols map[string]int
	rows [][]string
	// lines holds the data row number of each entry in rows when skipped
	// blank rows make it differ from the index.
	lines []int
}

func newTable(name string, header []string, rows [][]string) *table {
	t := &table{name: name, cols: make(map[string]int, len(header)), rows: rows}
	for i, h := range header {
		key := normaliseColumn(h)
		if _, dup := t.cols[key]; !dup {
			t.cols[key] = i
		}
	}
	return t
}

// line returns the 1-based data row number, header excluded, of rows[i].
func (t *table) line(i int) int {
	if i < len(t.lines) {
		return t.lines[i]
	}
	return i + 1
}

// require returns a SchemaError listing every column in want that the
// header does not carry.
func (t *table) require(want []string) error {
	var missing []string
	for _, c := range want {
		if _, ok := t.cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &types.SchemaError{Table: t.name, Missing: missing}
	}
	return nil
}

// cell returns the trimmed value of col in row. Short rows yield "".
func (t *table) cell(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// normaliseColumn lower-cases a header cell and strips whitespace and a
// leading byte order mark.
func normaliseColumn(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.TrimSpace(s))
}

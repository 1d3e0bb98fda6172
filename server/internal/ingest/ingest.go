package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/storelens/storelens/pkg/types"
)

// Format is the encoding of an uploaded table.
type Format int

const (
	FormatCSV Format = iota
	FormatTSV
	FormatParquet
)

func (f Format) String() string {
	switch f {
	case FormatTSV:
		return "tsv"
	case FormatParquet:
		return "parquet"
	default:
		return "csv"
	}
}

// DetectFormat picks a Format from the upload's file name, falling back to
// its content type. Anything unrecognised is read as CSV.
func DetectFormat(filename, contentType string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".parquet", ".pq":
		return FormatParquet
	case ".tsv", ".tab":
		return FormatTSV
	case ".csv", ".txt":
		return FormatCSV
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "parquet"):
		return FormatParquet
	case strings.Contains(ct, "tab-separated"):
		return FormatTSV
	default:
		return FormatCSV
	}
}

// Options controls cell conversion.
type Options struct {
	// Location is used for dates that carry no zone. Defaults to UTC.
	Location *time.Location

	// DateLayouts are tried in order. Defaults to DefaultDateLayouts.
	DateLayouts []string
}

// Orders is a decoded orders table.
type Orders struct {
	Records []types.OrderRecord
	Issues  []types.CoercionIssue
}

// Inventory is a decoded inventory table.
type Inventory struct {
	Records []types.InventoryRecord
	Issues  []types.CoercionIssue
}

// Reader decodes tables with a fixed set of Options. It holds no per-call
// state and is safe for concurrent use.
type Reader struct {
	loc     *time.Location
	layouts []string
}

// NewReader returns a Reader, filling unset Options with defaults.
func NewReader(opts Options) *Reader {
	rd := &Reader{loc: opts.Location, layouts: opts.DateLayouts}
	if rd.loc == nil {
		rd.loc = time.UTC
	}
	if len(rd.layouts) == 0 {
		rd.layouts = DefaultDateLayouts
	}
	return rd
}

// Orders decodes an orders table from r.
func (rd *Reader) Orders(r io.Reader, f Format) (*Orders, error) {
	t, err := load(types.TableOrders, r, f, types.OrderColumns)
	if err != nil {
		return nil, err
	}
	if err := t.require(types.OrderColumns); err != nil {
		return nil, err
	}

	out := &Orders{Records: make([]types.OrderRecord, 0, len(t.rows))}
	for i, row := range t.rows {
		raw := t.cell(row, "amount")
		amt, ok := parseDecimal(raw)
		if !ok {
			out.Issues = append(out.Issues, types.CoercionIssue{
				Table: t.name, Field: "amount", Row: t.line(i), Value: raw,
			})
		}
		out.Records = append(out.Records, types.OrderRecord{
			OrderID: t.cell(row, "order_id"),
			UserID:  t.cell(row, "user_id"),
			Amount:  amt,
			IsCombo: t.cell(row, "is_combo"),
		})
	}
	return out, nil
}

// Inventory decodes an inventory table from r.
func (rd *Reader) Inventory(r io.Reader, f Format) (*Inventory, error) {
	t, err := load(types.TableInventory, r, f, types.InventoryColumns)
	if err != nil {
		return nil, err
	}
	if err := t.require(types.InventoryColumns); err != nil {
		return nil, err
	}

	out := &Inventory{Records: make([]types.InventoryRecord, 0, len(t.rows))}
	for i, row := range t.rows {
		rec := types.InventoryRecord{ProductID: t.cell(row, "product_id")}

		rawQty := t.cell(row, "quantity")
		qty, ok := parseDecimal(rawQty)
		if !ok {
			out.Issues = append(out.Issues, types.CoercionIssue{
				Table: t.name, Field: "quantity", Row: t.line(i), Value: rawQty,
			})
		}
		rec.Quantity = qty

		rawDate := t.cell(row, "expiration_date")
		d, present, ok := parseDate(rawDate, rd.layouts, rd.loc)
		if !ok {
			out.Issues = append(out.Issues, types.CoercionIssue{
				Table: t.name, Field: "expiration_date", Row: t.line(i), Value: rawDate,
			})
		}
		rec.ExpirationDate, rec.HasExpiration = d, present

		out.Records = append(out.Records, rec)
	}
	return out, nil
}

func load(name string, r io.Reader, f Format, want []string) (*table, error) {
	var (
		t   *table
		err error
	)
	switch f {
	case FormatParquet:
		t, err = readParquet(name, r, want)
	case FormatTSV:
		t, err = readDelimited(name, r, '\t')
	default:
		t, err = readDelimited(name, r, ',')
	}
	if err != nil {
		if types.KindOf(err) == types.KindSchema {
			return nil, fmt.Errorf("ingest: %w", err)
		}
		return nil, fmt.Errorf("ingest: %w", &types.InputError{Table: name, Err: err})
	}
	return t, nil
}

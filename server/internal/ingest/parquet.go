package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
	"github.com/shopspring/decimal"
)

// parquetBatch is the number of rows read from a row group per call.
const parquetBatch = 256

// parquetColumn maps one required column to its leaf in the file schema.
type parquetColumn struct {
	index int
	lt    *format.LogicalType
}

// readParquet loads a flat Parquet file into a text table so that it goes
// through the same coercion path as CSV input. Only the columns named in
// want are materialised; absent ones are left out of the header so that
// table.require reports them.
func readParquet(name string, r io.Reader, want []string) (*table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	if len(data) == 0 {
		return newTable(name, nil, nil), nil
	}

	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	// Match schema fields case-insensitively, like CSV headers.
	schema := f.Schema()
	byName := make(map[string]string)
	for _, fld := range schema.Fields() {
		byName[normaliseColumn(fld.Name())] = fld.Name()
	}

	var (
		header []string
		cols   []parquetColumn
	)
	for _, c := range want {
		orig, ok := byName[c]
		if !ok {
			continue
		}
		leaf, ok := schema.Lookup(orig)
		if !ok {
			continue
		}
		header = append(header, c)
		cols = append(cols, parquetColumn{index: leaf.ColumnIndex, lt: leaf.Node.Type().LogicalType()})
	}

	var rows [][]string
	buf := make([]parquet.Row, parquetBatch)
	for _, rg := range f.RowGroups() {
		if err := func() error {
			rr := rg.Rows()
			defer rr.Close()
			for {
				n, err := rr.ReadRows(buf)
				for _, row := range buf[:n] {
					rows = append(rows, parquetCells(row, cols))
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
			}
		}(); err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	return newTable(name, header, rows), nil
}

// parquetCells renders the wanted columns of row as text cells.
func parquetCells(row parquet.Row, cols []parquetColumn) []string {
	byColumn := make(map[int]parquet.Value, len(row))
	for _, v := range row {
		byColumn[v.Column()] = v
	}
	cells := make([]string, len(cols))
	for i, c := range cols {
		v, ok := byColumn[c.index]
		if !ok || v.IsNull() {
			continue
		}
		cells[i] = parquetText(v, c.lt)
	}
	return cells
}

// parquetText formats v, turning DATE and TIMESTAMP logical types into
// RFC 3339 text that parseDate understands and applying the scale of
// DECIMAL columns.
func parquetText(v parquet.Value, lt *format.LogicalType) string {
	switch {
	case lt != nil && lt.Decimal != nil:
		return parquetDecimal(v, lt.Decimal.Scale).String()
	case lt != nil && lt.Date != nil:
		return time.Unix(int64(v.Int32())*86400, 0).UTC().Format("2006-01-02")
	case lt != nil && lt.Timestamp != nil:
		ts := v.Int64()
		var t time.Time
		switch u := lt.Timestamp.Unit; {
		case u.Nanos != nil:
			t = time.Unix(0, ts)
		case u.Micros != nil:
			t = time.UnixMicro(ts)
		default:
			t = time.UnixMilli(ts)
		}
		return t.UTC().Format(time.RFC3339Nano)
	}

	switch v.Kind() {
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	default:
		return string(v.ByteArray())
	}
}

// parquetDecimal reads an unscaled DECIMAL value. Byte array encodings are
// big-endian two's complement.
func parquetDecimal(v parquet.Value, scale int32) decimal.Decimal {
	switch v.Kind() {
	case parquet.Int32:
		return decimal.New(int64(v.Int32()), -scale)
	case parquet.Int64:
		return decimal.New(v.Int64(), -scale)
	}
	b := v.ByteArray()
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b))*8))
	}
	return decimal.NewFromBigInt(n, -scale)
}

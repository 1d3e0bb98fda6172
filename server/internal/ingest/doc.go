// Package ingest decodes uploaded order and inventory tables into typed
// records.
//
// Supported formats are comma-separated (first row is the header),
// tab-separated and Parquet. Column names are matched case-insensitively
// after trimming; extra columns are ignored. A missing required column is
// reported as *types.SchemaError before any row is converted.
//
// Cells are converted once, here, rather than inside the aggregation code:
// amounts and quantities become decimals and expiration dates become
// time.Time values in the configured location. A non-empty cell that cannot
// be converted is recorded as a types.CoercionIssue and treated as missing.
package ingest

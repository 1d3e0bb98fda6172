package ingest

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDateLayouts are tried in order when parsing expiration dates.
// Month-first is preferred over day-first for slash-separated dates.
var DefaultDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"20060102",
}

// parseDecimal converts s to a decimal. ok is false when s is non-empty
// but not a number; an empty s is simply missing.
func parseDecimal(s string) (v decimal.NullDecimal, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}

// parseDate tries each layout in loc. present is false for an empty
// cell; ok is false when a non-empty cell matched no layout.
func parseDate(s string, layouts []string, loc *time.Location) (t time.Time, present, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, true
	}
	for _, l := range layouts {
		if v, err := time.ParseInLocation(l, s, loc); err == nil {
			return v, true, true
		}
	}
	return time.Time{}, false, false
}

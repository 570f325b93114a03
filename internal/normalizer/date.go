package normalizer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ISOLayout is the canonical persisted date format.
const ISOLayout = "2006-01-02"

// Layouts tried by ParseDate, in order.
var Layouts = []string{
	ISOLayout,
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"02.01.2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"02-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ExcelSerialToISO converts a spreadsheet date serial (days since the
// 1899-12-30 epoch, fractional part is time of day) to YYYY-MM-DD.
func ExcelSerialToISO(serial float64) (string, error) {
	if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
		return "", fmt.Errorf("invalid date serial %v", serial)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", fmt.Errorf("invalid date serial %v: %w", serial, err)
	}
	return t.Format(ISOLayout), nil
}

// NormalizeDate renders a raw cell as a date string. Numeric values are
// treated as spreadsheet serials, time values are formatted as YYYY-MM-DD and
// strings pass through trimmed for later validation.
func NormalizeDate(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(d)
	case time.Time:
		if d.IsZero() {
			return ""
		}
		return d.Format(ISOLayout)
	case float64:
		s, err := ExcelSerialToISO(d)
		if err != nil {
			return ""
		}
		return s
	case int:
		return NormalizeDate(float64(d))
	case int64:
		return NormalizeDate(float64(d))
	default:
		return strings.TrimSpace(fmt.Sprint(d))
	}
}

// ParseDate attempts to parse a date string using the known layouts.
func ParseDate(raw string) (time.Time, error) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", raw)
}

// ToISODate parses raw with ParseDate and renders it as YYYY-MM-DD.
func ToISODate(raw string) (string, error) {
	t, err := ParseDate(raw)
	if err != nil {
		return "", err
	}
	return t.Format(ISOLayout), nil
}

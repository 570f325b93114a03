// Package normalizer turns raw cell values from imported files into clean
// amounts, dates and descriptions. All functions are pure.
package normalizer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	nonNumeric       = regexp.MustCompile(`[^0-9.\-]`)
	numberPrefix     = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
	currencyAndSpace = regexp.MustCompile(`[€$£¥₣₤₧₹₺₽₩฿₫₲₴₸₼₪\s]|CHF|USD|EUR|INR|GBP`)
)

// CleanAmount strips every character that is not a digit, '.' or '-' and
// parses the longest numeric prefix of what remains. Unparseable input
// yields 0.
//
//	CleanAmount("₹1,234.56 Dr") == 1234.56
//	CleanAmount("") == 0
func CleanAmount(raw string) float64 {
	cleaned := nonNumeric.ReplaceAllString(raw, "")
	if cleaned == "" {
		return 0
	}
	prefix := numberPrefix.FindString(cleaned)
	if prefix == "" {
		return 0
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// CleanValue is CleanAmount for cells that may already be numeric.
func CleanValue(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		return CleanAmount(n)
	default:
		return CleanAmount(fmt.Sprint(n))
	}
}

// ParseAmount parses a user-entered amount into a decimal. Unlike CleanAmount
// it understands European separators ("1.234,56", "1'234.56") and reports
// malformed input instead of defaulting to zero.
func ParseAmount(raw string) (decimal.Decimal, error) {
	standardized := StandardizeAmount(raw)
	if standardized == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", raw, err)
	}
	return amount, nil
}

// StandardizeAmount converts various currency string formats to a form that
// decimal.NewFromString accepts.
func StandardizeAmount(raw string) string {
	s := currencyAndSpace.ReplaceAllString(raw, "")

	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		if strings.LastIndex(s, ".") < strings.LastIndex(s, ",") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	} else if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	return strings.ReplaceAll(s, "'", "")
}

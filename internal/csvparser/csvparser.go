// Package csvparser parses comma, semicolon or tab delimited bank exports,
// skipping the metadata rows many banks prepend before the real table.
package csvparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
)

// DefaultPreambleScanLines is how many leading lines are searched for the
// real header row.
const DefaultPreambleScanLines = 30

var (
	dateTokens   = []string{"date", "post date"}
	amountTokens = []string{"debit", "credit", "amount"}
)

// Parse reads a delimited file from r with the default preamble window.
func Parse(r io.Reader, logger logging.Logger) ([]models.ParsedTransaction, error) {
	return NewAdapter(logger).Parse(r)
}

// ParseWithScanLimit is Parse with an explicit preamble window.
func ParseWithScanLimit(r io.Reader, scanLines int, logger logging.Logger) ([]models.ParsedTransaction, error) {
	return NewAdapter(logger, WithPreambleScanLines(scanLines)).Parse(r)
}

// FindHeader returns the index of the first line within the first maxScan
// lines that names both a date column and an amount-like column. It returns
// -1 when no such line exists.
func FindHeader(lines []string, maxScan int) int {
	if maxScan <= 0 {
		maxScan = DefaultPreambleScanLines
	}
	for i, line := range lines {
		if i >= maxScan {
			break
		}
		lower := strings.ToLower(line)
		if containsAny(lower, dateTokens) && containsAny(lower, amountTokens) {
			return i
		}
	}
	return -1
}

// DetectDelimiter picks the most frequent of ',', ';' and tab in the header.
func DetectDelimiter(header string) rune {
	best, bestCount := ',', strings.Count(header, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(header, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func readRecords(body []byte, lines []string, headerIdx int) ([]string, [][]string, error) {
	header := lines[headerIdx]
	delim := DetectDelimiter(header)

	table := strings.Join(lines[headerIdx:], "\n")
	reader := gocsv.LazyCSVReader(strings.NewReader(table))
	if cr, ok := reader.(*csv.Reader); ok {
		cr.Comma = delim
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = delim != '\t'
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty CSV table (%d bytes)", len(body))
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return headers, records[1:], nil
}

func splitLines(body []byte) []string {
	body = bytes.TrimPrefix(body, []byte("\ufeff"))
	text := strings.ReplaceAll(string(body), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func firstNonEmpty(lines []string) int {
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			return i
		}
	}
	return -1
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

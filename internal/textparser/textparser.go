// Package textparser extracts transactions from free-text statements one line
// at a time. Lines that match none of the known layouts are ignored.
package textparser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/normalizer"
	"fjacquet/fintrack/internal/parser"
)

const (
	datePattern   = `(\d{4}-\d{2}-\d{2}|\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4})`
	amountPattern = `([-+]?\s?[₹$€£]?\s?-?\d[\d,']*(?:\.\d{1,2})?(?:\s?(?:Dr|Cr|DR|CR))?)`
)

// layout is one supported line shape. The indexes point at capture groups.
type layout struct {
	re          *regexp.Regexp
	date        int
	description int
	amount      int
}

// Layouts are tried in order; the first match wins.
var layouts = []layout{
	// 2024-03-01 Coffee Shop -4.50
	{re: regexp.MustCompile(`^` + datePattern + `\s+(.+?)\s+` + amountPattern + `$`), date: 1, description: 2, amount: 3},
	// Coffee Shop 2024-03-01 -4.50
	{re: regexp.MustCompile(`^(.+?)\s+` + datePattern + `\s+` + amountPattern + `$`), date: 2, description: 1, amount: 3},
	// 2024-03-01 -4.50 Coffee Shop
	{re: regexp.MustCompile(`^` + datePattern + `\s+` + amountPattern + `\s+(.+)$`), date: 1, description: 3, amount: 2},
}

var creditSuffix = regexp.MustCompile(`(?i)\bcr$`)

// Parse reads free text from r and returns the valid candidates in order.
func Parse(r io.Reader, logger logging.Logger) ([]models.ParsedTransaction, error) {
	return NewAdapter(logger).Parse(r)
}

// Adapter implements parser.FullParser for free-text statements.
type Adapter struct {
	parser.BaseParser
}

// NewAdapter creates a new free-text parser.
func NewAdapter(logger logging.Logger) *Adapter {
	return &Adapter{BaseParser: parser.NewBaseParser("text", logger)}
}

// Parse implements parser.Parser.
func (a *Adapter) Parse(r io.Reader) ([]models.ParsedTransaction, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading text input: %w", err)
	}

	var candidates []models.ParsedTransaction
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if p, ok := ParseLine(scanner.Text()); ok {
			candidates = append(candidates, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning text input: %w", err)
	}

	return a.Keep(candidates)
}

// ParseLine matches one line against the known layouts.
func ParseLine(line string) (models.ParsedTransaction, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return models.ParsedTransaction{}, false
	}
	for _, l := range layouts {
		m := l.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rawAmount := strings.TrimSpace(m[l.amount])
		signed := normalizer.CleanAmount(rawAmount)

		typ := models.TransactionTypeExpense
		if creditSuffix.MatchString(rawAmount) || (strings.HasPrefix(rawAmount, "+") && signed > 0) {
			typ = models.TransactionTypeIncome
		}
		if signed < 0 {
			signed = -signed
		}

		return models.NewParsedTransaction(
			m[l.date],
			normalizer.SanitizeDescription(m[l.description]),
			signed,
			typ,
		), true
	}
	return models.ParsedTransaction{}, false
}

var _ parser.FullParser = (*Adapter)(nil)

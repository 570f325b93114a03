package csvparser

import (
	"fmt"
	"io"

	"fjacquet/fintrack/internal/columns"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parser"
	"fjacquet/fintrack/internal/parsererror"
)

// Adapter implements parser.FullParser for delimited files.
type Adapter struct {
	parser.BaseParser
	scanLines int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPreambleScanLines overrides how many lines are searched for the header.
func WithPreambleScanLines(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.scanLines = n
		}
	}
}

// NewAdapter creates a new CSV parser.
func NewAdapter(logger logging.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		BaseParser: parser.NewBaseParser("csv", logger),
		scanLines:  DefaultPreambleScanLines,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Parse implements parser.Parser.
func (a *Adapter) Parse(r io.Reader) ([]models.ParsedTransaction, error) {
	logger := a.GetLogger()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading CSV input: %w", err)
	}

	lines := splitLines(body)
	headerIdx := FindHeader(lines, a.scanLines)
	if headerIdx < 0 {
		headerIdx = firstNonEmpty(lines)
		if headerIdx < 0 {
			return nil, fmt.Errorf("csv: %w", parsererror.ErrNoTransactionsFound)
		}
	} else if headerIdx > 0 {
		logger.Debug("Skipping preamble rows",
			logging.F(logging.FieldParser, a.Name()),
			logging.F(logging.FieldCount, headerIdx))
	}

	headers, records, err := readRecords(body, lines, headerIdx)
	if err != nil {
		logger.WithError(err).Error("Failed to read CSV table")
		return nil, &parsererror.ParseError{Parser: a.Name(), Field: "table", Value: lines[headerIdx], Err: err}
	}

	rows := make([]columns.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, columns.NewRow(headers, rec))
	}
	return a.MapRows(rows)
}

var _ parser.FullParser = (*Adapter)(nil)

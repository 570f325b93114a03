// Package parser provides the base parser functionality and common interfaces.
package parser

import (
	"fmt"

	"fjacquet/fintrack/internal/columns"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/normalizer"
	"fjacquet/fintrack/internal/parsererror"
)

// BaseParser provides common functionality for all parser implementations.
// Parsers embed it to share the logger and the row-mapping step:
//
//	type Adapter struct {
//		parser.BaseParser
//	}
type BaseParser struct {
	name   string
	logger logging.Logger
}

// NewBaseParser creates a new BaseParser. If logger is nil, a default logger
// is used.
func NewBaseParser(name string, logger logging.Logger) BaseParser {
	return BaseParser{
		name:   name,
		logger: logging.OrDefault(logger),
	}
}

// SetLogger implements LoggerConfigurable.
func (b *BaseParser) SetLogger(logger logging.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// GetLogger returns the current logger instance.
func (b *BaseParser) GetLogger() logging.Logger {
	if b.logger == nil {
		b.logger = logging.OrDefault(nil)
	}
	return b.logger
}

// Name returns the parser name used in logs and errors.
func (b *BaseParser) Name() string {
	return b.name
}

// MapRows maps each row to a candidate and keeps the valid ones in order.
// Dropped rows are logged at debug level only.
func (b *BaseParser) MapRows(rows []columns.Row) ([]models.ParsedTransaction, error) {
	candidates := make([]models.ParsedTransaction, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, columns.MapRow(row))
	}
	return b.Keep(candidates)
}

// Keep filters candidates through normalizer.IsValid.
func (b *BaseParser) Keep(candidates []models.ParsedTransaction) ([]models.ParsedTransaction, error) {
	logger := b.GetLogger()
	kept := make([]models.ParsedTransaction, 0, len(candidates))
	for i, c := range candidates {
		if !normalizer.IsValid(c) {
			logger.Debug("Dropping invalid row",
				logging.F(logging.FieldParser, b.name),
				logging.F(logging.FieldRow, i+1),
				logging.F(logging.FieldReason, normalizer.InvalidReason(c)))
			continue
		}
		kept = append(kept, c)
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("%s: %w", b.name, parsererror.ErrNoTransactionsFound)
	}

	logger.Info("Parsed transactions",
		logging.F(logging.FieldParser, b.name),
		logging.F(logging.FieldCount, len(kept)),
		logging.F("dropped", len(candidates)-len(kept)))
	return kept, nil
}

// Package jsonparser parses JSON transaction exports: a bare array of
// objects, an object wrapping the array under "transactions" or "data", or
// a single object.
package jsonparser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"fjacquet/fintrack/internal/columns"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parser"
	"fjacquet/fintrack/internal/parsererror"
)

// wrapperKeys are checked in order on a top-level object.
var wrapperKeys = []string{"transactions", "data"}

// Parse reads JSON from r and returns the valid candidates in order.
func Parse(r io.Reader, logger logging.Logger) ([]models.ParsedTransaction, error) {
	return NewAdapter(logger).Parse(r)
}

// Adapter implements parser.FullParser for JSON files.
type Adapter struct {
	parser.BaseParser
}

// NewAdapter creates a new JSON parser.
func NewAdapter(logger logging.Logger) *Adapter {
	return &Adapter{BaseParser: parser.NewBaseParser("json", logger)}
}

// Parse implements parser.Parser.
func (a *Adapter) Parse(r io.Reader) ([]models.ParsedTransaction, error) {
	logger := a.GetLogger()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading JSON input: %w", err)
	}

	var doc any
	if err := json.Unmarshal(bytes.TrimSpace(body), &doc); err != nil {
		logger.WithError(err).Warn("Content is not valid JSON")
		return nil, &parsererror.UnsupportedFormatError{
			ContentType: "application/json",
			Reason:      fmt.Sprintf("invalid JSON: %v", err),
		}
	}

	items := extractItems(doc)
	if items == nil {
		return nil, &parsererror.UnsupportedFormatError{
			ContentType: "application/json",
			Reason:      "expected an array or an object",
		}
	}

	rows := make([]columns.Row, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			logger.Debug("Skipping non-object element",
				logging.F(logging.FieldParser, a.Name()),
				logging.F(logging.FieldRow, i+1))
			continue
		}
		rows = append(rows, columns.RowFromMap(obj))
	}

	return a.MapRows(rows)
}

func extractItems(doc any) []any {
	switch v := doc.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range wrapperKeys {
			if arr, ok := v[key].([]any); ok {
				return arr
			}
		}
		return []any{v}
	}
	return nil
}

var _ parser.FullParser = (*Adapter)(nil)

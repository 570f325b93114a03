// Package export writes transactions to files a user can open elsewhere.
// Exports are write-only; nothing here reads them back.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/validation"
)

// Format names an export file type.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
	JSON Format = "json"
)

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	if err := validation.IsValidExportFormat(f); err != nil {
		return "", err
	}
	return Format(f), nil
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Options tunes the writers.
type Options struct {
	// Delimiter separates CSV fields. Zero means comma.
	Delimiter rune
	// Title heads the PDF summary.
	Title string
	// Currency prefixes amounts in the PDF summary.
	Currency string
}

// Write encodes txs as format.
func Write(w io.Writer, format Format, txs []models.Transaction, opts Options) error {
	switch format {
	case CSV:
		return WriteCSV(w, txs, opts.Delimiter)
	case XLSX:
		return WriteXLSX(w, txs)
	case PDF:
		return WritePDFSummary(w, txs, opts)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if txs == nil {
			txs = []models.Transaction{}
		}
		return enc.Encode(txs)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// WriteFile creates path, and any missing parent directories, and writes txs
// in the format implied by its extension.
func WriteFile(path string, txs []models.Transaction, opts Options, logger logging.Logger) error {
	logger = logging.OrDefault(logger)
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	file, err := os.Create(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return fmt.Errorf("error creating export file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	if err := Write(file, format, txs, opts); err != nil {
		logger.WithError(err).Error("Export failed", logging.F(logging.FieldFile, path))
		return err
	}

	logger.Info("Exported transactions",
		logging.F(logging.FieldFile, path),
		logging.F(logging.FieldFormat, string(format)),
		logging.F(logging.FieldCount, len(txs)))
	return nil
}

// WriteCSV writes one header row then one row per transaction, amounts with
// two decimals.
func WriteCSV(w io.Writer, txs []models.Transaction, delimiter rune) error {
	if delimiter == 0 {
		delimiter = ','
	}
	rows := make([]csvRow, len(txs))
	for i, tx := range txs {
		rows[i] = csvRow{
			Date:        tx.Date,
			Description: tx.Description,
			Category:    tx.Category,
			Type:        string(tx.Type),
			Amount:      tx.Amount.StringFixed(2),
		}
	}

	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

type csvRow struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Category    string `csv:"Category"`
	Type        string `csv:"Type"`
	Amount      string `csv:"Amount"`
}

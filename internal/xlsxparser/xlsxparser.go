// Package xlsxparser reads the first worksheet of an Excel workbook. OOXML
// (.xlsx) files go through excelize, legacy BIFF (.xls) files through
// extrame/xls.
package xlsxparser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"fjacquet/fintrack/internal/columns"
	"fjacquet/fintrack/internal/csvparser"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parser"
	"fjacquet/fintrack/internal/parsererror"
)

// Parse reads a workbook from r and returns the valid candidates in order.
func Parse(r io.Reader, logger logging.Logger) ([]models.ParsedTransaction, error) {
	return NewAdapter(logger).Parse(r)
}

// Adapter implements parser.FullParser for spreadsheets.
type Adapter struct {
	parser.BaseParser
	scanLines int
}

// NewAdapter creates a new spreadsheet parser.
func NewAdapter(logger logging.Logger) *Adapter {
	return &Adapter{
		BaseParser: parser.NewBaseParser("xlsx", logger),
		scanLines:  csvparser.DefaultPreambleScanLines,
	}
}

// OLEMagic starts every legacy BIFF workbook (an OLE compound file).
var OLEMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Parse implements parser.Parser.
func (a *Adapter) Parse(r io.Reader) ([]models.ParsedTransaction, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading workbook: %w", err)
	}

	var grid [][]string
	if bytes.HasPrefix(body, OLEMagic) {
		grid, err = a.legacyGrid(body)
	} else {
		grid, err = a.ooxmlGrid(body)
	}
	if err != nil {
		return nil, err
	}
	return a.parseGrid(grid)
}

func (a *Adapter) ooxmlGrid(body []byte) ([][]string, error) {
	logger := a.GetLogger()

	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		logger.WithError(err).Warn("Content is not a readable workbook")
		return nil, &parsererror.UnsupportedFormatError{
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Reason:      fmt.Sprintf("unreadable workbook: %v", err),
		}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.WithError(cerr).Warn("Failed to close workbook")
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx: %w", parsererror.ErrNoTransactionsFound)
	}
	sheet := sheets[0]

	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &parsererror.ParseError{Parser: a.Name(), Field: "sheet", Value: sheet, Err: err}
	}
	logger.Debug("Read worksheet",
		logging.F(logging.FieldParser, a.Name()),
		logging.F("sheet", sheet),
		logging.F(logging.FieldCount, len(grid)))
	return grid, nil
}

// legacyGrid reads the first sheet of a BIFF workbook. The reader panics on
// some malformed streams, so a panic is reported as an unreadable workbook.
func (a *Adapter) legacyGrid(body []byte) (grid [][]string, err error) {
	logger := a.GetLogger()
	unreadable := func(cause any) error {
		logger.Warn("Content is not a readable legacy workbook", logging.F(logging.FieldReason, fmt.Sprint(cause)))
		return &parsererror.UnsupportedFormatError{
			ContentType: "application/vnd.ms-excel",
			Reason:      fmt.Sprintf("unreadable workbook: %v", cause),
		}
	}
	defer func() {
		if p := recover(); p != nil {
			grid, err = nil, unreadable(p)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(body), "utf-8")
	if err != nil {
		return nil, unreadable(err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("xls: %w", parsererror.ErrNoTransactionsFound)
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		record := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			record = append(record, row.Col(c))
		}
		grid = append(grid, record)
	}
	logger.Debug("Read legacy worksheet",
		logging.F(logging.FieldParser, a.Name()),
		logging.F("sheet", sheet.Name),
		logging.F(logging.FieldCount, len(grid)))
	return grid, nil
}

// parseGrid maps worksheet rows below the detected header row.
func (a *Adapter) parseGrid(grid [][]string) ([]models.ParsedTransaction, error) {
	headerIdx := findHeaderRow(grid, a.scanLines)
	if headerIdx < 0 {
		return nil, fmt.Errorf("xlsx: %w", parsererror.ErrNoTransactionsFound)
	}

	headers := grid[headerIdx]
	rows := make([]columns.Row, 0, len(grid)-headerIdx-1)
	for _, record := range grid[headerIdx+1:] {
		row := make(columns.Row, 0, len(headers))
		for i, h := range headers {
			var v any
			if i < len(record) {
				v = cellValue(record[i])
			}
			row = append(row, columns.Cell{Header: strings.TrimSpace(h), Value: v})
		}
		rows = append(rows, row)
	}

	return a.MapRows(rows)
}

// findHeaderRow applies the delimited-file header rule to worksheet rows and
// falls back to the first non-empty row.
func findHeaderRow(grid [][]string, scan int) int {
	lines := make([]string, len(grid))
	for i, r := range grid {
		lines[i] = strings.Join(r, ",")
	}
	if idx := csvparser.FindHeader(lines, scan); idx >= 0 {
		return idx
	}
	for i, l := range lines {
		if strings.Trim(l, ", ") != "" {
			return i
		}
	}
	return -1
}

// cellValue turns raw numeric cells into float64 so date serials and amounts
// keep their numeric meaning.
func cellValue(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

var _ parser.FullParser = (*Adapter)(nil)

package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"fjacquet/fintrack/internal/models"
)

// SheetName is the worksheet holding exported transactions.
const SheetName = "Transactions"

var xlsxHeader = []any{"Date", "Description", "Category", "Type", "Amount"}

// WriteXLSX writes a single-sheet workbook. Amounts are numeric cells with a
// two-decimal format.
func WriteXLSX(w io.Writer, txs []models.Transaction) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	for i, tx := range txs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{tx.Date, tx.Description, tx.Category, string(tx.Type), tx.Amount.InexactFloat64()}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
	}

	if len(txs) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
		if err != nil {
			return err
		}
		last := fmt.Sprintf("E%d", len(txs)+1)
		if err := f.SetCellStyle(SheetName, "E2", last, style); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetName, "B", "B", 40); err != nil {
		return err
	}

	return f.Write(w)
}

package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"fjacquet/fintrack/internal/models"
)

// DefaultTitle heads a PDF summary when none is given.
const DefaultTitle = "Transaction summary"

// WritePDFSummary writes a one-page report with income and expense totals and
// a per-category breakdown. Individual transactions are not listed.
func WritePDFSummary(w io.Writer, txs []models.Transaction, opts Options) error {
	s := Summarize(txs)
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	period := "No transactions"
	if s.Count > 0 {
		period = fmt.Sprintf("%s to %s, %d transactions", s.From, s.To, s.Count)
	}
	pdf.CellFormat(0, 6, period, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	totals := [][2]string{
		{"Income", FormatAmount(s.Income, opts.Currency)},
		{"Expenses", FormatAmount(s.Expense, opts.Currency)},
		{"Net", FormatAmount(s.Net(), opts.Currency)},
	}
	pdf.SetFont("Helvetica", "B", 11)
	for _, t := range totals {
		pdf.CellFormat(40, 7, t[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, tr(t[1]), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	widths := []float64{70, 40, 40, 25}
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Category", "Income", "Expenses", "Count"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, ct := range s.Categories {
		pdf.CellFormat(widths[0], 6, tr(ct.Category), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(FormatAmount(ct.Income, opts.Currency)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, tr(FormatAmount(ct.Expense, opts.Currency)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%d", ct.Count), "1", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("error writing PDF: %w", err)
	}
	return nil
}

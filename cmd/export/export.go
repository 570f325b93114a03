// Package export handles the transaction export command
package export

import (
	"fmt"

	"fjacquet/fintrack/cmd/common"
	"fjacquet/fintrack/cmd/root"
	"fjacquet/fintrack/internal/export"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/transactions"

	"github.com/spf13/cobra"
)

var (
	outputFile string
	category   string
	txType     string
	currency   string
	title      string
	delimiter  string
)

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored transactions",
	Long: `Export stored transactions to CSV, Excel, JSON or a PDF summary. The format
follows the output file extension. Without -o the transactions are printed.

Example:
  fintrack export -o transactions.xlsx
  fintrack export -o summary.pdf --currency CHF
  fintrack export --category Food`,
	Args: cobra.NoArgs,
	RunE: exportFunc,
}

func init() {
	Cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (.csv, .xlsx, .pdf or .json)")
	Cmd.Flags().StringVar(&category, "category", "", "Only this category")
	Cmd.Flags().StringVarP(&txType, "type", "t", "", "Only income or expense")
	Cmd.Flags().StringVar(&currency, "currency", "", "Currency code for the PDF summary")
	Cmd.Flags().StringVar(&title, "title", "", "PDF summary title")
	Cmd.Flags().StringVarP(&delimiter, "delimiter", "d", ",", "CSV field delimiter")
}

func exportFunc(cmd *cobra.Command, args []string) error {
	app := root.App()

	q := transactions.ListQuery{Category: category}
	if txType != "" {
		t := models.TransactionType(txType)
		if !t.Valid() {
			return fmt.Errorf("invalid type %q: must be income or expense", txType)
		}
		q.Type = t
	}
	txs, err := app.GetTransactions().List(cmd.Context(), root.UserID(), q)
	if err != nil {
		return err
	}

	if outputFile == "" {
		return common.PrintTransactions(cmd.OutOrStdout(), txs)
	}

	opts := export.Options{Title: title, Currency: currency}
	if r := []rune(delimiter); len(r) > 0 {
		opts.Delimiter = r[0]
	}
	if err := export.WriteFile(outputFile, txs, opts, app.GetLogger()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", len(txs), outputFile)
	return nil
}

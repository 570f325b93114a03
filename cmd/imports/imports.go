// Package imports handles the statement import command
package imports

import (
	"fmt"

	"fjacquet/fintrack/cmd/common"
	"fjacquet/fintrack/cmd/root"
	"fjacquet/fintrack/internal/export"
	"fjacquet/fintrack/internal/logging"

	"github.com/spf13/cobra"
)

var (
	inputFile  string
	outputFile string
	confirm    bool
)

// Cmd represents the import command
var Cmd = &cobra.Command{
	Use:   "import",
	Short: "Preview and import a bank statement",
	Long: `Parse a statement file (CSV, Excel, JSON or text), categorize every row and
print the preview. Nothing is stored unless --confirm is given.

Example:
  fintrack import -i statement.csv
  fintrack import -i statement.xlsx --confirm
  fintrack import -i statement.csv -o preview.xlsx`,
	RunE: importFunc,
}

func init() {
	Cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Statement file to import")
	Cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Also write the preview to this file (csv, xlsx, pdf or json)")
	Cmd.Flags().BoolVar(&confirm, "confirm", false, "Store the previewed transactions")
	_ = Cmd.MarkFlagRequired("input")
}

func importFunc(cmd *cobra.Command, args []string) error {
	app := root.App()
	logger := app.GetLogger()

	f, err := common.ReadFile(inputFile)
	if err != nil {
		return err
	}

	session, err := app.GetImporter().Preview(cmd.Context(), root.UserID(), f)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d transactions (%s)\n", session.FileName, len(session.Transactions), session.Format)
	if err := common.PrintParsed(out, session.Transactions); err != nil {
		return err
	}

	if outputFile != "" {
		txs, err := session.Build()
		if err != nil {
			return err
		}
		if err := export.WriteFile(outputFile, txs, export.Options{}, logger); err != nil {
			return err
		}
	}

	if !confirm {
		session.Cancel()
		logger.Debug("Preview discarded", logging.F(logging.FieldSession, session.ID))
		fmt.Fprintln(out, "Preview only. Run again with --confirm to import.")
		return nil
	}

	n, err := session.Confirm(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d transactions\n", n)
	return nil
}

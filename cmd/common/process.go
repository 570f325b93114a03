// Package common contains shared functionality for command handlers
package common

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"

	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/pipeline"
)

// ReadFile loads a statement from disk the way an upload would arrive.
func ReadFile(path string) (pipeline.File, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the command line
	if err != nil {
		return pipeline.File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return pipeline.File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

// PrintParsed writes an import preview as an aligned table.
func PrintParsed(w io.Writer, txs []models.ParsedTransaction) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", tx.Date, tx.Type, tx.Amount, tx.Category, tx.Description)
	}
	return tw.Flush()
}

// PrintTransactions writes stored transactions as an aligned table.
func PrintTransactions(w io.Writer, txs []models.Transaction) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date, tx.Type, tx.Amount.StringFixed(2), tx.Category, tx.Description)
	}
	return tw.Flush()
}

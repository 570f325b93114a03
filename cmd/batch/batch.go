// Package batch handles batch import of statement files
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"fjacquet/fintrack/cmd/common"
	"fjacquet/fintrack/cmd/root"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/parsererror"

	"github.com/spf13/cobra"
)

var (
	inputDir string
	confirm  bool
)

// Cmd represents the batch command
var Cmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch import every statement in a directory",
	Long: `Batch import every statement file found in an input directory.

Each file is detected, parsed and categorized independently. A file that
cannot be imported is reported and skipped; the others still go through.
Nothing is stored unless --confirm is given.

Example:
  fintrack batch -i statements/ --confirm`,
	RunE: batchFunc,
}

func init() {
	Cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Directory containing statement files")
	Cmd.Flags().BoolVar(&confirm, "confirm", false, "Store the imported transactions")
	_ = Cmd.MarkFlagRequired("input")
}

// Result is the outcome for one file of a batch.
type Result struct {
	File  string
	Count int
	Err   error
}

func batchFunc(cmd *cobra.Command, args []string) error {
	app := root.App()
	logger := app.GetLogger()

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return fmt.Errorf("failed to read input directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(inputDir, e.Name()))
		}
	}
	sort.Strings(files)

	logger.Info("Batch import started",
		logging.F("dir", inputDir),
		logging.F(logging.FieldCount, len(files)))

	var results []Result
	for _, path := range files {
		results = append(results, importOne(cmd, path))
	}

	out := cmd.OutOrStdout()
	failed, total := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %s\n", filepath.Base(r.File), parsererror.UserMessage(r.Err))
			continue
		}
		total += r.Count
		fmt.Fprintf(out, "OK   %s: %d transactions\n", filepath.Base(r.File), r.Count)
	}
	fmt.Fprintf(out, "%d files, %d failed, %d transactions", len(results), failed, total)
	if !confirm {
		fmt.Fprint(out, " (preview only)")
	}
	fmt.Fprintln(out)

	if failed > 0 && failed == len(results) {
		return fmt.Errorf("no file could be imported")
	}
	return nil
}

func importOne(cmd *cobra.Command, path string) Result {
	app := root.App()
	f, err := common.ReadFile(path)
	if err != nil {
		return Result{File: path, Err: err}
	}
	session, err := app.GetImporter().Preview(cmd.Context(), root.UserID(), f)
	if err != nil {
		app.GetLogger().WithError(err).Warn("Skipping file", logging.F(logging.FieldFile, path))
		return Result{File: path, Err: err}
	}
	if !confirm {
		n := len(session.Transactions)
		session.Cancel()
		return Result{File: path, Count: n}
	}
	n, err := session.Confirm(cmd.Context())
	return Result{File: path, Count: n, Err: err}
}

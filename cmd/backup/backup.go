// Package backup handles account backup and restore commands
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fjacquet/fintrack/cmd/root"
	"fjacquet/fintrack/internal/backup"
	"fjacquet/fintrack/internal/logging"

	"github.com/spf13/cobra"
)

var (
	outputFile string
	inputFile  string
)

// Cmd represents the backup command
var Cmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up or restore all of your data",
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every collection to a JSON backup file",
	Args:  cobra.NoArgs,
	RunE:  exportFunc,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a JSON backup file",
	Long: `Restore a JSON backup file. The whole file is checked before anything is
written; an invalid backup imports nothing.`,
	Args: cobra.NoArgs,
	RunE: restoreFunc,
}

func init() {
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Backup file (default fintrack-backup-<date>.json)")
	restoreCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Backup file to restore")
	_ = restoreCmd.MarkFlagRequired("input")

	Cmd.AddCommand(exportCmd, restoreCmd)
}

func exportFunc(cmd *cobra.Command, args []string) error {
	app := root.App()
	doc, err := app.GetBackup().Export(cmd.Context(), root.UserID())
	if err != nil {
		return err
	}

	path := outputFile
	if path == "" {
		path = fmt.Sprintf("fintrack-backup-%s.json", time.Now().Format("2006-01-02"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path) // #nosec G304 -- path comes from the command line
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	if err := backup.Write(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	app.GetLogger().Info("Backup written", logging.F(logging.FieldFile, path))
	fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
	return nil
}

func restoreFunc(cmd *cobra.Command, args []string) error {
	app := root.App()
	f, err := os.Open(inputFile) // #nosec G304 -- path comes from the command line
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	counts, err := app.GetBackup().Import(cmd.Context(), root.UserID(), f)
	if err != nil {
		if len(counts) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Partially restored: %s\n", counts)
		}
		return err
	}
	app.GetTransactions().Invalidate(root.UserID())
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", counts)
	return nil
}

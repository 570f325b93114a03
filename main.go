package main

import (
	"fmt"
	"os"

	"fjacquet/fintrack/cmd/backup"
	"fjacquet/fintrack/cmd/batch"
	"fjacquet/fintrack/cmd/categorize"
	"fjacquet/fintrack/cmd/export"
	"fjacquet/fintrack/cmd/imports"
	"fjacquet/fintrack/cmd/recurring"
	"fjacquet/fintrack/cmd/root"
	"fjacquet/fintrack/cmd/serve"
	"fjacquet/fintrack/internal/config"
)

func init() {
	// Load .env before viper reads the environment; a missing file is fine
	_, _ = config.LoadEnv()

	root.Init()

	root.Cmd.AddCommand(imports.Cmd)
	root.Cmd.AddCommand(batch.Cmd)
	root.Cmd.AddCommand(categorize.Cmd)
	root.Cmd.AddCommand(recurring.Cmd)
	root.Cmd.AddCommand(backup.Cmd)
	root.Cmd.AddCommand(export.Cmd)
	root.Cmd.AddCommand(serve.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

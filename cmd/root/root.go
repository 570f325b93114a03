// Package root contains the root command for the application
package root

import (
	"fmt"
	"sync"

	"fjacquet/fintrack/internal/config"
	"fjacquet/fintrack/internal/container"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to every command
type CommonFlags struct {
	Config   string
	User     string
	LogLevel string
}

var (
	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "fintrack",
		Short: "Import, categorize and export personal finance transactions.",
		Long: `fintrack imports bank statements (CSV, Excel, JSON or text), categorizes
every transaction with your rules and keyword buckets, and keeps your
recurring payments, backups and exports in one place.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(SharedFlags.Config)
			if err != nil {
				return err
			}
			if SharedFlags.LogLevel != "" {
				cfg.Log.Level = SharedFlags.LogLevel
			}
			c, err := container.NewContainer(cmd.Context(), cfg, ContainerOptions...)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			app = c
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return Close()
		},
	}

	// SharedFlags holds the persistent flags
	SharedFlags = CommonFlags{}

	// ContainerOptions are applied to every container the root command builds.
	ContainerOptions []container.Option

	app      *container.Container
	initOnce sync.Once
)

// Init registers the persistent flags. It is safe to call more than once.
func Init() {
	initOnce.Do(func() {
		Cmd.PersistentFlags().StringVarP(&SharedFlags.Config, "config", "c", "", "Config file (default is $HOME/.fintrack/config.yaml)")
		Cmd.PersistentFlags().StringVarP(&SharedFlags.User, "user", "u", "local", "User the command acts for")
		Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	})
}

// App returns the container built for the running command.
func App() *container.Container {
	return app
}

// UserID returns the --user flag value.
func UserID() string {
	return SharedFlags.User
}

// Close releases the running command's container.
func Close() error {
	if app == nil {
		return nil
	}
	err := app.Close()
	app = nil
	return err
}

// Package serve runs the HTTP API
package serve

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"fjacquet/fintrack/cmd/root"

	"github.com/spf13/cobra"
)

var (
	addr     string
	interval time.Duration
)

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the import, transaction, categorization, recurring, backup and
export endpoints over HTTP. Requests identify the user with the X-User-ID
header. The server stops cleanly on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: serveFunc,
}

func init() {
	Cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from server.addr)")
	Cmd.Flags().DurationVar(&interval, "maintenance-interval", time.Minute, "How often expired previews and idle cache entries are swept")
}

func serveFunc(cmd *cobra.Command, args []string) error {
	app := root.App()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listen := addr
	if listen == "" {
		listen = app.GetConfig().Server.Addr
	}

	go app.RunMaintenance(ctx, interval)

	return app.NewServer().Run(ctx, listen)
}

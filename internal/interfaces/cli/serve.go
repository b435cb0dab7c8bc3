package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/propsignal/propsignal/internal/bootstrap"
)

// newServeCmd runs the HTTP API server in the foreground.  It bypasses the
// dependency factory: the server wires its own graph, including Redis and
// Kafka, which the one-shot commands never touch.
func newServeCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the PropSignal HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			path := opts.ConfigPath
			if path == "" {
				path = "configs/config.yaml"
			}
			return bootstrap.RunAPIServer(ctx, path, Version)
		},
	}
}

package cmd

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/httpd"
	"github.com/oneconcern/contentstore/pkg/provider/remote"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the content provider over HTTP",
	Long: `Serve the configured content provider over HTTP, for remote clients configured with an http:// provider URI.

Prometheus metrics are exposed on /metrics.
The server shuts down gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		stack, err := openStack(ctx, reg)
		if err != nil {
			wrapFatalln("failed to open content provider", err)
			return
		}
		defer closeStack(stack)

		handler := remote.NewServer(stack,
			remote.Logger(logger),
			remote.Registry(reg),
			remote.ChunkSize(stack.Chunker().ChunkSize()),
		)
		server := httpd.New(
			httpd.WithConfig(casFlags.serve),
			httpd.HandlesRequestsWith(handler),
			httpd.Logger(logger),
		)
		if err := server.Listen(); err != nil {
			wrapFatalln("failed to listen", err)
			return
		}
		infoLogger.Printf("serving %v at http://%s", stack, server.Addr())
		if err := server.Serve(ctx); err != nil {
			wrapFatalln("server failed", err)
			return
		}
	},
}

func init() {
	casFlags.serve.RegisterFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

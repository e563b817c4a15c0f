// ABOUTME: CLI command to serve the question pipeline over HTTP
// ABOUTME: Exposes POST /v1/ask, GET /healthz and GET /metrics with graceful shutdown
package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harper/electionrag/internal/api"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
)

// NewServeCmd creates serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question API over HTTP",
		Long: `Serve the question pipeline over HTTP.

Endpoints:
  POST /v1/ask     {"question": "..."} → answer with sources and trace
  GET  /healthz    liveness probe
  GET  /metrics    Prometheus metrics (runs, steps, classifications, HTTP)

Examples:
  electionrag serve
  electionrag serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	server := api.NewServer(a.Controller, a.Registry, logger).HTTPServer(serveAddr)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", serveAddr)
		if !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s\n", serveAddr)
		}
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

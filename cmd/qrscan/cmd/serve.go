package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrscan/internal/server"
)

// rateLimitPruneInterval is how often idle rate limit entries are dropped.
const rateLimitPruneInterval = 10 * time.Minute

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket scanning API",
		Long: `Start an HTTP server that scans uploaded images and PDFs.

Endpoints:
  GET  /health      health check
  POST /scan/image  scan an uploaded image (multipart field "image")
  POST /scan/pdf    scan the images of an uploaded PDF (multipart field "pdf")
  GET  /ws/scan     WebSocket frame detection ({"name":"detect","args":[...]})
  GET  /metrics     Prometheus metrics

Examples:
  qrscan serve
  qrscan serve --port 8080
  qrscan serve --host 0.0.0.0 --requests-per-minute 60`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd)
		},
	}

	addScannerFlags(cmd)
	f := cmd.Flags()
	f.StringP("host", "H", "localhost", "server host")
	f.IntP("port", "p", 8080, "server port")
	f.String("cors-origin", "*", "CORS allowed origins")
	f.Int("max-upload-size", 50, "maximum upload size in MB")
	f.Int("timeout", 30, "request timeout in seconds")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	f.Bool("metrics", true, "expose Prometheus metrics at /metrics")
	f.Int("requests-per-minute", 0, "maximum requests per minute per client (0 = unlimited)")
	f.Int("requests-per-hour", 0, "maximum requests per hour per client (0 = unlimited)")
	f.Int("max-requests-per-day", 0, "maximum requests per day per client (0 = unlimited)")
	f.Int64("max-data-per-day", 0, "maximum bytes uploaded per day per client (0 = unlimited)")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	cfg := a.cfg
	srvCfg := cfg.ToServerConfig()

	srv, err := server.NewServer(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	timeout := time.Duration(srvCfg.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(srvCfg.Host, strconv.Itoa(srvCfg.Port)),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.PruneRateLimits(ctx, rateLimitPruneInterval)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting qrscan server", "host", srvCfg.Host, "port", srvCfg.Port,
			"metrics", srvCfg.MetricsEnabled, "rate_limited", srvCfg.RateLimit.Enabled())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}
	slog.Info("Graceful shutdown completed")
	return nil
}

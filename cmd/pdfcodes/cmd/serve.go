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

	"github.com/MeKo-Tech/pdfcodes/internal/config"
	"github.com/MeKo-Tech/pdfcodes/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for code extraction",
	Long: `Start an HTTP server that exposes the extraction pipeline and the PDF utilities.

The server provides the following endpoints:
  POST /codes/barcodes             - barcodes in an uploaded PDF or image
  POST /codes/qr                   - QR codes in an uploaded PDF or image
  POST /codes/all                  - both kinds
  GET  /ws/codes                   - websocket extraction
  POST /api/pdf/merge-pdfs         - merge uploaded PDFs
  POST /api/pdf/images-to-pdf      - convert uploaded images to one PDF
  POST /api/pdf/merge-all          - PDFs followed by converted images
  POST /api/pdf/extract-text       - plain text of a PDF
  POST /api/pdf/add-qr-code        - stamp a QR code onto a PDF
  POST /api/pdf/add-barcode        - stamp a CODE128 barcode onto a PDF
  GET  /api/pdf/supported-formats  - accepted inputs and features
  GET  /health                     - health check
  GET  /metrics                    - Prometheus metrics

Examples:
  pdfcodes serve
  pdfcodes serve --port 8080
  pdfcodes serve --host 0.0.0.0 --max-upload-size 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		applyServeFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		httpServer, err := newHTTPServer(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		return runServer(ctx, httpServer, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 5032, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 60, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
}

// applyServeFlags overrides configuration values with explicitly set flags.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	if cmd.Flags().Changed("max-upload-size") {
		cfg.Server.MaxUploadMB, _ = cmd.Flags().GetInt("max-upload-size")
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Server.TimeoutSec, _ = cmd.Flags().GetInt("timeout")
	}
	if cmd.Flags().Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
}

func newHTTPServer(cfg *config.Config) (*http.Server, error) {
	serverConfig, err := cfg.ToServerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build server configuration: %w", err)
	}

	codesServer := server.NewServer(serverConfig)

	// Handlers time out first and answer with their own error body.
	writeTimeout := time.Duration(cfg.Server.TimeoutSec+5) * time.Second

	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           codesServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout,
	}, nil
}

// runServer serves until ctx is done or the listener fails, then shuts down
// within shutdownTimeout.
func runServer(ctx context.Context, httpServer *http.Server, shutdownTimeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting pdfcodes server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			slog.Error("Server error", "error", err)
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}

	slog.Info("Graceful shutdown completed")
	return nil
}

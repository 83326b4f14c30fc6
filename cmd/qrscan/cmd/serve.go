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
	"github.com/spf13/pflag"

	"github.com/MeKo-Tech/qrscan/internal/config"
	"github.com/MeKo-Tech/qrscan/internal/dedup"
	"github.com/MeKo-Tech/qrscan/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket scanning API",
	Long: `Start an HTTP server that exposes the scanner.

The server provides the following endpoints:
  POST   /scan/image     - Scan an uploaded image (multipart field "image")
  POST   /scan/url       - Download and scan an image ({"url": "..."})
  POST   /scan/pdf       - Scan the images of an uploaded PDF
  GET    /history        - List history entries
  DELETE /history[/{id}] - Clear the history or delete one entry
  GET    /history/copy   - Payloads of the given ids as text
  GET    /ws/scan        - Stream frames, receive detections
  GET    /health         - Health check endpoint
  GET    /metrics        - Prometheus metrics

Examples:
  qrscan serve
  qrscan serve --port 8080
  qrscan serve --host 0.0.0.0 --port 3000 --rate-limit 5`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := GetConfig()
		sc := serverSettings(cmd.Flags(), cfg.Server)
		if sc.Port < 1 || sc.Port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", sc.Port)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		pool, err := a.pool(ctx, sc.PoolSize)
		if err != nil {
			return fmt.Errorf("failed to initialize scanners: %w", err)
		}
		defer pool.Close()

		// Stream connections keep one dedup burst per connection and never stop.
		streamOpts := a.opts
		streamOpts.Dedup = dedup.PerSession
		streamOpts.StopOnDetect = false

		scanServer := server.NewServer(server.Config{
			Host:           sc.Host,
			Port:           sc.Port,
			CORSOrigin:     sc.CORSOrigin,
			MaxUploadMB:    int64(sc.MaxUploadMB),
			TimeoutSec:     sc.TimeoutSec,
			OverlayEnabled: sc.OverlayEnabled,
			RateLimitRPS:   sc.RateLimitRPS,
			RateLimitBurst: sc.RateLimitBurst,
			FetchTimeout:   time.Duration(cfg.Media.FetchTimeoutSec) * time.Second,
		}, server.Deps{
			Pool:     pool,
			History:  a.history,
			Sessions: a.factory(ctx, streamOpts),
		})
		defer func() {
			if err := scanServer.Close(); err != nil {
				slog.Error("Server cleanup error", "error", err)
			}
		}()

		httpServer := &http.Server{
			Addr:              net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port)),
			Handler:           scanServer.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		slog.Info("Starting scan server", "addr", httpServer.Addr, "workers", pool.Size())
		return serveUntilDone(ctx, httpServer, time.Duration(sc.ShutdownTimeout)*time.Second)
	},
}

// serverSettings applies explicitly set flags on top of the configured
// server section.
func serverSettings(flags *pflag.FlagSet, s config.ServerConfig) config.ServerConfig {
	if flags.Changed("host") {
		s.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		s.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		s.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-upload-size") {
		s.MaxUploadMB, _ = flags.GetInt("max-upload-size")
	}
	if flags.Changed("timeout") {
		s.TimeoutSec, _ = flags.GetInt("timeout")
	}
	if flags.Changed("shutdown-timeout") {
		s.ShutdownTimeout, _ = flags.GetInt("shutdown-timeout")
	}
	if flags.Changed("overlay-enable") {
		s.OverlayEnabled, _ = flags.GetBool("overlay-enable")
	}
	if flags.Changed("pool-size") {
		s.PoolSize, _ = flags.GetInt("pool-size")
	}
	if flags.Changed("rate-limit") {
		s.RateLimitRPS, _ = flags.GetFloat64("rate-limit")
	}
	if flags.Changed("rate-limit-burst") {
		s.RateLimitBurst, _ = flags.GetInt("rate-limit-burst")
	}
	return s
}

// serveUntilDone runs srv until ctx ends or the listener fails, then shuts
// it down within grace.
func serveUntilDone(ctx context.Context, srv *http.Server, grace time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Shutting down", "grace", grace)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Bool("overlay-enable", true, "allow overlay images in responses")
	serveCmd.Flags().Int("pool-size", 4, "number of scanners shared by HTTP requests")
	serveCmd.Flags().Float64("rate-limit", 10, "requests per second per client (0 disables)")
	serveCmd.Flags().Int("rate-limit-burst", 20, "burst size per client")
}

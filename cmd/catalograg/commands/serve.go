package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/metrics"
	chiTransport "github.com/kailas-cloud/catalograg/internal/transport/chi"
	"github.com/kailas-cloud/catalograg/internal/version"
)

// newServeCmd starts the HTTP API.
func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the catalograg HTTP API",
		Long: `Start the retrieval HTTP API.

Routes:
  POST   /v1/retrieve      run the retrieval pipeline
  GET    /v1/cache/stats   embedding and attribute cache counters
  DELETE /v1/cache         clear both caches
  GET    /health           component health
  GET    /metrics          Prometheus metrics

Examples:
  catalograg serve
  catalograg serve --port 9090
  ENV=prod catalograg serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				a.cfg.HTTP.Port = port
			}
			return a.serve(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides http.port)")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger := a.cfg, a.logger
	logger.Info("Starting catalograg API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	// Explicit registry, no global state.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ms := metrics.New()
	if err := ms.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	p, err := buildPipeline(ctx, cfg, ms, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	var limiter *chiTransport.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = chiTransport.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger)
		go limiter.Run(ctx)
	}

	server := chiTransport.NewServer(p.retrieval, p.health, logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		Metrics:     ms.HTTP,
		Gatherer:    reg,
		RateLimiter: limiter,
		Logger:      logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	apperrors "github.com/namelens/reachlens/internal/errors"
	"github.com/namelens/reachlens/internal/metrics"
	"github.com/namelens/reachlens/internal/observability"
	"github.com/namelens/reachlens/internal/server"
	"github.com/namelens/reachlens/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the resolution HTTP API with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload lookup settings and profiles from the config file`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().Int("max-batch", handlers.DefaultMaxBatch, "maximum subjects per POST /v1/batch")

	_ = v.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = v.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	observability.InitServerLogger(binaryName, cfg.Logging.Level)
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(binaryName, cfg.Metrics.Port); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return apperrors.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}
	}

	maxBatch, err := cmd.Flags().GetInt("max-batch")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	set, err := newResolverSet(ctx, cfg)
	if err != nil {
		return err
	}

	version := handlers.CurrentVersion()
	logger.Info("Initializing server",
		zap.String("version", version.App.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("store", set.Store() != nil),
		zap.Int("metrics_port", observability.GetMetricsPort()))

	health := handlers.NewHealthManager(version.App.Version)
	if cfg.Health.Enabled {
		registerHealthChecks(health, set, cfg.Metrics.Enabled)
	}

	srv := server.New(server.Options{
		Config:      cfg.Server,
		Resolvers:   set,
		Health:      health,
		Concurrency: cfg.Workers,
		MaxBatch:    maxBatch,
		AdminToken:  v.GetString("admin_token"),
	})

	startedAt := time.Now()
	metrics.SetServerStartTime(startedAt.Unix())

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Handlers run LIFO: the HTTP server stops first, the logger flushes last.
	signals.OnShutdown(func(ctx context.Context) error {
		if err := set.Close(); err != nil {
			logger.Warn("Store close returned error", zap.Error(err))
		}
		if err := observability.StopMetrics(); err != nil {
			logger.Warn("Metrics exporter stop returned error", zap.Error(err))
		}
		if err := logger.Sync(); err != nil {
			// Sync errors are often benign (stdout/stderr already closed)
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		metrics.SetServerUptime(int64(time.Since(startedAt).Seconds()))
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return apperrors.WrapInternal(ctx, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: reloading config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				logger.Error("Failed to reload config file",
					zap.String("file", v.ConfigFileUsed()),
					zap.Error(err))
				return err
			}
		}
		reloaded, err := loadConfig()
		if err != nil {
			logger.Error("Reloaded config is invalid, keeping the previous one", zap.Error(err))
			return err
		}
		set.reload(reloaded)
		logger.Info("Lookup configuration reloaded",
			zap.String("file", v.ConfigFileUsed()),
			zap.Strings("priority", reloaded.Lookup.Priority),
			zap.String("profile", reloaded.Lookup.Profile))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return apperrors.WrapInternal(ctx, err, "server error")
	}
	return nil
}

func registerHealthChecks(health *handlers.HealthManager, set *resolverSet, telemetry bool) {
	health.RegisterChecker("resolver", handlers.HealthCheckFunc(func(ctx context.Context) error {
		_, err := set.Resolver("")
		return err
	}))
	if db := set.Store(); db != nil {
		health.RegisterChecker("store", handlers.HealthCheckFunc(func(ctx context.Context) error {
			return storeError(ctx, db.DB.PingContext(ctx), "store ping failed")
		}))
	}
	if telemetry {
		health.RegisterChecker("telemetry", handlers.HealthCheckFunc(func(ctx context.Context) error {
			if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
				return apperrors.NewServiceUnavailableError("telemetry system not initialized")
			}
			return nil
		}))
	}
}

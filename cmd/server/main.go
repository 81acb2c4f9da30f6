package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yourusername/authfence/metrics"
	"github.com/yourusername/authfence/pkg/authfence"
	"github.com/yourusername/authfence/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "authfence",
		Short: "Fixed-window rate limiting for login, signup and password reset",
		Long: `authfence throttles pre-authentication endpoints per client.

Clients are keyed on purpose, the first X-Forwarded-For hop and a
fingerprint of a few request headers. Each key gets a fixed quota per
fixed window.

Settings come from flags, AUTHFENCE_* environment variables or a YAML
file passed with --config, in that order of precedence.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, configFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	cmd.AddCommand(newProbeCmd())

	cmd.Flags().StringVar(&configFile, "config", "", "config file (YAML)")
	if err := registerFlags(cmd.Flags(), v); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, cfg *serverConfig) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	limiterConfig, err := cfg.limiterConfig()
	if err != nil {
		return err
	}

	deps := routerDeps{
		metrics:   metrics.NewMetrics(),
		logger:    logger,
		storeName: "memory",
	}

	var storage store.Store
	if cfg.RedisAddr != "" {
		redisStore := store.NewRedisStore(store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = redisStore.Close() }()

		if err := redisStore.Ping(ctx); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		storage = redisStore
		deps.storeName = "redis"
		deps.ping = redisStore.Ping
	} else {
		logger.Warn("using in-memory store; windows are per process and lost on restart")
		storage = store.NewMemoryStore()
	}

	limiter, err := authfence.NewLimiter(
		authfence.WithConfig(limiterConfig),
		authfence.WithStore(storage),
		authfence.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create limiter: %w", err)
	}
	deps.limiter = limiter

	stopCleanup := limiter.StartBackgroundCleanup()
	defer stopCleanup()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			zap.String("addr", cfg.Addr),
			zap.String("store", deps.storeName),
			zap.Strings("purposes", limiter.Purposes()))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("HTTP server stopped gracefully")
	return nil
}

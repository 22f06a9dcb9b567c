package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/feedline/feedline/internal/api"
	"github.com/feedline/feedline/internal/config"
	"github.com/feedline/feedline/internal/db"
	"github.com/feedline/feedline/internal/destination"
	"github.com/feedline/feedline/internal/engine"
	"github.com/feedline/feedline/internal/format"
	"github.com/feedline/feedline/internal/logging"
	"github.com/feedline/feedline/internal/metrics"
	"github.com/feedline/feedline/internal/oauth"
	"github.com/feedline/feedline/internal/pipeline"
	"github.com/feedline/feedline/internal/retry"
	"github.com/feedline/feedline/internal/scheduler"
	"github.com/feedline/feedline/internal/source"
	"github.com/feedline/feedline/internal/store"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", cfg.MigrationsDir).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	registry, err := oauth.LoadRegistry(cfg.ProvidersFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", cfg.ProvidersFile).Msg("failed to load OAuth providers")
	}

	stores := store.NewStores(pool)
	manager := oauth.NewManager(stores, store.NewTxBeginner(pool), registry, cfg, logger)

	pipe := pipeline.New(
		source.NewClients(cfg, logger),
		format.NewRegistry(),
		destination.NewClients(cfg, logger),
		manager,
		retry.Policy{
			MaxAttempts: cfg.RetryMaxAttempts,
			Backoff:     retry.Exponential{Base: cfg.RetryBaseDelay, Max: 30 * time.Second},
		},
		logger,
	)

	eng := engine.New(stores, pipe, metrics.NewRuns(), logger)

	sched := scheduler.New(eng, stores.Schedules, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}

	srv := api.NewServer(logger, pool, stores, manager, sched, eng, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	metricsServer := metrics.NewServer(cfg.MetricsListenAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		// Stop arming new runs and let in-flight runs finish before the
		// HTTP surface goes away.
		sched.Stop()
		httpServer.Shutdown(shutdownCtx)
		metricsServer.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

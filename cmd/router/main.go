package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/adetunji-o/relaypay/internal/analytics"
	"github.com/adetunji-o/relaypay/internal/application/flows"
	"github.com/adetunji-o/relaypay/internal/config"
	"github.com/adetunji-o/relaypay/internal/connector"
	"github.com/adetunji-o/relaypay/internal/connector/atlaspay"
	"github.com/adetunji-o/relaypay/internal/connector/zenithpay"
	"github.com/adetunji-o/relaypay/internal/infrastructure/postgres"
	"github.com/adetunji-o/relaypay/internal/infrastructure/redisstore"
	"github.com/adetunji-o/relaypay/internal/infrastructure/wire"
	"github.com/adetunji-o/relaypay/internal/interfaces/rest"
	"github.com/adetunji-o/relaypay/internal/interfaces/rest/handlers"
	"github.com/adetunji-o/relaypay/internal/interfaces/rest/middleware"
	"github.com/adetunji-o/relaypay/internal/scheduler"
	"github.com/adetunji-o/relaypay/internal/telemetry"
	"github.com/adetunji-o/relaypay/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	logger.Info("starting relaypay", "env", cfg.Primary.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.New(promRegistry)

	registry := connector.NewRegistry(metrics)
	registry.Register(atlaspay.New(cfg.Connectors.AtlaspayBaseURL))
	registry.Register(zenithpay.New(cfg.Connectors.ZenithpayBaseURL))

	wireClient := wire.NewClient(wire.Config{
		Timeout:         cfg.Wire.Timeout,
		BreakerMaxFails: cfg.Wire.BreakerMaxFails,
		BreakerInterval: cfg.Wire.BreakerInterval,
		BreakerTimeout:  cfg.Wire.BreakerTimeout,
	}, logger)

	tokenCache := redisstore.NewTokenCache(redisClient, cfg.Redis.TokenTTL, logger)
	locks := redisstore.NewResourceLock(redisClient, redisstore.LockConfig{
		TTL:        cfg.Lock.TTL,
		RetryDelay: cfg.Lock.RetryDelay,
		MaxRetries: cfg.Lock.MaxRetries,
	}, logger)

	attemptRepo := postgres.NewAttemptRepository(db.Pool)
	intentRepo := postgres.NewIntentRepository(db.Pool)
	refundRepo := postgres.NewRefundRepository(db.Pool)
	configRepo := postgres.NewConfigRepository(db.Pool)
	trackerRepo := postgres.NewProcessTrackerRepository(db.Pool)
	analyticsStore := postgres.NewAnalyticsStore(db.Pool)

	provider := handlers.MetricsProvider{
		Payments:  analyticsStore,
		Refunds:   analyticsStore,
		APIEvents: analyticsStore,
	}
	if cfg.Analytics.Source == config.AnalyticsSourceCombined {
		secondaryDB, err := postgres.Connect(ctx, cfg.Analytics.Secondary, logger)
		if err != nil {
			logger.Error("secondary analytics database connection failed", "error", err)
			os.Exit(1)
		}
		defer secondaryDB.Close()

		secondaryStore := postgres.NewAnalyticsStore(secondaryDB.Pool)
		combined := &analytics.Combined{
			PrimaryPayments:    analyticsStore,
			SecondaryPayments:  secondaryStore,
			PrimaryRefunds:     analyticsStore,
			SecondaryRefunds:   secondaryStore,
			PrimaryAPIEvents:   analyticsStore,
			SecondaryAPIEvents: secondaryStore,
			Logger:             logger,
		}
		provider = handlers.MetricsProvider{
			Payments:  combined,
			Refunds:   combined,
			APIEvents: combined,
		}
		logger.Info("analytics source", "source", cfg.Analytics.Source)
	}

	retryScheduler := scheduler.New(trackerRepo, configRepo, logger)

	engine := flows.NewEngine(
		registry,
		wireClient,
		tokenCache,
		attemptRepo,
		intentRepo,
		refundRepo,
		retryScheduler,
		locks,
		metrics,
		logger,
	)

	retryWorker := worker.NewRetryWorker(
		trackerRepo,
		attemptRepo,
		intentRepo,
		configRepo,
		engine,
		retryScheduler,
		cfg.Worker.Interval,
		cfg.Worker.BatchSize,
		logger,
	)
	go retryWorker.Start(ctx)

	h := handlers.NewHandlers(
		engine,
		intentRepo,
		attemptRepo,
		refundRepo,
		configRepo,
		provider,
		cfg.Analytics.QueryTimeout,
		metrics,
		logger,
	)

	var routes http.Handler = rest.NewRouter(h, promRegistry)
	routes = rest.RecordAPIEvents(analyticsStore)(routes)
	routes = middleware.Timeout(cfg.Server.WriteTimeout)(routes)
	routes = middleware.Logging(logger)(routes)
	routes = middleware.Recovery(logger)(routes)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      routes,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("http server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

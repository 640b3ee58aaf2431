package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rameshsbr/webmanagement-p2p-sub000/api/controllers"
	"github.com/rameshsbr/webmanagement-p2p-sub000/api/routes"
	"github.com/rameshsbr/webmanagement-p2p-sub000/internal/cron"
	"github.com/rameshsbr/webmanagement-p2p-sub000/internal/idempotency"
	"github.com/rameshsbr/webmanagement-p2p-sub000/internal/ledger"
	"github.com/rameshsbr/webmanagement-p2p-sub000/internal/merchants"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/config"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/instance"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/logger"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/metrics"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/migrate"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/pubsub"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/redis"
)

const shutdownGrace = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "backoffice"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "backoffice",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	readyDeps := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	var pubsubClient *pubsub.Client
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		readyDeps["pubsub"] = pubsubClient
	} else {
		logg.Warn(context.Background(), "pubsub project not configured, merchant notifications disabled")
	}

	promRegistry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(promRegistry)
	cronMetrics := metrics.NewCronJobMetrics(promRegistry)

	gormDB := dbClient.DB()

	guard, err := idempotency.NewGuard(idempotency.NewRepository(gormDB), dbClient, cfg.Payments, logg, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency guard", err)
		os.Exit(1)
	}
	ledgerService, err := ledger.NewService(ledger.NewRepository(gormDB), paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	merchantService, err := merchants.NewService(merchants.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create merchant service", err)
		os.Exit(1)
	}

	purgeJob, err := cron.NewIdempotencyPurgeJob(cron.IdempotencyPurgeJobParams{
		Logger: logg,
		Purger: guard,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency purge job", err)
		os.Exit(1)
	}
	auditJob, err := cron.NewLedgerAuditJob(cron.LedgerAuditJobParams{
		Logger:    logg,
		Merchants: merchantService,
		Ledger:    ledgerService,
		Metrics:   paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger audit job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("backoffice-cron"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}
	cronService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(purgeJob, auditJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     cfg.Ops.Addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting back office")

	go func() {
		if err := cronService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "cron loop stopped unexpectedly", err)
		}
	}()

	server := &http.Server{
		Addr:    cfg.Ops.Addr,
		Handler: routes.NewRouter(cfg, logg, promRegistry, readyDeps),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "ops server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "ops server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "back office shutting down gracefully")
}

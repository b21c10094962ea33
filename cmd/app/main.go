// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"growth-subscription-service/internal/config"
	"growth-subscription-service/internal/domain/model"
	"growth-subscription-service/internal/domain/ports/repository"
	storeAdapters "growth-subscription-service/internal/infra/adapters/store"
	valAdapters "growth-subscription-service/internal/infra/adapters/validation"
	pg "growth-subscription-service/internal/infra/db/postgres"
	"growth-subscription-service/internal/infra/logging"
	"growth-subscription-service/internal/infra/metrics"
	red "growth-subscription-service/internal/infra/redis"
	"growth-subscription-service/internal/infra/sched"
	"growth-subscription-service/internal/infra/web"
	"growth-subscription-service/internal/infra/webhook"
	"growth-subscription-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop store gateway, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	// The catalog is a compile-time constant; refuse to start on a bad one.
	if err := model.ValidateCatalog(); err != nil {
		logger.Fatal().Err(err).Msg("catalog self-check failed")
	}

	metrics.MustRegister()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	snapshotRepo := red.NewSnapshotRepo(redisClient)
	dedupGuard := red.NewDedupGuard(redisClient, cfg.Redis.DedupTTL)

	// ---- Postgres (optional webhook audit log) ----
	var eventRepo repository.WebhookEventRepository
	if cfg.Database.URL != "" {
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connect failed")
		}
		defer pool.Close()
		eventRepo = pg.NewWebhookEventRepo(pool)
	} else {
		logger.Warn().Msg("database.url not set; webhook audit log disabled")
	}

	// ---- Adapters ----
	store := storeAdapters.NewNoopStoreGateway()
	if !cfg.Runtime.Dev && !cfg.Store.Sandbox {
		logger.Warn().Msg("no production store gateway configured; using noop gateway")
	}
	validator, err := valAdapters.NewServerValidator(cfg.Validation.Endpoint, cfg.Validation.APIKey, cfg.Validation.Timeout, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("server validator init failed")
	}

	// ---- Use cases ----
	reconciler := usecase.NewReconcilerUseCase(snapshotRepo, eventRepo, dedupGuard, store, validator, logger)
	entitlements := usecase.NewEntitlementUseCase(reconciler, logger)
	purchases := usecase.NewPurchaseUseCase(store, reconciler, logger)

	// ---- HTTP server ----
	decoder := webhook.NewDecoder(cfg.Store.BundleID, logger)
	server := web.NewServer(cfg.Server, reconciler, entitlements, purchases, decoder, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Revalidation worker ----
	worker := sched.NewRevalidationWorker(cfg.Scheduler.RevalidationInterval, snapshotRepo, reconciler, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}

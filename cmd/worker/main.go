// Package main is the entry point for the fuelops background worker.
// It replays reconciliation gaps, relays the outbox to Kafka and expires
// idempotency keys.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fuelops/internal/config"
	"fuelops/internal/domain/catalogs/tank"
	"fuelops/internal/domain/ledger"
	"fuelops/internal/infrastructure/messaging"
	"fuelops/internal/infrastructure/metrics"
	"fuelops/internal/infrastructure/storage/postgres"
	"fuelops/internal/infrastructure/storage/postgres/catalog_repo"
	"fuelops/pkg/logger"
	"fuelops/pkg/numerator"
)

func main() {
	cfg, err := config.Load(os.Getenv("FUELOPS_CONFIG_DIR"))
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting fuelops worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DB.DSN)
	poolCfg.ApplicationName = "fuelops-worker"
	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	m := metrics.New()
	m.RegisterPool(pool)

	// Gap replay needs the same tank resolution as the API.
	tankRepo := catalog_repo.NewTankRepo(txManager)
	tankService := tank.NewService(tankRepo, txManager, numerator.New(pool, numerator.Options{}))
	gapStore := postgres.NewGapStore(txManager)
	reconciler := ledger.NewReconciler(tankService.Resolver(), tankRepo, gapStore, m)

	publisher, err := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Fatalw("failed to connect to kafka", "brokers", cfg.Kafka.Brokers, "error", err)
	}
	defer func() { _ = publisher.Close() }()

	worker := &Worker{
		log:         log.WithComponent("worker"),
		cfg:         cfg.Worker,
		replayer:    ledger.NewReplayer(txManager, gapStore, reconciler, cfg.Worker.GapBatchSize, cfg.Worker.GapMaxRetries),
		relay:       postgres.NewOutboxRelay(txManager, cfg.Worker.OutboxBatchSize, m.InstrumentOutbox(publisher)),
		idempotency: postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL),
	}

	metricsServer := &http.Server{
		Addr:              cfg.Worker.MetricsAddr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infow("metrics server starting", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	wg.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsServer.Shutdown(shutdownCtx)

	log.Info("worker stopped")
}

// Package main is the entry point for the fuelops API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"fuelops/internal/config"
	"fuelops/internal/domain/auth"
	"fuelops/internal/domain/catalogs/machine"
	"fuelops/internal/domain/catalogs/tank"
	"fuelops/internal/domain/documents/consumption"
	"fuelops/internal/domain/ledger"
	v1 "fuelops/internal/infrastructure/http/v1"
	"fuelops/internal/infrastructure/metrics"
	"fuelops/internal/infrastructure/ratelimit"
	"fuelops/internal/infrastructure/storage/postgres"
	"fuelops/internal/infrastructure/storage/postgres/catalog_repo"
	"fuelops/internal/infrastructure/storage/postgres/document_repo"
	"fuelops/pkg/logger"
	"fuelops/pkg/numerator"
)

func main() {
	cfg, err := config.Load(os.Getenv("FUELOPS_CONFIG_DIR"))
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
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

	ctx := context.Background()
	log.Infow("starting fuelops server", "env", cfg.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DB.DSN)
	poolCfg.MaxConns = cfg.DB.MaxConns
	poolCfg.MinConns = cfg.DB.MinConns
	poolCfg.MaxConnLifetime = cfg.DB.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.DB.MaxConnIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.DB.AutoMigrate {
		if err := postgres.RunMigrations(pool.Pool); err != nil {
			log.Fatalw("failed to run migrations", "error", err)
		}
		log.Info("migrations applied")
	}

	txManager := postgres.NewTxManager(pool)

	// --- Metrics ---
	m := metrics.New()
	m.RegisterPool(pool)

	// --- Catalogs ---
	codes := numerator.New(pool, numerator.Options{Strategy: numerator.StrategyStrict})
	tankRepo := catalog_repo.NewTankRepo(txManager)
	tankService := tank.NewService(tankRepo, txManager, codes)
	machineService := machine.NewService(catalog_repo.NewMachineRepo(txManager), txManager, codes)

	// --- Ledger ---
	gapStore := postgres.NewGapStore(txManager)
	reconciler := ledger.NewReconciler(tankService.Resolver(), tankRepo, gapStore, m)
	replayer := ledger.NewReplayer(txManager, gapStore, reconciler, cfg.Worker.GapBatchSize, cfg.Worker.GapMaxRetries)

	// --- Consumption records ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}
	consumptionService := consumption.NewService(consumption.Config{
		Repo:      document_repo.NewConsumptionRepo(txManager),
		TxManager: txManager,
		Tanks:     tankService.Resolver(),
		Machines:  machineService.Resolver(),
		Ledger:    reconciler,
		Events:    postgres.NewOutboxPublisher(txManager),
		Audit:     auditService,
	})

	// --- Kiosk rate limiter ---
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// the limiter fails open, so an unreachable Redis only disables limiting
			log.Warnw("redis unavailable, kiosk rate limiting is not enforced", "addr", cfg.Redis.Addr, "error", err)
		}
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window, "fuelops:ratelimit")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		JWTValidator: auth.NewJWTService(auth.JWTConfig{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer}),
		Database:     pool,
		Metrics:      m,
		MetricsPath:  cfg.MetricsPath,
		Idempotency:  postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL),
		KioskLimiter: limiter,
		Tanks:        tankService,
		Machines:     machineService,
		Consumption:  consumptionService,
		History:      auditService,
		Gaps:         replayer,
		Debug:        cfg.IsDevelopment(),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	appctx "fuelops/internal/core/context"
	"fuelops/internal/domain/catalogs/machine"
	"fuelops/internal/domain/catalogs/tank"
	"fuelops/internal/domain/documents/consumption"
	"fuelops/internal/domain/ledger"
	"fuelops/internal/infrastructure/http/v1/handlers"
	"fuelops/internal/infrastructure/http/v1/middleware"
	"fuelops/internal/infrastructure/metrics"
	"fuelops/internal/infrastructure/ratelimit"
	"fuelops/pkg/logger"
)

// RouterConfig holds everything the router wires into handlers.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Database is pinged by the readiness probe
	Database handlers.Pinger

	// Metrics, when set, instruments requests and serves MetricsPath
	Metrics     *metrics.Metrics
	MetricsPath string

	// Idempotency, when set, enables X-Idempotency-Key handling on mutations
	Idempotency middleware.IdempotencyStore

	// KioskLimiter, when set, rate limits the kiosk routes per client IP
	KioskLimiter ratelimit.Limiter

	Tanks       *tank.Service
	Machines    *machine.Service
	Consumption *consumption.Service
	History     handlers.HistoryReader
	Gaps        *ledger.Replayer

	// Debug switches Gin to debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Recovery wraps everything, including ErrorHandler.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
	}
	router.Use(middleware.ErrorHandler())

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(cfg.Metrics.Handler()))
	}

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Database)
	router.GET("/health", healthHandler.Live)
	router.GET("/ready", healthHandler.Ready)

	baseHandler := handlers.NewBaseHandler()
	consumptionHandler := handlers.NewConsumptionHandler(baseHandler, cfg.Consumption, cfg.History)

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))
		if cfg.Idempotency != nil {
			protected.Use(middleware.Idempotency(cfg.Idempotency))
		}
		registerCatalogRoutes(protected, cfg, baseHandler)
		registerConsumptionRoutes(protected, consumptionHandler)

		kiosk := v1.Group("/kiosk")
		if cfg.KioskLimiter != nil {
			kiosk.Use(middleware.RateLimit(cfg.KioskLimiter, "kiosk"))
		}
		kiosk.Use(middleware.OptionalAuth(cfg.JWTValidator))
		if cfg.Idempotency != nil {
			kiosk.Use(middleware.Idempotency(cfg.Idempotency))
		}
		registerKioskRoutes(kiosk, cfg, baseHandler, consumptionHandler)

		admin := v1.Group("/admin")
		admin.Use(middleware.Auth(cfg.JWTValidator))
		admin.Use(middleware.RequireRole(appctx.RoleSuperAdmin))
		adminHandler := handlers.NewAdminHandler(baseHandler, cfg.Gaps)
		admin.GET("/reconciliation-gaps", adminHandler.ListGaps)
	}

	return router
}

// registerCatalogRoutes registers tank and machine endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, cfg RouterConfig, baseHandler *handlers.BaseHandler) {
	catalogs := rg.Group("/catalog")

	// --- TANKS ---
	{
		handler := handlers.NewTankHandler(baseHandler, cfg.Tanks, cfg.Machines)
		group := catalogs.Group("/tanks")
		RegisterCatalogRoutes(group, handler)
		group.GET("/:identifier/machines", handler.Machines)
	}

	// --- MACHINES ---
	{
		handler := handlers.NewMachineHandler(baseHandler, cfg.Machines)
		RegisterCatalogRoutes(catalogs.Group("/machines"), handler)
	}
}

// registerConsumptionRoutes registers consumption record endpoints.
func registerConsumptionRoutes(rg *gin.RouterGroup, handler *handlers.ConsumptionHandler) {
	group := rg.Group("/consumption-records")
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", handler.Update)
	group.DELETE("/:id", handler.Delete)
	group.GET("/:id/history", handler.History)
}

// registerKioskRoutes registers the public kiosk endpoints.
func registerKioskRoutes(rg *gin.RouterGroup, cfg RouterConfig, baseHandler *handlers.BaseHandler, records *handlers.ConsumptionHandler) {
	handler := handlers.NewKioskHandler(baseHandler, cfg.Tanks, cfg.Machines)
	rg.GET("/tanks/:identifier", handler.Tank)
	rg.GET("/machines/:identifier/tank", handler.MachineTank)
	rg.POST("/consumption-records", records.Create)
}

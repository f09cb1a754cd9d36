package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hrms/backend/internal/application/billing"
	identityapp "github.com/hrms/backend/internal/application/identity"
	"github.com/hrms/backend/internal/infrastructure/auth"
	"github.com/hrms/backend/internal/infrastructure/cache"
	"github.com/hrms/backend/internal/infrastructure/config"
	"github.com/hrms/backend/internal/infrastructure/logger"
	"github.com/hrms/backend/internal/infrastructure/metrics"
	"github.com/hrms/backend/internal/infrastructure/persistence"
	"github.com/hrms/backend/internal/infrastructure/scheduler"
	"github.com/hrms/backend/internal/interfaces/http/handler"
	"github.com/hrms/backend/internal/interfaces/http/middleware"
	"github.com/hrms/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting HRMS Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Credit check cache: Redis when reachable, in-process memory otherwise.
	// The cache only dedupes request-path checks, so a single-instance
	// deployment loses nothing by running without Redis.
	var checkCache billing.CheckCache
	redisCache, err := cache.NewRedisCheckCache(cfg.Redis, cfg.Credit.CheckCacheTTL)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory credit check cache",
			zap.String("addr", cfg.Redis.Addr()),
			zap.Error(err))
		checkCache = cache.NewMemoryCheckCache(cfg.Credit.CheckCacheTTL)
	} else {
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		checkCache = redisCache
		log.Info("Redis credit check cache connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Initialize repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	// Metrics collector
	collector := metrics.NewCollector()

	// Application services
	creditService := billing.NewCreditService(tenantRepo, checkCache, collector, log,
		billing.CreditServiceConfig{
			ReferenceTimezone:  cfg.Credit.ReferenceTimezone,
			LowCreditThreshold: cfg.Credit.LowCreditThreshold,
		})

	jwtService := auth.NewJWTService(cfg.JWT)

	authConfig := identityapp.DefaultAuthServiceConfig()
	authConfig.LowCreditThreshold = cfg.Credit.LowCreditThreshold
	authService := identityapp.NewAuthService(userRepo, tenantRepo, creditService, jwtService, authConfig, log)
	tenantService := identityapp.NewTenantService(tenantRepo, userRepo, log)

	// Start the deduction scheduler. It sweeps once at startup, then hourly,
	// plus once inside the after-midnight window of the reference timezone.
	creditScheduler := scheduler.NewCreditScheduler(creditService, log, scheduler.CreditSchedulerConfig{
		Enabled:           cfg.Credit.SchedulerEnabled,
		ReferenceTimezone: cfg.Credit.ReferenceTimezone,
		PollInterval:      cfg.Credit.PollInterval,
		HourlyInterval:    cfg.Credit.HourlyInterval,
		MidnightWindow:    cfg.Credit.MidnightWindow,
	})
	if err := creditScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start credit scheduler", zap.Error(err))
	}
	defer func() {
		if err := creditScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping credit scheduler", zap.Error(err))
		}
	}()

	// HTTP handlers
	authHandler := handler.NewAuthHandler(authService, log)
	tenantHandler := handler.NewTenantHandler(tenantService, creditService, log)
	systemHandler := handler.NewSystemHandler(cfg)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	// Health check endpoint (outside API versioning) with a database probe
	engine.GET("/health", healthHandler(db))

	router.Setup(engine, router.Dependencies{
		AuthHandler:        authHandler,
		TenantHandler:      tenantHandler,
		SystemHandler:      systemHandler,
		JWTService:         jwtService,
		CreditService:      creditService,
		Metrics:            collector,
		LowCreditThreshold: cfg.Credit.LowCreditThreshold,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
			AllowMethods:     cfg.HTTP.CORSAllowMethods,
			AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		},
		Logger: log,
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}

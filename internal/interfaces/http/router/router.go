package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hrms/backend/internal/application/billing"
	"github.com/hrms/backend/internal/infrastructure/auth"
	"github.com/hrms/backend/internal/infrastructure/metrics"
	"github.com/hrms/backend/internal/interfaces/http/handler"
	"github.com/hrms/backend/internal/interfaces/http/middleware"
)

// Dependencies holds everything the router needs to wire routes
type Dependencies struct {
	AuthHandler   *handler.AuthHandler
	TenantHandler *handler.TenantHandler
	SystemHandler *handler.SystemHandler

	JWTService    *auth.JWTService
	CreditService *billing.CreditService
	Metrics       *metrics.Collector

	LowCreditThreshold int
	CORSConfig         middleware.CORSConfig
	Logger             *zap.Logger
}

// Setup wires all middleware and routes onto the engine
func Setup(engine *gin.Engine, deps Dependencies) {
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORSWithConfig(deps.CORSConfig))
	if deps.Metrics != nil {
		engine.Use(deps.Metrics.GinMiddleware())
		engine.GET("/metrics", deps.Metrics.Handler())
	}

	api := engine.Group("/api/v1")

	// Public surface
	api.GET("/health", deps.SystemHandler.Health)
	api.GET("/system/web-config", deps.SystemHandler.WebConfig)
	api.POST("/auth/login", loginMetrics(deps.Metrics), deps.AuthHandler.Login)
	api.POST("/auth/refresh", deps.AuthHandler.Refresh)

	// Authenticated surface. The credit check rides on every request so
	// deductions happen even when the scheduler is asleep.
	authed := api.Group("")
	authed.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: deps.JWTService,
		Logger:     deps.Logger,
	}))
	authed.Use(middleware.CreditCheck(deps.CreditService, deps.Logger))
	authed.Use(middleware.LowCreditWarning(deps.LowCreditThreshold, deps.Logger))

	authed.POST("/auth/logout", deps.AuthHandler.Logout)
	authed.GET("/auth/me", deps.AuthHandler.Me)

	tenants := authed.Group("/tenants")
	tenants.POST("", deps.TenantHandler.Create)
	tenants.GET("", deps.TenantHandler.List)
	tenants.GET("/code/:code", deps.TenantHandler.GetByCode)
	tenants.GET("/:id", deps.TenantHandler.Get)
	tenants.POST("/:id/suspend", deps.TenantHandler.Suspend)
	tenants.GET("/:id/credits", deps.TenantHandler.CreditStatus)
	tenants.POST("/:id/credits/grant", deps.TenantHandler.GrantCredits)
	tenants.POST("/:id/credits/deduct", deps.TenantHandler.DeductCredit)

	authed.GET("/credits/status", deps.TenantHandler.CreditStatusAll)
}

// loginMetrics classifies the login response after the handler runs
func loginMetrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if collector == nil {
			return
		}
		switch c.Writer.Status() {
		case http.StatusOK:
			collector.RecordLogin("success")
		case http.StatusForbidden:
			collector.RecordLogin("no_credits")
		default:
			collector.RecordLogin("failed")
		}
	}
}

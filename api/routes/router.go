package routes

import (
	"context"
	"net/http"

	"vulx/internal/handlers"
	"vulx/internal/metrics"
	"vulx/internal/services"
	"vulx/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Dependencies carries everything the router hands to its handlers.
type Dependencies struct {
	Scans        services.ScanServiceMethods
	Projects     services.ProjectServiceMethods
	Remediation  services.RemediationServiceMethods
	Integrations services.IntegrationServiceMethods
	Analytics    services.AnalyticsServiceMethods
	Auth         services.AuthServiceMethods
	Notifier     handlers.TestNotifier
	Metrics      *metrics.Metrics
	Logger       *logger.Logger
	// HealthCheck reports backing store reachability. Nil means always healthy.
	HealthCheck func(ctx context.Context) error
}

func InitRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestID(), handlers.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	router.GET("/healthz", healthz(deps))

	// REST APIs
	api := router.Group("/api/v1")
	api.Use(handlers.APIKeyAuth(deps.Auth, deps.Logger))
	{
		InitProjectRoutes(api, deps)
		InitScanRoutes(api, deps)
		InitFindingRoutes(api, deps)
		InitIntegrationRoutes(api, deps)
		InitSnapshotRoutes(api, deps)
	}

	return router
}

func healthz(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.Request.Context()); err != nil {
				deps.Logger.WithContext(c.Request.Context()).WithError(err).Warn("Health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

package routes

import (
	"vulx/internal/handlers"

	"github.com/gin-gonic/gin"
)

func InitIntegrationRoutes(router *gin.RouterGroup, deps Dependencies) {
	h := handlers.NewIntegrationHandler(deps.Integrations, deps.Notifier, deps.Logger)

	integrationRoutes := router.Group("/integrations")
	{
		integrationRoutes.POST("", h.CreateIntegration)
		integrationRoutes.GET("", h.ListIntegrations)
		integrationRoutes.DELETE("/:id", h.DeleteIntegration)
		integrationRoutes.POST("/:id/test", h.TestIntegration)
	}
}

package routes

import (
	"vulx/internal/handlers"

	"github.com/gin-gonic/gin"
)

func InitScanRoutes(router *gin.RouterGroup, deps Dependencies) {
	h := handlers.NewScanHandler(deps.Scans, deps.Logger)

	projectScans := router.Group("/projects/:id/scans")
	{
		projectScans.POST("", h.CreateScan)
		projectScans.GET("", h.ListScans)
		projectScans.GET("/:scanId", h.GetProjectScan)
	}

	router.GET("/scans/:scanId/findings", h.ListFindings)
	router.GET("/remediation/compare", h.CompareScans)
}

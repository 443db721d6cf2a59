package routes

import (
	"vulx/internal/handlers"

	"github.com/gin-gonic/gin"
)

func InitFindingRoutes(router *gin.RouterGroup, deps Dependencies) {
	h := handlers.NewFindingHandler(deps.Remediation, deps.Logger)

	findingRoutes := router.Group("/findings/:id")
	{
		findingRoutes.PATCH("/status", h.UpdateStatus)
		findingRoutes.PATCH("/assignee", h.UpdateAssignee)
		findingRoutes.GET("/history", h.ListHistory)
	}
}

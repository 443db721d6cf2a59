package routes

import (
	"vulx/internal/handlers"

	"github.com/gin-gonic/gin"
)

func InitProjectRoutes(router *gin.RouterGroup, deps Dependencies) {
	h := handlers.NewProjectHandler(deps.Projects, deps.Logger)

	projectRoutes := router.Group("/projects")
	{
		projectRoutes.POST("", h.CreateProject)
		projectRoutes.GET("", h.ListProjects)
		projectRoutes.GET("/:id", h.GetProject)
		projectRoutes.PATCH("/:id", h.UpdateProject)
		projectRoutes.DELETE("/:id", h.DeleteProject)
	}
}

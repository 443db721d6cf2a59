package routes

import (
	"vulx/internal/handlers"

	"github.com/gin-gonic/gin"
)

func InitSnapshotRoutes(router *gin.RouterGroup, deps Dependencies) {
	h := handlers.NewSnapshotHandler(deps.Analytics, deps.Logger)
	router.GET("/snapshots", h.ListSnapshots)
}

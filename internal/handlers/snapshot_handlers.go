package handlers

import (
	"net/http"
	"strconv"

	"vulx/internal/services"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"

	"github.com/gin-gonic/gin"
)

type SnapshotHandler struct {
	analyticsService services.AnalyticsServiceMethods
	logger           *logger.Logger
}

func NewSnapshotHandler(analyticsService services.AnalyticsServiceMethods, log *logger.Logger) *SnapshotHandler {
	return &SnapshotHandler{analyticsService: analyticsService, logger: log}
}

func (h *SnapshotHandler) ListSnapshots(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, h.logger, vxerrors.NewValidationError("days", "must be a positive integer"))
			return
		}
		days = n
	}

	var projectID *string
	if raw := c.Query("projectId"); raw != "" {
		if err := checkProjectScope(c, raw); err != nil {
			respondError(c, h.logger, err)
			return
		}
		projectID = &raw
	}

	snaps, err := h.analyticsService.ListSnapshots(c.Request.Context(), organizationID(c), projectID, days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, snaps)
}

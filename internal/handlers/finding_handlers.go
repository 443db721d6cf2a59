package handlers

import (
	"net/http"

	"vulx/internal/services"
	"vulx/pkg/logger"

	"github.com/gin-gonic/gin"
)

type FindingHandler struct {
	remediationService services.RemediationServiceMethods
	logger             *logger.Logger
}

func NewFindingHandler(remediationService services.RemediationServiceMethods, log *logger.Logger) *FindingHandler {
	return &FindingHandler{remediationService: remediationService, logger: log}
}

// checkFindingScope resolves the finding's project only for project-scoped keys.
func (h *FindingHandler) checkFindingScope(c *gin.Context) error {
	key := apiKey(c)
	if key == nil || key.ProjectID == nil {
		return nil
	}
	projectID, err := h.remediationService.FindingProjectID(c.Request.Context(), c.Param("id"), organizationID(c))
	if err != nil {
		return err
	}
	return checkProjectScope(c, projectID)
}

func (h *FindingHandler) UpdateStatus(c *gin.Context) {
	if err := h.checkFindingScope(c); err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req FindingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	finding, err := h.remediationService.UpdateFindingStatus(c.Request.Context(), c.Param("id"), organizationID(c), actorID(c), req.Status, req.Note)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, finding)
}

func (h *FindingHandler) UpdateAssignee(c *gin.Context) {
	if err := h.checkFindingScope(c); err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req FindingAssigneeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	finding, err := h.remediationService.AssignFinding(c.Request.Context(), c.Param("id"), organizationID(c), actorID(c), req.AssigneeID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, finding)
}

func (h *FindingHandler) ListHistory(c *gin.Context) {
	if err := h.checkFindingScope(c); err != nil {
		respondError(c, h.logger, err)
		return
	}
	history, err := h.remediationService.ListHistory(c.Request.Context(), c.Param("id"), organizationID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"vulx/internal/services"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TestNotifier sends a synthetic notification through one integration.
type TestNotifier interface {
	SendTestNotification(ctx context.Context, integrationID, orgID string) error
}

type IntegrationHandler struct {
	integrationService services.IntegrationServiceMethods
	notifier           TestNotifier
	logger             *logger.Logger
}

func NewIntegrationHandler(integrationService services.IntegrationServiceMethods, notifier TestNotifier, log *logger.Logger) *IntegrationHandler {
	return &IntegrationHandler{integrationService: integrationService, notifier: notifier, logger: log}
}

func (h *IntegrationHandler) CreateIntegration(c *gin.Context) {
	var req services.IntegrationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	cfg, err := h.integrationService.CreateIntegration(c.Request.Context(), organizationID(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (h *IntegrationHandler) ListIntegrations(c *gin.Context) {
	list, err := h.integrationService.ListIntegrations(c.Request.Context(), organizationID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *IntegrationHandler) DeleteIntegration(c *gin.Context) {
	if err := h.integrationService.DeleteIntegration(c.Request.Context(), c.Param("id"), organizationID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TestIntegration reports upstream failures as {success:false} rather than
// an error status, so the UI can show the provider's complaint.
func (h *IntegrationHandler) TestIntegration(c *gin.Context) {
	err := h.notifier.SendTestNotification(c.Request.Context(), c.Param("id"), organizationID(c))
	var upstream *vxerrors.UpstreamError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, TestNotificationResponse{Success: true})
	case errors.As(err, &upstream):
		h.logger.WithContext(c.Request.Context()).WithError(err).Warn("Test notification failed")
		c.JSON(http.StatusOK, TestNotificationResponse{Success: false, Error: err.Error()})
	default:
		respondError(c, h.logger, err)
	}
}

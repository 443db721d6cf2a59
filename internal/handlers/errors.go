package handlers

import (
	"context"
	"errors"
	"net/http"

	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var ve *vxerrors.ValidationError
	var ue *vxerrors.UpstreamError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, vxerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, vxerrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, vxerrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, vxerrors.ErrInvalidSpec):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vxerrors.ErrUnsupportedIntegrationType):
		return http.StatusBadRequest
	case errors.Is(err, vxerrors.ErrInvalidTransition), errors.Is(err, vxerrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, vxerrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &ue):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, log *logger.Logger, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var ve *vxerrors.ValidationError
	if errors.As(err, &ve) {
		resp.Error = "validation failed"
		resp.Fields = ve.Fields
	}

	entry := log.WithContext(c.Request.Context()).WithFields(map[string]interface{}{
		"status": status,
		"path":   c.FullPath(),
		"error":  err.Error(),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
		if status == http.StatusInternalServerError {
			resp.Error = "internal server error"
		}
	} else {
		entry.Debug("Request rejected")
	}
	c.AbortWithStatusJSON(status, resp)
}

func badPayload(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload"})
}

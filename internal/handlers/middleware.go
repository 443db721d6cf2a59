package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"vulx/internal/models"
	"vulx/internal/services"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxOrganizationID = "organizationId"
	ctxAPIKey         = "apiKey"
	headerRequestID   = "X-Request-ID"
)

// RequestID tags every request with an id, reusing the caller's if present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RequestIDKey, id))
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithContext(c.Request.Context()).WithFields(map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("HTTP request")
	}
}

// APIKeyAuth resolves the bearer API key to its organization.
func APIKeyAuth(auth services.AuthServiceMethods, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer API key"})
			return
		}

		key, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.Set(ctxOrganizationID, key.OrganizationID)
		c.Set(ctxAPIKey, key)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.OrganizationIDKey, key.OrganizationID))
		c.Next()
	}
}

func organizationID(c *gin.Context) string {
	return c.GetString(ctxOrganizationID)
}

func apiKey(c *gin.Context) *models.APIKey {
	if v, ok := c.Get(ctxAPIKey); ok {
		if key, ok := v.(*models.APIKey); ok {
			return key
		}
	}
	return nil
}

// actorID identifies who made a change for the history trail.
func actorID(c *gin.Context) string {
	if key := apiKey(c); key != nil {
		return "apikey:" + key.ID
	}
	return ""
}

// checkProjectScope rejects project-scoped keys used against another project.
func checkProjectScope(c *gin.Context, projectID string) error {
	key := apiKey(c)
	if key == nil || key.ProjectID == nil || *key.ProjectID == projectID {
		return nil
	}
	return vxerrors.ErrForbidden
}

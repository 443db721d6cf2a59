package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"vulx/internal/services"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ScanHandler struct {
	scanService services.ScanServiceMethods
	logger      *logger.Logger
}

func NewScanHandler(scanService services.ScanServiceMethods, log *logger.Logger) *ScanHandler {
	return &ScanHandler{scanService: scanService, logger: log}
}

func (h *ScanHandler) CreateScan(c *gin.Context) {
	projectID := c.Param("id")
	if err := checkProjectScope(c, projectID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req ScanRequest
	// an empty body means all defaults
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badPayload(c)
		return
	}

	scan, err := h.scanService.CreateScan(c.Request.Context(), services.CreateScanRequest{
		ProjectID:      projectID,
		OrganizationID: organizationID(c),
		Environment:    req.Environment,
		ScanType:       req.ScanType,
		AuthMethod:     req.AuthMethod,
		Trigger:        services.TriggerManual,
	})
	if err != nil {
		var upstream *vxerrors.UpstreamError
		if scan != nil && errors.As(err, &upstream) {
			h.logger.WithScan(scan.ID, projectID).WithError(err).Error("Scan could not be queued")
			c.JSON(http.StatusBadGateway, ScanFailedResponse{Error: err.Error(), Scan: scan})
			return
		}
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, scan)
}

func (h *ScanHandler) ListScans(c *gin.Context) {
	projectID := c.Param("id")
	if err := checkProjectScope(c, projectID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, h.logger, vxerrors.NewValidationError("limit", "must be a positive integer"))
			return
		}
		limit = n
	}

	scans, err := h.scanService.ListScans(c.Request.Context(), projectID, organizationID(c), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, scans)
}

func (h *ScanHandler) GetProjectScan(c *gin.Context) {
	projectID := c.Param("id")
	if err := checkProjectScope(c, projectID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	scan, err := h.scanService.GetProjectScan(c.Request.Context(), projectID, c.Param("scanId"), organizationID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, scan)
}

// checkScanScope loads the scan only for project-scoped keys.
func (h *ScanHandler) checkScanScope(c *gin.Context, scanID string) error {
	key := apiKey(c)
	if key == nil || key.ProjectID == nil || scanID == "" {
		return nil
	}
	scan, err := h.scanService.GetScan(c.Request.Context(), scanID, organizationID(c))
	if err != nil {
		return err
	}
	return checkProjectScope(c, scan.ProjectID)
}

func (h *ScanHandler) ListFindings(c *gin.Context) {
	if err := h.checkScanScope(c, c.Param("scanId")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	findings, err := h.scanService.ListFindings(c.Request.Context(), c.Param("scanId"), organizationID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, findings)
}

func (h *ScanHandler) CompareScans(c *gin.Context) {
	scan1, scan2 := c.Query("scan1"), c.Query("scan2")
	for _, id := range []string{scan1, scan2} {
		if err := h.checkScanScope(c, id); err != nil {
			respondError(c, h.logger, err)
			return
		}
	}
	diff, err := h.scanService.CompareScans(c.Request.Context(), scan1, scan2, organizationID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, diff)
}

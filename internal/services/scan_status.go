package services

import (
	"context"

	"vulx/internal/dao"
	"vulx/internal/models"
	"vulx/pkg/logger"
)

// ScanStatusManager applies forward-only status changes and logs them.
type ScanStatusManager struct {
	scanDao dao.ScanDAO
	logger  *logger.Logger
}

func NewScanStatusManager(scanDao dao.ScanDAO, logger *logger.Logger) *ScanStatusManager {
	return &ScanStatusManager{
		scanDao: scanDao,
		logger:  logger,
	}
}

// MarkFailedWithReason moves a scan to FAILED. Failures to persist are
// logged, not returned: callers are already on an error path.
func (m *ScanStatusManager) MarkFailedWithReason(ctx context.Context, scanID string, reason string) {
	if err := m.scanDao.UpdateStatus(ctx, scanID, models.ScanFailed, reason); err != nil {
		m.logger.WithFields(logger.Fields{"error": err, "scan_id": scanID}).Error("Failed to persist failed scan status")
		return
	}

	m.logger.WithFields(logger.Fields{
		"scan_id": scanID,
		"reason":  reason,
	}).Warn("Scan marked as failed")
}


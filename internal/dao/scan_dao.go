package dao

import (
	"context"
	"fmt"
	"time"

	"vulx/internal/models"
	vxerrors "vulx/pkg/errors"

	"gorm.io/gorm"
)

type ScanDAO interface {
	SaveScan(ctx context.Context, scan *models.Scan) error
	GetScanByID(ctx context.Context, id string) (*models.Scan, error)
	GetScanWithProject(ctx context.Context, id string) (*models.Scan, error)
	ListScansByProject(ctx context.Context, projectID string, limit int) ([]models.Scan, error)
	UpdateStatus(ctx context.Context, id string, to models.ScanStatus, reason string) error
	ListUnnotified(ctx context.Context, limit int) ([]models.Scan, error)
	ClaimNotification(ctx context.Context, id string, now time.Time, staleBefore time.Time) (bool, error)
	ReleaseNotificationClaim(ctx context.Context, id string) error
	MarkNotificationSent(ctx context.Context, id string) (bool, error)
	LatestCompletedScan(ctx context.Context, projectID string) (*models.Scan, error)
}

type scanDAO struct {
	db *gorm.DB
}

func NewScanDAO(db *gorm.DB) ScanDAO {
	return &scanDAO{db: db}
}

func (dao *scanDAO) SaveScan(ctx context.Context, scan *models.Scan) error {
	return dao.db.WithContext(ctx).Create(scan).Error
}

func (dao *scanDAO) GetScanByID(ctx context.Context, id string) (*models.Scan, error) {
	var scan models.Scan
	if err := dao.db.WithContext(ctx).Where("id = ?", id).First(&scan).Error; err != nil {
		return nil, translate(err)
	}
	return &scan, nil
}

func (dao *scanDAO) GetScanWithProject(ctx context.Context, id string) (*models.Scan, error) {
	var scan models.Scan
	if err := dao.db.WithContext(ctx).Preload("Project").Where("id = ?", id).First(&scan).Error; err != nil {
		return nil, translate(err)
	}
	return &scan, nil
}

func (dao *scanDAO) ListScansByProject(ctx context.Context, projectID string, limit int) ([]models.Scan, error) {
	var scans []models.Scan
	if err := dao.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at desc").
		Limit(clampLimit(limit)).
		Find(&scans).Error; err != nil {
		return nil, err
	}
	return scans, nil
}

// UpdateStatus moves a scan forward. The UPDATE is conditional on the
// current status being a legal predecessor, so concurrent writers cannot
// move a scan backward.
func (dao *scanDAO) UpdateStatus(ctx context.Context, id string, to models.ScanStatus, reason string) error {
	from := to.Predecessors()
	if len(from) == 0 {
		return fmt.Errorf("%w: nothing transitions to %s", vxerrors.ErrInvalidTransition, to)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.ScanProcessing:
		updates["started_at"] = now
	case models.ScanCompleted, models.ScanFailed:
		updates["completed_at"] = now
	}
	if reason != "" {
		updates["error_message"] = reason
	}

	res := dao.db.WithContext(ctx).Model(&models.Scan{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	current, err := dao.GetScanByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", vxerrors.ErrInvalidTransition, current.Status, to)
}

func (dao *scanDAO) ListUnnotified(ctx context.Context, limit int) ([]models.Scan, error) {
	var scans []models.Scan
	q := dao.db.WithContext(ctx).
		Where("status = ? AND notification_sent = ?", models.ScanCompleted, false).
		Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&scans).Error; err != nil {
		return nil, err
	}
	return scans, nil
}

// ClaimNotification marks the scan as being notified. It succeeds only if no
// live claim exists; a claim older than staleBefore is assumed abandoned by a
// crashed dispatcher and may be taken over.
func (dao *scanDAO) ClaimNotification(ctx context.Context, id string, now time.Time, staleBefore time.Time) (bool, error) {
	res := dao.db.WithContext(ctx).Model(&models.Scan{}).
		Where("id = ? AND status = ? AND notification_sent = ?", id, models.ScanCompleted, false).
		Where("notifying_at IS NULL OR notifying_at < ?", staleBefore).
		Update("notifying_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (dao *scanDAO) ReleaseNotificationClaim(ctx context.Context, id string) error {
	return dao.db.WithContext(ctx).Model(&models.Scan{}).
		Where("id = ? AND notification_sent = ?", id, false).
		Update("notifying_at", nil).Error
}

// MarkNotificationSent flips notificationSent false→true. It reports false
// when the flag was already set.
func (dao *scanDAO) MarkNotificationSent(ctx context.Context, id string) (bool, error) {
	res := dao.db.WithContext(ctx).Model(&models.Scan{}).
		Where("id = ? AND notification_sent = ?", id, false).
		Updates(map[string]interface{}{"notification_sent": true, "notifying_at": nil})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (dao *scanDAO) LatestCompletedScan(ctx context.Context, projectID string) (*models.Scan, error) {
	var scan models.Scan
	if err := dao.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, models.ScanCompleted).
		Order("created_at desc").
		First(&scan).Error; err != nil {
		return nil, translate(err)
	}
	return &scan, nil
}

package dao

import (
	"context"
	"errors"

	"vulx/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleFinding means a guarded update found the finding already changed
// by another writer.
var ErrStaleFinding = errors.New("finding changed concurrently")

type FindingDAO interface {
	ListFindingsByScan(ctx context.Context, scanID string) ([]models.Finding, error)
	GetFindingByID(ctx context.Context, id string) (*models.Finding, error)
	UpdateWithHistory(ctx context.Context, findingID string, guard, updates map[string]interface{}, history *models.FindingHistory) error
	ListHistory(ctx context.Context, findingID string) ([]models.FindingHistory, error)
	ListFindingsByScans(ctx context.Context, scanIDs []string) ([]models.Finding, error)
}

type findingDAO struct {
	db *gorm.DB
}

func NewFindingDAO(db *gorm.DB) FindingDAO {
	return &findingDAO{db: db}
}

// ListFindingsByScan returns findings CRITICAL first, oldest first within a
// severity.
func (dao *findingDAO) ListFindingsByScan(ctx context.Context, scanID string) ([]models.Finding, error) {
	var findings []models.Finding
	if err := dao.db.WithContext(ctx).
		Where("scan_id = ?", scanID).
		Order(severityOrder).
		Order("created_at asc").
		Find(&findings).Error; err != nil {
		return nil, err
	}
	return findings, nil
}

func (dao *findingDAO) ListFindingsByScans(ctx context.Context, scanIDs []string) ([]models.Finding, error) {
	if len(scanIDs) == 0 {
		return nil, nil
	}
	var findings []models.Finding
	if err := dao.db.WithContext(ctx).
		Where("scan_id IN ?", scanIDs).
		Order(severityOrder).
		Order("created_at asc").
		Find(&findings).Error; err != nil {
		return nil, err
	}
	return findings, nil
}

func (dao *findingDAO) GetFindingByID(ctx context.Context, id string) (*models.Finding, error) {
	var finding models.Finding
	if err := dao.db.WithContext(ctx).Where("id = ?", id).First(&finding).Error; err != nil {
		return nil, translate(err)
	}
	return &finding, nil
}

// UpdateWithHistory applies updates and appends the history row in one
// transaction. The UPDATE only matches while every guard column still holds
// the value the caller read (nil meaning NULL); otherwise nothing is written
// and ErrStaleFinding is returned.
func (dao *findingDAO) UpdateWithHistory(ctx context.Context, findingID string, guard, updates map[string]interface{}, history *models.FindingHistory) error {
	return dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Finding{}).Where("id = ?", findingID)
		for column, want := range guard {
			q = q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: want})
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.Finding{}).Where("id = ?", findingID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return translate(gorm.ErrRecordNotFound)
			}
			return ErrStaleFinding
		}
		history.FindingID = findingID
		return tx.Create(history).Error
	})
}

func (dao *findingDAO) ListHistory(ctx context.Context, findingID string) ([]models.FindingHistory, error) {
	var history []models.FindingHistory
	if err := dao.db.WithContext(ctx).
		Where("finding_id = ?", findingID).
		Order("created_at asc").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

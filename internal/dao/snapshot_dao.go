package dao

import (
	"context"

	"vulx/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SnapshotDAO interface {
	UpsertSnapshot(ctx context.Context, snap *models.SecuritySnapshot) error
	ListSnapshots(ctx context.Context, orgID string, projectID *string, sinceDay string) ([]models.SecuritySnapshot, error)
}

type snapshotDAO struct {
	db *gorm.DB
}

func NewSnapshotDAO(db *gorm.DB) SnapshotDAO {
	return &snapshotDAO{db: db}
}

// UpsertSnapshot writes the row for (organization, scope, day), replacing
// the counters if the day was already captured.
func (dao *snapshotDAO) UpsertSnapshot(ctx context.Context, snap *models.SecuritySnapshot) error {
	return dao.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "organization_id"}, {Name: "scope"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"critical", "high", "medium", "low", "info",
			"open", "in_progress", "accepted", "fixed", "false_positive",
			"risk_score", "mttr_hours", "updated_at",
		}),
	}).Create(snap).Error
}

func (dao *snapshotDAO) ListSnapshots(ctx context.Context, orgID string, projectID *string, sinceDay string) ([]models.SecuritySnapshot, error) {
	q := dao.db.WithContext(ctx).Where("organization_id = ?", orgID)
	if projectID != nil {
		q = q.Where("scope = ?", *projectID)
	} else {
		q = q.Where("scope = ?", models.SnapshotScopeOrganization)
	}
	if sinceDay != "" {
		q = q.Where("day >= ?", sinceDay)
	}

	var snaps []models.SecuritySnapshot
	if err := q.Order("day asc").Find(&snaps).Error; err != nil {
		return nil, err
	}
	return snaps, nil
}

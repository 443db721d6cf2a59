package dao

import (
	"context"
	"time"

	"vulx/internal/models"

	"gorm.io/gorm"
)

type ProjectDAO interface {
	SaveProject(ctx context.Context, project *models.Project) error
	GetProjectByID(ctx context.Context, id string) (*models.Project, error)
	ListProjectsByOrg(ctx context.Context, orgID string) ([]models.Project, error)
	UpdateProject(ctx context.Context, id string, updates map[string]interface{}) error
	ListDueProjects(ctx context.Context, now time.Time) ([]models.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

type projectDAO struct {
	db *gorm.DB
}

func NewProjectDAO(db *gorm.DB) ProjectDAO {
	return &projectDAO{db: db}
}

func (dao *projectDAO) SaveProject(ctx context.Context, project *models.Project) error {
	return dao.db.WithContext(ctx).Create(project).Error
}

func (dao *projectDAO) GetProjectByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := dao.db.WithContext(ctx).Where("id = ?", id).First(&project).Error; err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

func (dao *projectDAO) ListProjectsByOrg(ctx context.Context, orgID string) ([]models.Project, error) {
	var projects []models.Project
	if err := dao.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at desc").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (dao *projectDAO) UpdateProject(ctx context.Context, id string, updates map[string]interface{}) error {
	res := dao.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

// ListDueProjects returns scheduled projects whose next scan time has passed.
func (dao *projectDAO) ListDueProjects(ctx context.Context, now time.Time) ([]models.Project, error) {
	var projects []models.Project
	if err := dao.db.WithContext(ctx).
		Where("scan_frequency <> ? AND next_scan_at IS NOT NULL AND next_scan_at <= ?", models.FrequencyManual, now).
		Order("next_scan_at asc").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// DeleteProject removes the project with its scans, findings, finding
// history, notification deliveries and API keys in one transaction.
func (dao *projectDAO) DeleteProject(ctx context.Context, id string) error {
	return dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scanIDs := tx.Model(&models.Scan{}).Select("id").Where("project_id = ?", id)
		findingIDs := tx.Model(&models.Finding{}).Select("id").Where("scan_id IN (?)", scanIDs)

		if err := tx.Where("finding_id IN (?)", findingIDs).Delete(&models.FindingHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("scan_id IN (?)", scanIDs).Delete(&models.Finding{}).Error; err != nil {
			return err
		}
		if err := tx.Where("scan_id IN (?)", scanIDs).Delete(&models.NotificationDelivery{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Scan{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.APIKey{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.SecuritySnapshot{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Project{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound)
		}
		return nil
	})
}

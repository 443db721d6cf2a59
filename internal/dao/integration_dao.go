package dao

import (
	"context"
	"time"

	"vulx/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IntegrationDAO interface {
	SaveIntegration(ctx context.Context, cfg *models.IntegrationConfig) error
	GetIntegrationByID(ctx context.Context, id string) (*models.IntegrationConfig, error)
	ListIntegrations(ctx context.Context, orgID string) ([]models.IntegrationConfig, error)
	ListActiveIntegrations(ctx context.Context, orgID string) ([]models.IntegrationConfig, error)
	DeleteIntegration(ctx context.Context, id, orgID string) error
	WasDelivered(ctx context.Context, scanID, recipient string) (bool, error)
	RecordDelivery(ctx context.Context, scanID, recipient string) error
}

type integrationDAO struct {
	db *gorm.DB
}

func NewIntegrationDAO(db *gorm.DB) IntegrationDAO {
	return &integrationDAO{db: db}
}

func (dao *integrationDAO) SaveIntegration(ctx context.Context, cfg *models.IntegrationConfig) error {
	return dao.db.WithContext(ctx).Create(cfg).Error
}

func (dao *integrationDAO) GetIntegrationByID(ctx context.Context, id string) (*models.IntegrationConfig, error) {
	var cfg models.IntegrationConfig
	if err := dao.db.WithContext(ctx).Where("id = ?", id).First(&cfg).Error; err != nil {
		return nil, translate(err)
	}
	return &cfg, nil
}

func (dao *integrationDAO) ListIntegrations(ctx context.Context, orgID string) ([]models.IntegrationConfig, error) {
	var cfgs []models.IntegrationConfig
	if err := dao.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at asc").
		Find(&cfgs).Error; err != nil {
		return nil, err
	}
	return cfgs, nil
}

func (dao *integrationDAO) ListActiveIntegrations(ctx context.Context, orgID string) ([]models.IntegrationConfig, error) {
	var cfgs []models.IntegrationConfig
	if err := dao.db.WithContext(ctx).
		Where("organization_id = ? AND active = ?", orgID, true).
		Order("created_at asc").
		Find(&cfgs).Error; err != nil {
		return nil, err
	}
	return cfgs, nil
}

func (dao *integrationDAO) DeleteIntegration(ctx context.Context, id, orgID string) error {
	res := dao.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&models.IntegrationConfig{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (dao *integrationDAO) WasDelivered(ctx context.Context, scanID, recipient string) (bool, error) {
	var count int64
	err := dao.db.WithContext(ctx).Model(&models.NotificationDelivery{}).
		Where("scan_id = ? AND recipient = ?", scanID, recipient).
		Count(&count).Error
	return count > 0, err
}

// RecordDelivery is idempotent on (scan, recipient).
func (dao *integrationDAO) RecordDelivery(ctx context.Context, scanID, recipient string) error {
	return dao.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.NotificationDelivery{
			ScanID:      scanID,
			Recipient:   recipient,
			DeliveredAt: time.Now().UTC(),
		}).Error
}

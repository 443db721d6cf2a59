package dao

import (
	"context"
	"time"

	"vulx/internal/models"

	"gorm.io/gorm"
)

type OrganizationDAO interface {
	CreateOrganization(ctx context.Context, org *models.Organization, owner *models.Member, key *models.APIKey) error
	GetOrganizationByID(ctx context.Context, id string) (*models.Organization, error)
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
	ListMembers(ctx context.Context, orgID string) ([]models.Member, error)
	SaveAPIKey(ctx context.Context, key *models.APIKey) error
	FindAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error)
	TouchAPIKey(ctx context.Context, id string, at time.Time) error
}

type organizationDAO struct {
	db *gorm.DB
}

func NewOrganizationDAO(db *gorm.DB) OrganizationDAO {
	return &organizationDAO{db: db}
}

// CreateOrganization inserts the organization with its first member and,
// optionally, an API key, atomically.
func (dao *organizationDAO) CreateOrganization(ctx context.Context, org *models.Organization, owner *models.Member, key *models.APIKey) error {
	return dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		if owner != nil {
			owner.OrganizationID = org.ID
			if err := tx.Create(owner).Error; err != nil {
				return err
			}
		}
		if key != nil {
			key.OrganizationID = org.ID
			if err := tx.Create(key).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (dao *organizationDAO) GetOrganizationByID(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	if err := dao.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		return nil, translate(err)
	}
	return &org, nil
}

func (dao *organizationDAO) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	var orgs []models.Organization
	if err := dao.db.WithContext(ctx).Order("created_at asc").Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (dao *organizationDAO) ListMembers(ctx context.Context, orgID string) ([]models.Member, error) {
	var members []models.Member
	if err := dao.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at asc").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (dao *organizationDAO) SaveAPIKey(ctx context.Context, key *models.APIKey) error {
	return dao.db.WithContext(ctx).Create(key).Error
}

func (dao *organizationDAO) FindAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var key models.APIKey
	if err := dao.db.WithContext(ctx).Where("key_hash = ?", hash).First(&key).Error; err != nil {
		return nil, translate(err)
	}
	return &key, nil
}

func (dao *organizationDAO) TouchAPIKey(ctx context.Context, id string, at time.Time) error {
	return dao.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"vulx/internal/dao"
	"vulx/internal/models"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"
)

const apiKeyPrefix = "vx_"

type AuthServiceMethods interface {
	Authenticate(ctx context.Context, rawKey string) (*models.APIKey, error)
	CreateOrganization(ctx context.Context, name, ownerEmail string) (*models.Organization, string, error)
	IssueAPIKey(ctx context.Context, orgID string, projectID *string, name string) (string, *models.APIKey, error)
}

type authService struct {
	orgDao dao.OrganizationDAO
	logger *logger.Logger
}

func NewAuthService(orgDao dao.OrganizationDAO, log *logger.Logger) AuthServiceMethods {
	return &authService{orgDao: orgDao, logger: log}
}

// HashAPIKey is the stored form of a raw key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

func newAPIKey(orgID string, projectID *string, name string) (string, *models.APIKey, error) {
	raw, err := generateAPIKey()
	if err != nil {
		return "", nil, fmt.Errorf("generate api key: %w", err)
	}
	return raw, &models.APIKey{
		OrganizationID: orgID,
		ProjectID:      projectID,
		Name:           name,
		Prefix:         raw[:len(apiKeyPrefix)+6],
		KeyHash:        HashAPIKey(raw),
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, rawKey string) (*models.APIKey, error) {
	if !strings.HasPrefix(rawKey, apiKeyPrefix) {
		return nil, vxerrors.ErrUnauthorized
	}
	key, err := s.orgDao.FindAPIKeyByHash(ctx, HashAPIKey(rawKey))
	if errors.Is(err, vxerrors.ErrNotFound) {
		return nil, vxerrors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if err := s.orgDao.TouchAPIKey(ctx, key.ID, time.Now().UTC()); err != nil {
		s.logger.WithFields(logger.Fields{"error": err, "key_id": key.ID}).Warn("Failed to record API key use")
	}
	return key, nil
}

// CreateOrganization bootstraps an organization with its owner and returns
// the first raw API key. The raw key is never stored.
func (s *authService) CreateOrganization(ctx context.Context, name, ownerEmail string) (*models.Organization, string, error) {
	ve := &vxerrors.ValidationError{}
	if strings.TrimSpace(name) == "" {
		ve.Add("name", "is required")
	}
	if !strings.Contains(ownerEmail, "@") {
		ve.Add("email", "must be an email address")
	}
	if len(ve.Fields) > 0 {
		return nil, "", ve
	}

	org := &models.Organization{Name: strings.TrimSpace(name)}
	owner := &models.Member{Email: ownerEmail, Name: ownerEmail}
	raw, key, err := newAPIKey("", nil, "default")
	if err != nil {
		return nil, "", err
	}
	if err := s.orgDao.CreateOrganization(ctx, org, owner, key); err != nil {
		return nil, "", err
	}
	return org, raw, nil
}

func (s *authService) IssueAPIKey(ctx context.Context, orgID string, projectID *string, name string) (string, *models.APIKey, error) {
	raw, key, err := newAPIKey(orgID, projectID, name)
	if err != nil {
		return "", nil, err
	}
	if err := s.orgDao.SaveAPIKey(ctx, key); err != nil {
		return "", nil, err
	}
	return raw, key, nil
}

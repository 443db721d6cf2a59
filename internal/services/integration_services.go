package services

import (
	"context"
	"net/url"
	"strings"

	"vulx/internal/dao"
	"vulx/internal/models"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"
)

type IntegrationInput struct {
	Type       models.IntegrationType `json:"type"`
	Name       string                 `json:"name"`
	WebhookURL string                 `json:"webhookUrl"`
	Events     []string               `json:"events"`
}

type IntegrationServiceMethods interface {
	CreateIntegration(ctx context.Context, orgID string, in IntegrationInput) (*models.IntegrationConfig, error)
	ListIntegrations(ctx context.Context, orgID string) ([]models.IntegrationConfig, error)
	DeleteIntegration(ctx context.Context, id, orgID string) error
}

type integrationService struct {
	integrationDao dao.IntegrationDAO
	logger         *logger.Logger
}

func NewIntegrationService(integrationDao dao.IntegrationDAO, log *logger.Logger) IntegrationServiceMethods {
	return &integrationService{integrationDao: integrationDao, logger: log}
}

// webhookTypes post to a URL; the others are ticket-only.
var webhookTypes = map[models.IntegrationType]bool{
	models.IntegrationSlack:   true,
	models.IntegrationDiscord: true,
	models.IntegrationTeams:   true,
}

func (s *integrationService) CreateIntegration(ctx context.Context, orgID string, in IntegrationInput) (*models.IntegrationConfig, error) {
	in.Type = models.IntegrationType(strings.ToUpper(string(in.Type)))
	ve := &vxerrors.ValidationError{}
	if !in.Type.Valid() {
		ve.Add("type", "must be one of SLACK, DISCORD, TEAMS, JIRA, LINEAR")
	}
	if webhookTypes[in.Type] {
		u, err := url.Parse(in.WebhookURL)
		if in.WebhookURL == "" || err != nil || u.Scheme != "https" && u.Scheme != "http" || u.Host == "" {
			ve.Add("webhookUrl", "must be an absolute http(s) URL")
		}
	}
	if len(in.Events) == 0 {
		in.Events = []string{models.EventScanCompleted}
	}
	for _, e := range in.Events {
		if e != models.EventScanCompleted && e != models.EventCriticalFinding {
			ve.Add("events", "supported events are scan_completed and critical_finding")
			break
		}
	}
	if len(ve.Fields) > 0 {
		return nil, ve
	}

	cfg := &models.IntegrationConfig{
		OrganizationID: orgID,
		Type:           in.Type,
		Name:           in.Name,
		WebhookURL:     in.WebhookURL,
		Active:         true,
	}
	if cfg.Name == "" {
		cfg.Name = strings.ToLower(string(in.Type))
	}
	cfg.SetEvents(in.Events)

	if err := s.integrationDao.SaveIntegration(ctx, cfg); err != nil {
		return nil, err
	}
	s.logger.WithFields(logger.Fields{"integration_id": cfg.ID, "type": cfg.Type}).Info("Integration created")
	return cfg, nil
}

func (s *integrationService) ListIntegrations(ctx context.Context, orgID string) ([]models.IntegrationConfig, error) {
	return s.integrationDao.ListIntegrations(ctx, orgID)
}

func (s *integrationService) DeleteIntegration(ctx context.Context, id, orgID string) error {
	return s.integrationDao.DeleteIntegration(ctx, id, orgID)
}

package handlers

import (
	"context"
	"time"

	"vulx/internal/models"
	"vulx/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

const testOrgID = "org-1"

// withOrg stands in for APIKeyAuth.
func withOrg(orgID string, key *models.APIKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxOrganizationID, orgID)
		if key != nil {
			c.Set(ctxAPIKey, key)
		}
		c.Next()
	}
}

type MockScanService struct {
	mock.Mock
}

func (m *MockScanService) CreateScan(ctx context.Context, req services.CreateScanRequest) (*models.Scan, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Scan), args.Error(1)
}

func (m *MockScanService) GetScan(ctx context.Context, scanID, orgID string) (*models.Scan, error) {
	args := m.Called(ctx, scanID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Scan), args.Error(1)
}

func (m *MockScanService) GetProjectScan(ctx context.Context, projectID, scanID, orgID string) (*models.Scan, error) {
	args := m.Called(ctx, projectID, scanID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Scan), args.Error(1)
}

func (m *MockScanService) ListScans(ctx context.Context, projectID, orgID string, limit int) ([]models.Scan, error) {
	args := m.Called(ctx, projectID, orgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Scan), args.Error(1)
}

func (m *MockScanService) ListFindings(ctx context.Context, scanID, orgID string) ([]models.Finding, error) {
	args := m.Called(ctx, scanID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Finding), args.Error(1)
}

func (m *MockScanService) CompareScans(ctx context.Context, a, b, orgID string) (*services.ScanDiff, error) {
	args := m.Called(ctx, a, b, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ScanDiff), args.Error(1)
}

type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) CreateProject(ctx context.Context, orgID string, in services.ProjectInput) (*models.Project, error) {
	args := m.Called(ctx, orgID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) GetProject(ctx context.Context, id, orgID string) (*models.Project, error) {
	args := m.Called(ctx, id, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) ListProjects(ctx context.Context, orgID string) ([]models.Project, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *MockProjectService) UpdateProject(ctx context.Context, id, orgID string, in services.ProjectInput) (*models.Project, error) {
	args := m.Called(ctx, id, orgID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) DeleteProject(ctx context.Context, id, orgID string) error {
	return m.Called(ctx, id, orgID).Error(0)
}

type MockRemediationService struct {
	mock.Mock
}

func (m *MockRemediationService) UpdateFindingStatus(ctx context.Context, findingID, orgID, actorID string, status models.FindingStatus, note string) (*models.Finding, error) {
	args := m.Called(ctx, findingID, orgID, actorID, status, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Finding), args.Error(1)
}

func (m *MockRemediationService) AssignFinding(ctx context.Context, findingID, orgID, actorID string, assigneeID *string) (*models.Finding, error) {
	args := m.Called(ctx, findingID, orgID, actorID, assigneeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Finding), args.Error(1)
}

func (m *MockRemediationService) ListHistory(ctx context.Context, findingID, orgID string) ([]models.FindingHistory, error) {
	args := m.Called(ctx, findingID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FindingHistory), args.Error(1)
}

func (m *MockRemediationService) FindingProjectID(ctx context.Context, findingID, orgID string) (string, error) {
	args := m.Called(ctx, findingID, orgID)
	return args.String(0), args.Error(1)
}

type MockIntegrationService struct {
	mock.Mock
}

func (m *MockIntegrationService) CreateIntegration(ctx context.Context, orgID string, in services.IntegrationInput) (*models.IntegrationConfig, error) {
	args := m.Called(ctx, orgID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntegrationConfig), args.Error(1)
}

func (m *MockIntegrationService) ListIntegrations(ctx context.Context, orgID string) ([]models.IntegrationConfig, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IntegrationConfig), args.Error(1)
}

func (m *MockIntegrationService) DeleteIntegration(ctx context.Context, id, orgID string) error {
	return m.Called(ctx, id, orgID).Error(0)
}

type MockTestNotifier struct {
	mock.Mock
}

func (m *MockTestNotifier) SendTestNotification(ctx context.Context, integrationID, orgID string) error {
	return m.Called(ctx, integrationID, orgID).Error(0)
}

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) CaptureSnapshots(ctx context.Context, day time.Time) (int, error) {
	args := m.Called(ctx, day)
	return args.Int(0), args.Error(1)
}

func (m *MockAnalyticsService) ListSnapshots(ctx context.Context, orgID string, projectID *string, days int) ([]models.SecuritySnapshot, error) {
	args := m.Called(ctx, orgID, projectID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SecuritySnapshot), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Authenticate(ctx context.Context, rawKey string) (*models.APIKey, error) {
	args := m.Called(ctx, rawKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

func (m *MockAuthService) CreateOrganization(ctx context.Context, name, ownerEmail string) (*models.Organization, string, error) {
	args := m.Called(ctx, name, ownerEmail)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*models.Organization), args.String(1), args.Error(2)
}

func (m *MockAuthService) IssueAPIKey(ctx context.Context, orgID string, projectID *string, name string) (string, *models.APIKey, error) {
	args := m.Called(ctx, orgID, projectID, name)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.APIKey), args.Error(2)
}

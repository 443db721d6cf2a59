package services

import (
	"context"
	"fmt"
	"strings"

	"vulx/internal/dao"
	"vulx/internal/metrics"
	"vulx/internal/models"
	"vulx/internal/queue"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"
)

const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// CreateScanRequest carries the inputs of a scan trigger.
type CreateScanRequest struct {
	ProjectID      string
	OrganizationID string
	Environment    models.Environment
	ScanType       string
	AuthMethod     string
	Trigger        string
}

type ScanServiceMethods interface {
	CreateScan(ctx context.Context, req CreateScanRequest) (*models.Scan, error)
	GetScan(ctx context.Context, scanID, orgID string) (*models.Scan, error)
	GetProjectScan(ctx context.Context, projectID, scanID, orgID string) (*models.Scan, error)
	ListScans(ctx context.Context, projectID, orgID string, limit int) ([]models.Scan, error)
	ListFindings(ctx context.Context, scanID, orgID string) ([]models.Finding, error)
	CompareScans(ctx context.Context, scanIDA, scanIDB, orgID string) (*ScanDiff, error)
}

type scanService struct {
	scanDao       dao.ScanDAO
	projectDao    dao.ProjectDAO
	findingDao    dao.FindingDAO
	queue         queue.JobQueue
	fetcher       SpecFetcher
	statusManager *ScanStatusManager
	metrics       *metrics.Metrics
	logger        *logger.Logger
}

func NewScanService(
	scanDao dao.ScanDAO,
	projectDao dao.ProjectDAO,
	findingDao dao.FindingDAO,
	jobQueue queue.JobQueue,
	fetcher SpecFetcher,
	m *metrics.Metrics,
	log *logger.Logger,
) ScanServiceMethods {
	return &scanService{
		scanDao:       scanDao,
		projectDao:    projectDao,
		findingDao:    findingDao,
		queue:         jobQueue,
		fetcher:       fetcher,
		statusManager: NewScanStatusManager(scanDao, log),
		metrics:       m,
		logger:        log,
	}
}

// CreateScan inserts a PENDING scan and pushes it to the job queue. If the
// push fails the scan is moved to FAILED so it never lingers as PENDING.
func (s *scanService) CreateScan(ctx context.Context, req CreateScanRequest) (*models.Scan, error) {
	if req.Environment == "" {
		req.Environment = models.EnvironmentSandbox
	}
	if !req.Environment.Valid() {
		return nil, vxerrors.NewValidationError("environment", "must be SANDBOX or PRODUCTION")
	}
	if req.ScanType == "" {
		req.ScanType = models.DefaultScanType
	}
	if req.AuthMethod == "" {
		req.AuthMethod = models.DefaultAuthMethod
	}
	if req.Trigger == "" {
		req.Trigger = TriggerManual
	}

	project, err := s.projectDao.GetProjectByID(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.OrganizationID != req.OrganizationID {
		return nil, vxerrors.ErrNotFound
	}

	spec, err := s.resolveSpec(ctx, project)
	if err != nil {
		return nil, err
	}

	scan := &models.Scan{
		ProjectID:   project.ID,
		Status:      models.ScanPending,
		Environment: req.Environment,
		ScanType:    req.ScanType,
		AuthMethod:  req.AuthMethod,
	}
	if err := s.scanDao.SaveScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("save scan: %w", err)
	}

	if err := s.queue.Enqueue(ctx, scan.ID, spec); err != nil {
		reason := fmt.Sprintf("failed to enqueue scan: %v", err)
		// The request context may already be gone; the compensation must still land.
		s.statusManager.MarkFailedWithReason(context.WithoutCancel(ctx), scan.ID, reason)
		s.metrics.EnqueueFailures.Inc()
		scan.Status = models.ScanFailed
		scan.ErrorMessage = reason
		return scan, vxerrors.NewUpstreamError("job queue", 0, err)
	}

	s.metrics.ScansCreated.WithLabelValues(req.Trigger).Inc()
	s.logger.WithScan(scan.ID, project.ID).WithFields(map[string]interface{}{
		"environment": scan.Environment,
		"scan_type":   scan.ScanType,
		"trigger":     req.Trigger,
	}).Info("Scan queued")
	return scan, nil
}

// resolveSpec returns the project's spec, downloading and caching it from
// specUrl when nothing is stored.
func (s *scanService) resolveSpec(ctx context.Context, project *models.Project) (string, error) {
	if project.HasSpec() {
		if err := ValidateSpec(project.SpecContent); err != nil {
			return "", err
		}
		return project.SpecContent, nil
	}

	if strings.TrimSpace(project.SpecURL) == "" {
		return "", fmt.Errorf("%w: project has neither spec content nor spec URL", vxerrors.ErrInvalidSpec)
	}

	content, err := s.fetcher.FetchSpec(ctx, project.SpecURL)
	if err != nil {
		return "", fmt.Errorf("%w: fetching %s: %v", vxerrors.ErrInvalidSpec, project.SpecURL, err)
	}
	if err := ValidateSpec(content); err != nil {
		return "", err
	}

	if err := s.projectDao.UpdateProject(ctx, project.ID, map[string]interface{}{"spec_content": content}); err != nil {
		s.logger.WithFields(logger.Fields{"error": err, "project_id": project.ID}).Warn("Failed to cache fetched spec")
	} else {
		project.SpecContent = content
	}
	return content, nil
}

// GetScan loads a scan and re-derives ownership through its project.
// Nonexistent ids are NotFound; another organization's scan is Forbidden.
func (s *scanService) GetScan(ctx context.Context, scanID, orgID string) (*models.Scan, error) {
	scan, err := s.scanDao.GetScanWithProject(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if scan.Project == nil || scan.Project.OrganizationID != orgID {
		return nil, vxerrors.ErrForbidden
	}
	return scan, nil
}

// GetProjectScan returns the scan with its findings, requiring it to belong
// to the given project.
func (s *scanService) GetProjectScan(ctx context.Context, projectID, scanID, orgID string) (*models.Scan, error) {
	scan, err := s.GetScan(ctx, scanID, orgID)
	if err != nil {
		return nil, err
	}
	if scan.ProjectID != projectID {
		return nil, vxerrors.ErrNotFound
	}

	findings, err := s.findingDao.ListFindingsByScan(ctx, scan.ID)
	if err != nil {
		return nil, err
	}
	scan.Findings = findings
	return scan, nil
}

func (s *scanService) ListScans(ctx context.Context, projectID, orgID string, limit int) ([]models.Scan, error) {
	project, err := s.projectDao.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OrganizationID != orgID {
		return nil, vxerrors.ErrNotFound
	}
	return s.scanDao.ListScansByProject(ctx, projectID, limit)
}

func (s *scanService) ListFindings(ctx context.Context, scanID, orgID string) ([]models.Finding, error) {
	scan, err := s.GetScan(ctx, scanID, orgID)
	if err != nil {
		return nil, err
	}
	return s.findingDao.ListFindingsByScan(ctx, scan.ID)
}

// CompareScans orders the two scans by createdAt, whatever order the caller
// passed them in.
func (s *scanService) CompareScans(ctx context.Context, scanIDA, scanIDB, orgID string) (*ScanDiff, error) {
	if scanIDA == "" || scanIDB == "" {
		return nil, vxerrors.NewValidationError("scan1,scan2", "both scan ids are required")
	}
	if scanIDA == scanIDB {
		return nil, vxerrors.NewValidationError("scan2", "must differ from scan1")
	}

	a, err := s.GetScan(ctx, scanIDA, orgID)
	if err != nil {
		return nil, err
	}
	b, err := s.GetScan(ctx, scanIDB, orgID)
	if err != nil {
		return nil, err
	}
	if a.ProjectID != b.ProjectID {
		return nil, vxerrors.NewValidationError("scan2", "scans belong to different projects")
	}

	older, newer := a, b
	if b.CreatedAt.Before(a.CreatedAt) {
		older, newer = b, a
	}

	olderFindings, err := s.findingDao.ListFindingsByScan(ctx, older.ID)
	if err != nil {
		return nil, err
	}
	newerFindings, err := s.findingDao.ListFindingsByScan(ctx, newer.ID)
	if err != nil {
		return nil, err
	}

	diff := DiffFindings(olderFindings, newerFindings)
	diff.OlderScanID = older.ID
	diff.NewerScanID = newer.ID
	return &diff, nil
}

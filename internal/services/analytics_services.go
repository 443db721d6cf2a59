package services

import (
	"context"
	"errors"
	"time"

	"vulx/internal/analytics"
	"vulx/internal/dao"
	"vulx/internal/models"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"
)

const maxSnapshotDays = 365

type AnalyticsServiceMethods interface {
	CaptureSnapshots(ctx context.Context, day time.Time) (int, error)
	ListSnapshots(ctx context.Context, orgID string, projectID *string, days int) ([]models.SecuritySnapshot, error)
}

type analyticsService struct {
	orgDao      dao.OrganizationDAO
	projectDao  dao.ProjectDAO
	scanDao     dao.ScanDAO
	findingDao  dao.FindingDAO
	snapshotDao dao.SnapshotDAO
	logger      *logger.Logger
	now         func() time.Time
}

func NewAnalyticsService(
	orgDao dao.OrganizationDAO,
	projectDao dao.ProjectDAO,
	scanDao dao.ScanDAO,
	findingDao dao.FindingDAO,
	snapshotDao dao.SnapshotDAO,
	log *logger.Logger,
) AnalyticsServiceMethods {
	return &analyticsService{
		orgDao:      orgDao,
		projectDao:  projectDao,
		scanDao:     scanDao,
		findingDao:  findingDao,
		snapshotDao: snapshotDao,
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CaptureSnapshots writes, for every organization, one organization-wide row
// and one row per project for day. Each project contributes the findings of
// its latest completed scan. A failing organization is logged and skipped.
func (s *analyticsService) CaptureSnapshots(ctx context.Context, day time.Time) (int, error) {
	orgs, err := s.orgDao.ListOrganizations(ctx)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, org := range orgs {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}
		n, err := s.captureOrganization(ctx, org.ID, day)
		written += n
		if err != nil {
			s.logger.WithFields(logger.Fields{"organization_id": org.ID, "error": err}).Error("Snapshot capture failed for organization")
		}
	}
	return written, nil
}

func (s *analyticsService) captureOrganization(ctx context.Context, orgID string, day time.Time) (int, error) {
	projects, err := s.projectDao.ListProjectsByOrg(ctx, orgID)
	if err != nil {
		return 0, err
	}

	written := 0
	var all []models.Finding
	for _, p := range projects {
		scan, err := s.scanDao.LatestCompletedScan(ctx, p.ID)
		var findings []models.Finding
		switch {
		case errors.Is(err, vxerrors.ErrNotFound):
		case err != nil:
			return written, err
		default:
			if findings, err = s.findingDao.ListFindingsByScans(ctx, []string{scan.ID}); err != nil {
				return written, err
			}
		}

		projectID := p.ID
		if err := s.snapshotDao.UpsertSnapshot(ctx, analytics.BuildSnapshot(orgID, &projectID, day, findings)); err != nil {
			return written, err
		}
		written++
		all = append(all, findings...)
	}

	if err := s.snapshotDao.UpsertSnapshot(ctx, analytics.BuildSnapshot(orgID, nil, day, all)); err != nil {
		return written, err
	}
	return written + 1, nil
}

func (s *analyticsService) ListSnapshots(ctx context.Context, orgID string, projectID *string, days int) ([]models.SecuritySnapshot, error) {
	if days <= 0 {
		days = 30
	}
	if days > maxSnapshotDays {
		days = maxSnapshotDays
	}
	if projectID != nil {
		project, err := s.projectDao.GetProjectByID(ctx, *projectID)
		if err != nil {
			return nil, err
		}
		if project.OrganizationID != orgID {
			return nil, vxerrors.ErrNotFound
		}
	}
	since := models.DayKey(s.now().AddDate(0, 0, -(days - 1)))
	return s.snapshotDao.ListSnapshots(ctx, orgID, projectID, since)
}

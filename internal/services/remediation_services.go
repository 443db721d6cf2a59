package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vulx/internal/dao"
	"vulx/internal/models"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"
)

type RemediationServiceMethods interface {
	UpdateFindingStatus(ctx context.Context, findingID, orgID, actorID string, status models.FindingStatus, note string) (*models.Finding, error)
	AssignFinding(ctx context.Context, findingID, orgID, actorID string, assigneeID *string) (*models.Finding, error)
	ListHistory(ctx context.Context, findingID, orgID string) ([]models.FindingHistory, error)
	FindingProjectID(ctx context.Context, findingID, orgID string) (string, error)
}

type remediationService struct {
	findingDao dao.FindingDAO
	scanDao    dao.ScanDAO
	orgDao     dao.OrganizationDAO
	logger     *logger.Logger
	now        func() time.Time
}

func NewRemediationService(findingDao dao.FindingDAO, scanDao dao.ScanDAO, orgDao dao.OrganizationDAO, log *logger.Logger) RemediationServiceMethods {
	return &remediationService{
		findingDao: findingDao,
		scanDao:    scanDao,
		orgDao:     orgDao,
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// loadOwned fetches the finding and checks the organization through its
// scan's project.
func (s *remediationService) loadOwned(ctx context.Context, findingID, orgID string) (*models.Finding, error) {
	finding, _, err := s.loadWithScan(ctx, findingID, orgID)
	return finding, err
}

func (s *remediationService) loadWithScan(ctx context.Context, findingID, orgID string) (*models.Finding, *models.Scan, error) {
	finding, err := s.findingDao.GetFindingByID(ctx, findingID)
	if err != nil {
		return nil, nil, err
	}
	scan, err := s.scanDao.GetScanWithProject(ctx, finding.ScanID)
	if err != nil {
		return nil, nil, err
	}
	if scan.Project == nil || scan.Project.OrganizationID != orgID {
		return nil, nil, vxerrors.ErrForbidden
	}
	return finding, scan, nil
}

// FindingProjectID resolves the project a finding belongs to.
func (s *remediationService) FindingProjectID(ctx context.Context, findingID, orgID string) (string, error) {
	_, scan, err := s.loadWithScan(ctx, findingID, orgID)
	if err != nil {
		return "", err
	}
	return scan.ProjectID, nil
}

// maxChangeAttempts bounds how often a change is recomputed after losing a
// race with another writer.
const maxChangeAttempts = 3

// applyChange reads the finding, lets build derive the guarded update from
// that state and writes it. A concurrent write between the read and the
// UPDATE makes the guard miss, and the change is rebuilt from fresh state.
func (s *remediationService) applyChange(
	ctx context.Context,
	findingID, orgID string,
	build func(current *models.Finding) (guard, updates map[string]interface{}, history *models.FindingHistory),
) (*models.Finding, *models.FindingHistory, error) {
	for attempt := 1; attempt <= maxChangeAttempts; attempt++ {
		current, err := s.loadOwned(ctx, findingID, orgID)
		if err != nil {
			return nil, nil, err
		}
		guard, updates, history := build(current)
		err = s.findingDao.UpdateWithHistory(ctx, current.ID, guard, updates, history)
		if errors.Is(err, dao.ErrStaleFinding) {
			s.logger.WithFields(logger.Fields{"finding_id": findingID, "attempt": attempt}).Debug("Finding changed underneath update, retrying")
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		updated, err := s.findingDao.GetFindingByID(ctx, current.ID)
		return updated, history, err
	}
	return nil, nil, fmt.Errorf("%w: finding %s", vxerrors.ErrConflict, findingID)
}

// UpdateFindingStatus writes the new status and exactly one history row in
// a single transaction. The history's fromValue is the status the UPDATE
// actually replaced.
func (s *remediationService) UpdateFindingStatus(ctx context.Context, findingID, orgID, actorID string, status models.FindingStatus, note string) (*models.Finding, error) {
	if !status.Valid() {
		return nil, vxerrors.NewValidationError("status", "must be one of OPEN, IN_PROGRESS, ACCEPTED, FIXED, FALSE_POSITIVE")
	}

	finding, history, err := s.applyChange(ctx, findingID, orgID, func(current *models.Finding) (map[string]interface{}, map[string]interface{}, *models.FindingHistory) {
		updates := map[string]interface{}{"status": status, "fixed_at": nil}
		if status == models.FindingFixed {
			updates["fixed_at"] = s.now()
		}
		return map[string]interface{}{"status": current.Status},
			updates,
			&models.FindingHistory{
				ActorID:   actorID,
				Field:     models.HistoryFieldStatus,
				FromValue: string(current.Status),
				ToValue:   string(status),
				Note:      note,
			}
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logger.Fields{
		"finding_id": finding.ID,
		"from":       history.FromValue,
		"to":         status,
	}).Info("Finding status changed")
	return finding, nil
}

func (s *remediationService) AssignFinding(ctx context.Context, findingID, orgID, actorID string, assigneeID *string) (*models.Finding, error) {
	if _, err := s.loadOwned(ctx, findingID, orgID); err != nil {
		return nil, err
	}

	if assigneeID != nil {
		members, err := s.orgDao.ListMembers(ctx, orgID)
		if err != nil {
			return nil, err
		}
		found := false
		for _, m := range members {
			if m.ID == *assigneeID {
				found = true
				break
			}
		}
		if !found {
			return nil, vxerrors.NewValidationError("assigneeId", "is not a member of this organization")
		}
	}

	to := ""
	if assigneeID != nil {
		to = *assigneeID
	}
	finding, _, err := s.applyChange(ctx, findingID, orgID, func(current *models.Finding) (map[string]interface{}, map[string]interface{}, *models.FindingHistory) {
		var from string
		var was interface{}
		if current.AssigneeID != nil {
			from = *current.AssigneeID
			was = from
		}
		return map[string]interface{}{"assignee_id": was},
			map[string]interface{}{"assignee_id": assigneeID},
			&models.FindingHistory{
				ActorID:   actorID,
				Field:     models.HistoryFieldAssignee,
				FromValue: from,
				ToValue:   to,
			}
	})
	return finding, err
}

func (s *remediationService) ListHistory(ctx context.Context, findingID, orgID string) ([]models.FindingHistory, error) {
	if _, err := s.loadOwned(ctx, findingID, orgID); err != nil {
		return nil, err
	}
	return s.findingDao.ListHistory(ctx, findingID)
}

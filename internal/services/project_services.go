package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"vulx/internal/dao"
	"vulx/internal/models"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"
)

// ProjectInput is used for create (all fields) and update (nil = unchanged).
type ProjectInput struct {
	Name          *string
	TargetURL     *string
	SpecContent   *string
	SpecURL       *string
	ScanFrequency *models.ScanFrequency
}

type ProjectServiceMethods interface {
	CreateProject(ctx context.Context, orgID string, in ProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, id, orgID string) (*models.Project, error)
	ListProjects(ctx context.Context, orgID string) ([]models.Project, error)
	UpdateProject(ctx context.Context, id, orgID string, in ProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, id, orgID string) error
}

type projectService struct {
	projectDao dao.ProjectDAO
	logger     *logger.Logger
	now        func() time.Time
}

func NewProjectService(projectDao dao.ProjectDAO, log *logger.Logger) ProjectServiceMethods {
	return &projectService{projectDao: projectDao, logger: log, now: func() time.Time { return time.Now().UTC() }}
}

func validateProjectInput(in ProjectInput, creating bool) error {
	ve := &vxerrors.ValidationError{}
	if creating && (in.Name == nil || strings.TrimSpace(*in.Name) == "") {
		ve.Add("name", "is required")
	} else if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		ve.Add("name", "must not be empty")
	}
	for field, raw := range map[string]*string{"targetUrl": in.TargetURL, "specUrl": in.SpecURL} {
		if raw == nil || *raw == "" {
			continue
		}
		u, err := url.Parse(*raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			ve.Add(field, "must be an absolute http(s) URL")
		}
	}
	if in.SpecContent != nil && *in.SpecContent != "" {
		if err := ValidateSpec(*in.SpecContent); err != nil {
			ve.Add("specContent", err.Error())
		}
	}
	if in.ScanFrequency != nil && !in.ScanFrequency.Valid() {
		ve.Add("scanFrequency", "must be MANUAL, DAILY or WEEKLY")
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

// nextScanAt schedules the first automatic scan one interval from now.
func (s *projectService) nextScanAt(freq models.ScanFrequency) *time.Time {
	if freq.Interval() == 0 {
		return nil
	}
	next := s.now().Add(freq.Interval())
	return &next
}

func (s *projectService) CreateProject(ctx context.Context, orgID string, in ProjectInput) (*models.Project, error) {
	if err := validateProjectInput(in, true); err != nil {
		return nil, err
	}

	project := &models.Project{
		OrganizationID: orgID,
		Name:           strings.TrimSpace(*in.Name),
		ScanFrequency:  models.FrequencyManual,
	}
	if in.TargetURL != nil {
		project.TargetURL = *in.TargetURL
	}
	if in.SpecContent != nil {
		project.SpecContent = *in.SpecContent
	}
	if in.SpecURL != nil {
		project.SpecURL = *in.SpecURL
	}
	if in.ScanFrequency != nil {
		project.ScanFrequency = *in.ScanFrequency
	}
	project.NextScanAt = s.nextScanAt(project.ScanFrequency)

	if err := s.projectDao.SaveProject(ctx, project); err != nil {
		return nil, err
	}
	s.logger.WithFields(logger.Fields{"project_id": project.ID, "organization_id": orgID}).Info("Project created")
	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, id, orgID string) (*models.Project, error) {
	project, err := s.projectDao.GetProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.OrganizationID != orgID {
		return nil, vxerrors.ErrNotFound
	}
	return project, nil
}

func (s *projectService) ListProjects(ctx context.Context, orgID string) ([]models.Project, error) {
	return s.projectDao.ListProjectsByOrg(ctx, orgID)
}

func (s *projectService) UpdateProject(ctx context.Context, id, orgID string, in ProjectInput) (*models.Project, error) {
	if err := validateProjectInput(in, false); err != nil {
		return nil, err
	}
	project, err := s.GetProject(ctx, id, orgID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.TargetURL != nil {
		updates["target_url"] = *in.TargetURL
	}
	if in.SpecContent != nil {
		updates["spec_content"] = *in.SpecContent
	}
	if in.SpecURL != nil {
		updates["spec_url"] = *in.SpecURL
		// a new URL invalidates the cached download
		if in.SpecContent == nil && *in.SpecURL != project.SpecURL {
			updates["spec_content"] = ""
		}
	}
	if in.ScanFrequency != nil && *in.ScanFrequency != project.ScanFrequency {
		updates["scan_frequency"] = *in.ScanFrequency
		updates["next_scan_at"] = s.nextScanAt(*in.ScanFrequency)
	}
	if len(updates) == 0 {
		return project, nil
	}

	if err := s.projectDao.UpdateProject(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.projectDao.GetProjectByID(ctx, id)
}

func (s *projectService) DeleteProject(ctx context.Context, id, orgID string) error {
	if _, err := s.GetProject(ctx, id, orgID); err != nil {
		return err
	}
	if err := s.projectDao.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(logger.Fields{"project_id": id, "organization_id": orgID}).Info("Project deleted")
	return nil
}

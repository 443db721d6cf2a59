package handlers

import (
	"vulx/internal/models"
	"vulx/internal/services"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ProjectRequest serves both create and partial update; absent fields stay
// unchanged on PATCH.
type ProjectRequest struct {
	Name          *string               `json:"name"`
	TargetURL     *string               `json:"targetUrl"`
	SpecContent   *string               `json:"specContent"`
	SpecURL       *string               `json:"specUrl"`
	ScanFrequency *models.ScanFrequency `json:"scanFrequency"`
}

func (r ProjectRequest) toInput() services.ProjectInput {
	return services.ProjectInput{
		Name:          r.Name,
		TargetURL:     r.TargetURL,
		SpecContent:   r.SpecContent,
		SpecURL:       r.SpecURL,
		ScanFrequency: r.ScanFrequency,
	}
}

type ScanRequest struct {
	Environment models.Environment `json:"environment"`
	ScanType    string             `json:"scanType"`
	AuthMethod  string             `json:"authMethod"`
}

type ScanFailedResponse struct {
	Error string       `json:"error"`
	Scan  *models.Scan `json:"scan"`
}

type FindingStatusRequest struct {
	Status models.FindingStatus `json:"status" binding:"required"`
	Note   string               `json:"note"`
}

type FindingAssigneeRequest struct {
	AssigneeID *string `json:"assigneeId"`
}

type TestNotificationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

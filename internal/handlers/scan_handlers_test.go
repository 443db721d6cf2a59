package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vulx/internal/models"
	"vulx/internal/services"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newScanRouter(m *MockScanService, key *models.APIKey) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewScanHandler(m, logger.NewNopLogger())

	router := gin.New()
	router.Use(withOrg(testOrgID, key))
	router.POST("/projects/:id/scans", handler.CreateScan)
	router.GET("/projects/:id/scans", handler.ListScans)
	router.GET("/projects/:id/scans/:scanId", handler.GetProjectScan)
	router.GET("/scans/:scanId/findings", handler.ListFindings)
	router.GET("/remediation/compare", handler.CompareScans)
	return router
}

func TestCreateScan(t *testing.T) {
	queued := &models.Scan{Base: models.Base{ID: "scan-1"}, ProjectID: "p1", Status: models.ScanPending, Environment: models.EnvironmentSandbox}
	failed := &models.Scan{Base: models.Base{ID: "scan-2"}, ProjectID: "p1", Status: models.ScanFailed}

	tests := []struct {
		name           string
		requestBody    string
		setupMock      func(*MockScanService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "Valid Request - Success",
			requestBody: `{"environment":"PRODUCTION","scanType":"quick"}`,
			setupMock: func(m *MockScanService) {
				m.On("CreateScan", mock.Anything, mock.MatchedBy(func(req services.CreateScanRequest) bool {
					return req.ProjectID == "p1" &&
						req.OrganizationID == testOrgID &&
						req.Environment == models.EnvironmentProduction &&
						req.ScanType == "quick" &&
						req.Trigger == services.TriggerManual
				})).Return(queued, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Empty Body - Defaults",
			requestBody: ``,
			setupMock: func(m *MockScanService) {
				m.On("CreateScan", mock.Anything, mock.MatchedBy(func(req services.CreateScanRequest) bool {
					return req.Environment == "" && req.ScanType == ""
				})).Return(queued, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Invalid JSON - Malformed",
			requestBody:    `{"environment":}`,
			setupMock:      func(m *MockScanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid request payload"}`,
		},
		{
			name:        "Project Not Found",
			requestBody: `{}`,
			setupMock: func(m *MockScanService) {
				m.On("CreateScan", mock.Anything, mock.Anything).Return(nil, vxerrors.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"not found"}`,
		},
		{
			name:        "Invalid Spec",
			requestBody: `{}`,
			setupMock: func(m *MockScanService) {
				m.On("CreateScan", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: project has neither spec content nor spec URL", vxerrors.ErrInvalidSpec))
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:        "Validation Error",
			requestBody: `{"environment":"STAGING"}`,
			setupMock: func(m *MockScanService) {
				m.On("CreateScan", mock.Anything, mock.Anything).
					Return(nil, vxerrors.NewValidationError("environment", "must be SANDBOX or PRODUCTION"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"validation failed","fields":{"environment":"must be SANDBOX or PRODUCTION"}}`,
		},
		{
			name:        "Queue Down - Failed Scan Returned",
			requestBody: `{}`,
			setupMock: func(m *MockScanService) {
				m.On("CreateScan", mock.Anything, mock.Anything).
					Return(failed, vxerrors.NewUpstreamError("job queue", 0, errors.New("connection refused")))
			},
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:        "Service Error - Internal Error",
			requestBody: `{}`,
			setupMock: func(m *MockScanService) {
				m.On("CreateScan", mock.Anything, mock.Anything).Return(nil, errors.New("database connection failed"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockScanService)
			tt.setupMock(mockService)
			router := newScanRouter(mockService, nil)

			req := httptest.NewRequest(http.MethodPost, "/projects/p1/scans", strings.NewReader(tt.requestBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, "Response: %s", w.Body.String())
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestCreateScanQueueFailureBody(t *testing.T) {
	mockService := new(MockScanService)
	failed := &models.Scan{Base: models.Base{ID: "scan-2"}, ProjectID: "p1", Status: models.ScanFailed, ErrorMessage: "failed to enqueue scan: boom"}
	mockService.On("CreateScan", mock.Anything, mock.Anything).
		Return(failed, vxerrors.NewUpstreamError("job queue", 0, errors.New("boom")))

	w := httptest.NewRecorder()
	newScanRouter(mockService, nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/projects/p1/scans", nil))

	require.Equal(t, http.StatusBadGateway, w.Code)
	var body struct {
		Error string      `json:"error"`
		Scan  models.Scan `json:"scan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "scan-2", body.Scan.ID)
	assert.Equal(t, models.ScanFailed, body.Scan.Status)
	assert.Contains(t, body.Error, "job queue")
}

func TestCreateScanProjectScopedKey(t *testing.T) {
	mockService := new(MockScanService)
	scope := "p-other"
	key := &models.APIKey{Base: models.Base{ID: "k1"}, OrganizationID: testOrgID, ProjectID: &scope}

	w := httptest.NewRecorder()
	newScanRouter(mockService, key).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/projects/p1/scans", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockService.AssertNotCalled(t, "CreateScan", mock.Anything, mock.Anything)
}

func TestGetProjectScan(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockScanService)
		expectedStatus int
	}{
		{
			name: "Scan Found",
			setupMock: func(m *MockScanService) {
				scan := &models.Scan{
					Base:      models.Base{ID: "s1"},
					ProjectID: "p1",
					Status:    models.ScanCompleted,
					Findings:  []models.Finding{{Type: "SQLi", Severity: models.SeverityCritical}},
				}
				m.On("GetProjectScan", mock.Anything, "p1", "s1", testOrgID).Return(scan, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Scan Not Found",
			setupMock: func(m *MockScanService) {
				m.On("GetProjectScan", mock.Anything, "p1", "s1", testOrgID).Return(nil, vxerrors.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Other Organization",
			setupMock: func(m *MockScanService) {
				m.On("GetProjectScan", mock.Anything, "p1", "s1", testOrgID).Return(nil, vxerrors.ErrForbidden)
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockScanService)
			tt.setupMock(mockService)

			w := httptest.NewRecorder()
			newScanRouter(mockService, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/p1/scans/s1", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestListScansLimit(t *testing.T) {
	mockService := new(MockScanService)
	mockService.On("ListScans", mock.Anything, "p1", testOrgID, 5).Return([]models.Scan{{ProjectID: "p1"}}, nil)
	router := newScanRouter(mockService, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/p1/scans?limit=5", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/p1/scans?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.AssertExpectations(t)
}

func TestListFindings(t *testing.T) {
	mockService := new(MockScanService)
	mockService.On("ListFindings", mock.Anything, "s1", testOrgID).Return([]models.Finding{
		{Type: "SQLi", Severity: models.SeverityCritical},
		{Type: "CORS", Severity: models.SeverityLow},
	}, nil)

	w := httptest.NewRecorder()
	newScanRouter(mockService, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scans/s1/findings", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var findings []models.Finding
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &findings))
	assert.Len(t, findings, 2)
}

func TestCompareScans(t *testing.T) {
	mockService := new(MockScanService)
	diff := &services.ScanDiff{OlderScanID: "a", NewerScanID: "b", Summary: services.DiffSummary{New: 1, Persisting: 1}}
	mockService.On("CompareScans", mock.Anything, "b", "a", testOrgID).Return(diff, nil)
	mockService.On("CompareScans", mock.Anything, "a", "", testOrgID).
		Return(nil, vxerrors.NewValidationError("scan1,scan2", "both scan ids are required"))
	router := newScanRouter(mockService, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/remediation/compare?scan1=b&scan2=a", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got services.ScanDiff
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "a", got.OlderScanID)
	assert.Equal(t, 1, got.Summary.New)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/remediation/compare?scan1=a", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanReadsProjectScopedKey(t *testing.T) {
	scope := "p1"
	key := &models.APIKey{Base: models.Base{ID: "k1"}, OrganizationID: testOrgID, ProjectID: &scope}
	mockService := new(MockScanService)
	mockService.On("GetScan", mock.Anything, "own", testOrgID).Return(&models.Scan{Base: models.Base{ID: "own"}, ProjectID: "p1"}, nil)
	mockService.On("GetScan", mock.Anything, "foreign", testOrgID).Return(&models.Scan{Base: models.Base{ID: "foreign"}, ProjectID: "p2"}, nil)
	mockService.On("ListFindings", mock.Anything, "own", testOrgID).Return([]models.Finding{}, nil)
	mockService.On("CompareScans", mock.Anything, "own", "own", testOrgID).Return(&services.ScanDiff{}, nil)
	router := newScanRouter(mockService, key)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"findings of own project", "/scans/own/findings", http.StatusOK},
		{"findings of other project", "/scans/foreign/findings", http.StatusForbidden},
		{"compare within project", "/remediation/compare?scan1=own&scan2=own", http.StatusOK},
		{"compare newer from other project", "/remediation/compare?scan1=foreign&scan2=own", http.StatusForbidden},
		{"compare older from other project", "/remediation/compare?scan1=own&scan2=foreign", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.expectedStatus, w.Code, "Response: %s", w.Body.String())
		})
	}
	mockService.AssertNotCalled(t, "ListFindings", mock.Anything, "foreign", testOrgID)
	mockService.AssertNotCalled(t, "CompareScans", mock.Anything, "foreign", "own", testOrgID)
	mockService.AssertNotCalled(t, "CompareScans", mock.Anything, "own", "foreign", testOrgID)
}

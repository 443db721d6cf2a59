package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vulx/internal/dao"
	"vulx/internal/metrics"
	"vulx/internal/models"
	"vulx/internal/services"
	"vulx/pkg/logger"
	"vulx/pkg/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopNotifier struct{}

func (noopNotifier) SendTestNotification(ctx context.Context, integrationID, orgID string) error {
	return nil
}

type apiHarness struct {
	router *gin.Engine
	queue  *testutil.FakeQueue
	key    string
}

func newHarness(t *testing.T, health func(context.Context) error) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	log := logger.NewNopLogger()
	m := metrics.NewMetrics()
	q := testutil.NewFakeQueue()

	orgDao := dao.NewOrganizationDAO(db)
	projectDao := dao.NewProjectDAO(db)
	scanDao := dao.NewScanDAO(db)
	findingDao := dao.NewFindingDAO(db)
	integrationDao := dao.NewIntegrationDAO(db)
	snapshotDao := dao.NewSnapshotDAO(db)

	auth := services.NewAuthService(orgDao, log)
	_, key, err := auth.CreateOrganization(context.Background(), "Acme", "owner@acme.test")
	require.NoError(t, err)

	router := InitRouter(Dependencies{
		Scans:        services.NewScanService(scanDao, projectDao, findingDao, q, services.NewHTTPSpecFetcher(0), m, log),
		Projects:     services.NewProjectService(projectDao, log),
		Remediation:  services.NewRemediationService(findingDao, scanDao, orgDao, log),
		Integrations: services.NewIntegrationService(integrationDao, log),
		Analytics:    services.NewAnalyticsService(orgDao, projectDao, scanDao, findingDao, snapshotDao, log),
		Auth:         auth,
		Notifier:     noopNotifier{},
		Metrics:      m,
		Logger:       log,
		HealthCheck:  health,
	})
	return &apiHarness{router: router, queue: q, key: key}
}

func (h *apiHarness) do(method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+h.key)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestProjectAndScanFlow(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(http.MethodGet, "/api/v1/projects", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/v1/projects", map[string]string{
		"name":        "shop",
		"targetUrl":   "https://shop.example.com",
		"specContent": `{"openapi":"3.0.0"}`,
	}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var project models.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))

	w = h.do(http.MethodPost, "/api/v1/projects/"+project.ID+"/scans", nil, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var scan models.Scan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scan))
	assert.Equal(t, models.ScanPending, scan.Status)
	assert.Equal(t, 1, h.queue.Count())

	w = h.do(http.MethodGet, "/api/v1/projects/"+project.ID+"/scans/"+scan.ID, nil, true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/api/v1/scans/"+scan.ID+"/findings", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/api/v1/snapshots", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vulx_scans_created_total")
	assert.Contains(t, w.Body.String(), `path="/api/v1/projects/:id/scans"`)
}

func TestHealthz(t *testing.T) {
	w := newHarness(t, nil).do(http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	down := newHarness(t, func(context.Context) error { return errors.New("redis down") })
	w = down.do(http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis down")
}

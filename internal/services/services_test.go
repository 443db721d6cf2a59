package services

import (
	"testing"

	"vulx/internal/dao"
	"vulx/internal/metrics"
	"vulx/pkg/logger"
	"vulx/pkg/testutil"

	"gorm.io/gorm"
)

// testEnv wires every service against one sqlite database.
type testEnv struct {
	db       *gorm.DB
	fx       *testutil.Fixtures
	queue    *testutil.FakeQueue
	metrics  *metrics.Metrics
	scans    dao.ScanDAO
	projects dao.ProjectDAO
	findings dao.FindingDAO
	orgs     dao.OrganizationDAO
	ints     dao.IntegrationDAO
	snaps    dao.SnapshotDAO
	log      *logger.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	return &testEnv{
		db:       db,
		fx:       testutil.NewFixtures(t, db),
		queue:    testutil.NewFakeQueue(),
		metrics:  metrics.NewMetrics(),
		scans:    dao.NewScanDAO(db),
		projects: dao.NewProjectDAO(db),
		findings: dao.NewFindingDAO(db),
		orgs:     dao.NewOrganizationDAO(db),
		ints:     dao.NewIntegrationDAO(db),
		snaps:    dao.NewSnapshotDAO(db),
		log:      logger.NewNopLogger(),
	}
}

func (e *testEnv) scanService(fetcher SpecFetcher) ScanServiceMethods {
	if fetcher == nil {
		fetcher = NewHTTPSpecFetcher(0)
	}
	return NewScanService(e.scans, e.projects, e.findings, e.queue, fetcher, e.metrics, e.log)
}

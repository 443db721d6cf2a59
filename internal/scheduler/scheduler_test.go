package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vulx/internal/config"
	"vulx/internal/dao"
	"vulx/internal/metrics"
	"vulx/internal/models"
	"vulx/internal/notification"
	"vulx/internal/services"
	"vulx/pkg/logger"
	"vulx/pkg/testutil"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *fakeNotifier) NotifyScanComplete(ctx context.Context, scanID string) (*notification.DispatchResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, scanID)
	if n.err != nil {
		return nil, n.err
	}
	return &notification.DispatchResult{Delivered: 1}, nil
}

func (n *fakeNotifier) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type schedEnv struct {
	db       *gorm.DB
	fx       *testutil.Fixtures
	queue    *testutil.FakeQueue
	metrics  *metrics.Metrics
	projects dao.ProjectDAO
	scans    dao.ScanDAO
	notifier *fakeNotifier
	sched    *Scheduler
	now      time.Time
}

func newSchedEnv(t *testing.T) *schedEnv {
	db := testutil.NewTestDB(t)
	log := logger.NewNopLogger()
	env := &schedEnv{
		db:       db,
		fx:       testutil.NewFixtures(t, db),
		queue:    testutil.NewFakeQueue(),
		metrics:  metrics.NewMetrics(),
		projects: dao.NewProjectDAO(db),
		scans:    dao.NewScanDAO(db),
		notifier: &fakeNotifier{},
		now:      time.Now().UTC().Truncate(time.Second),
	}
	findings := dao.NewFindingDAO(db)
	scanSvc := services.NewScanService(env.scans, env.projects, findings, env.queue, services.NewHTTPSpecFetcher(time.Second), env.metrics, log)
	analytics := services.NewAnalyticsService(dao.NewOrganizationDAO(db), env.projects, env.scans, findings, dao.NewSnapshotDAO(db), log)

	env.sched = New(config.SchedulerConfig{}, env.projects, env.scans, scanSvc, analytics, env.notifier, env.metrics, log)
	env.sched.now = func() time.Time { return env.now }
	return env
}

func (e *schedEnv) dueProject(t *testing.T, orgID, name string, freq models.ScanFrequency, next time.Time) *models.Project {
	p := e.fx.Project(orgID, name)
	require.NoError(t, e.projects.UpdateProject(context.Background(), p.ID, map[string]interface{}{
		"scan_frequency": freq,
		"next_scan_at":   next,
	}))
	return p
}

func TestRescanSweepDailyProject(t *testing.T) {
	env := newSchedEnv(t)
	org := env.fx.Organization("acme")
	p := env.dueProject(t, org.ID, "api", models.FrequencyDaily, env.now.Add(-24*time.Hour))

	stats, err := env.sched.RescanSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, env.queue.Count())

	scans, err := env.scans.ListScansByProject(context.Background(), p.ID, 10)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, models.ScanPending, scans[0].Status)
	assert.Equal(t, models.EnvironmentSandbox, scans[0].Environment)

	updated, err := env.projects.GetProjectByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.NextScanAt)
	assert.WithinDuration(t, env.now.Add(24*time.Hour), *updated.NextScanAt, time.Second)

	// nothing is due any more
	stats, err = env.sched.RescanSweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Processed)
	assert.Equal(t, 1, env.queue.Count())
}

func TestRescanSweepContinuesPastFailures(t *testing.T) {
	env := newSchedEnv(t)
	org := env.fx.Organization("acme")
	past := env.now.Add(-time.Hour)

	first := env.dueProject(t, org.ID, "first", models.FrequencyDaily, past)
	broken := env.dueProject(t, org.ID, "broken", models.FrequencyWeekly, past)
	last := env.dueProject(t, org.ID, "last", models.FrequencyDaily, past)

	brokenSpec := testutil.SampleSpec + "# broken\n"
	require.NoError(t, env.projects.UpdateProject(context.Background(), broken.ID, map[string]interface{}{"spec_content": brokenSpec}))
	env.queue.FailOn[brokenSpec] = errors.New("redis down")

	stats, err := env.sched.RescanSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, env.queue.Count())
	assert.Equal(t, 1.0, promtest.ToFloat64(env.metrics.SweepItemErrors.WithLabelValues(SweepRescan)))

	failed, err := env.scans.ListScansByProject(context.Background(), broken.ID, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, models.ScanFailed, failed[0].Status)

	expected := map[string]time.Duration{
		first.ID:  24 * time.Hour,
		broken.ID: 7 * 24 * time.Hour,
		last.ID:   24 * time.Hour,
	}
	for id, interval := range expected {
		got, err := env.projects.GetProjectByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, got.NextScanAt)
		assert.WithinDuration(t, env.now.Add(interval), *got.NextScanAt, time.Second, got.Name)
	}
}

func TestRescanSweepSkipsManualAndFutureProjects(t *testing.T) {
	env := newSchedEnv(t)
	org := env.fx.Organization("acme")
	env.fx.Project(org.ID, "manual")
	env.dueProject(t, org.ID, "later", models.FrequencyDaily, env.now.Add(time.Hour))

	stats, err := env.sched.RescanSweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Processed+stats.Failed)
	assert.Zero(t, env.queue.Count())
}

func TestNotificationSweepNotifiesOnce(t *testing.T) {
	env := newSchedEnv(t)
	org := env.fx.Organization("acme")
	p := env.fx.Project(org.ID, "api")
	done := env.fx.Scan(p.ID, models.ScanCompleted, env.now.Add(-time.Minute))
	env.fx.Scan(p.ID, models.ScanProcessing, env.now)

	stats, err := env.sched.NotificationSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, []string{done.ID}, env.notifier.calls)

	got, err := env.scans.GetScanByID(context.Background(), done.ID)
	require.NoError(t, err)
	assert.True(t, got.NotificationSent)
	assert.Nil(t, got.NotifyingAt)

	stats, err = env.sched.NotificationSweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Processed)
	assert.Equal(t, 1, env.notifier.Calls())
}

func TestNotificationSweepRespectsLiveClaim(t *testing.T) {
	env := newSchedEnv(t)
	org := env.fx.Organization("acme")
	p := env.fx.Project(org.ID, "api")
	scan := env.fx.Scan(p.ID, models.ScanCompleted, env.now.Add(-time.Minute))

	claimed, err := env.scans.ClaimNotification(context.Background(), scan.ID, env.now.Add(-time.Minute), env.now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, claimed)

	stats, err := env.sched.NotificationSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, env.notifier.Calls())

	// eleven minutes later the claim is stale and is taken over
	env.now = env.now.Add(11 * time.Minute)
	stats, err = env.sched.NotificationSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, env.notifier.Calls())
}

func TestNotificationSweepReleasesClaimOnFailure(t *testing.T) {
	env := newSchedEnv(t)
	org := env.fx.Organization("acme")
	p := env.fx.Project(org.ID, "api")
	scan := env.fx.Scan(p.ID, models.ScanCompleted, env.now.Add(-time.Minute))
	env.notifier.err = errors.New("database went away")

	stats, err := env.sched.NotificationSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	got, err := env.scans.GetScanByID(context.Background(), scan.ID)
	require.NoError(t, err)
	assert.False(t, got.NotificationSent)
	assert.Nil(t, got.NotifyingAt)

	env.notifier.err = nil
	stats, err = env.sched.NotificationSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
}

func TestSnapshotSweep(t *testing.T) {
	env := newSchedEnv(t)
	org := env.fx.Organization("acme")
	env.fx.Project(org.ID, "one")
	env.fx.Project(org.ID, "two")

	stats, err := env.sched.SnapshotSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
}

func TestRunStopsOnCancel(t *testing.T) {
	env := newSchedEnv(t)
	org := env.fx.Organization("acme")
	p := env.fx.Project(org.ID, "api")
	env.fx.Scan(p.ID, models.ScanCompleted, env.now)

	env.sched.cfg = config.SchedulerConfig{
		RescanInterval:       time.Hour,
		NotificationInterval: time.Hour,
		SnapshotInterval:     time.Hour,
		ClaimTimeout:         10 * time.Minute,
		RunOnStart:           true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		env.sched.Run(ctx)
		close(finished)
	}()

	require.Eventually(t, func() bool { return env.notifier.Calls() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

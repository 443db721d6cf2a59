// Package testutil provides testing utilities for the vulx packages
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vulx/internal/database"
	"vulx/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB opens a migrated sqlite database in a per-test temp directory.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vulx.db")
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Fixtures creates rows with sensible defaults for tests.
type Fixtures struct {
	t  *testing.T
	db *gorm.DB
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) create(v interface{}) {
	f.t.Helper()
	if err := f.db.Create(v).Error; err != nil {
		f.t.Fatalf("Failed to create fixture %T: %v", v, err)
	}
}

func (f *Fixtures) Organization(name string) *models.Organization {
	f.t.Helper()
	org := &models.Organization{Name: name}
	f.create(org)
	return org
}

func (f *Fixtures) Member(orgID, email string) *models.Member {
	f.t.Helper()
	m := &models.Member{OrganizationID: orgID, Email: email, Name: email}
	f.create(m)
	return m
}

const SampleSpec = `openapi: 3.0.0
info:
  title: Sample API
  version: 1.0.0
paths: {}
`

func (f *Fixtures) Project(orgID, name string) *models.Project {
	f.t.Helper()
	p := &models.Project{
		OrganizationID: orgID,
		Name:           name,
		TargetURL:      "https://api.example.com",
		SpecContent:    SampleSpec,
		ScanFrequency:  models.FrequencyManual,
	}
	f.create(p)
	return p
}

// Scan creates a scan in the given status, created at the given time.
func (f *Fixtures) Scan(projectID string, status models.ScanStatus, createdAt time.Time) *models.Scan {
	f.t.Helper()
	s := &models.Scan{
		Base:        models.Base{CreatedAt: createdAt},
		ProjectID:   projectID,
		Status:      status,
		Environment: models.EnvironmentSandbox,
		ScanType:    models.DefaultScanType,
	}
	f.create(s)
	return s
}

func (f *Fixtures) Finding(scanID, typ, endpoint, method string, severity models.Severity) *models.Finding {
	f.t.Helper()
	fd := &models.Finding{
		ScanID:   scanID,
		Type:     typ,
		Title:    typ + " on " + endpoint,
		Endpoint: endpoint,
		Method:   method,
		Severity: severity,
		Status:   models.FindingOpen,
	}
	f.create(fd)
	return fd
}

func (f *Fixtures) Integration(orgID string, typ models.IntegrationType, url string, events ...string) *models.IntegrationConfig {
	f.t.Helper()
	cfg := &models.IntegrationConfig{
		OrganizationID: orgID,
		Type:           typ,
		Name:           string(typ),
		WebhookURL:     url,
		Active:         true,
	}
	cfg.SetEvents(events)
	f.create(cfg)
	return cfg
}

// FakeQueue records enqueued jobs and can be told to fail.
type FakeQueue struct {
	mu     sync.Mutex
	Jobs   []Job
	FailOn map[string]error
	Err    error
}

type Job struct {
	ScanID      string
	SpecContent string
}

func NewFakeQueue() *FakeQueue {
	return &FakeQueue{FailOn: make(map[string]error)}
}

func (q *FakeQueue) Enqueue(ctx context.Context, scanID, specContent string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	if err, ok := q.FailOn[specContent]; ok {
		return err
	}
	q.Jobs = append(q.Jobs, Job{ScanID: scanID, SpecContent: specContent})
	return nil
}

func (q *FakeQueue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.Jobs)
}

// WithTimeout creates a context with timeout for tests
func WithTimeout(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

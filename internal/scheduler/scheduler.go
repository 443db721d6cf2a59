// Package scheduler runs the periodic sweeps: scheduled rescans,
// notification dispatch for completed scans and daily security snapshots.
package scheduler

import (
	"context"
	"sync"
	"time"

	"vulx/internal/config"
	"vulx/internal/dao"
	"vulx/internal/metrics"
	"vulx/internal/models"
	"vulx/internal/notification"
	"vulx/internal/services"
	"vulx/pkg/logger"
)

const (
	SweepRescan       = "rescan"
	SweepNotification = "notification"
	SweepSnapshot     = "snapshot"

	notificationBatch = 100
)

// Notifier dispatches notifications for one completed scan.
type Notifier interface {
	NotifyScanComplete(ctx context.Context, scanID string) (*notification.DispatchResult, error)
}

// SweepStats summarises one sweep.
type SweepStats struct {
	Processed int
	Skipped   int
	Failed    int
}

type Scheduler struct {
	cfg        config.SchedulerConfig
	projectDao dao.ProjectDAO
	scanDao    dao.ScanDAO
	scans      services.ScanServiceMethods
	analytics  services.AnalyticsServiceMethods
	notifier   Notifier
	metrics    *metrics.Metrics
	logger     *logger.Logger
	now        func() time.Time
}

func New(
	cfg config.SchedulerConfig,
	projectDao dao.ProjectDAO,
	scanDao dao.ScanDAO,
	scans services.ScanServiceMethods,
	analytics services.AnalyticsServiceMethods,
	notifier Notifier,
	m *metrics.Metrics,
	log *logger.Logger,
) *Scheduler {
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = 10 * time.Minute
	}
	return &Scheduler{
		cfg:        cfg,
		projectDao: projectDao,
		scanDao:    scanDao,
		scans:      scans,
		analytics:  analytics,
		notifier:   notifier,
		metrics:    m,
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run starts one ticker goroutine per sweep and blocks until ctx is done
// and every sweep has returned.
func (s *Scheduler) Run(ctx context.Context) {
	loops := []struct {
		name     string
		interval time.Duration
		fn       func(context.Context) (SweepStats, error)
	}{
		{SweepRescan, s.cfg.RescanInterval, s.RescanSweep},
		{SweepNotification, s.cfg.NotificationInterval, s.NotificationSweep},
		{SweepSnapshot, s.cfg.SnapshotInterval, s.SnapshotSweep},
	}

	var wg sync.WaitGroup
	for _, l := range loops {
		if l.interval <= 0 {
			s.logger.WithFields(logger.Fields{"sweep": l.name}).Warn("Sweep disabled: no interval configured")
			continue
		}
		l := l
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, l.name, l.interval, l.fn)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) (SweepStats, error)) {
	s.logger.WithFields(logger.Fields{"sweep": name, "interval": interval.String()}).Info("Starting sweep")

	if s.cfg.RunOnStart {
		s.runSweep(ctx, name, fn)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.WithFields(logger.Fields{"sweep": name}).Info("Stopping sweep")
			return
		case <-ticker.C:
			s.runSweep(ctx, name, fn)
		}
	}
}

func (s *Scheduler) runSweep(ctx context.Context, name string, fn func(context.Context) (SweepStats, error)) {
	started := time.Now()
	_ = s.logger.LogSweep(name, func() error {
		stats, err := fn(ctx)
		if stats.Processed+stats.Failed > 0 {
			s.logger.WithFields(logger.Fields{
				"sweep":     name,
				"processed": stats.Processed,
				"skipped":   stats.Skipped,
				"failed":    stats.Failed,
			}).Info("Sweep results")
		}
		return err
	})
	s.metrics.ObserveSweep(name, started)
}

func (s *Scheduler) itemFailed(sweep string, fields logger.Fields, err error, msg string) {
	s.metrics.SweepItemErrors.WithLabelValues(sweep).Inc()
	fields["sweep"] = sweep
	s.logger.WithFields(fields).WithError(err).Error(msg)
}

// RescanSweep creates a scan for every project whose nextScanAt has passed
// and advances nextScanAt by the project's interval. The advance happens even
// when scan creation failed so a broken project is retried next period rather
// than every sweep. One project's failure never stops the others.
func (s *Scheduler) RescanSweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats
	now := s.now()

	due, err := s.projectDao.ListDueProjects(ctx, now)
	if err != nil {
		return stats, err
	}

	for _, p := range due {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		_, err := s.scans.CreateScan(ctx, services.CreateScanRequest{
			ProjectID:      p.ID,
			OrganizationID: p.OrganizationID,
			Environment:    models.EnvironmentSandbox,
			ScanType:       models.DefaultScanType,
			Trigger:        services.TriggerScheduled,
		})
		if err != nil {
			stats.Failed++
			s.itemFailed(SweepRescan, logger.Fields{"project_id": p.ID}, err, "Scheduled scan failed")
		} else {
			stats.Processed++
		}

		next := now.Add(p.ScanFrequency.Interval())
		if err := s.projectDao.UpdateProject(ctx, p.ID, map[string]interface{}{"next_scan_at": next}); err != nil {
			s.itemFailed(SweepRescan, logger.Fields{"project_id": p.ID}, err, "Failed to advance next scan time")
		}
	}
	return stats, nil
}

// NotificationSweep dispatches every completed, unnotified scan using
// claim-then-dispatch: the claim keeps concurrent sweeps apart, and a claim
// left by a crashed dispatcher expires after the claim timeout.
func (s *Scheduler) NotificationSweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	pending, err := s.scanDao.ListUnnotified(ctx, notificationBatch)
	if err != nil {
		return stats, err
	}

	for _, scan := range pending {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		now := s.now()
		claimed, err := s.scanDao.ClaimNotification(ctx, scan.ID, now, now.Add(-s.cfg.ClaimTimeout))
		if err != nil {
			stats.Failed++
			s.itemFailed(SweepNotification, logger.Fields{"scan_id": scan.ID}, err, "Failed to claim scan for notification")
			continue
		}
		if !claimed {
			stats.Skipped++
			continue
		}

		if _, err := s.notifier.NotifyScanComplete(ctx, scan.ID); err != nil {
			stats.Failed++
			s.itemFailed(SweepNotification, logger.Fields{"scan_id": scan.ID}, err, "Notification dispatch failed")
			if rerr := s.scanDao.ReleaseNotificationClaim(context.WithoutCancel(ctx), scan.ID); rerr != nil {
				s.itemFailed(SweepNotification, logger.Fields{"scan_id": scan.ID}, rerr, "Failed to release notification claim")
			}
			continue
		}

		if _, err := s.scanDao.MarkNotificationSent(ctx, scan.ID); err != nil {
			stats.Failed++
			s.itemFailed(SweepNotification, logger.Fields{"scan_id": scan.ID}, err, "Failed to mark scan notified")
			continue
		}
		stats.Processed++
	}
	return stats, nil
}

// SnapshotSweep captures today's security snapshots.
func (s *Scheduler) SnapshotSweep(ctx context.Context) (SweepStats, error) {
	n, err := s.analytics.CaptureSnapshots(ctx, s.now())
	return SweepStats{Processed: n}, err
}

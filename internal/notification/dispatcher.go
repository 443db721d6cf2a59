package notification

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"vulx/internal/dao"
	"vulx/internal/metrics"
	"vulx/internal/models"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"
)

const (
	defaultConcurrency = 4
	channelEmail       = "email"
)

type DispatcherMethods interface {
	NotifyScanComplete(ctx context.Context, scanID string) (*DispatchResult, error)
	SendTestNotification(ctx context.Context, integrationID, orgID string) error
}

// DispatchResult counts what happened to each recipient of one scan.
type DispatchResult struct {
	Delivered int
	Skipped   int
	Failed    int
}

type Options struct {
	HTTPClient   *http.Client
	Mailer       Mailer
	DashboardURL string
	Concurrency  int
	Senders      map[models.IntegrationType]Sender
}

type Dispatcher struct {
	scanDao        dao.ScanDAO
	findingDao     dao.FindingDAO
	orgDao         dao.OrganizationDAO
	integrationDao dao.IntegrationDAO
	senders        map[models.IntegrationType]Sender
	mailer         Mailer
	dashboardURL   string
	pool           *deliveryPool
	metrics        *metrics.Metrics
	logger         *logger.Logger
}

func NewDispatcher(
	scanDao dao.ScanDAO,
	findingDao dao.FindingDAO,
	orgDao dao.OrganizationDAO,
	integrationDao dao.IntegrationDAO,
	m *metrics.Metrics,
	log *logger.Logger,
	opts Options,
) *Dispatcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	senders := opts.Senders
	if senders == nil {
		senders = DefaultSenders(client)
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Dispatcher{
		scanDao:        scanDao,
		findingDao:     findingDao,
		orgDao:         orgDao,
		integrationDao: integrationDao,
		senders:        senders,
		mailer:         opts.Mailer,
		dashboardURL:   opts.DashboardURL,
		pool:           newDeliveryPool(concurrency, m, log),
		metrics:        m,
		logger:         log,
	}
}

// recipient is one delivery target. key is what NotificationDelivery stores.
type recipient struct {
	key     string
	channel string
	send    func(ctx context.Context) error
}

// qualifies applies the event subscription filter.
func qualifies(cfg *models.IntegrationConfig, critical int) bool {
	if cfg.Subscribes(models.EventScanCompleted) {
		return true
	}
	return cfg.CriticalOnly() && critical > 0
}

// NotifyScanComplete fans a completed scan out to every qualifying
// integration and every member's email. A recipient already recorded as
// served for this scan is skipped, so a retried dispatch never repeats a
// delivery. Per-recipient failures are logged and counted but never abort
// the fan-out; only failing to load the scan context returns an error.
func (d *Dispatcher) NotifyScanComplete(ctx context.Context, scanID string) (*DispatchResult, error) {
	scan, err := d.scanDao.GetScanWithProject(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if scan.Status != models.ScanCompleted {
		return nil, fmt.Errorf("%w: scan %s is %s", vxerrors.ErrInvalidTransition, scan.ID, scan.Status)
	}
	if scan.Project == nil {
		return nil, fmt.Errorf("scan %s has no project: %w", scan.ID, vxerrors.ErrNotFound)
	}

	org, err := d.orgDao.GetOrganizationByID(ctx, scan.Project.OrganizationID)
	if err != nil {
		return nil, err
	}
	findings, err := d.findingDao.ListFindingsByScan(ctx, scan.ID)
	if err != nil {
		return nil, err
	}
	integrations, err := d.integrationDao.ListActiveIntegrations(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	var members []models.Member
	if d.mailer != nil {
		if members, err = d.orgDao.ListMembers(ctx, org.ID); err != nil {
			return nil, err
		}
	}

	summary := NewScanSummary(org, scan.Project, scan, findings, d.dashboardURL)
	recipients := d.recipients(summary, integrations, members)

	result := &DispatchResult{}
	var mu sync.Mutex
	jobs := make([]func(), 0, len(recipients))
	for _, r := range recipients {
		r := r
		jobs = append(jobs, func() {
			outcome := d.deliver(ctx, scan.ID, r)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeDelivered:
				result.Delivered++
			case outcomeSkipped:
				result.Skipped++
			default:
				result.Failed++
			}
		})
	}
	d.pool.Run(jobs)

	d.logger.WithScan(scan.ID, scan.ProjectID).WithFields(map[string]interface{}{
		"delivered": result.Delivered,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	}).Info("Scan notifications dispatched")
	return result, nil
}

func (d *Dispatcher) recipients(summary *ScanSummary, integrations []models.IntegrationConfig, members []models.Member) []recipient {
	var out []recipient
	for i := range integrations {
		cfg := integrations[i]
		if !qualifies(&cfg, summary.Critical()) {
			continue
		}
		sender, ok := d.senders[cfg.Type]
		if !ok || cfg.WebhookURL == "" {
			continue
		}
		out = append(out, recipient{
			key:     "integration:" + cfg.ID,
			channel: string(cfg.Type),
			send: func(ctx context.Context) error {
				return sender.Send(ctx, cfg.WebhookURL, summary)
			},
		})
	}

	if d.mailer != nil {
		subject, body := EmailBody(summary)
		for _, m := range members {
			if m.Email == "" {
				continue
			}
			email := m.Email
			out = append(out, recipient{
				key:     "email:" + email,
				channel: channelEmail,
				send: func(ctx context.Context) error {
					return d.mailer.Send(ctx, email, subject, body)
				},
			})
		}
	}
	return out
}

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (d *Dispatcher) deliver(ctx context.Context, scanID string, r recipient) outcome {
	log := d.logger.WithFields(logger.Fields{"scan_id": scanID, "recipient": r.key, "channel": r.channel})

	done, err := d.integrationDao.WasDelivered(ctx, scanID, r.key)
	if err != nil {
		log.WithError(err).Error("Failed to check delivery record")
		d.metrics.NotificationsFailed.WithLabelValues(r.channel).Inc()
		return outcomeFailed
	}
	if done {
		return outcomeSkipped
	}

	if err := r.send(ctx); err != nil {
		log.WithError(err).Warn("Notification delivery failed")
		d.metrics.NotificationsFailed.WithLabelValues(r.channel).Inc()
		return outcomeFailed
	}

	d.metrics.NotificationsSent.WithLabelValues(r.channel).Inc()
	if err := d.integrationDao.RecordDelivery(ctx, scanID, r.key); err != nil {
		// Sent but unrecorded: a retry may deliver this recipient again.
		log.WithError(err).Error("Failed to record delivery")
	}
	return outcomeDelivered
}

// SendTestNotification formats a synthetic scan for the integration and
// delivers it. Delivery errors are returned to the caller.
func (d *Dispatcher) SendTestNotification(ctx context.Context, integrationID, orgID string) error {
	cfg, err := d.integrationDao.GetIntegrationByID(ctx, integrationID)
	if err != nil {
		return err
	}
	if cfg.OrganizationID != orgID {
		return vxerrors.ErrNotFound
	}
	sender, ok := d.senders[cfg.Type]
	if !ok {
		return fmt.Errorf("%w: %s", vxerrors.ErrUnsupportedIntegrationType, cfg.Type)
	}

	orgName := ""
	if org, err := d.orgDao.GetOrganizationByID(ctx, orgID); err == nil {
		orgName = org.Name
	}

	if err := sender.Send(ctx, cfg.WebhookURL, SampleSummary(orgName, d.dashboardURL)); err != nil {
		d.metrics.NotificationsFailed.WithLabelValues(string(cfg.Type)).Inc()
		return err
	}
	d.metrics.NotificationsSent.WithLabelValues(string(cfg.Type)).Inc()
	return nil
}

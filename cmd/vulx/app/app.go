// Package app wires configuration, storage and services for the vulx
// commands that run against the database.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"vulx/api/routes"
	"vulx/internal/config"
	"vulx/internal/dao"
	"vulx/internal/database"
	"vulx/internal/metrics"
	"vulx/internal/notification"
	"vulx/internal/queue"
	"vulx/internal/scheduler"
	"vulx/internal/services"
	"vulx/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// LoadConfig reads configuration honouring the persistent --config and
// --verbose flags, and builds the process logger.
func LoadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	opts := config.DefaultOptions()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		opts.ConfigFile = path
	}
	cfg, err := config.LoadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = logger.ParseLevel("debug")
	}
	return cfg, logger.NewLogger(level), nil
}

type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *gorm.DB
	Redis   *redis.Client
	Metrics *metrics.Metrics

	Scans        services.ScanServiceMethods
	Projects     services.ProjectServiceMethods
	Remediation  services.RemediationServiceMethods
	Integrations services.IntegrationServiceMethods
	Analytics    services.AnalyticsServiceMethods
	Auth         services.AuthServiceMethods
	Dispatcher   *notification.Dispatcher
	Scheduler    *scheduler.Scheduler
}

// New opens the database and Redis connections and constructs every
// service once. Call Close when done.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	rdb := queue.NewRedisClient(cfg.Redis)
	jobQueue := queue.NewRedisQueue(rdb, cfg.Redis.Queue)
	m := metrics.NewMetrics()

	orgDao := dao.NewOrganizationDAO(db)
	projectDao := dao.NewProjectDAO(db)
	scanDao := dao.NewScanDAO(db)
	findingDao := dao.NewFindingDAO(db)
	integrationDao := dao.NewIntegrationDAO(db)
	snapshotDao := dao.NewSnapshotDAO(db)

	a := &App{
		Config:  cfg,
		Logger:  log,
		DB:      db,
		Redis:   rdb,
		Metrics: m,
	}
	a.Scans = services.NewScanService(scanDao, projectDao, findingDao, jobQueue,
		services.NewHTTPSpecFetcher(cfg.SpecFetchTimeout), m, log)
	a.Projects = services.NewProjectService(projectDao, log)
	a.Remediation = services.NewRemediationService(findingDao, scanDao, orgDao, log)
	a.Integrations = services.NewIntegrationService(integrationDao, log)
	a.Analytics = services.NewAnalyticsService(orgDao, projectDao, scanDao, findingDao, snapshotDao, log)
	a.Auth = services.NewAuthService(orgDao, log)

	var mailer notification.Mailer
	if smtpMailer := notification.NewSMTPMailer(cfg.SMTP); smtpMailer != nil {
		mailer = smtpMailer
	} else {
		log.Info("SMTP not configured - email notifications disabled")
	}
	a.Dispatcher = notification.NewDispatcher(scanDao, findingDao, orgDao, integrationDao, m, log, notification.Options{
		Mailer:       mailer,
		DashboardURL: cfg.DashboardURL,
	})
	a.Scheduler = scheduler.New(cfg.Scheduler, projectDao, scanDao, a.Scans, a.Analytics, a.Dispatcher, m, log)

	return a, nil
}

// HealthCheck pings the database and Redis.
func (a *App) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	sqlDB, err := a.DB.DB()
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

func (a *App) Router() *gin.Engine {
	return routes.InitRouter(routes.Dependencies{
		Scans:        a.Scans,
		Projects:     a.Projects,
		Remediation:  a.Remediation,
		Integrations: a.Integrations,
		Analytics:    a.Analytics,
		Auth:         a.Auth,
		Notifier:     a.Dispatcher,
		Metrics:      a.Metrics,
		Logger:       a.Logger,
		HealthCheck:  a.HealthCheck,
	})
}

// HTTPServer builds the API server for the configured address.
func (a *App) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.Config.Server.Address, a.Config.Server.Port),
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (a *App) Close() error {
	var firstErr error
	if err := a.Redis.Close(); err != nil {
		firstErr = err
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

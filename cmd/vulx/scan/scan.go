package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vulx/internal/models"
	"vulx/pkg/client"
	"vulx/pkg/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ErrThresholdExceeded makes the process exit 1 without being a failure of
// the command itself.
var ErrThresholdExceeded = errors.New("findings at or above the fail-on threshold")

// Config holds the scan command's options
type Config struct {
	ProjectID       string
	FailOn          string
	JSON            bool
	ShowRemediation bool
	APIURL          string
	APIKey          string
	Environment     string
	PollInterval    time.Duration
	MaxAttempts     int
}

// App runs one CI scan against the API
type App struct {
	config    *Config
	threshold models.Severity
	client    *client.Client
	logger    *logger.Logger
}

// NewApp validates the options and builds the API client
func NewApp(config *Config, log *logger.Logger) (*App, error) {
	if config.ProjectID == "" {
		return nil, fmt.Errorf("--project-id is required")
	}
	if config.APIURL == "" {
		return nil, fmt.Errorf("--api-url or VULX_API_URL is required")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("--api-key or VULX_API_KEY is required")
	}
	threshold, err := client.ParseThreshold(config.FailOn)
	if err != nil {
		return nil, err
	}

	return &App{
		config:    config,
		threshold: threshold,
		client: client.New(config.APIURL, config.APIKey,
			client.WithPollInterval(config.PollInterval),
			client.WithMaxAttempts(config.MaxAttempts),
			client.WithLogger(log)),
		logger: log,
	}, nil
}

// Run triggers the scan, waits for it and reports. The returned error is
// ErrThresholdExceeded when the gate trips.
func (a *App) Run(ctx context.Context) error {
	scan, err := a.client.CreateScan(ctx, a.config.ProjectID, client.ScanOptions{
		Environment: models.Environment(strings.ToUpper(a.config.Environment)),
	})
	if err != nil {
		return fmt.Errorf("failed to start scan: %w", err)
	}
	a.logger.WithFields(logger.Fields{"scan_id": scan.ID, "project_id": a.config.ProjectID}).Info("Scan queued, waiting for results")

	scan, err = a.client.WaitForScan(ctx, a.config.ProjectID, scan.ID)
	if err != nil {
		return err
	}

	report := NewReport(scan, a.threshold, a.config.ShowRemediation)
	if a.config.JSON {
		if err := report.WriteJSON(os.Stdout); err != nil {
			return err
		}
	} else {
		report.WriteText(os.Stdout)
	}

	if scan.Status == models.ScanFailed {
		return fmt.Errorf("scan %s failed: %s", scan.ID, scan.ErrorMessage)
	}
	if client.ExitCode(scan, a.threshold) != 0 {
		return ErrThresholdExceeded
	}
	return nil
}

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	config := &Config{}
	v := viper.New()
	v.SetEnvPrefix("VULX")
	v.AutomaticEnv()

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a scan and gate on its findings",
		Long:  `Trigger a scan of a project, wait for it to finish and exit non-zero when any finding meets the --fail-on severity`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			config.APIURL = v.GetString("api_url")
			config.APIKey = v.GetString("api_key")

			level := logrus.WarnLevel
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = logrus.DebugLevel
			}
			log := logger.NewLogger(level)
			log.SetOutput(os.Stderr)

			app, err := NewApp(config, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx)
		},
	}

	scanCmd.Flags().StringVar(&config.ProjectID, "project-id", "", "Project to scan (required)")
	scanCmd.Flags().StringVar(&config.FailOn, "fail-on", string(models.SeverityHigh), "Lowest severity that fails the run")
	scanCmd.Flags().BoolVar(&config.JSON, "json", false, "Print the result as JSON")
	scanCmd.Flags().BoolVar(&config.ShowRemediation, "show-remediation", false, "Include remediation guidance per finding")
	scanCmd.Flags().String("api-url", "", "API base URL, e.g. https://vulx.example.com/api/v1 (env VULX_API_URL)")
	scanCmd.Flags().String("api-key", "", "API key (env VULX_API_KEY)")
	scanCmd.Flags().StringVar(&config.Environment, "environment", string(models.EnvironmentSandbox), "SANDBOX or PRODUCTION")
	scanCmd.Flags().DurationVar(&config.PollInterval, "poll-interval", client.DefaultPollInterval, "Delay between status checks")
	scanCmd.Flags().IntVar(&config.MaxAttempts, "max-attempts", client.DefaultMaxAttempts, "Status checks before giving up")
	_ = scanCmd.MarkFlagRequired("project-id")

	_ = v.BindPFlag("api_url", scanCmd.Flags().Lookup("api-url"))
	_ = v.BindPFlag("api_key", scanCmd.Flags().Lookup("api-key"))

	return scanCmd
}

package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"vulx/cmd/vulx/app"
	"vulx/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

type ServerOpts struct {
	Port          int
	Ip            string
	WithScheduler bool
}

func NewServerCommand() *cobra.Command {
	ServerConfig := &ServerOpts{}

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the VULX API server",
		Long:  `Start the VULX API server together with the rescan, notification and snapshot schedulers`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, log, err := app.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = ServerConfig.Port
			}
			if cmd.Flags().Changed("ip") {
				cfg.Server.Address = ServerConfig.Ip
			}
			if cmd.Flags().Changed("scheduler") {
				cfg.Scheduler.Enabled = ServerConfig.WithScheduler
			}
			if cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			a, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := a.Close(); closeErr != nil {
					log.WithError(closeErr).Error("Error closing application")
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, a)
		},
	}

	serverCmd.Flags().IntVarP(&ServerConfig.Port, "port", "p", 8080, "Port to run the server on")
	serverCmd.Flags().StringVarP(&ServerConfig.Ip, "ip", "i", "0.0.0.0", "IP address to bind the server to")
	serverCmd.Flags().BoolVar(&ServerConfig.WithScheduler, "scheduler", true, "Run the background sweeps in this process")

	return serverCmd
}

func run(ctx context.Context, a *app.App) error {
	ctx, cancelSweeps := context.WithCancel(ctx)
	defer cancelSweeps()

	if err := a.HealthCheck(ctx); err != nil {
		a.Logger.WithError(err).Warn("Dependencies not reachable at startup")
	}

	var wg sync.WaitGroup
	if a.Config.Scheduler.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Scheduler.Run(ctx)
		}()
	}

	srv := a.HTTPServer()
	errChan := make(chan error, 1)
	go func() {
		a.Logger.WithFields(logger.Fields{"addr": srv.Addr}).Info("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	var serveErr error
	select {
	case serveErr = <-errChan:
	case <-ctx.Done():
		a.Logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.WithError(err).Warn("HTTP server shutdown timed out")
	}

	if serveErr != nil {
		a.Logger.WithError(serveErr).Error("API server failed")
	}
	cancelSweeps()
	wg.Wait()
	return serveErr
}

package main

import (
	"context"

	"vulx/cmd/vulx/org"
	"vulx/cmd/vulx/scan"
	"vulx/cmd/vulx/server"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "vulx",
		Short: "API security scanning orchestrator",
		Long:  `VULX queues API security scans, tracks findings through remediation and notifies teams when scans complete`,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a config file (default: config.yaml in ., /etc/vulx or $HOME/.vulx)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add commands
	rootCmd.AddCommand(server.NewServerCommand())
	rootCmd.AddCommand(scan.NewScanCommand())
	rootCmd.AddCommand(org.NewOrgCommand())
	return rootCmd
}

func Execute() error {
	return newRootCommand().ExecuteContext(context.Background())
}

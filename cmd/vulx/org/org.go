package org

import (
	"fmt"

	"vulx/cmd/vulx/app"

	"github.com/spf13/cobra"
)

// NewOrgCommand groups the bootstrap commands that talk to the database
// directly, for use before any API key exists.
func NewOrgCommand() *cobra.Command {
	orgCmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations and API keys",
	}
	orgCmd.AddCommand(newCreateCommand(), newKeyCommand())
	return orgCmd
}

func newCreateCommand() *cobra.Command {
	var name, ownerEmail string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an organization and print its first API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			org, rawKey, err := a.Auth.CreateOrganization(cmd.Context(), name, ownerEmail)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Organization: %s (%s)\nAPI key:      %s\n", org.Name, org.ID, rawKey)
			fmt.Fprintln(cmd.OutOrStdout(), "Store the key now; it cannot be shown again.")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Organization name (required)")
	cmd.Flags().StringVar(&ownerEmail, "owner-email", "", "Owner email, receives scan summaries (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("owner-email")
	return cmd
}

func newKeyCommand() *cobra.Command {
	var orgID, projectID, name string

	cmd := &cobra.Command{
		Use:   "key",
		Short: "Issue an additional API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var scope *string
			if projectID != "" {
				scope = &projectID
			}
			rawKey, key, err := a.Auth.IssueAPIKey(cmd.Context(), orgID, scope, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key %s (%s): %s\n", key.Name, key.ID, rawKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org-id", "", "Organization id (required)")
	cmd.Flags().StringVar(&projectID, "project-id", "", "Restrict the key to one project")
	cmd.Flags().StringVar(&name, "name", "cli", "Key label")
	_ = cmd.MarkFlagRequired("org-id")
	return cmd
}

func open(cmd *cobra.Command) (*app.App, error) {
	cfg, log, err := app.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, log)
}

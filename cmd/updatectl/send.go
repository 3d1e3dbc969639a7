package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/updateme/engine/internal/bootstrap"
)

func newSendWeeklyCmd() *cobra.Command {
	var (
		days   int
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "send-weekly",
		Short: "Mail every subscriber whose last email is older than --days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(dryRun, func(app *bootstrap.App) error {
				if days <= 0 {
					days = app.Config.Newsletter.DaysInterval
				}
				report, err := app.Newsletter.ProcessPendingEmails(cmd.Context(), days)
				if report != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Due:      %d\nSent:     %d\nFailed:   %d\nDuration: %s\n",
						report.Total, report.Sent, report.Failed, report.Duration)
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "minimum days since the last email (default from NEWSLETTER_DAYS_INTERVAL)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log emails instead of sending them")
	return cmd
}

func newSendFirstCmd() *cobra.Command {
	var (
		email  string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "send-first",
		Short: "Send the welcome email and a first summary to one address",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(dryRun, func(app *bootstrap.App) error {
				if err := app.Newsletter.SendFirstSummary(cmd.Context(), email); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "First summary sent to %s\n", email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "recipient address")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log emails instead of sending them")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Generate and print a summary without sending it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(true, func(app *bootstrap.App) error {
				s := app.Summaries.GenerateNewsSummaryDetailed(cmd.Context(), email)
				provider := s.Provider
				if provider == "" {
					provider = "-"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Provider: %s\nSource:   %s\n\n%s\n", provider, s.Source, s.Body)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "subscriber address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/updateme/engine/internal/bootstrap"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the generation cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(true, func(app *bootstrap.App) error {
				stats, err := app.CacheStore.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d\nToday:   %s\n", stats.Entries, app.CacheStore.Today().Format("2006-01-02"))
				return nil
			})
		},
	}

	var days int
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete entries older than --days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(true, func(app *bootstrap.App) error {
				if days <= 0 {
					days = app.Config.Cache.DaysToKeep
				}
				n, err := app.CacheStore.ClearExpired(cmd.Context(), days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries older than %d days\n", n, days)
				return nil
			})
		},
	}
	sweepCmd.Flags().IntVar(&days, "days", 0, "days to keep (default from CACHE_DAYS_TO_KEEP)")

	cmd.AddCommand(statsCmd, sweepCmd)
	return cmd
}

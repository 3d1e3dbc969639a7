package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/updateme/engine/configs"
	"github.com/updateme/engine/internal/bootstrap"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "updatectl",
		Short:         "Operate the UpdateMe newsletter engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newSendWeeklyCmd(),
		newSendFirstCmd(),
		newPreviewCmd(),
		newCacheCmd(),
		newOpsTokenCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads configuration, wires the engine and closes it after fn.
func withApp(dryRun bool, fn func(*bootstrap.App) error) error {
	cfg, err := configs.Load()
	if err != nil {
		return err
	}
	logger := bootstrap.NewLogger(cfg.Log)
	app, err := bootstrap.New(cfg, logger, bootstrap.Options{
		DryRun:         dryRun,
		Registerer:     prometheus.NewRegistry(),
		SkipMigrations: true,
	})
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return fn(app)
}

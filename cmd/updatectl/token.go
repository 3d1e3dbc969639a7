package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/updateme/engine/configs"
	"github.com/updateme/engine/internal/application/services"
)

func newOpsTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "ops-token",
		Short: "Issue a bearer token for the ops API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configs.Load()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Ops.TokenTTL
			}
			token, err := services.NewOpsAuthService(cfg.Ops.JWTSecret, cfg.Ops.Issuer).IssueToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from OPS_TOKEN_TTL)")
	return cmd
}

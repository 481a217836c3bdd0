package main

import (
	"fmt"
	"time"

	"fintrack/pkg/auth"
	"fintrack/pkg/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development JWT signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}
			if ttl <= 0 {
				ttl = cfg.JWT.TokenTTL
			}

			token, err := auth.NewJWTManager(cfg.JWT.SecretKey, ttl).GenerateToken(id.String(), email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (random when empty)")
	cmd.Flags().StringVar(&email, "email", "dev@localhost", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_TOKEN_TTL_HOURS)")
	return cmd
}

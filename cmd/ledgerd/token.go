package main

import (
	"fmt"
	"time"

	"github.com/SscSPs/voledger/internal/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for the API with the configured JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := uuid.Parse(subject)
			if err != nil {
				return fmt.Errorf("subject must be a UUID: %w", err)
			}
			if role != "" && role != middleware.RoleIssuer {
				return fmt.Errorf("unknown role %q", role)
			}
			signed, err := middleware.GenerateToken(owner, role, a.cfg.JWTSecret, a.cfg.JWTIssuer, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), signed)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "owner id the token acts as")
	cmd.Flags().StringVar(&role, "role", "", `optional role, "issuer" to allow minting and asset registration`)
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

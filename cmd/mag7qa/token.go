package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xxxsen/mag7qa/internal/pkg/jwt"
)

func newTokenCmd(configPath *string) *cobra.Command {
	var userID string
	var ttlHours int
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue an api token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return fmt.Errorf("server.jwt_secret is required")
			}
			if ttlHours <= 0 {
				ttlHours = cfg.Server.JWTTTLHours
			}
			token, err := jwt.GenerateToken(userID, []byte(cfg.Server.JWTSecret), time.Duration(ttlHours)*time.Hour)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id carried by the token")
	cmd.Flags().IntVar(&ttlHours, "ttl-hours", 0, "token lifetime, defaults to server.jwt_ttl_hours")
	return cmd
}

package cmd

import (
	"fmt"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal/auth"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Bearer token utilities",
}

var (
	tokenSubject string
	tokenAdmin   bool
	tokenTTL     time.Duration
)

var issueTokenCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign a bearer token with the configured secret",
	Long:  `Sign a bearer token for schedulers and operators. Admin tokens may mutate user configs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		manager, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTIssuer)
		if err != nil {
			return err
		}
		token, err := manager.Issue(tokenSubject, tokenAdmin, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	issueTokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject, e.g. the operator or scheduler name")
	issueTokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "grant the admin claim")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = issueTokenCmd.MarkFlagRequired("subject")

	tokenCmd.AddCommand(issueTokenCmd)
}

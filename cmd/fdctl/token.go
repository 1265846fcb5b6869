package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fdbank/deposit-service/internal/auth"
	"github.com/fdbank/deposit-service/internal/config"
	"github.com/fdbank/deposit-service/internal/domain"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or inspect identity tokens",
	}
	cmd.AddCommand(tokenIssueCmd(), tokenInspectCmd())
	return cmd
}

func tokenIssueCmd() *cobra.Command {
	var subject, role string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token for a subject and role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !domain.Role(role).Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			tokens, err := loadTokenService()
			if err != nil {
				return err
			}
			token, exp, err := tokens.Issue(subject, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject (username)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleCustomer), "role claim: CUSTOMER or BANK_MANAGER")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func tokenInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := loadTokenService()
			if err != nil {
				return err
			}
			claims, err := tokens.Parse(args[0])
			if err != nil {
				return fmt.Errorf("token rejected: %s", auth.FailureLabel(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "subject: %s\n", claims.Subject)
			fmt.Fprintf(out, "role:    %s\n", claims.Role)
			if claims.IssuedAt != nil {
				fmt.Fprintf(out, "issued:  %s\n", claims.IssuedAt.UTC().Format(time.RFC3339))
			}
			fmt.Fprintf(out, "expires: %s\n", claims.ExpiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
}

func loadTokenService() (*auth.TokenService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return auth.NewTokenServiceFromConfig(cfg.Auth)
}

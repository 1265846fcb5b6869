package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fdbank/deposit-service/internal/auth"
	"github.com/fdbank/deposit-service/internal/domain"
)

func policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the route access policy",
	}
	cmd.AddCommand(policyCheckCmd(), policyListCmd())
	return cmd
}

func policyCheckCmd() *cobra.Command {
	var role string
	var anonymous bool

	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Print the requirement for a path and, optionally, a caller's outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requirement := auth.DefaultPolicy().RequiredRole(args[0])
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s requires %s\n", args[0], requirement)

			if role == "" && !anonymous {
				return nil
			}
			var principal *auth.Principal
			if !anonymous {
				principal = &auth.Principal{Subject: "fdctl", Role: domain.Role(role)}
			}
			switch err := requirement.Permits(principal); {
			case err == nil:
				fmt.Fprintln(out, "allow")
			case errors.Is(err, auth.ErrForbidden):
				fmt.Fprintln(out, "deny (403 forbidden)")
			default:
				fmt.Fprintln(out, "deny (401 unauthorized)")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "evaluate for a caller holding this role")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "evaluate for a caller without a token")
	return cmd
}

func policyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the policy rules in evaluation order",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for i, rule := range auth.DefaultPolicy().Rules() {
				fmt.Fprintf(out, "%2d  %-22s %s\n", i+1, rule.Pattern, rule.Requirement)
			}
			fmt.Fprintf(out, "    %-22s %s\n", "(default)", auth.Authenticated())
		},
	}
}

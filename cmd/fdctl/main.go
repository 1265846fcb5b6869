package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fdctl",
		Short: "Operator tooling for the deposit service",
		Long: `fdctl issues and inspects identity tokens and evaluates the route
access policy using the same configuration as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		tokenCmd(),
		policyCmd(),
	)
	return rootCmd
}

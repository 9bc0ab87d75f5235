// Package cli is the command-line entry point of the ELT pipeline.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"duck-elt/internal/config"
)

// Execute runs the pipeline once and returns the process exit code.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	rootCmd := newRootCmd(options{
		envFile:  ".env",
		manifest: config.DefaultManifestPath,
		stderr:   os.Stderr,
	})
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type options struct {
	envFile  string
	manifest string
	stderr   io.Writer
}

func newRootCmd(opts options) *cobra.Command {
	return &cobra.Command{
		Use:   "elt",
		Short: "Run the Postgres to DuckDB ELT pipeline",
		Long: "Extracts the source tables to Parquet, loads them into DuckDB, runs dbt and " +
			"exports the dbt models back to Parquet. Source credentials come from the " +
			"POSTGRES_* environment variables (optionally seeded from .env).",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newMigrateCmd groups the schema migration subcommands.
func newMigrateCmd(factory DependencyFactory, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDeps(factory, opts, func(ctx context.Context, deps *Dependencies) error {
					if err := deps.Migrate.Up(); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back one migration step",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDeps(factory, opts, func(ctx context.Context, deps *Dependencies) error {
					if err := deps.Migrate.Down(); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "rolled back one step")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDeps(factory, opts, func(ctx context.Context, deps *Dependencies) error {
					version, dirty, err := deps.Migrate.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version: %d  dirty: %t\n", version, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

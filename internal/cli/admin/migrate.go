package admin

import (
	"fmt"

	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/cloo-solutions/ragchat/internal/database"
	"github.com/spf13/cobra"
)

// MigrateCmd returns the schema migration command group
func MigrateCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().StringVar(&source, "source", database.DefaultMigrationsSource, "Migrations source URL")

	run := func(direction string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			if err := database.Migrate(url, source, direction); err != nil {
				return err
			}
			return printVersion(cmd, url, source)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  run("up"),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Args:  cobra.NoArgs,
		RunE:  run("down"),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			return printVersion(cmd, url, source)
		},
	})

	return cmd
}

func databaseURL() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasDatabase() {
		return "", fmt.Errorf("DATABASE_URL is required")
	}
	return cfg.DatabaseURL, nil
}

func printVersion(cmd *cobra.Command, url, source string) error {
	version, dirty, err := database.Version(url, source)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty, manual intervention required", version)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return nil
}

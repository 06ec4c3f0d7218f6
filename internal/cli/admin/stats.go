package admin

import (
	"fmt"

	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/cloo-solutions/ragchat/internal/database"
	"github.com/cloo-solutions/ragchat/internal/repository"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/spf13/cobra"
)

// StatsCmd prints the knowledge base diagnostic summary
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print resource and embedding counts with samples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.HasDatabase() {
				return fmt.Errorf("DATABASE_URL is required")
			}

			pool, err := database.NewPool(cmd.Context(), database.Config{URL: cfg.DatabaseURL, MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			stats, err := service.NewStatsService(repository.NewStatsRepository(pool)).Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), service.FormatStats(stats))
			return nil
		},
	}
}

package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StatsResponse is the subset of /stats the client prints.
type StatsResponse struct {
	ResourceCount int    `json:"resource_count"`
	ChunkCount    int    `json:"chunk_count"`
	Summary       string `json:"summary"`
}

// StatsCmd creates the stats command.
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(cmd.Context(), "/stats")
			if err != nil {
				return fmt.Errorf("stats failed: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				fmt.Fprintln(cmd.OutOrStdout(), string(resp.Data))
				return nil
			}

			var stats StatsResponse
			if err := json.Unmarshal(resp.Data, &stats); err != nil {
				return fmt.Errorf("failed to parse stats: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), stats.Summary)
			return nil
		},
	}
}

package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResult struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search knowledge",
		Long:  "Runs the retrieval step on its own and prints the chunks that would be given to the assistant.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post(cmd.Context(), "/search", SearchRequest{Query: args[0]})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			var searchResp SearchResponse
			if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
				return fmt.Errorf("failed to parse search results: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				return printJSON(cmd, searchResp)
			}

			out := cmd.OutOrStdout()
			if len(searchResp.Results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			fmt.Fprintf(out, "Found %d results:\n\n", len(searchResp.Results))
			for i, r := range searchResp.Results {
				fmt.Fprintf(out, "%d. (%.3f) %s\n", i+1, r.Similarity, r.Content)
			}
			return nil
		},
	}
}

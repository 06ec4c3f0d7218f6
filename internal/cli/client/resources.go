package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type CreateResourceRequest struct {
	Content string `json:"content"`
}

type CreateResourceResponse struct {
	ID         string `json:"id"`
	ChunkCount int    `json:"chunk_count"`
	Message    string `json:"message"`
}

type Resource struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ResourceList struct {
	Items   []Resource `json:"items"`
	Cursor  string     `json:"cursor,omitempty"`
	HasMore bool       `json:"has_more"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add knowledge",
		Long:  "Adds text to the knowledge base. The text is split into sentences and embedded.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := addContent(args, file)
			if err != nil {
				return err
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post(cmd.Context(), "/resources", CreateResourceRequest{Content: content})
			if err != nil {
				return fmt.Errorf("add failed: %w", err)
			}

			var created CreateResourceResponse
			if err := json.Unmarshal(resp.Data, &created); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				return printJSON(cmd, created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nID: %s (%d chunks)\n", created.Message, created.ID, created.ChunkCount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the content from a file")

	return cmd
}

func addContent(args []string, file string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", fmt.Errorf("pass either text or --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("nothing to add: pass text or --file")
	}
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored resources",
		Long:  "Lists stored resources, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if cursor != "" {
				q.Set("cursor", cursor)
			}
			resp, err := api.Get(cmd.Context(), "/resources?"+q.Encode())
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}

			var list ResourceList
			if err := json.Unmarshal(resp.Data, &list); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				return printJSON(cmd, list)
			}

			out := cmd.OutOrStdout()
			if len(list.Items) == 0 {
				fmt.Fprintln(out, "No resources.")
				return nil
			}
			for _, r := range list.Items {
				fmt.Fprintf(out, "%s  %s  %s\n", r.ID, r.CreatedAt.Local().Format(time.DateTime), truncate(r.Content, 60))
			}
			if list.HasMore {
				fmt.Fprintf(out, "\nMore resources available. Use --cursor %s\n", list.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of resources")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a resource",
		Long:  "Deletes a resource and all of its embedded chunks.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete(cmd.Context(), "/resources/"+url.PathEscape(args[0])); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return nil
}

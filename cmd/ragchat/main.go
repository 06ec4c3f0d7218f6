package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/ragchat/internal/cli"
	"github.com/cloo-solutions/ragchat/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ragchat",
		Short: "Ragchat CLI - chat with your knowledge base",
		Long: `Ragchat CLI talks to a ragchatd server.

Environment variables:
  RAGCHAT_API_URL   Server URL (default: http://localhost:8080)
  RAGCHAT_API_KEY   API key, when the server requires one`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "Server URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.AddCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.StatsCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

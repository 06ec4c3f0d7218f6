package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/ragchat/internal/cli"
	"github.com/cloo-solutions/ragchat/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ragchatd",
		Short: "Ragchat daemon",
		Long:  "Ragchat daemon for serving the chat API, loading documents and managing the schema",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.StatsCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage saved server credentials",
		Long:  "Save, clear and inspect the server URL and API key used by ragchat",
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authLogoutCmd())
	cmd.AddCommand(authStatusCmd())

	return cmd
}

func authLoginCmd() *cobra.Command {
	var apiKey, apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save server URL and API key",
		Long:  "Store the server URL and API key in the user config directory (ragchat/config.json)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := SaveGlobalConfig(&GlobalConfig{APIKey: apiKey, APIURL: apiURL}); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "key", "", "API key (empty when the server runs without auth)")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "Server URL")

	return cmd
}

func authLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear saved credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials cleared")
			return nil
		},
	}
}

func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which server ragchat talks to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flagKey, _ := cmd.Flags().GetString("api-key")
			flagURL, _ := cmd.Flags().GetString("api-url")
			source, apiKey, apiURL, err := ResolveCredentials(flagKey, flagURL)
			if err != nil {
				return err
			}

			status := map[string]interface{}{
				"source":  string(source),
				"api_url": apiURL,
				"api_key": maskAPIKey(apiKey),
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				return printJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Source: %s\n", source)
			fmt.Fprintf(out, "API URL: %s\n", apiURL)
			fmt.Fprintf(out, "API Key: %s\n", maskAPIKey(apiKey))
			return nil
		},
	}
}

func maskAPIKey(key string) string {
	if key == "" {
		return "(none)"
	}
	if len(key) < 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

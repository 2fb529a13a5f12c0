package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	sessionToken string
	clioToken    string
	apiURL       string = "http://localhost:8080"
	output       string = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:   "counseldesk",
	Short: "CounselDesk CLI - Query your practice dashboard from the terminal",
	Long: `CounselDesk CLI provides command-line access to the CounselDesk API.
Inspect your week feed, matters, tasks, and firm KPIs without opening the dashboard.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if sessionToken == "" {
			sessionToken = os.Getenv("COUNSELDESK_TOKEN")
		}
		if clioToken == "" {
			clioToken = os.Getenv("CLIO_ACCESS_TOKEN")
		}
		if sessionToken == "" && cmd.Name() != "help" && cmd.Parent() != nil {
			fmt.Fprintf(os.Stderr, "Error: COUNSELDESK_TOKEN environment variable not set\n")
			fmt.Fprintf(os.Stderr, "Sign in through the dashboard and export the session token: export COUNSELDESK_TOKEN=<your-token>\n")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sessionToken, "token", "", "Session token (defaults to COUNSELDESK_TOKEN env var)")
	rootCmd.PersistentFlags().StringVar(&clioToken, "clio-token", "", "Case-management access token (defaults to CLIO_ACCESS_TOKEN env var)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API server URL")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(mattersCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(kpisCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

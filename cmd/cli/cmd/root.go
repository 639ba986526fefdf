package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL    string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "voicemon",
	Short: "voicemon CLI - voice agent usage and quality monitoring",
	Long: `voicemon aggregates voice-call usage events and QA scores into
cost summaries, rankings and alerts.

This CLI tool allows you to:
- View cost totals, trailing windows and the monthly projection
- Rank clients, agents and providers by cost or call volume
- List budget and quality alerts
- Browse recent conversations with their QA scores
- Import usage events and QA scores into a local database`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", getEnvOrDefault("VOICEMON_URL", defaultServerURL), "voicemon server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

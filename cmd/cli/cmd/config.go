package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const (
	defaultServerURL    = "http://localhost:8080"
	defaultDatabasePath = "./data/voicemon.db"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show where the CLI reads and writes data",
	Long: `Show the server the read commands query and the SQLite database the
import command writes, with where each setting came from.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved settings and their sources",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Print how to persist a setting",
	Long: `Print the environment variable that persists a setting. Supported keys:
  server  - voicemon server URL (VOICEMON_URL)
  db      - SQLite database used by import (DATABASE_PATH)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// setting is one resolved CLI value
type setting struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// resolveSetting reports where value came from: an explicit flag, the
// environment variable, or the built-in default
func resolveSetting(name, value, flag, envKey, fallback string) setting {
	env := os.Getenv(envKey)
	s := setting{Name: name, Value: value}
	switch {
	case value == "":
		s.Value = getEnvOrDefault(envKey, fallback)
		s.Source = "default"
		if env != "" {
			s.Source = envKey
		}
	case value != getEnvOrDefault(envKey, fallback):
		s.Source = flag + " flag"
	case env != "":
		s.Source = envKey
	default:
		s.Source = "default"
	}
	return s
}

func currentSettings() []setting {
	return []setting{
		resolveSetting("server", serverURL, "--server", "VOICEMON_URL", defaultServerURL),
		resolveSetting("db", importDBPath, "--db", "DATABASE_PATH", defaultDatabasePath),
		{Name: "output", Value: outputFormat, Source: "--output flag"},
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	settings := currentSettings()

	if outputFormat == "json" {
		return printJSON(settings)
	}

	fmt.Println("voicemon CLI Settings")
	fmt.Println("=====================")
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SETTING\tVALUE\tSOURCE")
	fmt.Fprintln(w, "-------\t-----\t------")
	for _, s := range settings {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Value, s.Source)
	}
	w.Flush()

	fmt.Println()
	fmt.Println("Read commands query the server; import writes the database directly.")
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	var envKey, flag string
	switch key {
	case "server":
		envKey, flag = "VOICEMON_URL", "--server"
	case "db":
		envKey, flag = "DATABASE_PATH", "--db"
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	fmt.Printf("The CLI keeps no config file. Persist %s with:\n", key)
	fmt.Printf("  export %s=%s\n", envKey, value)
	fmt.Println()
	fmt.Printf("Or pass %s on each command.\n", flag)
	return nil
}

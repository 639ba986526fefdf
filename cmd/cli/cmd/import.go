package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voicemon/voicemon/internal/logging"
	"github.com/voicemon/voicemon/internal/storage"
	"github.com/voicemon/voicemon/pkg/models"
)

var (
	importDBPath     string
	importEventsFile string
	importScoresFile string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import usage events and QA scores into a local database",
	Long: `Import pre-normalized usage events and QA scores from JSON array files
into the SQLite database the server reads. Events already stored (same
provider, workspace and external event id) are skipped, as are invalid records.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importDBPath, "db", getEnvOrDefault("DATABASE_PATH", defaultDatabasePath), "SQLite database path")
	importCmd.Flags().StringVar(&importEventsFile, "events", "", "JSON file with an array of usage events")
	importCmd.Flags().StringVar(&importScoresFile, "scores", "", "JSON file with an array of QA scores")
}

// databasePath is the SQLite file import writes; --db wins over DATABASE_PATH
func databasePath() string {
	if importDBPath != "" {
		return importDBPath
	}
	return getEnvOrDefault("DATABASE_PATH", defaultDatabasePath)
}

// importSummary is the JSON output of an import run
type importSummary struct {
	Events *storage.ImportResult `json:"events,omitempty"`
	Scores *storage.ImportResult `json:"scores,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	if importEventsFile == "" && importScoresFile == "" {
		return fmt.Errorf("at least one of --events or --scores is required")
	}

	var events []models.UsageEvent
	if importEventsFile != "" {
		if err := readJSONFile(importEventsFile, &events); err != nil {
			return err
		}
	}
	var scores []models.QAScore
	if importScoresFile != "" {
		if err := readJSONFile(importScoresFile, &scores); err != nil {
			return err
		}
	}

	logger := logging.Setup(logging.Config{Level: "warn", Format: "text", Output: os.Stderr})

	db, err := storage.New(databasePath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	importer := storage.NewImporter(storage.NewEventStore(db), storage.NewScoreStore(db), logger)

	var summary importSummary
	if importEventsFile != "" {
		result, err := importer.ImportEvents(ctx, events)
		if err != nil {
			return fmt.Errorf("failed to import events: %w", err)
		}
		summary.Events = &result
	}
	// Scores go second so the events they reference are already stored
	if importScoresFile != "" {
		result, err := importer.ImportScores(ctx, scores)
		if err != nil {
			return fmt.Errorf("failed to import scores: %w", err)
		}
		summary.Scores = &result
	}

	if outputFormat == "json" {
		return printJSON(summary)
	}

	fmt.Printf("Database: %s\n", importDBPath)
	if summary.Events != nil {
		fmt.Printf("Events:   %d inserted, %d duplicates, %d invalid\n",
			summary.Events.Inserted, summary.Events.Duplicates, summary.Events.Invalid)
	}
	if summary.Scores != nil {
		fmt.Printf("Scores:   %d inserted, %d duplicates, %d invalid\n",
			summary.Scores.Inserted, summary.Scores.Duplicates, summary.Scores.Invalid)
	}
	return nil
}

func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

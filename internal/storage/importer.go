package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/voicemon/voicemon/internal/logging"
	"github.com/voicemon/voicemon/pkg/models"
)

// ImportResult counts what happened to each record of an import batch
type ImportResult struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"` // Already stored, skipped
	Invalid    int `json:"invalid"`    // Failed validation, skipped
}

// Importer loads pre-normalized records into the event and score stores.
// Re-importing the same provider event is a no-op.
type Importer struct {
	events   *EventStore
	scores   *ScoreStore
	validate *validator.Validate
	logger   *slog.Logger
}

// NewImporter creates an importer over the given stores
func NewImporter(events *EventStore, scores *ScoreStore, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		events:   events,
		scores:   scores,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ImportEvents validates and stores usage events
func (im *Importer) ImportEvents(ctx context.Context, events []models.UsageEvent) (ImportResult, error) {
	var result ImportResult
	for i := range events {
		event := &events[i]
		if event.ID == "" {
			event.ID = uuid.New().String()
		}
		if err := im.validate.Struct(event); err != nil {
			im.logger.Warn("skipping invalid usage event",
				slog.String("external_event_id", event.ExternalEventID),
				slog.String("error", err.Error()))
			result.Invalid++
			continue
		}

		err := im.events.Create(ctx, event)
		switch {
		case errors.Is(err, ErrAlreadyExists):
			result.Duplicates++
		case err != nil:
			return result, fmt.Errorf("failed to import usage event %s: %w", event.ExternalEventID, err)
		default:
			result.Inserted++
		}
	}

	logging.Audit(ctx, "import_events",
		slog.Int("inserted", result.Inserted),
		slog.Int("duplicates", result.Duplicates),
		slog.Int("invalid", result.Invalid))

	return result, nil
}

// ImportScores validates and stores QA scores. Scores whose event is not
// stored yet are still written; the snapshot join drops them.
func (im *Importer) ImportScores(ctx context.Context, scores []models.QAScore) (ImportResult, error) {
	var result ImportResult
	for i := range scores {
		score := &scores[i]
		if score.ID == "" {
			score.ID = uuid.New().String()
		}
		if err := im.validate.Struct(score); err != nil {
			im.logger.Warn("skipping invalid qa score",
				slog.String("usage_event_id", score.UsageEventID),
				slog.String("error", err.Error()))
			result.Invalid++
			continue
		}

		err := im.scores.Create(ctx, score)
		switch {
		case errors.Is(err, ErrAlreadyExists):
			result.Duplicates++
		case err != nil:
			return result, fmt.Errorf("failed to import qa score for %s: %w", score.UsageEventID, err)
		default:
			result.Inserted++
		}
	}

	logging.Audit(ctx, "import_scores",
		slog.Int("inserted", result.Inserted),
		slog.Int("duplicates", result.Duplicates),
		slog.Int("invalid", result.Invalid))

	return result, nil
}

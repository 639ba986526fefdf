// Package snapshot loads usage events and QA scores and joins them into an
// immutable snapshot for one aggregation pass.
package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/voicemon/voicemon/internal/logging"
	"github.com/voicemon/voicemon/internal/metrics"
	"github.com/voicemon/voicemon/pkg/models"
)

// Store names used in errors and metrics
const (
	StoreEvents   = "usage_events"
	StoreQAScores = "qa_scores"
)

// EventStore is the read contract of the usage event store
type EventStore interface {
	ListUsageEvents(ctx context.Context, query models.EventQuery) ([]models.UsageEvent, error)
}

// ScoreStore is the read contract of the QA score store
type ScoreStore interface {
	ListQAScores(ctx context.Context) ([]models.QAScore, error)
}

// Loader pulls both record sets and joins them
type Loader struct {
	events EventStore
	scores ScoreStore
	logger *slog.Logger

	// For time mocking in tests
	now func() time.Time
}

// Option configures the loader
type Option func(*Loader)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithTimeFunc sets a custom time function (for testing)
func WithTimeFunc(fn func() time.Time) Option {
	return func(l *Loader) {
		l.now = fn
	}
}

// New creates a new snapshot loader
func New(events EventStore, scores ScoreStore, opts ...Option) *Loader {
	l := &Loader{
		events: events,
		scores: scores,
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load fetches all usage events (newest call first) and all QA scores,
// then left-joins scores onto events. The two reads run concurrently.
// If either read fails the error wraps models.ErrStoreUnavailable and no
// snapshot is returned.
func (l *Loader) Load(ctx context.Context) (*models.Snapshot, error) {
	ctx = logging.WithPassID(ctx, uuid.New().String())
	start := time.Now()

	var (
		events []models.UsageEvent
		scores []models.QAScore
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = l.events.ListUsageEvents(gctx, models.EventQuery{Order: models.SortStartedAtDesc})
		if err != nil {
			return models.NewStoreError(StoreEvents, "list", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		scores, err = l.scores.ListQAScores(gctx)
		if err != nil {
			return models.NewStoreError(StoreQAScores, "list", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		store := "unknown"
		var se *models.StoreError
		if errors.As(err, &se) {
			store = se.Store
		}
		metrics.RecordSnapshotFailure(store)
		l.logger.ErrorContext(ctx, "snapshot load failed",
			slog.String("store", store),
			slog.String("error", err.Error()))
		return nil, err
	}

	conversations, orphans := Join(events, scores)
	snap := &models.Snapshot{
		Conversations: conversations,
		LoadedAt:      l.now(),
		OrphanScores:  orphans,
	}

	duration := time.Since(start)
	metrics.RecordSnapshotLoad(len(conversations), orphans, duration)
	l.logger.DebugContext(ctx, "snapshot loaded",
		slog.Int("conversations", len(conversations)),
		slog.Int("qa_scores", len(scores)),
		slog.Int("orphan_scores", orphans),
		slog.Duration("duration", duration))

	return snap, nil
}

// Join pairs every event with its QA score, keeping event order. Scores
// whose event is absent are counted as orphans and dropped. If a store
// ever returns two scores for one event, the first one wins.
func Join(events []models.UsageEvent, scores []models.QAScore) ([]models.JoinedConversation, int) {
	eventIDs := make(map[string]struct{}, len(events))
	for i := range events {
		eventIDs[events[i].ID] = struct{}{}
	}

	byEvent := make(map[string]*models.QAScore, len(scores))
	orphans := 0
	for i := range scores {
		id := scores[i].UsageEventID
		if _, ok := eventIDs[id]; !ok {
			orphans++
			continue
		}
		if _, dup := byEvent[id]; dup {
			continue
		}
		score := scores[i]
		byEvent[id] = &score
	}

	conversations := make([]models.JoinedConversation, len(events))
	for i := range events {
		conversations[i] = models.JoinedConversation{
			UsageEvent: events[i],
			QAScore:    byEvent[events[i].ID],
		}
	}

	return conversations, orphans
}

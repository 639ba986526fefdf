package snapshot

import (
	"context"
	"errors"

	"github.com/voicemon/voicemon/pkg/models"
)

// EventGetter reads one usage event by id
type EventGetter interface {
	Get(ctx context.Context, id string) (*models.UsageEvent, error)
}

// ScoreGetter reads the QA score attached to one usage event
type ScoreGetter interface {
	GetByUsageEvent(ctx context.Context, usageEventID string) (*models.QAScore, error)
}

// Lookup joins a single conversation without loading a full snapshot
type Lookup struct {
	events EventGetter
	scores ScoreGetter
}

// NewLookup creates a new single-conversation reader
func NewLookup(events EventGetter, scores ScoreGetter) *Lookup {
	return &Lookup{events: events, scores: scores}
}

// Conversation returns the usage event with its QA score attached, if one
// exists. A missing event returns an error wrapping models.ErrNotFound;
// other read failures wrap models.ErrStoreUnavailable.
func (l *Lookup) Conversation(ctx context.Context, id string) (*models.JoinedConversation, error) {
	event, err := l.events.Get(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, models.NewStoreError(StoreEvents, "get", err)
	}

	score, err := l.scores.GetByUsageEvent(ctx, id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		score = nil
	case err != nil:
		return nil, models.NewStoreError(StoreQAScores, "get", err)
	}

	return &models.JoinedConversation{UsageEvent: *event, QAScore: score}, nil
}

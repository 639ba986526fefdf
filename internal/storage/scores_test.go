package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicemon/voicemon/pkg/models"
)

func newTestScore(id, usageEventID string, overall float64) *models.QAScore {
	return &models.QAScore{
		ID:                 id,
		UsageEventID:       usageEventID,
		OverallScore:       overall,
		ComprehensionScore: 70,
		ResolutionScore:    60,
		ToneScore:          80,
		ComplianceScore:    50,
		EscalationNeeded:   true,
		ConversationIntent: "Property Inquiry",
		UrgencyLevel:       models.UrgencyHigh,
		RisksDetected:      []string{"Low comprehension", "Missed escalation"},
	}
}

func TestScoreStore_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	store := NewScoreStore(db)
	ctx := context.Background()

	score := newTestScore("qa-001", "evt-001", 65)
	score.ReviewerNotes = "needs coaching"
	require.NoError(t, store.Create(ctx, score))

	got, err := store.GetByUsageEvent(ctx, "evt-001")
	require.NoError(t, err)
	assert.Equal(t, "qa-001", got.ID)
	assert.InDelta(t, 65, got.OverallScore, 1e-9)
	assert.True(t, got.EscalationNeeded)
	assert.False(t, got.HumanReviewed)
	assert.Equal(t, models.UrgencyHigh, got.UrgencyLevel)
	assert.Equal(t, []string{"Low comprehension", "Missed escalation"}, got.RisksDetected)
	assert.Equal(t, "needs coaching", got.ReviewerNotes)
	assert.Empty(t, got.Summary)
}

func TestScoreStore_Create_OnePerEvent(t *testing.T) {
	db := newTestDB(t)
	store := NewScoreStore(db)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestScore("qa-001", "evt-001", 65)))
	err := store.Create(ctx, newTestScore("qa-002", "evt-001", 90))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestScoreStore_ListQAScores_IncludesOrphans(t *testing.T) {
	db := newTestDB(t)
	store := NewScoreStore(db)
	ctx := context.Background()

	// No usage events exist; scores are still listed
	require.NoError(t, store.Create(ctx, newTestScore("qa-001", "evt-001", 65)))
	require.NoError(t, store.Create(ctx, newTestScore("qa-002", "evt-404", 92)))

	scores, err := store.ListQAScores(ctx)
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}

func TestScoreStore_GetByUsageEvent_NotFound(t *testing.T) {
	db := newTestDB(t)
	store := NewScoreStore(db)

	_, err := store.GetByUsageEvent(context.Background(), "evt-001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScoreStore_Create_NilRisks(t *testing.T) {
	db := newTestDB(t)
	store := NewScoreStore(db)
	ctx := context.Background()

	score := newTestScore("qa-001", "evt-001", 92)
	score.RisksDetected = nil
	require.NoError(t, store.Create(ctx, score))

	got, err := store.GetByUsageEvent(ctx, "evt-001")
	require.NoError(t, err)
	assert.Empty(t, got.RisksDetected)
}

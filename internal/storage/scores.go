package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/voicemon/voicemon/pkg/models"
)

// ScoreStore handles QA score persistence
type ScoreStore struct {
	db *DB
}

// NewScoreStore creates a new QA score store
func NewScoreStore(db *DB) *ScoreStore {
	return &ScoreStore{db: db}
}

const qaScoreColumns = `
	id, usage_event_id, overall_score,
	comprehension_score, resolution_score, tone_score, compliance_score,
	escalation_needed, conversation_intent, urgency_level, risks_detected,
	human_reviewed, summary, ai_feedback, reviewer_notes,
	created_at, updated_at`

// Create inserts a QA score. Each usage event holds at most one score;
// a second score for the same event returns ErrAlreadyExists.
func (s *ScoreStore) Create(ctx context.Context, score *models.QAScore) error {
	risks := score.RisksDetected
	if risks == nil {
		risks = []string{}
	}
	rawRisks, err := json.Marshal(risks)
	if err != nil {
		return fmt.Errorf("failed to encode risks: %w", err)
	}

	now := time.Now().UTC()
	if score.CreatedAt.IsZero() {
		score.CreatedAt = now
	}
	if score.UpdatedAt.IsZero() {
		score.UpdatedAt = score.CreatedAt
	}
	if score.UrgencyLevel == "" {
		score.UrgencyLevel = models.UrgencyLow
	}

	query := `INSERT INTO qa_scores (` + qaScoreColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		score.ID, score.UsageEventID, score.OverallScore,
		score.ComprehensionScore, score.ResolutionScore, score.ToneScore, score.ComplianceScore,
		score.EscalationNeeded, score.ConversationIntent, score.UrgencyLevel, string(rawRisks),
		score.HumanReviewed, nullString(score.Summary), nullString(score.AIFeedback), nullString(score.ReviewerNotes),
		score.CreatedAt.UTC(), score.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err, "qa_scores.") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create qa score: %w", err)
	}

	return nil
}

// GetByUsageEvent retrieves the score attached to a usage event
func (s *ScoreStore) GetByUsageEvent(ctx context.Context, usageEventID string) (*models.QAScore, error) {
	query := `SELECT ` + qaScoreColumns + ` FROM qa_scores WHERE usage_event_id = ?`

	score, err := scanQAScore(s.db.QueryRowContext(ctx, query, usageEventID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get qa score: %w", err)
	}
	return score, nil
}

// ListQAScores returns every stored QA score, orphans included
func (s *ScoreStore) ListQAScores(ctx context.Context) ([]models.QAScore, error) {
	query := `SELECT ` + qaScoreColumns + ` FROM qa_scores ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list qa scores: %w", err)
	}
	defer rows.Close()

	scores := make([]models.QAScore, 0)
	for rows.Next() {
		score, err := scanQAScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan qa score: %w", err)
		}
		scores = append(scores, *score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate qa scores: %w", err)
	}

	return scores, nil
}

func scanQAScore(row rowScanner) (*models.QAScore, error) {
	score := &models.QAScore{}
	var risks string
	var summary, feedback, notes sql.NullString

	err := row.Scan(
		&score.ID, &score.UsageEventID, &score.OverallScore,
		&score.ComprehensionScore, &score.ResolutionScore, &score.ToneScore, &score.ComplianceScore,
		&score.EscalationNeeded, &score.ConversationIntent, &score.UrgencyLevel, &risks,
		&score.HumanReviewed, &summary, &feedback, &notes,
		&score.CreatedAt, &score.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	score.Summary = summary.String
	score.AIFeedback = feedback.String
	score.ReviewerNotes = notes.String
	if risks != "" {
		if err := json.Unmarshal([]byte(risks), &score.RisksDetected); err != nil {
			return nil, fmt.Errorf("failed to decode risks for %s: %w", score.ID, err)
		}
	}

	return score, nil
}

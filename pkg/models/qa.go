package models

import "time"

// UrgencyLevel classifies how time-sensitive a conversation was
type UrgencyLevel string

const (
	UrgencyLow    UrgencyLevel = "low"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyHigh   UrgencyLevel = "high"
)

// Valid reports whether u is one of the known urgency levels
func (u UrgencyLevel) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// QAScore is the quality evaluation attached to at most one UsageEvent
type QAScore struct {
	ID                 string       `json:"id" validate:"required"`
	UsageEventID       string       `json:"usage_event_id" validate:"required"`
	OverallScore       float64      `json:"overall_score" validate:"gte=0,lte=100"`
	ComprehensionScore float64      `json:"comprehension_score" validate:"gte=0,lte=100"`
	ResolutionScore    float64      `json:"resolution_score" validate:"gte=0,lte=100"`
	ToneScore          float64      `json:"tone_score" validate:"gte=0,lte=100"`
	ComplianceScore    float64      `json:"compliance_score" validate:"gte=0,lte=100"`
	EscalationNeeded   bool         `json:"escalation_needed"`
	ConversationIntent string       `json:"conversation_intent"`
	UrgencyLevel       UrgencyLevel `json:"urgency_level" validate:"omitempty,oneof=low medium high"`
	RisksDetected      []string     `json:"risks_detected"`
	HumanReviewed      bool         `json:"human_reviewed"`
	Summary            string       `json:"summary,omitempty"`
	AIFeedback         string       `json:"ai_feedback,omitempty"`
	ReviewerNotes      string       `json:"reviewer_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

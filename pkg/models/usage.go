package models

import "time"

// CallStatus is the provider-reported outcome of a call
type CallStatus string

const (
	CallCompleted CallStatus = "completed" // Call finished normally
	CallFailed    CallStatus = "failed"    // Call dropped or errored
	CallEscalated CallStatus = "escalated" // Call handed off to a human
	CallNoAnswer  CallStatus = "no_answer" // Callee never picked up
)

// UsageEvent is one billed voice-AI call record
type UsageEvent struct {
	ID                  string         `json:"id" validate:"required"`
	WorkspaceID         string         `json:"workspace_id" validate:"required"`
	Provider            string         `json:"provider" validate:"required"`
	ExternalEventID     string         `json:"external_event_id" validate:"required"` // Idempotency key from the provider
	AgentID             string         `json:"agent_id"`
	ClientName          string         `json:"client_name"`
	CallDurationSeconds int            `json:"call_duration_seconds" validate:"gte=0"`
	CallCost            float64        `json:"call_cost" validate:"gte=0"` // Currency units
	CallStartedAt       time.Time      `json:"call_started_at" validate:"required"`
	CallEndedAt         time.Time      `json:"call_ended_at" validate:"required,gtefield=CallStartedAt"`
	PhoneNumber         string         `json:"phone_number,omitempty"`
	CallStatus          CallStatus     `json:"call_status"`
	RecordingURL        string         `json:"recording_url,omitempty"`
	Transcript          string         `json:"transcript,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SortOrder controls the call_started_at ordering of event listings
type SortOrder string

const (
	SortStartedAtDesc SortOrder = "started_at_desc"
	SortStartedAtAsc  SortOrder = "started_at_asc"
)

// EventQuery defines criteria for listing usage events.
// A zero Limit returns the full set.
type EventQuery struct {
	Order  SortOrder `json:"order,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

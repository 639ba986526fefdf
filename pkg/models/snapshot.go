package models

import "time"

// JoinedConversation pairs a usage event with its QA score, if one exists
type JoinedConversation struct {
	UsageEvent
	QAScore *QAScore `json:"qa_score,omitempty"`
}

// HasScore reports whether the conversation has been evaluated
func (c JoinedConversation) HasScore() bool {
	return c.QAScore != nil
}

// Snapshot is a point-in-time joined view used for one aggregation pass.
// Conversations keep the event store ordering (newest call first).
type Snapshot struct {
	Conversations []JoinedConversation `json:"conversations"`
	LoadedAt      time.Time            `json:"loaded_at"`
	OrphanScores  int                  `json:"orphan_scores"` // Scores dropped for lack of an owning event
}

// Len returns the number of conversations in the snapshot; nil is empty
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Conversations)
}

// GroupKey selects the dimension used for rollups and rankings
type GroupKey string

const (
	GroupByClient   GroupKey = "client"
	GroupByAgent    GroupKey = "agent"
	GroupByProvider GroupKey = "provider"
)

// Valid reports whether g is a supported grouping
func (g GroupKey) Valid() bool {
	switch g {
	case GroupByClient, GroupByAgent, GroupByProvider:
		return true
	}
	return false
}

// Of returns the group name of an event for this key
func (g GroupKey) Of(e *UsageEvent) string {
	switch g {
	case GroupByClient:
		return e.ClientName
	case GroupByAgent:
		return e.AgentID
	case GroupByProvider:
		return e.Provider
	}
	return ""
}

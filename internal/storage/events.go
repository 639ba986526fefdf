package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/voicemon/voicemon/pkg/models"
)

// EventStore handles usage event persistence
type EventStore struct {
	db *DB
}

// NewEventStore creates a new event store
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

const usageEventColumns = `
	id, workspace_id, provider, external_event_id, agent_id, client_name,
	call_duration_seconds, call_cost, call_started_at, call_ended_at, call_status,
	phone_number, recording_url, transcript, metadata,
	created_at, updated_at`

// Create inserts a usage event. A second event with the same provider,
// workspace and external event id returns ErrAlreadyExists.
func (s *EventStore) Create(ctx context.Context, event *models.UsageEvent) error {
	var metadata sql.NullString
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}
	if event.CallStatus == "" {
		event.CallStatus = models.CallCompleted
	}

	query := `INSERT INTO usage_events (` + usageEventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	// Timestamps are stored in UTC so that call_started_at sorts lexically
	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.WorkspaceID, event.Provider, event.ExternalEventID, event.AgentID, event.ClientName,
		event.CallDurationSeconds, event.CallCost, event.CallStartedAt.UTC(), event.CallEndedAt.UTC(), event.CallStatus,
		nullString(event.PhoneNumber), nullString(event.RecordingURL), nullString(event.Transcript), metadata,
		event.CreatedAt.UTC(), event.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err, "usage_events.") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create usage event: %w", err)
	}

	return nil
}

// Get retrieves a usage event by ID
func (s *EventStore) Get(ctx context.Context, id string) (*models.UsageEvent, error) {
	query := `SELECT ` + usageEventColumns + ` FROM usage_events WHERE id = ?`

	event, err := scanUsageEvent(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage event: %w", err)
	}
	return event, nil
}

// ListUsageEvents returns usage events ordered by call start time.
// The default order is newest first; a zero Limit returns every row.
func (s *EventStore) ListUsageEvents(ctx context.Context, query models.EventQuery) ([]models.UsageEvent, error) {
	sqlQuery := `SELECT ` + usageEventColumns + ` FROM usage_events`

	switch query.Order {
	case models.SortStartedAtAsc:
		sqlQuery += " ORDER BY call_started_at ASC, id ASC"
	case "", models.SortStartedAtDesc:
		sqlQuery += " ORDER BY call_started_at DESC, id ASC"
	default:
		return nil, fmt.Errorf("%w: unknown sort order %q", models.ErrInvalidArgument, query.Order)
	}

	var args []interface{}
	if query.Limit > 0 {
		sqlQuery += " LIMIT ? OFFSET ?"
		args = append(args, query.Limit, query.Offset)
	} else if query.Offset > 0 {
		sqlQuery += " LIMIT -1 OFFSET ?"
		args = append(args, query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage events: %w", err)
	}
	defer rows.Close()

	events := make([]models.UsageEvent, 0)
	for rows.Next() {
		event, err := scanUsageEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage events: %w", err)
	}

	return events, nil
}

// Count returns the number of stored usage events
func (s *EventStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count usage events: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUsageEvent(row rowScanner) (*models.UsageEvent, error) {
	event := &models.UsageEvent{}
	var phone, recording, transcript, metadata sql.NullString

	err := row.Scan(
		&event.ID, &event.WorkspaceID, &event.Provider, &event.ExternalEventID, &event.AgentID, &event.ClientName,
		&event.CallDurationSeconds, &event.CallCost, &event.CallStartedAt, &event.CallEndedAt, &event.CallStatus,
		&phone, &recording, &transcript, &metadata,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Handle nullable fields
	event.PhoneNumber = phone.String
	event.RecordingURL = recording.String
	event.Transcript = transcript.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", event.ID, err)
		}
	}

	return event, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

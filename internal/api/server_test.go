package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicemon/voicemon/internal/logging"
	"github.com/voicemon/voicemon/internal/service/engine"
	"github.com/voicemon/voicemon/internal/service/snapshot"
	"github.com/voicemon/voicemon/internal/storage"
	"github.com/voicemon/voicemon/pkg/models"
)

var fixedNow = time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC)

// Mock implementations

type mockLoader struct {
	snap *models.Snapshot
	err  error
}

func (m *mockLoader) Load(ctx context.Context) (*models.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snap, nil
}

func conversation(id, client, agent string, cost float64, ago time.Duration) models.JoinedConversation {
	started := fixedNow.Add(-ago)
	return models.JoinedConversation{UsageEvent: models.UsageEvent{
		ID:            id,
		WorkspaceID:   "ws-1",
		Provider:      "vapi",
		ClientName:    client,
		AgentID:       agent,
		CallCost:      cost,
		CallStatus:    models.CallCompleted,
		CallStartedAt: started,
		CallEndedAt:   started.Add(2 * time.Minute),
	}}
}

func testSnapshot() *models.Snapshot {
	scored := conversation("evt-4", "A", "support-bot", 0, 30*time.Minute)
	scored.QAScore = &models.QAScore{ID: "qa-4", UsageEventID: "evt-4", OverallScore: 65, UrgencyLevel: models.UrgencyMedium}
	return &models.Snapshot{
		Conversations: []models.JoinedConversation{
			scored,
			conversation("evt-1", "A", "sales-assistant", 30, time.Hour),
			conversation("evt-2", "B", "lead-qualifier", 120, 2*time.Hour),
			conversation("evt-3", "C", "appointment-setter", 45, 3*time.Hour),
		},
		LoadedAt: fixedNow,
	}
}

func setupTestServer(loader engine.SnapshotLoader, opts ...Option) *Server {
	eng := engine.New(loader, engine.WithTimeFunc(func() time.Time { return fixedNow }))
	server := New(eng, opts...)
	// Set server as ready by default in tests
	server.SetReady(true)
	return server
}

func get(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	w := get(t, server, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "true", response.Services["ready"])
}

func TestHealthNotReady(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})
	server.SetReady(false)

	w := get(t, server, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "unavailable", response.Status)
	assert.Equal(t, "false", response.Services["ready"])
}

func TestReadyEndpoint(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	w := get(t, server, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	var response ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Ready)

	server.SetReady(false)
	w = get(t, server, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDashboard(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	w := get(t, server, "/api/v1/dashboard?top=2")
	require.Equal(t, http.StatusOK, w.Code)

	var d models.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, 4, d.Conversations)
	assert.InDelta(t, 195, d.Costs.TotalCost, 1e-9)
	require.Len(t, d.TopClients, 2)
	assert.Equal(t, "B", d.TopClients[0].Name)
	assert.Equal(t, "C", d.TopClients[1].Name)
	require.Len(t, d.Alerts, 2)
	assert.Equal(t, models.SeverityError, d.Alerts[0].Severity)
	assert.Equal(t, models.SeverityWarning, d.Alerts[1].Severity)
	assert.Equal(t, "B", d.Alerts[1].Subject)
}

func TestDashboard_InvalidWindow(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	w := get(t, server, "/api/v1/dashboard?window_days=-3")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.Error, "window_days")
	assert.NotEmpty(t, response.RequestID)
}

func TestCostSummary(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	w := get(t, server, "/api/v1/costs/summary?window_days=1")
	require.Equal(t, http.StatusOK, w.Code)

	var summary models.CostSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.WindowDays)
	assert.InDelta(t, 195, summary.WindowedCost, 1e-9)
	assert.Equal(t, 4, summary.CallCount)
}

func TestCostRollup(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	w := get(t, server, "/api/v1/costs/rollup?group=client")
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Entities []models.EntityCost `json:"entities"`
		Count    int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 3, response.Count)
	assert.Equal(t, "A", response.Entities[0].Name)
	assert.Equal(t, 2, response.Entities[0].CallCount)
}

func TestCostRollup_UnknownGroup(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	w := get(t, server, "/api/v1/costs/rollup?group=region")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, server, "/api/v1/costs/rollup")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRankings(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	tests := []struct {
		name   string
		path   string
		first  string
		client string
		count  int
	}{
		{"default by cost", "/api/v1/rankings?n=2", "B", "", 2},
		{"by volume", "/api/v1/rankings?by=volume", "A", "", 3},
		{"agents", "/api/v1/rankings?group=agent&n=1", "lead-qualifier", "B", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, server, tt.path)
			require.Equal(t, http.StatusOK, w.Code)

			var response struct {
				Rankings []models.RankedEntity `json:"rankings"`
				Count    int                   `json:"count"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.count, response.Count)
			assert.Equal(t, tt.first, response.Rankings[0].Name)
			assert.Equal(t, tt.client, response.Rankings[0].Client)
			assert.Equal(t, 1, response.Rankings[0].Rank)
		})
	}
}

func TestRankings_BadParams(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	for _, path := range []string{
		"/api/v1/rankings?n=0x",
		"/api/v1/rankings?n=-1",
		"/api/v1/rankings?by=duration",
	} {
		w := get(t, server, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestAlerts(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	w := get(t, server, "/api/v1/alerts")
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Alerts []models.Alert `json:"alerts"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, 2, response.Count)
	assert.Equal(t, models.AlertLowQuality, response.Alerts[0].Kind)
	assert.Equal(t, "support-bot", response.Alerts[0].Subject)
	assert.Equal(t, 65.0, response.Alerts[0].Score)
	assert.Equal(t, models.AlertBudgetExceeded, response.Alerts[1].Kind)
}

func TestAlerts_EmptySnapshot(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: &models.Snapshot{}})

	w := get(t, server, "/api/v1/alerts")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"alerts": [], "count": 0}`, w.Body.String())
}

func TestConversations(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	w := get(t, server, "/api/v1/conversations?limit=2")
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Conversations []models.JoinedConversation `json:"conversations"`
		Count         int                         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, 2, response.Count)
	assert.Equal(t, "evt-4", response.Conversations[0].ID)
	require.NotNil(t, response.Conversations[0].QAScore)
	assert.Nil(t, response.Conversations[1].QAScore)
}

type conversationsResponse struct {
	Conversations []models.JoinedConversation `json:"conversations"`
	Count         int                         `json:"count"`
	Total         int                         `json:"total"`
	Offset        int                         `json:"offset"`
}

func filterSnapshot() *models.Snapshot {
	snap := testSnapshot()
	snap.Conversations[2].Provider = "retell"
	snap.Conversations[3].WorkspaceID = "ws-2"
	return snap
}

func TestConversations_Filters(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: filterSnapshot()})

	tests := []struct {
		name  string
		query string
		ids   []string
		total int
	}{
		{"client", "client=A", []string{"evt-4", "evt-1"}, 2},
		{"client with offset", "client=A&offset=1", []string{"evt-1"}, 2},
		{"provider", "provider=retell", []string{"evt-2"}, 1},
		{"workspace", "workspace_id=ws-2", []string{"evt-3"}, 1},
		{"page", "offset=2&limit=1", []string{"evt-2"}, 4},
		{"offset past end", "offset=9", []string{}, 4},
		{"no match", "client=Nobody", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, server, "/api/v1/conversations?"+tt.query)
			require.Equal(t, http.StatusOK, w.Code)

			var response conversationsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.total, response.Total)
			assert.Equal(t, len(tt.ids), response.Count)

			ids := make([]string, 0, len(response.Conversations))
			for _, c := range response.Conversations {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestConversations_BadParams(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	w := get(t, server, "/api/v1/conversations?offset=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "offset")

	w = get(t, server, "/api/v1/conversations?limit=0&offset=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversations_WorkspaceInRequestLog(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	logger := logging.Setup(logging.Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { slog.SetDefault(prev) })

	server := setupTestServer(&mockLoader{snap: filterSnapshot()}, WithLogger(logger))

	w := get(t, server, "/api/v1/conversations?workspace_id=ws-2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), `"workspace_id":"ws-2"`)
}

func TestConversationDetail(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	w := get(t, server, "/api/v1/conversations/evt-4")
	require.Equal(t, http.StatusOK, w.Code)

	var c models.JoinedConversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	assert.Equal(t, "evt-4", c.ID)
	require.NotNil(t, c.QAScore)
	assert.Equal(t, 65.0, c.QAScore.OverallScore)

	w = get(t, server, "/api/v1/conversations/evt-missing")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "not found", errResp.Error)
}

func TestQualitySummary(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	w := get(t, server, "/api/v1/quality/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var summary models.QualitySummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.ScoredConversations)
	assert.Equal(t, 65.0, summary.AverageOverallScore)
	assert.Equal(t, 1, summary.ByBand[models.BandFair])
}

func TestStoreUnavailable(t *testing.T) {
	loadErr := models.NewStoreError(snapshot.StoreQAScores, "list", errors.New("connection refused"))
	server := setupTestServer(&mockLoader{err: loadErr})

	for _, path := range []string{
		"/api/v1/dashboard",
		"/api/v1/costs/summary",
		"/api/v1/alerts",
		"/api/v1/conversations",
		"/api/v1/conversations/evt-1",
		"/api/v1/quality/summary",
	} {
		w := get(t, server, path)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.NotContains(t, w.Body.String(), "connection refused", path)
	}
}

func TestUnexpectedError(t *testing.T) {
	server := setupTestServer(&mockLoader{err: errors.New("boom")})

	w := get(t, server, "/api/v1/alerts")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimit(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()}, WithRateLimit(0.001, 1))

	w := get(t, server, "/api/v1/alerts")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, server, "/api/v1/alerts")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Health checks are not throttled
	w = get(t, server, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	server := setupTestServer(&mockLoader{snap: testSnapshot()})

	// Without X-Request-ID header
	w := get(t, server, "/health")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	// With X-Request-ID header
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "custom-request-id")
	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	assert.Equal(t, "custom-request-id", w.Header().Get("X-Request-ID"))

	// Invalid IDs are replaced
	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "bad id with spaces")
	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	assert.NotEqual(t, "bad id with spaces", w.Header().Get("X-Request-ID"))
}

// seedSQLiteStores writes testSnapshot plus one orphan score into a fresh
// database
func seedSQLiteStores(t *testing.T) (*storage.EventStore, *storage.ScoreStore) {
	t.Helper()

	db, err := storage.New(t.TempDir() + "/voicemon.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	events := storage.NewEventStore(db)
	scores := storage.NewScoreStore(db)
	for _, c := range testSnapshot().Conversations {
		event := c.UsageEvent
		event.ExternalEventID = "ext-" + event.ID
		require.NoError(t, events.Create(context.Background(), &event))
		if c.QAScore != nil {
			require.NoError(t, scores.Create(context.Background(), c.QAScore))
		}
	}
	// Orphan score
	require.NoError(t, scores.Create(context.Background(), &models.QAScore{
		ID: "qa-orphan", UsageEventID: "missing", OverallScore: 10,
	}))

	return events, scores
}

func TestDashboard_SQLiteStores(t *testing.T) {
	events, scores := seedSQLiteStores(t)
	server := setupTestServer(snapshot.New(events, scores))

	w := get(t, server, "/api/v1/dashboard")
	require.Equal(t, http.StatusOK, w.Code)

	var d models.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, 4, d.Conversations)
	assert.InDelta(t, 195, d.Costs.TotalCost, 1e-9)
	assert.InDelta(t, 195, d.Costs.MonthToDateCost, 1e-9)
	assert.Len(t, d.Costs.DailyCosts, 14)
	// Orphan score produces no alert
	require.Len(t, d.Alerts, 2)
	assert.Equal(t, 65.0, d.Alerts[0].Score)
}

func TestConversationDetail_SQLiteStores(t *testing.T) {
	events, scores := seedSQLiteStores(t)
	eng := engine.New(snapshot.New(events, scores),
		engine.WithTimeFunc(func() time.Time { return fixedNow }),
		engine.WithConversationLookup(snapshot.NewLookup(events, scores)))
	server := New(eng)
	server.SetReady(true)

	w := get(t, server, "/api/v1/conversations/evt-4")
	require.Equal(t, http.StatusOK, w.Code)
	var scored models.JoinedConversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scored))
	assert.Equal(t, "support-bot", scored.AgentID)
	require.NotNil(t, scored.QAScore)
	assert.Equal(t, "qa-4", scored.QAScore.ID)

	w = get(t, server, "/api/v1/conversations/evt-2")
	require.Equal(t, http.StatusOK, w.Code)
	var unscored models.JoinedConversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &unscored))
	assert.Nil(t, unscored.QAScore)

	// An orphan score's event id is not a conversation
	w = get(t, server, "/api/v1/conversations/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

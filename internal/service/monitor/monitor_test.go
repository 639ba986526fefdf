package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicemon/voicemon/internal/service/engine"
	"github.com/voicemon/voicemon/pkg/models"
)

var fixedNow = time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC)

// mockSource implements DashboardSource for testing
type mockSource struct {
	mu     sync.Mutex
	alerts []models.Alert
	err    error
	calls  int
}

func (m *mockSource) Dashboard(ctx context.Context, params engine.Params) (*models.Dashboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &models.Dashboard{GeneratedAt: fixedNow, Alerts: m.alerts}, nil
}

func (m *mockSource) set(alerts []models.Alert, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = alerts
	m.err = err
}

func (m *mockSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// recordingHandler collects raised alerts
type recordingHandler struct {
	mu     sync.Mutex
	raised []models.Alert
}

func (h *recordingHandler) OnAlert(ctx context.Context, a models.Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.raised = append(h.raised, a)
}

func (h *recordingHandler) subjects() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, a := range h.raised {
		out = append(out, a.Subject)
	}
	return out
}

func lowQuality(eventID, agent string) models.Alert {
	return models.Alert{
		Severity:     models.SeverityError,
		Kind:         models.AlertLowQuality,
		Subject:      agent,
		Score:        65,
		UsageEventID: eventID,
		Timestamp:    fixedNow,
	}
}

func overBudget(client string) models.Alert {
	return models.Alert{
		Severity:  models.SeverityWarning,
		Kind:      models.AlertBudgetExceeded,
		Subject:   client,
		Amount:    120,
		Timestamp: fixedNow,
	}
}

func TestMonitor_Evaluate_RaisesOnlyNewAlerts(t *testing.T) {
	source := &mockSource{alerts: []models.Alert{lowQuality("evt-1", "support-bot"), overBudget("B")}}
	handler := &recordingHandler{}
	m := New(source, WithAlertHandler(handler))

	m.Evaluate(context.Background())
	assert.Equal(t, []string{"support-bot", "B"}, handler.subjects())

	// Same alerts again: nothing new
	m.Evaluate(context.Background())
	assert.Len(t, handler.raised, 2)

	// One new alert appears
	source.set([]models.Alert{lowQuality("evt-1", "support-bot"), overBudget("B"), lowQuality("evt-9", "intake")}, nil)
	m.Evaluate(context.Background())
	assert.Equal(t, []string{"support-bot", "B", "intake"}, handler.subjects())

	stats := m.GetStats()
	assert.Equal(t, int64(3), stats.Evaluations)
	assert.Equal(t, int64(3), stats.AlertsRaised)
	assert.Equal(t, fixedNow, stats.LastSuccess)
}

func TestMonitor_Evaluate_ClearedAlertIsRaisedAgain(t *testing.T) {
	source := &mockSource{alerts: []models.Alert{overBudget("B")}}
	handler := &recordingHandler{}
	m := New(source, WithAlertHandler(handler))

	m.Evaluate(context.Background())
	source.set([]models.Alert{}, nil)
	m.Evaluate(context.Background())
	source.set([]models.Alert{overBudget("B")}, nil)
	m.Evaluate(context.Background())

	assert.Equal(t, []string{"B", "B"}, handler.subjects())
}

func TestMonitor_Evaluate_FailureKeepsPreviousAlerts(t *testing.T) {
	source := &mockSource{alerts: []models.Alert{overBudget("B")}}
	handler := &recordingHandler{}
	m := New(source, WithAlertHandler(handler))

	m.Evaluate(context.Background())

	source.set(nil, models.NewStoreError("usage_events", "list", errors.New("disk I/O error")))
	m.Evaluate(context.Background())

	source.set([]models.Alert{overBudget("B")}, nil)
	m.Evaluate(context.Background())

	assert.Equal(t, []string{"B"}, handler.subjects())
	stats := m.GetStats()
	assert.Equal(t, int64(1), stats.Failures)
	assert.Equal(t, int64(3), stats.Evaluations)
}

func TestMonitor_StartStop(t *testing.T) {
	source := &mockSource{}
	m := New(source, WithInterval(10*time.Millisecond), WithAlertHandler(&recordingHandler{}))

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.IsRunning())

	// Starting twice is a no-op
	require.NoError(t, m.Start(context.Background()))

	assert.Eventually(t, func() bool { return source.callCount() >= 2 }, time.Second, 5*time.Millisecond)

	m.Stop()
	assert.False(t, m.IsRunning())

	// Stopping twice is safe
	m.Stop()
}

func TestMonitor_ContextCancelStopsAndAllowsRestart(t *testing.T) {
	source := &mockSource{}
	m := New(source, WithInterval(10*time.Millisecond), WithAlertHandler(&recordingHandler{}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))
	assert.Eventually(t, func() bool { return source.callCount() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool { return !m.IsRunning() }, time.Second, 5*time.Millisecond)

	// Stop after the loop already exited must not block
	m.Stop()

	before := source.callCount()
	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Eventually(t, func() bool { return source.callCount() > before }, time.Second, 5*time.Millisecond)

	m.Stop()
	assert.False(t, m.IsRunning())
}

func TestMonitor_Start_InvalidInterval(t *testing.T) {
	m := New(&mockSource{}, WithInterval(0))
	assert.Error(t, m.Start(context.Background()))
	assert.False(t, m.IsRunning())
}

func TestAlertKey(t *testing.T) {
	a := lowQuality("evt-1", "support-bot")
	b := lowQuality("evt-2", "support-bot")
	assert.NotEqual(t, alertKey(a), alertKey(b))

	jan := overBudget("B")
	feb := overBudget("B")
	feb.Timestamp = fixedNow.AddDate(0, 1, 0)
	assert.NotEqual(t, alertKey(jan), alertKey(feb))

	approaching := jan
	approaching.Kind = models.AlertBudgetApproaching
	assert.NotEqual(t, alertKey(jan), alertKey(approaching))
}

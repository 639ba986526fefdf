// Package monitor re-evaluates the dashboard on an interval so alert and
// projection gauges stay current without API traffic.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicemon/voicemon/internal/logging"
	"github.com/voicemon/voicemon/internal/metrics"
	"github.com/voicemon/voicemon/internal/service/engine"
	"github.com/voicemon/voicemon/pkg/models"
)

const (
	// DefaultInterval is how often the dashboard is re-evaluated
	DefaultInterval = 1 * time.Minute
)

// DashboardSource runs one aggregation pass
type DashboardSource interface {
	Dashboard(ctx context.Context, params engine.Params) (*models.Dashboard, error)
}

// AlertHandler receives alerts that were absent from the previous evaluation
type AlertHandler interface {
	OnAlert(ctx context.Context, alert models.Alert)
}

// logAlertHandler writes new alerts to the logger
type logAlertHandler struct {
	logger *slog.Logger
}

func (h *logAlertHandler) OnAlert(ctx context.Context, a models.Alert) {
	level := slog.LevelInfo
	switch a.Severity {
	case models.SeverityError:
		level = slog.LevelError
	case models.SeverityWarning:
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, "alert raised",
		slog.String("kind", string(a.Kind)),
		slog.String("subject", a.Subject),
		slog.String("message", a.Message))
}

// Monitor runs periodic evaluation passes. It keeps only the keys of the
// alerts seen in the last pass; alerts themselves are recomputed each time.
type Monitor struct {
	source  DashboardSource
	handler AlertHandler
	logger  *slog.Logger

	interval time.Duration

	// Shutdown coordination
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// Alert keys from the previous pass
	seen map[string]struct{}

	stats *Stats
}

// Stats tracks evaluation statistics
type Stats struct {
	mu           sync.RWMutex
	Evaluations  int64
	Failures     int64
	AlertsRaised int64
	LastSuccess  time.Time
}

// Option configures the monitor
type Option func(*Monitor)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// WithInterval sets how often to evaluate
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		m.interval = d
	}
}

// WithAlertHandler sets a custom alert handler
func WithAlertHandler(handler AlertHandler) Option {
	return func(m *Monitor) {
		m.handler = handler
	}
}

// New creates a new monitor over source
func New(source DashboardSource, opts ...Option) *Monitor {
	m := &Monitor{
		source:   source,
		logger:   slog.Default(),
		interval: DefaultInterval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		seen:     make(map[string]struct{}),
		stats:    &Stats{},
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.handler == nil {
		m.handler = &logAlertHandler{logger: m.logger}
	}

	return m
}

// Start begins the evaluation loop
func (m *Monitor) Start(ctx context.Context) error {
	if m.interval <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %s", m.interval)
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	m.stopCh = stopCh
	m.doneCh = doneCh
	m.mu.Unlock()

	m.logger.Info("alert monitor starting", slog.Duration("interval", m.interval))

	go m.run(ctx, stopCh, doneCh)
	return nil
}

// Stop gracefully stops the monitor
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	m.logger.Info("alert monitor stopping")
	close(stopCh)
	<-doneCh

	m.logger.Info("alert monitor stopped")
}

// IsRunning returns whether the monitor is currently running
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// run owns one generation of stopCh and doneCh. Leaving the loop for any
// reason, context cancellation included, marks the monitor stopped unless
// a newer run has already replaced this one.
func (m *Monitor) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer func() {
		m.mu.Lock()
		if m.doneCh == doneCh {
			m.running = false
		}
		m.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Run initial evaluation
	m.Evaluate(ctx)

	for {
		select {
		case <-ticker.C:
			m.Evaluate(ctx)
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Evaluate runs one pass, updates gauges and reports new alerts. A failed
// pass keeps the previous alert keys so nothing is re-reported on recovery.
func (m *Monitor) Evaluate(ctx context.Context) {
	ctx = logging.WithPassID(ctx, uuid.New().String())

	m.stats.mu.Lock()
	m.stats.Evaluations++
	m.stats.mu.Unlock()

	d, err := m.source.Dashboard(ctx, engine.Params{})
	if err != nil {
		metrics.RecordEvaluationFailure()
		m.stats.mu.Lock()
		m.stats.Failures++
		m.stats.mu.Unlock()
		m.logger.ErrorContext(ctx, "evaluation failed", slog.String("error", err.Error()))
		return
	}

	counts := make(map[string]int)
	current := make(map[string]struct{}, len(d.Alerts))
	var raised int64
	for _, a := range d.Alerts {
		counts[string(a.Severity)]++
		key := alertKey(a)
		current[key] = struct{}{}
		if _, ok := m.seen[key]; !ok {
			m.handler.OnAlert(ctx, a)
			raised++
		}
	}
	m.seen = current

	metrics.RecordEvaluation(counts)

	m.stats.mu.Lock()
	m.stats.AlertsRaised += raised
	m.stats.LastSuccess = d.GeneratedAt
	m.stats.mu.Unlock()

	m.logger.DebugContext(ctx, "evaluation complete",
		slog.Int("alerts", len(d.Alerts)),
		slog.Int64("new_alerts", raised))
}

// alertKey identifies an alert across passes. Cost alerts are keyed by
// client and month so a new period raises them again.
func alertKey(a models.Alert) string {
	if a.UsageEventID != "" {
		return fmt.Sprintf("%s/%s", a.Kind, a.UsageEventID)
	}
	return fmt.Sprintf("%s/%s/%s", a.Kind, a.Subject, a.Timestamp.Format("2006-01"))
}

// GetStats returns current evaluation statistics
func (m *Monitor) GetStats() Stats {
	m.stats.mu.RLock()
	defer m.stats.mu.RUnlock()

	return Stats{
		Evaluations:  m.stats.Evaluations,
		Failures:     m.stats.Failures,
		AlertsRaised: m.stats.AlertsRaised,
		LastSuccess:  m.stats.LastSuccess,
	}
}

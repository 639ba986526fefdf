// Package engine runs aggregation passes: one fresh snapshot load followed
// by the cost, ranking, quality and alert derivations over that snapshot.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voicemon/voicemon/internal/metrics"
	"github.com/voicemon/voicemon/internal/service/alert"
	"github.com/voicemon/voicemon/internal/service/cost"
	"github.com/voicemon/voicemon/internal/service/quality"
	"github.com/voicemon/voicemon/internal/service/ranking"
	"github.com/voicemon/voicemon/pkg/models"
)

const (
	// DefaultTopN is the ranking length used by the dashboard
	DefaultTopN = 5
)

// SnapshotLoader produces one joined snapshot per call
type SnapshotLoader interface {
	Load(ctx context.Context) (*models.Snapshot, error)
}

// ConversationLookup reads one joined conversation by usage event id
type ConversationLookup interface {
	Conversation(ctx context.Context, id string) (*models.JoinedConversation, error)
}

// ConversationFilter narrows and pages the conversation list. Empty string
// fields match everything; Limit 0 means no limit.
type ConversationFilter struct {
	WorkspaceID string
	Client      string
	Provider    string
	Offset      int
	Limit       int
}

func (f ConversationFilter) matches(c *models.JoinedConversation) bool {
	return (f.WorkspaceID == "" || c.WorkspaceID == f.WorkspaceID) &&
		(f.Client == "" || c.ClientName == f.Client) &&
		(f.Provider == "" || c.Provider == f.Provider)
}

// Params selects the window and ranking length of a dashboard pass
type Params struct {
	WindowDays int
	TopN       int
}

// Engine composes a snapshot loader with the pure derivations. It holds no
// state across passes.
type Engine struct {
	loader     SnapshotLoader
	lookup     ConversationLookup
	alerts     *alert.Generator
	logger     *slog.Logger
	windowDays int
	topN       int

	// For time mocking in tests
	now func() time.Time
}

// Option configures the engine
type Option func(*Engine)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithAlertGenerator sets the alert generator
func WithAlertGenerator(g *alert.Generator) Option {
	return func(e *Engine) {
		e.alerts = g
	}
}

// WithConversationLookup sets the single-record reader used by Conversation.
// Without one, Conversation searches a fresh snapshot.
func WithConversationLookup(l ConversationLookup) Option {
	return func(e *Engine) {
		e.lookup = l
	}
}

// WithDefaultWindowDays sets the window used when a request leaves it unset
func WithDefaultWindowDays(days int) Option {
	return func(e *Engine) {
		e.windowDays = days
	}
}

// WithDefaultTopN sets the ranking length used when a request leaves it unset
func WithDefaultTopN(n int) Option {
	return func(e *Engine) {
		e.topN = n
	}
}

// WithTimeFunc sets a custom time function (for testing)
func WithTimeFunc(fn func() time.Time) Option {
	return func(e *Engine) {
		e.now = fn
	}
}

// New creates a new aggregation engine
func New(loader SnapshotLoader, opts ...Option) *Engine {
	e := &Engine{
		loader:     loader,
		alerts:     alert.New(),
		logger:     slog.Default(),
		windowDays: cost.DefaultWindowDays,
		topN:       DefaultTopN,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Snapshot loads a fresh joined snapshot
func (e *Engine) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	return e.loader.Load(ctx)
}

// Conversations returns the joined conversations of a fresh snapshot that
// match f, newest first, together with the number of matches before paging
func (e *Engine) Conversations(ctx context.Context, f ConversationFilter) ([]models.JoinedConversation, int, error) {
	if f.Limit < 0 {
		return nil, 0, models.InvalidArgumentf("limit must not be negative, got %d", f.Limit)
	}
	if f.Offset < 0 {
		return nil, 0, models.InvalidArgumentf("offset must not be negative, got %d", f.Offset)
	}
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]models.JoinedConversation, 0, len(snap.Conversations))
	for i := range snap.Conversations {
		if f.matches(&snap.Conversations[i]) {
			matched = append(matched, snap.Conversations[i])
		}
	}
	total := len(matched)

	if f.Offset >= total {
		return []models.JoinedConversation{}, total, nil
	}
	page := matched[f.Offset:]
	if f.Limit > 0 && len(page) > f.Limit {
		page = page[:f.Limit]
	}
	return page, total, nil
}

// Conversation returns one joined conversation by usage event id. A
// missing event wraps models.ErrNotFound.
func (e *Engine) Conversation(ctx context.Context, id string) (*models.JoinedConversation, error) {
	if id == "" {
		return nil, models.InvalidArgumentf("conversation id is required")
	}
	if e.lookup != nil {
		return e.lookup.Conversation(ctx, id)
	}

	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snap.Conversations {
		if snap.Conversations[i].ID == id {
			c := snap.Conversations[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("conversation %q: %w", id, models.ErrNotFound)
}

// CostSummary runs a pass and returns the cost summary for windowDays
// (0 selects the default window)
func (e *Engine) CostSummary(ctx context.Context, windowDays int) (*models.CostSummary, error) {
	windowDays = e.windowOrDefault(windowDays)
	if windowDays <= 0 {
		return nil, models.InvalidArgumentf("window days must be positive, got %d", windowDays)
	}

	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := cost.Summarize(snap, windowDays, e.now())
	if err != nil {
		return nil, err
	}
	metrics.RecordProjection(summary.ProjectedMonthlyCost)
	return summary, nil
}

// Rollup runs a pass and returns per-group cost in first-appearance order
func (e *Engine) Rollup(ctx context.Context, key models.GroupKey) ([]models.EntityCost, error) {
	if !key.Valid() {
		return nil, models.InvalidArgumentf("unknown group key %q", key)
	}
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return cost.RollupBy(snap, key)
}

// Rankings runs a pass and returns the top n groups by metric
// (0 selects the default length)
func (e *Engine) Rankings(ctx context.Context, key models.GroupKey, n int, metric ranking.Metric) ([]models.RankedEntity, error) {
	n = e.topNOrDefault(n)
	if n <= 0 {
		return nil, models.InvalidArgumentf("rank count must be positive, got %d", n)
	}
	if !key.Valid() {
		return nil, models.InvalidArgumentf("unknown group key %q", key)
	}
	if !metric.Valid() {
		return nil, models.InvalidArgumentf("unknown ranking metric %q", metric)
	}

	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return ranking.Rank(snap, key, n, metric)
}

// Alerts runs a pass and returns the ordered alert list
func (e *Engine) Alerts(ctx context.Context) ([]models.Alert, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	alerts := e.alerts.Generate(snap, e.now())
	recordAlerts(alerts)
	return alerts, nil
}

// Quality runs a pass and returns the QA score summary
func (e *Engine) Quality(ctx context.Context) (*models.QualitySummary, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return quality.Summarize(snap), nil
}

// Dashboard runs one pass and derives every view from the same snapshot.
// Arguments are checked before anything is loaded.
func (e *Engine) Dashboard(ctx context.Context, params Params) (*models.Dashboard, error) {
	windowDays := e.windowOrDefault(params.WindowDays)
	topN := e.topNOrDefault(params.TopN)
	if windowDays <= 0 {
		return nil, models.InvalidArgumentf("window days must be positive, got %d", windowDays)
	}
	if topN <= 0 {
		return nil, models.InvalidArgumentf("rank count must be positive, got %d", topN)
	}

	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return e.derive(ctx, snap, windowDays, topN)
}

// derive computes the dashboard views concurrently. The snapshot is only
// read, so the derivations share it without locking.
func (e *Engine) derive(ctx context.Context, snap *models.Snapshot, windowDays, topN int) (*models.Dashboard, error) {
	now := e.now()
	d := &models.Dashboard{
		GeneratedAt:   now,
		Conversations: snap.Len(),
	}

	var g errgroup.Group
	g.Go(func() error {
		var err error
		d.Costs, err = cost.Summarize(snap, windowDays, now)
		return err
	})
	g.Go(func() error {
		d.Quality = quality.Summarize(snap)
		return nil
	})
	g.Go(func() error {
		var err error
		d.TopClients, err = ranking.TopN(snap, models.GroupByClient, topN)
		return err
	})
	g.Go(func() error {
		var err error
		d.TopAgents, err = ranking.TopN(snap, models.GroupByAgent, topN)
		return err
	})
	g.Go(func() error {
		var err error
		d.TopProviders, err = ranking.TopN(snap, models.GroupByProvider, topN)
		return err
	})
	g.Go(func() error {
		d.Alerts = e.alerts.Generate(snap, now)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.RecordProjection(d.Costs.ProjectedMonthlyCost)
	recordAlerts(d.Alerts)
	e.logger.DebugContext(ctx, "dashboard derived",
		slog.Int("conversations", d.Conversations),
		slog.Int("alerts", len(d.Alerts)),
		slog.Float64("total_cost", d.Costs.TotalCost))

	return d, nil
}

func (e *Engine) windowOrDefault(days int) int {
	if days == 0 {
		return e.windowDays
	}
	return days
}

func (e *Engine) topNOrDefault(n int) int {
	if n == 0 {
		return e.topN
	}
	return n
}

func recordAlerts(alerts []models.Alert) {
	for _, a := range alerts {
		metrics.RecordAlert(string(a.Severity), string(a.Kind))
	}
}

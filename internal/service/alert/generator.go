// Package alert evaluates budget and quality thresholds against a snapshot.
// Alerts are recomputed on every pass and carry no acknowledgement state.
package alert

import (
	"fmt"
	"sort"
	"time"

	"github.com/voicemon/voicemon/internal/service/cost"
	"github.com/voicemon/voicemon/pkg/models"
)

const (
	// DefaultBudgetThreshold is the per-client spend per calendar month above
	// which a warning is raised
	DefaultBudgetThreshold = 100.0

	// DefaultApproachRatio is the share of the budget at which an info alert
	// announces that a client is close to its budget
	DefaultApproachRatio = 0.80

	// DefaultQualityThreshold is the overall QA score below which an error is raised
	DefaultQualityThreshold = 70.0
)

// Generator derives alerts from a snapshot
type Generator struct {
	budgetThreshold  float64
	approachRatio    float64
	qualityThreshold float64
}

// Option configures the generator
type Option func(*Generator)

// WithBudgetThreshold sets the monthly per-client budget
func WithBudgetThreshold(amount float64) Option {
	return func(g *Generator) {
		g.budgetThreshold = amount
	}
}

// WithApproachRatio sets the budget share that triggers an info alert; 0 disables it
func WithApproachRatio(ratio float64) Option {
	return func(g *Generator) {
		g.approachRatio = ratio
	}
}

// WithQualityThreshold sets the minimum acceptable overall QA score
func WithQualityThreshold(score float64) Option {
	return func(g *Generator) {
		g.qualityThreshold = score
	}
}

// New creates a new alert generator
func New(opts ...Option) *Generator {
	g := &Generator{
		budgetThreshold:  DefaultBudgetThreshold,
		approachRatio:    DefaultApproachRatio,
		qualityThreshold: DefaultQualityThreshold,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate returns cost and quality alerts ordered most severe first, then
// most recent first. An empty snapshot yields an empty slice.
func (g *Generator) Generate(s *models.Snapshot, now time.Time) []models.Alert {
	alerts := make([]models.Alert, 0)
	if s.Len() == 0 {
		return alerts
	}

	alerts = append(alerts, g.costAlerts(s, now)...)
	alerts = append(alerts, g.qualityAlerts(s)...)
	Sort(alerts)

	return alerts
}

// PeriodStart returns the start of the calendar month containing now
func PeriodStart(now time.Time) time.Time {
	return cost.MonthStart(now)
}

type clientSpend struct {
	name   string
	amount float64
	latest time.Time
}

func (g *Generator) costAlerts(s *models.Snapshot, now time.Time) []models.Alert {
	start := PeriodStart(now)

	index := make(map[string]int)
	var spends []clientSpend
	for _, c := range s.Conversations {
		if c.CallStartedAt.Before(start) || c.CallStartedAt.After(now) {
			continue
		}
		pos, ok := index[c.ClientName]
		if !ok {
			pos = len(spends)
			index[c.ClientName] = pos
			spends = append(spends, clientSpend{name: c.ClientName})
		}
		spends[pos].amount += c.CallCost
		if c.CallStartedAt.After(spends[pos].latest) {
			spends[pos].latest = c.CallStartedAt
		}
	}

	var alerts []models.Alert
	for _, sp := range spends {
		switch {
		case sp.amount > g.budgetThreshold:
			alerts = append(alerts, models.Alert{
				Severity:  models.SeverityWarning,
				Kind:      models.AlertBudgetExceeded,
				Subject:   sp.name,
				Message:   fmt.Sprintf("Client %q exceeded the monthly budget: %.2f of %.2f", sp.name, sp.amount, g.budgetThreshold),
				Amount:    sp.amount,
				Threshold: g.budgetThreshold,
				Timestamp: sp.latest,
			})
		case g.approachRatio > 0 && sp.amount >= g.approachRatio*g.budgetThreshold:
			alerts = append(alerts, models.Alert{
				Severity:  models.SeverityInfo,
				Kind:      models.AlertBudgetApproaching,
				Subject:   sp.name,
				Message:   fmt.Sprintf("Client %q passed %.0f%% of the monthly budget: %.2f of %.2f", sp.name, g.approachRatio*100, sp.amount, g.budgetThreshold),
				Amount:    sp.amount,
				Threshold: g.budgetThreshold,
				Timestamp: sp.latest,
			})
		}
	}
	return alerts
}

func (g *Generator) qualityAlerts(s *models.Snapshot) []models.Alert {
	var alerts []models.Alert
	for _, c := range s.Conversations {
		if c.QAScore == nil || c.QAScore.OverallScore >= g.qualityThreshold {
			continue
		}
		alerts = append(alerts, models.Alert{
			Severity:     models.SeverityError,
			Kind:         models.AlertLowQuality,
			Subject:      c.AgentID,
			Message:      fmt.Sprintf("Agent %q has a low QA score (%g/100)", c.AgentID, c.QAScore.OverallScore),
			Score:        c.QAScore.OverallScore,
			Threshold:    g.qualityThreshold,
			UsageEventID: c.ID,
			Timestamp:    c.CallStartedAt,
		})
	}
	return alerts
}

// Sort orders alerts by severity descending, then timestamp descending.
// Subject and usage event id break remaining ties.
func Sort(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.UsageEventID < b.UsageEventID
	})
}

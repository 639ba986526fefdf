package models

import "time"

// EntityCost is the cost and call count of one group
type EntityCost struct {
	Name      string  `json:"name"`
	CallCount int     `json:"call_count"`
	TotalCost float64 `json:"total_cost"`
}

// RankedEntity is one row of a top-N ranking
type RankedEntity struct {
	Rank      int     `json:"rank"`
	Name      string  `json:"name"`
	Client    string  `json:"client,omitempty"` // agent rankings only, empty when the agent serves several clients
	CallCount int     `json:"call_count"`
	TotalCost float64 `json:"total_cost"`
}

// DailyCost is the spend of one calendar day
type DailyCost struct {
	Date  time.Time `json:"date"`
	Cost  float64   `json:"cost"`
	Calls int       `json:"calls"`
}

// CostSummary provides aggregated cost information for one snapshot
type CostSummary struct {
	TotalCost            float64      `json:"total_cost"`
	CallCount            int          `json:"call_count"`
	WindowDays           int          `json:"window_days"`
	WindowedCost         float64      `json:"windowed_cost"`
	WindowedCalls        int          `json:"windowed_calls"`
	AverageDailyCost     float64      `json:"average_daily_cost"`
	ProjectedMonthlyCost float64      `json:"projected_monthly_cost"` // 7-day average x 30, an approximation
	MonthToDateCost      float64      `json:"month_to_date_cost"`
	PreviousMonthCost    float64      `json:"previous_month_cost"`
	DailyCosts           []DailyCost  `json:"daily_costs,omitempty"`
	ByClient             []EntityCost `json:"by_client,omitempty"`
	ByAgent              []EntityCost `json:"by_agent,omitempty"`
	ByProvider           []EntityCost `json:"by_provider,omitempty"`
	PeriodStart          time.Time    `json:"period_start"`
	PeriodEnd            time.Time    `json:"period_end"`
}

// Severity is the classification of an alert
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rank orders severities, higher is more severe
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// AlertKind identifies the threshold that produced an alert
type AlertKind string

const (
	AlertBudgetExceeded    AlertKind = "budget_exceeded"
	AlertBudgetApproaching AlertKind = "budget_approaching"
	AlertLowQuality        AlertKind = "low_quality"
)

// Alert is a derived threshold breach. Alerts are recomputed every pass
// and carry no acknowledgement state.
type Alert struct {
	Severity     Severity  `json:"severity"`
	Kind         AlertKind `json:"kind"`
	Subject      string    `json:"subject"` // Client name or agent id
	Message      string    `json:"message"`
	Amount       float64   `json:"amount,omitempty"`    // Period spend for cost alerts
	Threshold    float64   `json:"threshold,omitempty"` // Budget or minimum score
	Score        float64   `json:"score,omitempty"`     // Overall score for quality alerts
	UsageEventID string    `json:"usage_event_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ScoreBand buckets an overall QA score
type ScoreBand string

const (
	BandGood ScoreBand = "good" // >= 80
	BandFair ScoreBand = "fair" // >= 60
	BandPoor ScoreBand = "poor" // < 60
)

// BandOf returns the band of an overall score
func BandOf(score float64) ScoreBand {
	switch {
	case score >= 80:
		return BandGood
	case score >= 60:
		return BandFair
	default:
		return BandPoor
	}
}

// QualitySummary aggregates QA scores across a snapshot
type QualitySummary struct {
	ScoredConversations int                  `json:"scored_conversations"`
	AverageOverallScore float64              `json:"average_overall_score"`
	EscalationsNeeded   int                  `json:"escalations_needed"`
	HumanReviewed       int                  `json:"human_reviewed"`
	ByUrgency           map[UrgencyLevel]int `json:"by_urgency"`
	ByBand              map[ScoreBand]int    `json:"by_band"`
}

// Dashboard bundles every derived view of one snapshot
type Dashboard struct {
	GeneratedAt   time.Time       `json:"generated_at"`
	Conversations int             `json:"conversations"`
	Costs         *CostSummary    `json:"costs"`
	Quality       *QualitySummary `json:"quality"`
	TopClients    []RankedEntity  `json:"top_clients"`
	TopAgents     []RankedEntity  `json:"top_agents"`
	TopProviders  []RankedEntity  `json:"top_providers"`
	Alerts        []Alert         `json:"alerts"`
}

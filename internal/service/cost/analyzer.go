// Package cost derives spend totals, trailing-window sums, daily averages
// and the monthly projection from a snapshot. Every function is pure: the
// same snapshot and "now" always produce the same result.
package cost

import (
	"time"

	"github.com/voicemon/voicemon/pkg/models"
)

const (
	// DefaultWindowDays is the trailing window used when none is requested
	DefaultWindowDays = 7

	// ProjectionWindowDays is the trailing window averaged by the projection
	ProjectionWindowDays = 7

	// ProjectionMonthDays is the month length the projection extrapolates to.
	// The projection is a heuristic, not a calendar-aware forecast.
	ProjectionMonthDays = 30

	// TrendDays is the number of calendar days in the daily cost trend
	TrendDays = 14

	day = 24 * time.Hour
)

// TotalCost sums call cost over every event; an empty snapshot costs 0
func TotalCost(s *models.Snapshot) float64 {
	var total float64
	for _, c := range conversations(s) {
		total += c.CallCost
	}
	return total
}

// CostBetween sums call cost for events that started within [from, to],
// both bounds inclusive, and returns the number of such calls
func CostBetween(s *models.Snapshot, from, to time.Time) (float64, int) {
	var total float64
	calls := 0
	for _, c := range conversations(s) {
		if c.CallStartedAt.Before(from) || c.CallStartedAt.After(to) {
			continue
		}
		total += c.CallCost
		calls++
	}
	return total, calls
}

// WindowStart returns the inclusive lower bound of a trailing window
func WindowStart(now time.Time, windowDays int) time.Time {
	return now.Add(-time.Duration(windowDays) * day)
}

// WindowedCost sums call cost for events started within the trailing
// windowDays ending at now. The lower bound is inclusive.
func WindowedCost(s *models.Snapshot, windowDays int, now time.Time) (float64, error) {
	if err := validateWindow(windowDays); err != nil {
		return 0, err
	}
	total, _ := CostBetween(s, WindowStart(now, windowDays), now)
	return total, nil
}

// AverageDailyCost is WindowedCost divided by windowDays
func AverageDailyCost(s *models.Snapshot, windowDays int, now time.Time) (float64, error) {
	windowed, err := WindowedCost(s, windowDays, now)
	if err != nil {
		return 0, err
	}
	return windowed / float64(windowDays), nil
}

// ProjectedMonthlyCost extrapolates the trailing 7-day daily average to a
// 30-day month. It is an approximation that ignores calendar length and
// any trend inside the window.
func ProjectedMonthlyCost(s *models.Snapshot, now time.Time) float64 {
	avg, _ := AverageDailyCost(s, ProjectionWindowDays, now)
	return avg * ProjectionMonthDays
}

// MonthStart returns the start of the calendar month containing now
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// MonthToDateCost sums call cost from the start of the current calendar
// month up to now
func MonthToDateCost(s *models.Snapshot, now time.Time) float64 {
	total, _ := CostBetween(s, MonthStart(now), now)
	return total
}

// PreviousMonthCost sums call cost over the whole calendar month before
// the one containing now
func PreviousMonthCost(s *models.Snapshot, now time.Time) float64 {
	end := MonthStart(now)
	total, _ := CostBetween(s, end.AddDate(0, -1, 0), end.Add(-time.Nanosecond))
	return total
}

// DailyCosts buckets call cost into the last days calendar days ending
// with the day of now, oldest first. Days without calls are present with
// zero cost. Calls after now are ignored.
func DailyCosts(s *models.Snapshot, days int, now time.Time) ([]models.DailyCost, error) {
	if days <= 0 {
		return nil, models.InvalidArgumentf("trend days must be positive, got %d", days)
	}

	y, m, d := now.Date()
	first := time.Date(y, m, d-(days-1), 0, 0, 0, 0, now.Location())

	trend := make([]models.DailyCost, days)
	index := make(map[string]int, days)
	for i := range trend {
		date := time.Date(y, m, d-(days-1)+i, 0, 0, 0, 0, now.Location())
		trend[i].Date = date
		index[date.Format(time.DateOnly)] = i
	}

	for _, c := range conversations(s) {
		if c.CallStartedAt.Before(first) || c.CallStartedAt.After(now) {
			continue
		}
		pos, ok := index[c.CallStartedAt.In(now.Location()).Format(time.DateOnly)]
		if !ok {
			continue
		}
		trend[pos].Cost += c.CallCost
		trend[pos].Calls++
	}

	return trend, nil
}

// RollupBy groups events by key and sums cost and calls per group. Groups
// appear in order of first appearance in the snapshot.
func RollupBy(s *models.Snapshot, key models.GroupKey) ([]models.EntityCost, error) {
	if !key.Valid() {
		return nil, models.InvalidArgumentf("unknown group key %q", key)
	}

	index := make(map[string]int)
	rollup := make([]models.EntityCost, 0)
	for i := range conversations(s) {
		name := key.Of(&s.Conversations[i].UsageEvent)
		pos, ok := index[name]
		if !ok {
			pos = len(rollup)
			index[name] = pos
			rollup = append(rollup, models.EntityCost{Name: name})
		}
		rollup[pos].CallCount++
		rollup[pos].TotalCost += s.Conversations[i].CallCost
	}

	return rollup, nil
}

// Summarize computes every cost view of the snapshot for one window
func Summarize(s *models.Snapshot, windowDays int, now time.Time) (*models.CostSummary, error) {
	if err := validateWindow(windowDays); err != nil {
		return nil, err
	}

	start := WindowStart(now, windowDays)
	windowed, windowedCalls := CostBetween(s, start, now)

	summary := &models.CostSummary{
		TotalCost:            TotalCost(s),
		CallCount:            s.Len(),
		WindowDays:           windowDays,
		WindowedCost:         windowed,
		WindowedCalls:        windowedCalls,
		AverageDailyCost:     windowed / float64(windowDays),
		ProjectedMonthlyCost: ProjectedMonthlyCost(s, now),
		MonthToDateCost:      MonthToDateCost(s, now),
		PreviousMonthCost:    PreviousMonthCost(s, now),
		PeriodStart:          start,
		PeriodEnd:            now,
	}

	// Keys are constants, RollupBy cannot fail here
	summary.ByClient, _ = RollupBy(s, models.GroupByClient)
	summary.ByAgent, _ = RollupBy(s, models.GroupByAgent)
	summary.ByProvider, _ = RollupBy(s, models.GroupByProvider)
	summary.DailyCosts, _ = DailyCosts(s, TrendDays, now)

	return summary, nil
}

func validateWindow(windowDays int) error {
	if windowDays <= 0 {
		return models.InvalidArgumentf("window days must be positive, got %d", windowDays)
	}
	return nil
}

func conversations(s *models.Snapshot) []models.JoinedConversation {
	if s == nil {
		return nil
	}
	return s.Conversations
}

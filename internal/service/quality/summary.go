// Package quality summarizes QA scores across a snapshot
package quality

import (
	"github.com/voicemon/voicemon/pkg/models"
)

// Summarize aggregates every scored conversation. Unscored conversations
// are ignored; a snapshot without scores yields a zero average.
func Summarize(s *models.Snapshot) *models.QualitySummary {
	summary := &models.QualitySummary{
		ByUrgency: make(map[models.UrgencyLevel]int),
		ByBand:    make(map[models.ScoreBand]int),
	}
	if s == nil {
		return summary
	}

	var total float64
	for _, c := range s.Conversations {
		score := c.QAScore
		if score == nil {
			continue
		}
		summary.ScoredConversations++
		total += score.OverallScore
		if score.EscalationNeeded {
			summary.EscalationsNeeded++
		}
		if score.HumanReviewed {
			summary.HumanReviewed++
		}
		if score.UrgencyLevel.Valid() {
			summary.ByUrgency[score.UrgencyLevel]++
		}
		summary.ByBand[models.BandOf(score.OverallScore)]++
	}

	if summary.ScoredConversations > 0 {
		summary.AverageOverallScore = total / float64(summary.ScoredConversations)
	}
	return summary
}

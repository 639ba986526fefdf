package cmd

import "github.com/voicemon/voicemon/pkg/models"

// Re-export API payload types from models for CLI use
type (
	CostSummary        = models.CostSummary
	EntityCost         = models.EntityCost
	RankedEntity       = models.RankedEntity
	Alert              = models.Alert
	JoinedConversation = models.JoinedConversation
	QualitySummary     = models.QualitySummary
	Dashboard          = models.Dashboard
	DailyCost          = models.DailyCost
)

package journey

import "journey-board/internal/models"

const (
	IndicatorHighValueDeal       = "High-value deal"
	IndicatorHighEmailEngagement = "High email engagement"
	IndicatorHighEngagement      = "High engagement"
)

var recommendations = map[Stage][]string{
	StageProspecting: {
		"Schedule next meeting",
		"Send supporting material",
	},
	StageOnboarding: {
		"Follow up on implementation",
		"Schedule training",
	},
	StageRelationship: {
		"Evaluate upsell opportunities",
		"Request feedback",
	},
}

// Indicators lists observational labels in a fixed order. They never affect stage or score.
func (rs *RuleSet) Indicators(deal models.DealRecord, contact models.ContactRecord) []string {
	out := []string{}
	if deal.Amount > rs.thresholds.HighValueAmount {
		out = append(out, IndicatorHighValueDeal)
	}
	if contact.EmailOpenRate > rs.thresholds.EmailOpenRate {
		out = append(out, IndicatorHighEmailEngagement)
	}
	if n := rs.thresholds.ContactedNotesThreshold; n > 0 && contact.ContactedNotesCount > n {
		out = append(out, IndicatorHighEngagement)
	}
	return out
}

// Recommendations returns the next actions for a stage; empty for an unset stage.
func Recommendations(stage Stage) []string {
	return append([]string{}, recommendations[stage]...)
}

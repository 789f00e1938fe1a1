package triage

import (
	"github.com/physio-triage-server/internal/domain"
)

// DetermineUrgency selects the overall urgency of the screening. The first matching tier wins.
func DetermineUrgency(in domain.ScreeningInput, score int) domain.UrgencyLevel {
	switch {
	case (in.UnexplainedWeightLoss && in.CancerHistory) ||
		in.BladderBowelDysfunction ||
		(in.CardiovascularSymptoms && in.NightPain):
		return domain.UrgencyUrgent
	case score >= 40 ||
		(in.NeurologicalSymptoms && in.NightPain) ||
		(in.RecentInfection && in.NightPain):
		return domain.UrgencyHigh
	case score >= 20:
		return domain.UrgencyModerate
	default:
		return domain.UrgencyLow
	}
}

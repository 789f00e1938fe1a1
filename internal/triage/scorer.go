package triage

import (
	"github.com/physio-triage-server/internal/domain"
)

// MaxRiskScore is the upper bound of the clipped risk score.
const MaxRiskScore = 100

// flagWeights holds the additive weight of each scored flag. Flags absent from the table score zero.
var flagWeights = map[domain.RedFlag]int{
	domain.FlagUnexplainedWeightLoss:   20,
	domain.FlagBladderBowelDysfunction: 20,
	domain.FlagNeurologicalSymptoms:    15,
	domain.FlagNightPain:               10,
	domain.FlagCancerHistory:           10,
	domain.FlagRecentInfection:         10,
	domain.FlagCardiovascularSymptoms:  10,
	domain.FlagTraumaHistory:           5,
	domain.FlagSteroidUse:              5,
	domain.FlagOsteoporosisRisk:        5,
	domain.FlagSevereHeadache:          5,
	domain.FlagDizzinessBalanceIssues:  5,
}

// FlagWeight returns the score contribution of a flag.
func FlagWeight(flag domain.RedFlag) int {
	return flagWeights[flag]
}

// RawRiskScore returns the unclipped sum of the weights of every set flag.
func RawRiskScore(in domain.ScreeningInput) int {
	score := 0
	for _, flag := range domain.AllRedFlags() {
		if in.Has(flag) {
			score += FlagWeight(flag)
		}
	}
	return score
}

// RiskScore returns the risk score clipped to [0, MaxRiskScore].
func RiskScore(in domain.ScreeningInput) int {
	score := RawRiskScore(in)
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	if score < 0 {
		return 0
	}
	return score
}

// ComplexityFor maps a risk score to a case complexity.
func ComplexityFor(score int) domain.Complexity {
	switch {
	case score >= 40:
		return domain.ComplexityHigh
	case score >= 20:
		return domain.ComplexityModerate
	default:
		return domain.ComplexityLow
	}
}

package triage

import (
	"github.com/physio-triage-server/internal/domain"
)

type domainRule struct {
	domain    domain.RiskDomain
	rationale string
	matches   func(in domain.ScreeningInput) bool
}

// domainRules are checked in order; the first match selects the domain.
var domainRules = []domainRule{
	{
		domain:    domain.DomainNeurogenic,
		rationale: "Neurological symptoms present - neurogenic pattern",
		matches:   func(in domain.ScreeningInput) bool { return in.NeurologicalSymptoms },
	},
	{
		domain:    domain.DomainVascular,
		rationale: "Cardiovascular symptoms - vascular consideration",
		matches:   func(in domain.ScreeningInput) bool { return in.CardiovascularSymptoms },
	},
	{
		domain:    domain.DomainSystemic,
		rationale: "Systemic signs present",
		matches:   func(in domain.ScreeningInput) bool { return in.RecentInfection || in.CancerHistory },
	},
	{
		domain:    domain.DomainMSKInflammatory,
		rationale: "Night pain without trauma - inflammatory pattern",
		matches:   func(in domain.ScreeningInput) bool { return in.NightPain && !in.TraumaHistory },
	},
}

const highComplexityRationale = "Multiple red flags present - high complexity case"

// Classify derives the likely clinical domain, acuity and complexity of the presentation.
// Acuity is acute after trauma and unknown otherwise; subacute and chronic are never produced.
func Classify(in domain.ScreeningInput, score int) domain.TriageClassification {
	result := domain.TriageClassification{
		LikelyDomain: domain.DomainMSKMechanical,
		Acuity:       domain.AcuityUnknown,
		Complexity:   ComplexityFor(score),
		Rationale:    []string{},
	}

	for _, rule := range domainRules {
		if rule.matches(in) {
			result.LikelyDomain = rule.domain
			result.Rationale = append(result.Rationale, rule.rationale)
			break
		}
	}

	if in.TraumaHistory {
		result.Acuity = domain.AcuityAcute
	}

	if result.Complexity == domain.ComplexityHigh {
		result.Rationale = append(result.Rationale, highComplexityRationale)
	}

	return result
}

package triage

import (
	"github.com/physio-triage-server/internal/domain"
)

type sessionTier struct {
	minScore      int
	minutes       int
	justification string
	priorities    []string
}

// sessionTiers are ordered by descending minimum score.
var sessionTiers = []sessionTier{
	{
		minScore:      40,
		minutes:       60,
		justification: "Extended session required due to complexity and safety considerations",
		priorities: []string{
			"Comprehensive medical screening",
			"Red flag symptom clarification",
			"Differential diagnosis ruling out",
		},
	},
	{
		minScore:      20,
		minutes:       45,
		justification: "Standard session with additional safety screening",
		priorities: []string{
			"Focused clinical examination",
			"Safety screening for modalities",
		},
	},
	{
		minScore:      0,
		minutes:       30,
		justification: "Standard session appropriate for low-risk presentation",
		priorities: []string{
			"Standard musculoskeletal assessment",
		},
	},
}

func tierFor(score int) sessionTier {
	for _, tier := range sessionTiers {
		if score >= tier.minScore {
			return tier
		}
	}
	return sessionTiers[len(sessionTiers)-1]
}

// PlanSession recommends the first session's length and assessment priorities.
func PlanSession(in domain.ScreeningInput, score int) domain.SessionPlan {
	tier := tierFor(score)

	priorities := make([]string, 0, len(tier.priorities)+4)
	priorities = append(priorities, tier.priorities...)
	if in.NeurologicalSymptoms {
		priorities = append(priorities, "Neurological examination (reflexes, sensation, strength)")
	}
	if in.TraumaHistory {
		priorities = append(priorities, "Trauma mechanism and imaging review")
	}
	priorities = append(priorities,
		"Functional movement assessment",
		"Patient goals and expectations discussion",
	)

	return domain.SessionPlan{
		RecommendedSessionLength: tier.minutes,
		Justification:            tier.justification,
		AssessmentPriorities:     priorities,
	}
}

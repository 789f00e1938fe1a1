package triage

import (
	"fmt"

	"github.com/physio-triage-server/internal/domain"
)

// gatingRule is one independent safety rule of a modality family. When it matches it contributes
// its decision and appends its findings to the assessment.
type gatingRule struct {
	name     string
	matches  func(in domain.ScreeningInput) bool
	decision domain.GatingDecision
	// assigns marks rules that set the decision outright under GatingPolicySequentialOverwrite.
	assigns bool

	contraindications []string
	precautions       []string
	requiredChecks    []string
	notes             []string
}

type ruleFamily struct {
	rules []gatingRule
	// allowedNotes are recorded when no rule matched.
	allowedNotes func(m domain.Modality) []string
	// alwaysNotes are appended after all rules regardless of the outcome.
	alwaysNotes []string
}

var electrotherapyFamily = ruleFamily{
	rules: []gatingRule{
		{
			name:              "recent_infection",
			matches:           func(in domain.ScreeningInput) bool { return in.RecentInfection },
			decision:          domain.DecisionDoNotUseUntilCleared,
			assigns:           true,
			contraindications: []string{"Active infection in treatment area"},
			notes:             []string{"Defer until infection resolved"},
		},
		{
			name:              "cancer_history",
			matches:           func(in domain.ScreeningInput) bool { return in.CancerHistory },
			decision:          domain.DecisionDoNotUseUntilCleared,
			assigns:           true,
			contraindications: []string{"History of malignancy"},
			notes:             []string{"Oncology clearance required - do not apply over tumour site"},
		},
		{
			name:           "cardiovascular_symptoms",
			matches:        func(in domain.ScreeningInput) bool { return in.CardiovascularSymptoms },
			decision:       domain.DecisionAllowedWithPrecautions,
			assigns:        true,
			precautions:    []string{"Cardiovascular symptoms present"},
			requiredChecks: []string{"Avoid placement near heart/major vessels"},
			notes:          []string{"Monitor patient response carefully"},
		},
		{
			name:           "neurological_symptoms",
			matches:        func(in domain.ScreeningInput) bool { return in.NeurologicalSymptoms },
			decision:       domain.DecisionAllowedWithPrecautions,
			precautions:    []string{"Neurological symptoms present"},
			requiredChecks: []string{"Sensation assessment before application"},
			notes:          []string{"Reduced sensation may increase burn risk"},
		},
	},
	allowedNotes: func(m domain.Modality) []string {
		current := "EMS"
		if m == domain.ModalityMENS {
			current = "MENS"
		}
		return []string{
			fmt.Sprintf("%s therapy appropriate for this patient", current),
			"Standard safety protocols apply",
		}
	},
}

var ultrasoundFamily = ruleFamily{
	rules: []gatingRule{
		{
			name:              "cancer_history",
			matches:           func(in domain.ScreeningInput) bool { return in.CancerHistory },
			decision:          domain.DecisionDoNotUseUntilCleared,
			assigns:           true,
			contraindications: []string{"History of malignancy"},
			notes:             []string{"Do not apply over tumour site"},
		},
		{
			name:              "recent_infection",
			matches:           func(in domain.ScreeningInput) bool { return in.RecentInfection },
			decision:          domain.DecisionDoNotUseUntilCleared,
			assigns:           true,
			contraindications: []string{"Active infection"},
			notes:             []string{"Defer until infection resolved"},
		},
		{
			name:           "neurological_symptoms",
			matches:        func(in domain.ScreeningInput) bool { return in.NeurologicalSymptoms },
			decision:       domain.DecisionAllowedWithPrecautions,
			precautions:    []string{"Reduced sensation"},
			requiredChecks: []string{"Sensation test before application"},
		},
	},
	allowedNotes: staticNotes("Therapeutic ultrasound appropriate", "Select appropriate frequency based on depth"),
}

var laserFamily = ruleFamily{
	rules: []gatingRule{
		{
			name:              "cancer_history",
			matches:           func(in domain.ScreeningInput) bool { return in.CancerHistory },
			decision:          domain.DecisionDoNotUseUntilCleared,
			assigns:           true,
			contraindications: []string{"Malignancy"},
			notes:             []string{"Oncology clearance required"},
		},
		{
			// Laser may aid healing after an infection, so this is a precaution rather than a block.
			name:        "recent_infection",
			matches:     func(in domain.ScreeningInput) bool { return in.RecentInfection },
			decision:    domain.DecisionAllowedWithPrecautions,
			assigns:     true,
			precautions: []string{"Active infection"},
			notes:       []string{"May be beneficial for tissue healing post-infection"},
		},
	},
	allowedNotes: staticNotes("Laser therapy appropriate", "Follow standard laser safety protocols"),
}

var manualTherapyFamily = ruleFamily{
	rules: []gatingRule{
		{
			name:           "fracture_risk",
			matches:        func(in domain.ScreeningInput) bool { return in.OsteoporosisRisk || in.SteroidUse },
			decision:       domain.DecisionAllowedWithPrecautions,
			assigns:        true,
			precautions:    []string{"Increased fracture risk"},
			requiredChecks: []string{"Bone density consideration"},
			notes:          []string{"Avoid high-velocity techniques", "Use gentle mobilisation only"},
		},
		{
			name:           "trauma_history",
			matches:        func(in domain.ScreeningInput) bool { return in.TraumaHistory },
			decision:       domain.DecisionAllowedWithPrecautions,
			assigns:        true,
			precautions:    []string{"Recent trauma"},
			requiredChecks: []string{"Imaging review if available"},
			notes:          []string{"Fracture exclusion required"},
		},
		{
			name:        "cardiovascular_symptoms",
			matches:     func(in domain.ScreeningInput) bool { return in.CardiovascularSymptoms },
			decision:    domain.DecisionAllowedWithPrecautions,
			assigns:     true,
			precautions: []string{"Cardiovascular symptoms"},
			notes:       []string{"Monitor blood pressure response"},
		},
	},
	allowedNotes: staticNotes("Manual therapy appropriate", "Adapt technique to patient tolerance"),
}

var exerciseFamily = ruleFamily{
	rules: []gatingRule{
		{
			name:           "cardiovascular_symptoms",
			matches:        func(in domain.ScreeningInput) bool { return in.CardiovascularSymptoms },
			decision:       domain.DecisionAllowedWithPrecautions,
			assigns:        true,
			precautions:    []string{"Cardiovascular symptoms"},
			requiredChecks: []string{"Blood pressure monitoring"},
			notes:          []string{"Cardiac assessment recommended", "Start with low-intensity exercise"},
		},
		{
			name:        "balance_issues",
			matches:     func(in domain.ScreeningInput) bool { return in.DizzinessBalanceIssues },
			decision:    domain.DecisionAllowedWithPrecautions,
			assigns:     true,
			precautions: []string{"Balance issues"},
			notes:       []string{"Fall prevention measures essential", "Supervised exercise only initially"},
		},
		{
			name:        "osteoporosis_risk",
			matches:     func(in domain.ScreeningInput) bool { return in.OsteoporosisRisk },
			decision:    domain.DecisionAllowedWithPrecautions,
			assigns:     true,
			precautions: []string{"Osteoporosis risk"},
			notes:       []string{"Avoid high-impact loading", "Progressive loading protocol"},
		},
	},
	alwaysNotes: []string{"Exercise therapy is fundamental to rehabilitation", "Adapt intensity to patient capacity"},
}

func staticNotes(notes ...string) func(domain.Modality) []string {
	return func(domain.Modality) []string { return notes }
}

// familyRules returns the rule family for a modality family, or nil when the family is unknown.
func familyRules(f domain.ModalityFamily) *ruleFamily {
	switch f {
	case domain.FamilyElectrotherapy:
		return &electrotherapyFamily
	case domain.FamilyUltrasound:
		return &ultrasoundFamily
	case domain.FamilyLaser:
		return &laserFamily
	case domain.FamilyManualTherapy:
		return &manualTherapyFamily
	case domain.FamilyExercise:
		return &exerciseFamily
	default:
		return nil
	}
}

// combine folds a matched rule's decision into the running decision.
func combine(policy GatingPolicy, current domain.GatingDecision, rule gatingRule) domain.GatingDecision {
	if policy == GatingPolicySequentialOverwrite && rule.assigns {
		return rule.decision
	}
	return domain.MaxDecision(current, rule.decision)
}

// AssessModality evaluates one modality's rule family. A modality outside the fixed set is
// reported as do_not_use_until_cleared.
func AssessModality(in domain.ScreeningInput, m domain.Modality, policy GatingPolicy) domain.ModalityAssessment {
	assessment := domain.NewModalityAssessment()

	family := familyRules(m.Family())
	if family == nil {
		assessment.Decision = domain.DecisionDoNotUseUntilCleared
		assessment.Contraindications = append(assessment.Contraindications, fmt.Sprintf("Unknown modality %q", m))
		return assessment
	}

	matched := 0
	for _, rule := range family.rules {
		if !rule.matches(in) {
			continue
		}
		matched++
		assessment.Decision = combine(policy, assessment.Decision, rule)
		assessment.Contraindications = append(assessment.Contraindications, rule.contraindications...)
		assessment.Precautions = append(assessment.Precautions, rule.precautions...)
		assessment.RequiredChecks = append(assessment.RequiredChecks, rule.requiredChecks...)
		assessment.ClinicianNotes = append(assessment.ClinicianNotes, rule.notes...)
	}

	if matched == 0 && family.allowedNotes != nil {
		assessment.ClinicianNotes = append(assessment.ClinicianNotes, family.allowedNotes(m)...)
	}
	assessment.ClinicianNotes = append(assessment.ClinicianNotes, family.alwaysNotes...)

	return assessment
}

// GateModalities assesses every modality in domain.AllModalities. The returned map always has
// exactly one entry per modality.
func GateModalities(in domain.ScreeningInput, policy GatingPolicy) map[domain.Modality]domain.ModalityAssessment {
	if !policy.IsValid() {
		policy = DefaultGatingPolicy
	}

	modalities := domain.AllModalities()
	gating := make(map[domain.Modality]domain.ModalityAssessment, len(modalities))
	for _, m := range modalities {
		gating[m] = AssessModality(in, m, policy)
	}
	return gating
}

package triage

import (
	"github.com/physio-triage-server/internal/domain"
)

type redFlagRule struct {
	flag     domain.RedFlag
	label    string
	evidence string
	action   string
	urgency  func(in domain.ScreeningInput) domain.UrgencyLevel
}

func fixedUrgency(u domain.UrgencyLevel) func(domain.ScreeningInput) domain.UrgencyLevel {
	return func(domain.ScreeningInput) domain.UrgencyLevel { return u }
}

// redFlagRules is in reporting priority order.
var redFlagRules = []redFlagRule{
	{
		flag:     domain.FlagUnexplainedWeightLoss,
		label:    "Unexplained Weight Loss",
		evidence: "Patient reported unexplained weight loss",
		action:   "Urgent GP referral - possible systemic disease",
		urgency:  fixedUrgency(domain.UrgencyUrgent),
	},
	{
		flag:     domain.FlagBladderBowelDysfunction,
		label:    "Bladder/Bowel Dysfunction",
		evidence: "Patient reported changes in bladder/bowel function",
		action:   "URGENT - Possible cauda equina syndrome, immediate medical assessment required",
		urgency:  fixedUrgency(domain.UrgencyUrgent),
	},
	{
		flag:     domain.FlagNeurologicalSymptoms,
		label:    "Neurological Symptoms",
		evidence: "Patient reported numbness, tingling, or weakness",
		action:   "Neurological examination required before treatment",
		urgency:  fixedUrgency(domain.UrgencyHigh),
	},
	{
		flag:     domain.FlagNightPain,
		label:    "Severe Night Pain",
		evidence: "Patient reported severe night pain disrupting sleep",
		action:   "Medical review required - possible inflammatory or neoplastic process",
		urgency: func(in domain.ScreeningInput) domain.UrgencyLevel {
			if in.CancerHistory {
				return domain.UrgencyUrgent
			}
			return domain.UrgencyHigh
		},
	},
	{
		flag:     domain.FlagCancerHistory,
		label:    "Cancer History",
		evidence: "Patient has current or past history of cancer",
		action:   "Oncology clearance required before aggressive treatment",
		urgency:  fixedUrgency(domain.UrgencyHigh),
	},
	{
		flag:     domain.FlagCardiovascularSymptoms,
		label:    "Cardiovascular Symptoms",
		evidence: "Patient reported chest pain, shortness of breath, or irregular heartbeat",
		action:   "Cardiac assessment required before exercise therapy",
		urgency:  fixedUrgency(domain.UrgencyHigh),
	},
	{
		flag:     domain.FlagRecentInfection,
		label:    "Recent Infection/Fever",
		evidence: "Patient reported recent infection or fever",
		action:   "Defer treatment until infection resolved",
		urgency:  fixedUrgency(domain.UrgencyModerate),
	},
	{
		flag:     domain.FlagTraumaHistory,
		label:    "Recent Trauma",
		evidence: "Patient reported recent trauma or injury",
		action:   "Fracture exclusion required before manual therapy",
		urgency:  fixedUrgency(domain.UrgencyModerate),
	},
	{
		flag:     domain.FlagSteroidUse,
		label:    "Steroid Use",
		evidence: "Patient currently taking or recently took steroids",
		action:   "Increased fracture risk - caution with manual therapy",
		urgency:  fixedUrgency(domain.UrgencyModerate),
	},
	{
		flag:     domain.FlagOsteoporosisRisk,
		label:    "Osteoporosis Risk",
		evidence: "Patient has osteoporosis diagnosis or risk factors",
		action:   "Bone density consideration - modify loading",
		urgency:  fixedUrgency(domain.UrgencyModerate),
	},
	{
		flag:     domain.FlagSevereHeadache,
		label:    "Severe Headache",
		evidence: "Patient reported severe or unusual headaches",
		action:   "Medical review for serious pathology exclusion",
		urgency:  fixedUrgency(domain.UrgencyModerate),
	},
	{
		flag:     domain.FlagDizzinessBalanceIssues,
		label:    "Dizziness/Balance Issues",
		evidence: "Patient reported dizziness, vertigo, or balance problems",
		action:   "Vestibular assessment before exercise prescription",
		urgency:  fixedUrgency(domain.UrgencyModerate),
	},
}

// DetectRedFlags reports every set flag as a red-flag item in priority order and derives the status.
func DetectRedFlags(in domain.ScreeningInput) domain.RedFlagAssessment {
	flags := make([]domain.RedFlagItem, 0, len(redFlagRules))
	for _, rule := range redFlagRules {
		if !in.Has(rule.flag) {
			continue
		}
		flags = append(flags, domain.RedFlagItem{
			Flag:            rule.label,
			Evidence:        rule.evidence,
			UrgencyLevel:    rule.urgency(in),
			SuggestedAction: rule.action,
		})
	}

	return domain.RedFlagAssessment{
		Status: domain.StatusFor(flags),
		Flags:  flags,
	}
}

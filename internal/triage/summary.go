package triage

import (
	"fmt"
	"strings"

	"github.com/physio-triage-server/internal/domain"
)

var keyFindingLabels = []struct {
	flag  domain.RedFlag
	label string
}{
	{domain.FlagUnexplainedWeightLoss, "unexplained weight loss"},
	{domain.FlagBladderBowelDysfunction, "bladder/bowel changes"},
	{domain.FlagNeurologicalSymptoms, "neurological symptoms"},
	{domain.FlagNightPain, "severe night pain"},
	{domain.FlagCancerHistory, "cancer history"},
}

func actionLine(u domain.UrgencyLevel) string {
	switch u {
	case domain.UrgencyUrgent:
		return "URGENT MEDICAL REVIEW REQUIRED before physiotherapy treatment"
	case domain.UrgencyHigh:
		return "Medical review recommended before commencing treatment"
	case domain.UrgencyModerate:
		return "Exercise clinical judgement and consider GP liaison"
	default:
		return "Standard physiotherapy care pathway appropriate"
	}
}

// ComposeSummary builds the one-paragraph clinical summary.
func ComposeSummary(in domain.ScreeningInput, score int, urgency domain.UrgencyLevel, classification domain.TriageClassification) string {
	parts := []string{
		fmt.Sprintf("Risk Score: %d/100 (%s)", score, strings.ToUpper(urgency.String())),
		fmt.Sprintf("Clinical Pattern: %s", strings.ReplaceAll(string(classification.LikelyDomain), "_", " ")),
	}

	var findings []string
	for _, kf := range keyFindingLabels {
		if in.Has(kf.flag) {
			findings = append(findings, kf.label)
		}
	}
	if len(findings) > 0 {
		parts = append(parts, "Key Findings: "+strings.Join(findings, ", "))
	}

	parts = append(parts, actionLine(urgency))

	return strings.Join(parts, ". ") + "."
}

package domain

import (
	"time"
)

// ModalityAssessment is the gating outcome for one modality. The list fields are never nil.
type ModalityAssessment struct {
	Decision          GatingDecision `json:"decision"`
	Contraindications []string       `json:"contraindications"`
	Precautions       []string       `json:"precautions"`
	RequiredChecks    []string       `json:"requiredChecks"`
	ClinicianNotes    []string       `json:"clinicianNotes"`
}

// NewModalityAssessment returns an allowed assessment with empty, non-nil lists.
func NewModalityAssessment() ModalityAssessment {
	return ModalityAssessment{
		Decision:          DecisionAllowed,
		Contraindications: []string{},
		Precautions:       []string{},
		RequiredChecks:    []string{},
		ClinicianNotes:    []string{},
	}
}

// RedFlagItem is one detected red flag with its evidence and the recommended response.
type RedFlagItem struct {
	Flag            string       `json:"flag"`
	Evidence        string       `json:"evidence"`
	UrgencyLevel    UrgencyLevel `json:"urgencyLevel"`
	SuggestedAction string       `json:"suggestedAction"`
}

// RedFlagAssessment is the ordered red-flag report. Status is derived from Flags.
type RedFlagAssessment struct {
	Status RedFlagStatus `json:"status"`
	Flags  []RedFlagItem `json:"flags"`
}

// StatusFor derives the red-flag status from an item list: none_detected iff empty,
// urgent_red_flags iff any item is urgent, otherwise possible_red_flags.
func StatusFor(flags []RedFlagItem) RedFlagStatus {
	if len(flags) == 0 {
		return RedFlagsNoneDetected
	}
	for _, f := range flags {
		if f.UrgencyLevel == UrgencyUrgent {
			return RedFlagsUrgent
		}
	}
	return RedFlagsPossible
}

// TriageClassification is the likely clinical domain, acuity and complexity of a presentation.
type TriageClassification struct {
	LikelyDomain RiskDomain `json:"likelyDomain"`
	Acuity       Acuity     `json:"acuity"`
	Complexity   Complexity `json:"complexity"`
	Rationale    []string   `json:"rationale"`
}

// FollowUpQuestion is a clarifying question for the initial consultation.
type FollowUpQuestion struct {
	Question          string   `json:"question"`
	WhyItMatters      string   `json:"whyItMatters"`
	ImpactsModalities []string `json:"impactsModalities"`
}

// SessionPlan is the recommended shape of the first session.
type SessionPlan struct {
	RecommendedSessionLength int      `json:"recommendedSessionLength"`
	Justification            string   `json:"justification"`
	AssessmentPriorities     []string `json:"assessmentPriorities"`
}

// ClinicalAnalysis is the aggregate result of analysing one screening.
// ModalityGating always holds exactly one entry per modality in AllModalities.
type ClinicalAnalysis struct {
	RiskScore                  int                             `json:"riskScore"`
	UrgencyLevel               UrgencyLevel                    `json:"urgencyLevel"`
	ClinicalSummary            string                          `json:"clinicalSummary"`
	TriageClassification       TriageClassification            `json:"triageClassification"`
	RedFlagAssessment          RedFlagAssessment               `json:"redFlagAssessment"`
	ModalityGating             map[Modality]ModalityAssessment `json:"modalityGating"`
	TargetedFollowUpQuestions  []FollowUpQuestion              `json:"targetedFollowUpQuestions"`
	SessionPlanningSuggestions SessionPlan                     `json:"sessionPlanningSuggestions"`
}

// BlockedModalities lists modalities that may not be used until cleared, in catalogue order.
func (a *ClinicalAnalysis) BlockedModalities() []Modality {
	blocked := make([]Modality, 0)
	for _, m := range AllModalities() {
		if a.ModalityGating[m].Decision == DecisionDoNotUseUntilCleared {
			blocked = append(blocked, m)
		}
	}
	return blocked
}

// LogFields returns the fields recorded in audit logs for a completed analysis.
func (a *ClinicalAnalysis) LogFields() map[string]any {
	return map[string]any{
		"risk_score":         a.RiskScore,
		"urgency_level":      a.UrgencyLevel.String(),
		"likely_domain":      string(a.TriageClassification.LikelyDomain),
		"complexity":         string(a.TriageClassification.Complexity),
		"red_flag_status":    string(a.RedFlagAssessment.Status),
		"red_flag_count":     len(a.RedFlagAssessment.Flags),
		"blocked_modalities": len(a.BlockedModalities()),
	}
}

// AnalysisRecord is a persisted analysis of a patient's screening.
type AnalysisRecord struct {
	ID           string           `json:"id"`
	PatientID    string           `json:"patient_id"`
	InputHash    string           `json:"input_hash"`
	GatingPolicy string           `json:"gating_policy"`
	RiskScore    int              `json:"risk_score"`
	UrgencyLevel UrgencyLevel     `json:"urgency_level"`
	Analysis     ClinicalAnalysis `json:"analysis"`
	CreatedAt    time.Time        `json:"created_at"`
}

// PatientAnalysisResponse is the envelope returned when analysing a stored screening.
type PatientAnalysisResponse struct {
	Success              bool             `json:"success"`
	PatientID            string           `json:"patient_id"`
	ScreeningCompletedAt time.Time        `json:"screening_completed_at"`
	RecordID             string           `json:"record_id,omitempty"`
	Analysis             ClinicalAnalysis `json:"analysis"`
}

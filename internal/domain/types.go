// Package domain contains core business entities for clinical triage and modality safety gating
// of physiotherapy patients.
//
// The types here describe the medical-screening questionnaire a patient completes before their
// first session, the closed set of treatment modalities offered by the clinic, and the ordered
// severity lattices (urgency and gating decision) used to aggregate rule outcomes.
package domain

import (
	"errors"
)

// UrgencyLevel is the ordered severity of the clinical response a screening requires.
// low < moderate < high < urgent.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyModerate UrgencyLevel = "moderate"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyUrgent   UrgencyLevel = "urgent"
)

// GatingDecision is the tri-state safety verdict controlling whether a modality may be used.
// allowed < allowed_with_precautions < do_not_use_until_cleared.
type GatingDecision string

const (
	DecisionAllowed                GatingDecision = "allowed"
	DecisionAllowedWithPrecautions GatingDecision = "allowed_with_precautions"
	DecisionDoNotUseUntilCleared   GatingDecision = "do_not_use_until_cleared"
)

// RiskDomain is the likely clinical domain of the presentation.
type RiskDomain string

const (
	DomainMSKMechanical   RiskDomain = "MSK_mechanical"
	DomainMSKInflammatory RiskDomain = "MSK_inflammatory"
	DomainNeurogenic      RiskDomain = "neurogenic"
	DomainVascular        RiskDomain = "vascular"
	DomainSystemic        RiskDomain = "systemic"
	DomainMixed           RiskDomain = "mixed"
	DomainUnclear         RiskDomain = "unclear"
)

// Acuity describes how recent the presenting problem is. Only acute and unknown are produced
// by the current rule set.
type Acuity string

const (
	AcuityAcute    Acuity = "acute"
	AcuitySubacute Acuity = "subacute"
	AcuityChronic  Acuity = "chronic"
	AcuityUnknown  Acuity = "unknown"
)

// Complexity is the case complexity derived from the risk score.
type Complexity string

const (
	ComplexityLow      Complexity = "low"
	ComplexityModerate Complexity = "moderate"
	ComplexityHigh     Complexity = "high"
)

// RedFlagStatus summarises a red-flag list.
type RedFlagStatus string

const (
	RedFlagsNoneDetected RedFlagStatus = "none_detected"
	RedFlagsPossible     RedFlagStatus = "possible_red_flags"
	RedFlagsUrgent       RedFlagStatus = "urgent_red_flags"
)

// Validation errors for clinical data integrity
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidScreening = errors.New("invalid medical screening")
	ErrInvalidModality  = errors.New("invalid treatment modality")
	ErrInvalidDecision  = errors.New("invalid gating decision")
	ErrInvalidUrgency   = errors.New("invalid urgency level")
	ErrInvalidPatientID = errors.New("invalid patient ID")
	ErrBatchTooLarge    = errors.New("batch exceeds maximum size")
	ErrScreeningLocked  = errors.New("screening is locked")
)

var urgencyRank = map[UrgencyLevel]int{
	UrgencyLow:      0,
	UrgencyModerate: 1,
	UrgencyHigh:     2,
	UrgencyUrgent:   3,
}

// IsValid reports whether u is one of the four defined urgency levels.
func (u UrgencyLevel) IsValid() bool {
	_, ok := urgencyRank[u]
	return ok
}

// Rank returns the position of u in the urgency lattice, or -1 for unknown values.
func (u UrgencyLevel) Rank() int {
	if r, ok := urgencyRank[u]; ok {
		return r
	}
	return -1
}

// String returns the string representation of the urgency level.
func (u UrgencyLevel) String() string {
	return string(u)
}

// RequiresMedicalReview reports whether the urgency calls for medical review before treatment.
func (u UrgencyLevel) RequiresMedicalReview() bool {
	return u == UrgencyHigh || u == UrgencyUrgent
}

var decisionSeverity = map[GatingDecision]int{
	DecisionAllowed:                0,
	DecisionAllowedWithPrecautions: 1,
	DecisionDoNotUseUntilCleared:   2,
}

// IsValid reports whether d is one of the three gating decisions.
func (d GatingDecision) IsValid() bool {
	_, ok := decisionSeverity[d]
	return ok
}

// Severity returns the position of d in the gating lattice, or -1 for unknown values.
func (d GatingDecision) Severity() int {
	if s, ok := decisionSeverity[d]; ok {
		return s
	}
	return -1
}

// String returns the string representation of the decision.
func (d GatingDecision) String() string {
	return string(d)
}

// PermitsTreatment reports whether the modality may be applied in this session.
// Unknown decisions never permit treatment.
func (d GatingDecision) PermitsTreatment() bool {
	switch d {
	case DecisionAllowed, DecisionAllowedWithPrecautions:
		return true
	default:
		return false
	}
}

// MaxDecision returns the more restrictive of two gating decisions.
func MaxDecision(a, b GatingDecision) GatingDecision {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// ParseGatingDecision validates a decision received from outside the engine.
func ParseGatingDecision(s string) (GatingDecision, error) {
	d := GatingDecision(s)
	if !d.IsValid() {
		return "", ErrInvalidDecision
	}
	return d, nil
}

// IsValid validates the risk domain.
func (r RiskDomain) IsValid() bool {
	switch r {
	case DomainMSKMechanical, DomainMSKInflammatory, DomainNeurogenic, DomainVascular,
		DomainSystemic, DomainMixed, DomainUnclear:
		return true
	default:
		return false
	}
}

// IsValid validates the acuity.
func (a Acuity) IsValid() bool {
	switch a {
	case AcuityAcute, AcuitySubacute, AcuityChronic, AcuityUnknown:
		return true
	default:
		return false
	}
}

// IsValid validates the complexity.
func (c Complexity) IsValid() bool {
	switch c {
	case ComplexityLow, ComplexityModerate, ComplexityHigh:
		return true
	default:
		return false
	}
}

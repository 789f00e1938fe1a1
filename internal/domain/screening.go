package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// RedFlag names one boolean finding of the medical screening questionnaire.
type RedFlag string

const (
	FlagUnexplainedWeightLoss   RedFlag = "unexplainedWeightLoss"
	FlagNightPain               RedFlag = "nightPain"
	FlagTraumaHistory           RedFlag = "traumaHistory"
	FlagNeurologicalSymptoms    RedFlag = "neurologicalSymptoms"
	FlagBladderBowelDysfunction RedFlag = "bladderBowelDysfunction"
	FlagRecentInfection         RedFlag = "recentInfection"
	FlagCancerHistory           RedFlag = "cancerHistory"
	FlagSteroidUse              RedFlag = "steroidUse"
	FlagOsteoporosisRisk        RedFlag = "osteoporosisRisk"
	FlagCardiovascularSymptoms  RedFlag = "cardiovascularSymptoms"
	FlagSevereHeadache          RedFlag = "severeHeadache"
	FlagDizzinessBalanceIssues  RedFlag = "dizzinessBalanceIssues"
)

// AllRedFlags returns the twelve screening flags in questionnaire order.
func AllRedFlags() []RedFlag {
	return []RedFlag{
		FlagUnexplainedWeightLoss,
		FlagNightPain,
		FlagTraumaHistory,
		FlagNeurologicalSymptoms,
		FlagBladderBowelDysfunction,
		FlagRecentInfection,
		FlagCancerHistory,
		FlagSteroidUse,
		FlagOsteoporosisRisk,
		FlagCardiovascularSymptoms,
		FlagSevereHeadache,
		FlagDizzinessBalanceIssues,
	}
}

// ScreeningInput is the patient's medical-screening questionnaire. The zero value is a valid
// screening with no findings and no consent. New flags must default to false so previously
// submitted screenings keep their score.
type ScreeningInput struct {
	UnexplainedWeightLoss   bool `json:"unexplainedWeightLoss,omitempty" yaml:"unexplainedWeightLoss" jsonschema:"unexplained weight loss reported"`
	NightPain               bool `json:"nightPain,omitempty" yaml:"nightPain" jsonschema:"severe night pain disrupting sleep"`
	TraumaHistory           bool `json:"traumaHistory,omitempty" yaml:"traumaHistory" jsonschema:"recent trauma or injury"`
	NeurologicalSymptoms    bool `json:"neurologicalSymptoms,omitempty" yaml:"neurologicalSymptoms" jsonschema:"numbness, tingling or weakness"`
	BladderBowelDysfunction bool `json:"bladderBowelDysfunction,omitempty" yaml:"bladderBowelDysfunction" jsonschema:"changes in bladder or bowel function"`
	RecentInfection         bool `json:"recentInfection,omitempty" yaml:"recentInfection" jsonschema:"recent infection or fever"`
	CancerHistory           bool `json:"cancerHistory,omitempty" yaml:"cancerHistory" jsonschema:"current or past history of cancer"`
	SteroidUse              bool `json:"steroidUse,omitempty" yaml:"steroidUse" jsonschema:"current or recent steroid use"`
	OsteoporosisRisk        bool `json:"osteoporosisRisk,omitempty" yaml:"osteoporosisRisk" jsonschema:"osteoporosis diagnosis or risk factors"`
	CardiovascularSymptoms  bool `json:"cardiovascularSymptoms,omitempty" yaml:"cardiovascularSymptoms" jsonschema:"chest pain, shortness of breath or irregular heartbeat"`
	SevereHeadache          bool `json:"severeHeadache,omitempty" yaml:"severeHeadache" jsonschema:"severe or unusual headaches"`
	DizzinessBalanceIssues  bool `json:"dizzinessBalanceIssues,omitempty" yaml:"dizzinessBalanceIssues" jsonschema:"dizziness, vertigo or balance problems"`

	CurrentMedications    string `json:"currentMedications,omitempty" yaml:"currentMedications" jsonschema:"current medications"`
	Allergies             string `json:"allergies,omitempty" yaml:"allergies" jsonschema:"known allergies"`
	SurgicalHistory       string `json:"surgicalHistory,omitempty" yaml:"surgicalHistory" jsonschema:"previous surgery"`
	OtherConditions       string `json:"otherConditions,omitempty" yaml:"otherConditions" jsonschema:"other medical conditions"`
	GPDetails             string `json:"gpDetails,omitempty" yaml:"gpDetails" jsonschema:"general practitioner details"`
	EmergencyContact      string `json:"emergencyContact,omitempty" yaml:"emergencyContact" jsonschema:"emergency contact name"`
	EmergencyContactPhone string `json:"emergencyContactPhone,omitempty" yaml:"emergencyContactPhone" jsonschema:"emergency contact phone"`

	ConsentGiven bool `json:"consentGiven,omitempty" yaml:"consentGiven" jsonschema:"consent for treatment and data processing"`
}

// Has reports whether the given flag is set. Unknown flags report false.
func (s ScreeningInput) Has(flag RedFlag) bool {
	switch flag {
	case FlagUnexplainedWeightLoss:
		return s.UnexplainedWeightLoss
	case FlagNightPain:
		return s.NightPain
	case FlagTraumaHistory:
		return s.TraumaHistory
	case FlagNeurologicalSymptoms:
		return s.NeurologicalSymptoms
	case FlagBladderBowelDysfunction:
		return s.BladderBowelDysfunction
	case FlagRecentInfection:
		return s.RecentInfection
	case FlagCancerHistory:
		return s.CancerHistory
	case FlagSteroidUse:
		return s.SteroidUse
	case FlagOsteoporosisRisk:
		return s.OsteoporosisRisk
	case FlagCardiovascularSymptoms:
		return s.CardiovascularSymptoms
	case FlagSevereHeadache:
		return s.SevereHeadache
	case FlagDizzinessBalanceIssues:
		return s.DizzinessBalanceIssues
	default:
		return false
	}
}

// With returns a copy of the screening with the flag set to v.
func (s ScreeningInput) With(flag RedFlag, v bool) ScreeningInput {
	switch flag {
	case FlagUnexplainedWeightLoss:
		s.UnexplainedWeightLoss = v
	case FlagNightPain:
		s.NightPain = v
	case FlagTraumaHistory:
		s.TraumaHistory = v
	case FlagNeurologicalSymptoms:
		s.NeurologicalSymptoms = v
	case FlagBladderBowelDysfunction:
		s.BladderBowelDysfunction = v
	case FlagRecentInfection:
		s.RecentInfection = v
	case FlagCancerHistory:
		s.CancerHistory = v
	case FlagSteroidUse:
		s.SteroidUse = v
	case FlagOsteoporosisRisk:
		s.OsteoporosisRisk = v
	case FlagCardiovascularSymptoms:
		s.CardiovascularSymptoms = v
	case FlagSevereHeadache:
		s.SevereHeadache = v
	case FlagDizzinessBalanceIssues:
		s.DizzinessBalanceIssues = v
	}
	return s
}

// ActiveFlags lists the flags that are set, in questionnaire order.
func (s ScreeningInput) ActiveFlags() []RedFlag {
	active := make([]RedFlag, 0, len(AllRedFlags()))
	for _, f := range AllRedFlags() {
		if s.Has(f) {
			active = append(active, f)
		}
	}
	return active
}

// Normalized returns a copy with surrounding whitespace removed from the free-text fields.
func (s ScreeningInput) Normalized() ScreeningInput {
	s.CurrentMedications = strings.TrimSpace(s.CurrentMedications)
	s.Allergies = strings.TrimSpace(s.Allergies)
	s.SurgicalHistory = strings.TrimSpace(s.SurgicalHistory)
	s.OtherConditions = strings.TrimSpace(s.OtherConditions)
	s.GPDetails = strings.TrimSpace(s.GPDetails)
	s.EmergencyContact = strings.TrimSpace(s.EmergencyContact)
	s.EmergencyContactPhone = strings.TrimSpace(s.EmergencyContactPhone)
	return s
}

// Hash returns the hex SHA-256 of the normalized screening's canonical JSON encoding.
// Two screenings that differ only in text padding share a hash.
func (s ScreeningInput) Hash() string {
	// encoding/json emits struct fields in declaration order, so the encoding is canonical.
	data, _ := json.Marshal(s.Normalized())
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LogFields returns non-identifying fields for audit logging. Free text is never logged.
func (s ScreeningInput) LogFields() map[string]any {
	flags := s.ActiveFlags()
	names := make([]string, len(flags))
	for i, f := range flags {
		names[i] = string(f)
	}
	return map[string]any{
		"active_flags":  names,
		"flag_count":    len(flags),
		"consent_given": s.ConsentGiven,
	}
}

// Screening is a stored questionnaire submission for one patient.
type Screening struct {
	PatientID string         `json:"patient_id"`
	Input     ScreeningInput `json:"screening"`
	Submitted bool           `json:"submitted"`
	Locked    bool           `json:"locked"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

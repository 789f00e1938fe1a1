package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

var screeningBoolFields = map[string]bool{
	string(FlagUnexplainedWeightLoss):   true,
	string(FlagNightPain):               true,
	string(FlagTraumaHistory):           true,
	string(FlagNeurologicalSymptoms):    true,
	string(FlagBladderBowelDysfunction): true,
	string(FlagRecentInfection):         true,
	string(FlagCancerHistory):           true,
	string(FlagSteroidUse):              true,
	string(FlagOsteoporosisRisk):        true,
	string(FlagCardiovascularSymptoms):  true,
	string(FlagSevereHeadache):          true,
	string(FlagDizzinessBalanceIssues):  true,
	"consentGiven":                      true,
}

var screeningTextFields = map[string]bool{
	"currentMedications":    true,
	"allergies":             true,
	"surgicalHistory":       true,
	"otherConditions":       true,
	"gpDetails":             true,
	"emergencyContact":      true,
	"emergencyContactPhone": true,
}

// StandardScreeningParser implements the ScreeningParser interface. Missing fields take their
// defaults (false, ""), null is treated as missing, unknown fields are ignored and wrongly typed
// fields are rejected with a ValidationError.
type StandardScreeningParser struct{}

// NewStandardScreeningParser creates a new standard screening parser
func NewStandardScreeningParser() ScreeningParser {
	return &StandardScreeningParser{}
}

// ParseJSON parses a JSON screening object
func (p *StandardScreeningParser) ParseJSON(data []byte) (ScreeningInput, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ScreeningInput{}, fmt.Errorf("%w: empty document", ErrInvalidScreening)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return ScreeningInput{}, fmt.Errorf("%w: %v", ErrInvalidScreening, err)
	}
	return p.ParseMap(fields)
}

// ParseYAML parses a YAML screening document
func (p *StandardScreeningParser) ParseYAML(data []byte) (ScreeningInput, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return ScreeningInput{}, fmt.Errorf("%w: empty document", ErrInvalidScreening)
	}

	var fields map[string]any
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return ScreeningInput{}, fmt.Errorf("%w: %v", ErrInvalidScreening, err)
	}
	return p.ParseMap(fields)
}

// ParseMap validates decoded fields and builds the screening
func (p *StandardScreeningParser) ParseMap(fields map[string]any) (ScreeningInput, error) {
	if fields == nil {
		return ScreeningInput{}, fmt.Errorf("%w: screening must be an object", ErrInvalidScreening)
	}

	// Sorted so the first reported error does not depend on map iteration order.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clean := make(map[string]any, len(fields))
	for _, key := range keys {
		value := fields[key]
		if value == nil {
			continue
		}
		switch {
		case screeningBoolFields[key]:
			if _, ok := value.(bool); !ok {
				return ScreeningInput{}, NewValidationError(key, "must be a boolean", value)
			}
		case screeningTextFields[key]:
			if _, ok := value.(string); !ok {
				return ScreeningInput{}, NewValidationError(key, "must be a string", value)
			}
		default:
			continue
		}
		clean[key] = value
	}

	data, err := json.Marshal(clean)
	if err != nil {
		return ScreeningInput{}, fmt.Errorf("failed to encode screening: %w", err)
	}

	var input ScreeningInput
	if err := json.Unmarshal(data, &input); err != nil {
		return ScreeningInput{}, fmt.Errorf("failed to decode screening: %w", err)
	}
	return input.Normalized(), nil
}

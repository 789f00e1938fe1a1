package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardScreeningParser_ParseJSON(t *testing.T) {
	parser := NewStandardScreeningParser()

	tests := []struct {
		name     string
		input    string
		expected ScreeningInput
	}{
		{
			name:     "empty object defaults every field",
			input:    `{}`,
			expected: ScreeningInput{},
		},
		{
			name:  "flags and text",
			input: `{"nightPain": true, "traumaHistory": true, "allergies": " latex ", "consentGiven": true}`,
			expected: ScreeningInput{
				NightPain:     true,
				TraumaHistory: true,
				Allergies:     "latex",
				ConsentGiven:  true,
			},
		},
		{
			name:     "null is treated as missing",
			input:    `{"cancerHistory": null, "gpDetails": null}`,
			expected: ScreeningInput{},
		},
		{
			name:     "unknown fields are ignored",
			input:    `{"patientName": "Jane", "recentInfection": true}`,
			expected: ScreeningInput{RecentInfection: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.ParseJSON([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestStandardScreeningParser_RejectsWrongTypes(t *testing.T) {
	parser := NewStandardScreeningParser()

	tests := []struct {
		name  string
		input string
		field string
	}{
		{"string for boolean", `{"nightPain": "yes"}`, "nightPain"},
		{"number for boolean", `{"consentGiven": 1}`, "consentGiven"},
		{"boolean for text", `{"allergies": false}`, "allergies"},
		{"object for text", `{"gpDetails": {"name": "x"}}`, "gpDetails"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.ParseJSON([]byte(tt.input))
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestStandardScreeningParser_RejectsMalformedDocuments(t *testing.T) {
	parser := NewStandardScreeningParser()

	for _, input := range []string{``, `   `, `[]`, `{"nightPain": true`, `null`} {
		_, err := parser.ParseJSON([]byte(input))
		assert.ErrorIs(t, err, ErrInvalidScreening, "input %q", input)
	}
}

func TestStandardScreeningParser_ParseYAML(t *testing.T) {
	parser := NewStandardScreeningParser()

	got, err := parser.ParseYAML([]byte(`
neurologicalSymptoms: true
cardiovascularSymptoms: true
currentMedications: metoprolol
consentGiven: true
`))
	require.NoError(t, err)
	assert.Equal(t, ScreeningInput{
		NeurologicalSymptoms:   true,
		CardiovascularSymptoms: true,
		CurrentMedications:     "metoprolol",
		ConsentGiven:           true,
	}, got)

	_, err = parser.ParseYAML([]byte(`nightPain: "yes"`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "nightPain", verr.Field)
}

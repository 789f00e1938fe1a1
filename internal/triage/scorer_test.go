package triage

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physio-triage-server/internal/domain"
)

func TestRiskScore_Weights(t *testing.T) {
	tests := []struct {
		flag     domain.RedFlag
		expected int
	}{
		{domain.FlagUnexplainedWeightLoss, 20},
		{domain.FlagBladderBowelDysfunction, 20},
		{domain.FlagNeurologicalSymptoms, 15},
		{domain.FlagNightPain, 10},
		{domain.FlagCancerHistory, 10},
		{domain.FlagRecentInfection, 10},
		{domain.FlagCardiovascularSymptoms, 10},
		{domain.FlagTraumaHistory, 5},
		{domain.FlagSteroidUse, 5},
		{domain.FlagOsteoporosisRisk, 5},
		{domain.FlagSevereHeadache, 5},
		{domain.FlagDizzinessBalanceIssues, 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.flag), func(t *testing.T) {
			in := domain.ScreeningInput{}.With(tt.flag, true)
			assert.Equal(t, tt.expected, RiskScore(in))
			assert.Equal(t, tt.expected, FlagWeight(tt.flag))
		})
	}
}

func TestRiskScore_ClipsAtMaximum(t *testing.T) {
	in := allFlags()
	assert.Equal(t, 120, RawRiskScore(in))
	assert.Equal(t, MaxRiskScore, RiskScore(in))
}

func TestRiskScore_TextDoesNotScore(t *testing.T) {
	in := domain.ScreeningInput{
		CurrentMedications: "prednisolone",
		OtherConditions:    "osteoporosis",
		ConsentGiven:       true,
	}
	assert.Equal(t, 0, RiskScore(in))
}

func TestRawRiskScore_Monotonic(t *testing.T) {
	f := func(in domain.ScreeningInput) bool {
		for _, flag := range domain.AllRedFlags() {
			off := in.With(flag, false)
			on := in.With(flag, true)
			if RawRiskScore(on) < RawRiskScore(off) {
				return false
			}
			if RiskScore(on) < RiskScore(off) {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestRawRiskScore_OrderInsensitive(t *testing.T) {
	f := func(in domain.ScreeningInput) bool {
		sum := 0
		flags := in.ActiveFlags()
		for i := len(flags) - 1; i >= 0; i-- {
			sum += FlagWeight(flags[i])
		}
		return sum == RawRiskScore(in)
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestComplexityFor(t *testing.T) {
	assert.Equal(t, domain.ComplexityLow, ComplexityFor(0))
	assert.Equal(t, domain.ComplexityLow, ComplexityFor(19))
	assert.Equal(t, domain.ComplexityModerate, ComplexityFor(20))
	assert.Equal(t, domain.ComplexityModerate, ComplexityFor(39))
	assert.Equal(t, domain.ComplexityHigh, ComplexityFor(40))
	assert.Equal(t, domain.ComplexityHigh, ComplexityFor(100))
}

func TestDetermineUrgency(t *testing.T) {
	tests := []struct {
		name     string
		in       domain.ScreeningInput
		expected domain.UrgencyLevel
	}{
		{"no findings", domain.ScreeningInput{}, domain.UrgencyLow},
		{"bladder bowel", domain.ScreeningInput{BladderBowelDysfunction: true}, domain.UrgencyUrgent},
		{"weight loss with cancer", domain.ScreeningInput{UnexplainedWeightLoss: true, CancerHistory: true}, domain.UrgencyUrgent},
		{"cardiovascular with night pain", domain.ScreeningInput{CardiovascularSymptoms: true, NightPain: true}, domain.UrgencyUrgent},
		{"neurological with night pain", domain.ScreeningInput{NeurologicalSymptoms: true, NightPain: true}, domain.UrgencyHigh},
		{"infection with night pain", domain.ScreeningInput{RecentInfection: true, NightPain: true}, domain.UrgencyHigh},
		{"score of forty", domain.ScreeningInput{UnexplainedWeightLoss: true, NeurologicalSymptoms: true, TraumaHistory: true}, domain.UrgencyHigh},
		{"weight loss alone", domain.ScreeningInput{UnexplainedWeightLoss: true}, domain.UrgencyModerate},
		{"night pain alone", domain.ScreeningInput{NightPain: true}, domain.UrgencyLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetermineUrgency(tt.in, RiskScore(tt.in)))
		})
	}
}

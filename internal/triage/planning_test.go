package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physio-triage-server/internal/domain"
)

func TestFollowUpQuestions_UniversalQuestionsLast(t *testing.T) {
	in := allFlags()
	in.ConsentGiven = true
	questions := FollowUpQuestions(in)

	require.Len(t, questions, 6)
	assert.Equal(t, "Can you describe the exact location and distribution of numbness/tingling?", questions[0].Question)
	assert.Equal(t, "When was your last oncology review? Are you currently cancer-free?", questions[1].Question)
	assert.Equal(t, "Have you had recent cardiac investigations? What were the results?", questions[2].Question)
	assert.Equal(t, "Have you had imaging (X-ray/MRI) for this injury?", questions[3].Question)
	assert.Equal(t, "What are your main functional goals for treatment?", questions[4].Question)
	assert.Equal(t, "On a scale of 0-10, what is your current pain level?", questions[5].Question)
}

func TestFollowUpQuestions_ConsentAndImpacts(t *testing.T) {
	questions := FollowUpQuestions(domain.ScreeningInput{CancerHistory: true, ConsentGiven: false})

	require.Len(t, questions, 4)
	assert.Equal(t, []string{"MENS", "EMS_Aussie", "EMS_Russian", "Ultrasound_1MHz", "Ultrasound_3MHz", "Laser_Therapy"},
		questions[0].ImpactsModalities)
	assert.Equal(t, "Can you confirm consent for treatment and data processing?", questions[1].Question)
	assert.Equal(t, []string{ImpactsAllModalities}, questions[1].ImpactsModalities)
	assert.Equal(t, "Legal requirement for treatment", questions[1].WhyItMatters)
}

func TestFollowUpQuestions_CardiovascularImpactsExercise(t *testing.T) {
	questions := FollowUpQuestions(domain.ScreeningInput{CardiovascularSymptoms: true, ConsentGiven: true})

	require.Len(t, questions, 3)
	assert.Equal(t, []string{"Kinesiotherapy", "Neuromuscular_Reeducation", "Postural_Exercise"}, questions[0].ImpactsModalities)
}

func TestPlanSession_Tiers(t *testing.T) {
	tests := []struct {
		name       string
		in         domain.ScreeningInput
		minutes    int
		priorities []string
		prefix     string
	}{
		{
			name:    "low risk",
			in:      domain.ScreeningInput{},
			minutes: 30,
			priorities: []string{
				"Standard musculoskeletal assessment",
				"Functional movement assessment",
				"Patient goals and expectations discussion",
			},
			prefix: "Standard session appropriate",
		},
		{
			name:    "moderate risk with trauma",
			in:      domain.ScreeningInput{NightPain: true, TraumaHistory: true, DizzinessBalanceIssues: true},
			minutes: 45,
			priorities: []string{
				"Focused clinical examination",
				"Safety screening for modalities",
				"Trauma mechanism and imaging review",
				"Functional movement assessment",
				"Patient goals and expectations discussion",
			},
			prefix: "Standard session with additional",
		},
		{
			name:    "high risk with neurological and trauma",
			in:      domain.ScreeningInput{NeurologicalSymptoms: true, BladderBowelDysfunction: true, TraumaHistory: true},
			minutes: 60,
			priorities: []string{
				"Comprehensive medical screening",
				"Red flag symptom clarification",
				"Differential diagnosis ruling out",
				"Neurological examination (reflexes, sensation, strength)",
				"Trauma mechanism and imaging review",
				"Functional movement assessment",
				"Patient goals and expectations discussion",
			},
			prefix: "Extended session required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanSession(tt.in, RiskScore(tt.in))
			assert.Equal(t, tt.minutes, plan.RecommendedSessionLength)
			assert.Equal(t, tt.priorities, plan.AssessmentPriorities)
			assert.True(t, strings.HasPrefix(plan.Justification, tt.prefix), plan.Justification)
		})
	}
}

func TestPlanSession_DoesNotShareTierSlices(t *testing.T) {
	first := PlanSession(domain.ScreeningInput{}, 0)
	first.AssessmentPriorities[0] = "mutated"

	second := PlanSession(domain.ScreeningInput{}, 0)
	assert.Equal(t, "Standard musculoskeletal assessment", second.AssessmentPriorities[0])
}

func TestComposeSummary(t *testing.T) {
	tests := []struct {
		name     string
		in       domain.ScreeningInput
		expected string
	}{
		{
			name: "urgent with findings",
			in:   domain.ScreeningInput{UnexplainedWeightLoss: true, CancerHistory: true, NightPain: true},
			expected: "Risk Score: 40/100 (URGENT). Clinical Pattern: systemic. " +
				"Key Findings: unexplained weight loss, severe night pain, cancer history. " +
				"URGENT MEDICAL REVIEW REQUIRED before physiotherapy treatment.",
		},
		{
			name: "high without key findings",
			in:   domain.ScreeningInput{CardiovascularSymptoms: true, RecentInfection: true, SevereHeadache: true, SteroidUse: true, OsteoporosisRisk: true, DizzinessBalanceIssues: true},
			expected: "Risk Score: 40/100 (HIGH). Clinical Pattern: vascular. " +
				"Medical review recommended before commencing treatment.",
		},
		{
			name: "inflammatory pattern",
			in:   domain.ScreeningInput{NightPain: true, SteroidUse: true, SevereHeadache: true},
			expected: "Risk Score: 20/100 (MODERATE). Clinical Pattern: MSK inflammatory. " +
				"Key Findings: severe night pain. Exercise clinical judgement and consider GP liaison.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := RiskScore(tt.in)
			urgency := DetermineUrgency(tt.in, score)
			assert.Equal(t, tt.expected, ComposeSummary(tt.in, score, urgency, Classify(tt.in, score)))
		})
	}
}

package triage

import (
	"github.com/physio-triage-server/internal/domain"
)

// Engine runs the triage pipeline. It holds only immutable configuration and is safe for
// concurrent use.
type Engine struct {
	policy GatingPolicy
}

// Option configures an Engine.
type Option func(*Engine)

// WithGatingPolicy selects how gating rule decisions are combined. Unknown policies are ignored.
func WithGatingPolicy(policy GatingPolicy) Option {
	return func(e *Engine) {
		if policy.IsValid() {
			e.policy = policy
		}
	}
}

// New creates an engine using the monotonic-max gating policy unless configured otherwise.
func New(opts ...Option) *Engine {
	e := &Engine{policy: DefaultGatingPolicy}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the engine's gating policy.
func (e *Engine) Policy() GatingPolicy {
	return e.policy
}

// Analyze runs every stage in order: score, urgency, red flags, triage, gating, follow-up
// questions, session plan and summary.
func (e *Engine) Analyze(in domain.ScreeningInput) domain.ClinicalAnalysis {
	score := RiskScore(in)
	urgency := DetermineUrgency(in, score)
	redFlags := DetectRedFlags(in)
	classification := Classify(in, score)
	gating := GateModalities(in, e.policy)
	questions := FollowUpQuestions(in)
	plan := PlanSession(in, score)
	summary := ComposeSummary(in, score, urgency, classification)

	return domain.ClinicalAnalysis{
		RiskScore:                  score,
		UrgencyLevel:               urgency,
		ClinicalSummary:            summary,
		TriageClassification:       classification,
		RedFlagAssessment:          redFlags,
		ModalityGating:             gating,
		TargetedFollowUpQuestions:  questions,
		SessionPlanningSuggestions: plan,
	}
}

var defaultEngine = New()

// Analyze runs the pipeline with the default configuration.
func Analyze(in domain.ScreeningInput) domain.ClinicalAnalysis {
	return defaultEngine.Analyze(in)
}

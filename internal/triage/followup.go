package triage

import (
	"github.com/physio-triage-server/internal/domain"
)

// ImpactsAllModalities marks a question that affects every modality.
const ImpactsAllModalities = "All"

type followUpRule struct {
	matches  func(in domain.ScreeningInput) bool
	question string
	why      string
	impacts  []domain.Modality
}

var followUpRules = []followUpRule{
	{
		matches:  func(in domain.ScreeningInput) bool { return in.NeurologicalSymptoms },
		question: "Can you describe the exact location and distribution of numbness/tingling?",
		why:      "Determines if nerve root or peripheral nerve involvement",
		impacts: []domain.Modality{
			domain.ModalityMENS, domain.ModalityEMSAussie, domain.ModalityEMSRussian,
			domain.ModalityUltrasound1MHz, domain.ModalityUltrasound3MHz,
		},
	},
	{
		matches:  func(in domain.ScreeningInput) bool { return in.CancerHistory },
		question: "When was your last oncology review? Are you currently cancer-free?",
		why:      "Active malignancy contraindicates many modalities",
		impacts: []domain.Modality{
			domain.ModalityMENS, domain.ModalityEMSAussie, domain.ModalityEMSRussian,
			domain.ModalityUltrasound1MHz, domain.ModalityUltrasound3MHz, domain.ModalityLaserTherapy,
		},
	},
	{
		matches:  func(in domain.ScreeningInput) bool { return in.CardiovascularSymptoms },
		question: "Have you had recent cardiac investigations? What were the results?",
		why:      "Cardiac clearance needed for exercise prescription",
		impacts: []domain.Modality{
			domain.ModalityKinesiotherapy, domain.ModalityNeuromuscularReeducation, domain.ModalityPosturalExercise,
		},
	},
	{
		matches:  func(in domain.ScreeningInput) bool { return in.TraumaHistory },
		question: "Have you had imaging (X-ray/MRI) for this injury?",
		why:      "Fracture exclusion required before manual therapy",
		impacts:  []domain.Modality{domain.ModalityManualTherapy},
	},
	{
		matches:  func(in domain.ScreeningInput) bool { return !in.ConsentGiven },
		question: "Can you confirm consent for treatment and data processing?",
		why:      "Legal requirement for treatment",
	},
	{
		matches:  func(domain.ScreeningInput) bool { return true },
		question: "What are your main functional goals for treatment?",
		why:      "Guides treatment planning and modality selection",
	},
	{
		matches:  func(domain.ScreeningInput) bool { return true },
		question: "On a scale of 0-10, what is your current pain level?",
		why:      "Baseline measurement for treatment effectiveness",
	},
}

// FollowUpQuestions returns the clarifying questions for the first consultation. Questions for
// triggered conditions come first; the goals and pain questions are always last.
func FollowUpQuestions(in domain.ScreeningInput) []domain.FollowUpQuestion {
	questions := make([]domain.FollowUpQuestion, 0, len(followUpRules))
	for _, rule := range followUpRules {
		if !rule.matches(in) {
			continue
		}
		questions = append(questions, domain.FollowUpQuestion{
			Question:          rule.question,
			WhyItMatters:      rule.why,
			ImpactsModalities: impactNames(rule.impacts),
		})
	}
	return questions
}

// impactNames renders the affected modalities; an empty list means every modality.
func impactNames(modalities []domain.Modality) []string {
	if len(modalities) == 0 {
		return []string{ImpactsAllModalities}
	}
	names := make([]string, len(modalities))
	for i, m := range modalities {
		names[i] = m.String()
	}
	return names
}

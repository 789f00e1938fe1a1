package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/physio-triage-server/internal/domain"
)

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&sdkmcp.Prompt{
		Name: "screening_review",
		Description: "Walk a clinician through the analysis of a screening: red flags, restricted modalities " +
			"and the questions to ask before the first session.",
		Arguments: []*sdkmcp.PromptArgument{
			{Name: "screening", Description: "screening questionnaire as a JSON object", Required: true},
		},
	}, s.handleScreeningReviewPrompt)

	if s.feedback == nil {
		return
	}

	s.mcpServer.AddPrompt(&sdkmcp.Prompt{
		Name:        "gating_override",
		Description: "Guide a clinician through recording agreement with or an override of a gating decision.",
		Arguments: []*sdkmcp.PromptArgument{
			{Name: "patient_id", Description: "patient identifier", Required: true},
			{Name: "modality", Description: "modality name, for example MENS", Required: true},
		},
	}, s.handleGatingOverridePrompt)
}

func (s *Server) handleScreeningReviewPrompt(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	raw := req.Params.Arguments["screening"]
	input, err := domain.NewStandardScreeningParser().ParseJSON([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid screening argument: %w", err)
	}

	analysis, err := s.analysis.Analyze(ctx, input)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("prompt_name", "screening_review").Debug("Prompt rendered")
	return &sdkmcp.GetPromptResult{
		Description: "Screening review",
		Messages: []*sdkmcp.PromptMessage{
			{Role: "user", Content: &sdkmcp.TextContent{Text: renderScreeningReview(analysis)}},
		},
	}, nil
}

func renderScreeningReview(a *domain.ClinicalAnalysis) string {
	var b strings.Builder

	b.WriteString("You are assisting a physiotherapist before a first session. The analysis below is decision ")
	b.WriteString("support, not a diagnosis. Review it with the clinician.\n\n")
	fmt.Fprintf(&b, "Summary: %s\n\n", a.ClinicalSummary)
	if a.UrgencyLevel.RequiresMedicalReview() {
		fmt.Fprintf(&b, "Urgency is %s: refer for medical review before any treatment.\n\n", a.UrgencyLevel)
	}

	b.WriteString("Red flags:\n")
	if len(a.RedFlagAssessment.Flags) == 0 {
		b.WriteString("- none reported\n")
	}
	for _, f := range a.RedFlagAssessment.Flags {
		fmt.Fprintf(&b, "- %s (%s): %s\n", f.Flag, f.UrgencyLevel, f.SuggestedAction)
	}

	b.WriteString("\nRestricted modalities:\n")
	restricted := make([]string, 0, len(a.ModalityGating))
	for m, assessment := range a.ModalityGating {
		if assessment.Decision == domain.DecisionAllowed {
			continue
		}
		action := "apply with precautions"
		if !assessment.Decision.PermitsTreatment() {
			action = "withhold this session"
		}
		restricted = append(restricted, fmt.Sprintf("- %s: %s (%s)", m.DisplayName(), assessment.Decision, action))
	}
	sort.Strings(restricted)
	if len(restricted) == 0 {
		b.WriteString("- none\n")
	}
	for _, line := range restricted {
		b.WriteString(line + "\n")
	}

	if len(a.TargetedFollowUpQuestions) > 0 {
		b.WriteString("\nAsk before treating:\n")
		for _, q := range a.TargetedFollowUpQuestions {
			fmt.Fprintf(&b, "- %s (%s)\n", q.Question, q.WhyItMatters)
		}
	}

	b.WriteString("\nConfirm each restricted modality with the clinician. If they disagree with a decision, ")
	b.WriteString("record it with submit_gating_feedback.")
	return b.String()
}

func (s *Server) handleGatingOverridePrompt(_ context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	patientID := strings.TrimSpace(req.Params.Arguments["patient_id"])
	if patientID == "" {
		return nil, domain.ErrInvalidPatientID
	}
	modality, err := domain.ParseModality(req.Params.Arguments["modality"])
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf(
		"Record the clinician's decision on %s for patient %s. First call analyze_screening or "+
			"query_gating_feedback to find the suggested decision. Ask whether they agree; if not, ask which "+
			"decision they took (allowed, allowed_with_precautions or do_not_use_until_cleared) and why. "+
			"Then call submit_gating_feedback with patient_id %q, modality %q, both decisions and the reasoning "+
			"as notes.",
		modality.DisplayName(), patientID, patientID, string(modality),
	)
	return &sdkmcp.GetPromptResult{
		Description: "Gating override",
		Messages: []*sdkmcp.PromptMessage{
			{Role: "user", Content: &sdkmcp.TextContent{Text: text}},
		},
	}, nil
}

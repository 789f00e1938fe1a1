package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/feedback"
)

const defaultQueryLimit = 50

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name: "analyze_screening",
		Description: "Analyze a physiotherapy pre-treatment screening. Returns the risk score, urgency, red flag " +
			"assessment, triage classification, per-modality gating decisions, follow-up questions and session plan.",
	}, logged(s, "analyze_screening", s.handleAnalyzeScreening))

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "list_modalities",
		Description: "List the treatment modalities that receive a gating decision, with their family and display name.",
	}, logged(s, "list_modalities", s.handleListModalities))

	if s.feedback == nil {
		s.logger.Info("Feedback store not configured, gating feedback tools disabled")
		return
	}

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name: "submit_gating_feedback",
		Description: "Record a clinician's agreement with or override of a modality gating decision for a patient. " +
			"A later submission for the same patient and modality replaces the earlier one.",
	}, logged(s, "submit_gating_feedback", s.handleSubmitFeedback))

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "query_gating_feedback",
		Description: "Query recorded gating feedback by patient, by patient and modality, or page through all entries.",
	}, logged(s, "query_gating_feedback", s.handleQueryFeedback))

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "export_gating_feedback",
		Description: "Export all gating feedback to a JSON file for backup or sharing.",
	}, logged(s, "export_gating_feedback", s.handleExportFeedback))

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "import_gating_feedback",
		Description: "Import gating feedback from a JSON export. Entries that already exist are skipped.",
	}, logged(s, "import_gating_feedback", s.handleImportFeedback))
}

// logged records every tool call with its duration and outcome.
func logged[In, Out any](s *Server, tool string, h sdkmcp.ToolHandlerFor[In, Out]) sdkmcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, Out, error) {
		startTime := time.Now()
		s.logger.WithField("tool_name", tool).Debug("Tool invoked")

		res, out, err := h(ctx, req, in)

		entry := s.logger.WithFields(logrus.Fields{
			"tool_name":       tool,
			"processing_time": time.Since(startTime),
		})
		if err != nil {
			entry.WithError(err).Warn("Tool call failed")
		} else {
			entry.Info("Tool call completed")
		}
		return res, out, err
	}
}

// --- Tool input/output types ---

type listModalitiesInput struct{}

type listModalitiesOutput struct {
	Count      int                   `json:"count"`
	Modalities []domain.ModalityInfo `json:"modalities"`
}

type submitFeedbackInput struct {
	PatientID         string `json:"patient_id" jsonschema:"patient identifier"`
	Modality          string `json:"modality" jsonschema:"modality name, for example MENS or Laser_Therapy"`
	SuggestedDecision string `json:"suggested_decision" jsonschema:"gating decision produced by the analysis: allowed, allowed_with_precautions or do_not_use_until_cleared"`
	ClinicianDecision string `json:"clinician_decision" jsonschema:"decision taken by the clinician, same values as suggested_decision"`
	Notes             string `json:"notes,omitempty" jsonschema:"clinical reasoning for the decision"`
}

type feedbackEntry struct {
	ID                int64  `json:"id"`
	PatientID         string `json:"patient_id"`
	Modality          string `json:"modality"`
	SuggestedDecision string `json:"suggested_decision"`
	ClinicianDecision string `json:"clinician_decision"`
	ClinicianAgreed   bool   `json:"clinician_agreed"`
	Notes             string `json:"notes,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type submitFeedbackOutput struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Feedback feedbackEntry `json:"feedback"`
}

type queryFeedbackInput struct {
	PatientID      string `json:"patient_id,omitempty" jsonschema:"restrict to one patient"`
	Modality       string `json:"modality,omitempty" jsonschema:"restrict to one modality, requires patient_id"`
	Limit          int    `json:"limit,omitempty" jsonschema:"page size when listing all entries (default 50)"`
	Offset         int    `json:"offset,omitempty" jsonschema:"entries to skip when listing all entries"`
	IncludeSummary bool   `json:"include_summary,omitempty" jsonschema:"add agreement counts per modality"`
}

type queryFeedbackOutput struct {
	Total    int64                      `json:"total"`
	Count    int                        `json:"count"`
	Feedback []feedbackEntry            `json:"feedback"`
	Summary  []feedback.ModalitySummary `json:"summary,omitempty"`
}

type exportFeedbackInput struct {
	FilePath string `json:"file_path,omitempty" jsonschema:"destination file inside the export directory (default: a timestamped file)"`
}

type exportFeedbackOutput struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path"`
	Count    int64  `json:"count"`
	Message  string `json:"message"`
}

type importFeedbackInput struct {
	FilePath string `json:"file_path" jsonschema:"JSON export to import, relative to the export directory"`
}

type importFeedbackOutput struct {
	Success  bool   `json:"success"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Message  string `json:"message"`
}

func toEntry(f *feedback.GatingFeedback) feedbackEntry {
	return feedbackEntry{
		ID:                f.ID,
		PatientID:         f.PatientID,
		Modality:          f.Modality.String(),
		SuggestedDecision: string(f.SuggestedDecision),
		ClinicianDecision: string(f.ClinicianDecision),
		ClinicianAgreed:   f.ClinicianAgreed,
		Notes:             f.Notes,
		CreatedAt:         f.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         f.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toEntries(list []*feedback.GatingFeedback) []feedbackEntry {
	out := make([]feedbackEntry, 0, len(list))
	for _, f := range list {
		out = append(out, toEntry(f))
	}
	return out
}

// --- Tool handlers ---

// handleAnalyzeScreening returns the analysis without an output schema.
func (s *Server) handleAnalyzeScreening(ctx context.Context, _ *sdkmcp.CallToolRequest, input domain.ScreeningInput) (*sdkmcp.CallToolResult, any, error) {
	analysis, err := s.analysis.Analyze(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze screening: %w", err)
	}
	return nil, analysis, nil
}

func (s *Server) handleListModalities(_ context.Context, _ *sdkmcp.CallToolRequest, _ listModalitiesInput) (*sdkmcp.CallToolResult, listModalitiesOutput, error) {
	catalogue := domain.ModalityCatalogue()
	return nil, listModalitiesOutput{Count: len(catalogue), Modalities: catalogue}, nil
}

func (s *Server) handleSubmitFeedback(ctx context.Context, _ *sdkmcp.CallToolRequest, input submitFeedbackInput) (*sdkmcp.CallToolResult, submitFeedbackOutput, error) {
	modality, err := domain.ParseModality(strings.TrimSpace(input.Modality))
	if err != nil {
		return nil, submitFeedbackOutput{}, err
	}
	suggested, err := domain.ParseGatingDecision(strings.TrimSpace(input.SuggestedDecision))
	if err != nil {
		return nil, submitFeedbackOutput{}, fmt.Errorf("suggested_decision: %w", err)
	}
	clinician, err := domain.ParseGatingDecision(strings.TrimSpace(input.ClinicianDecision))
	if err != nil {
		return nil, submitFeedbackOutput{}, fmt.Errorf("clinician_decision: %w", err)
	}

	entry := &feedback.GatingFeedback{
		PatientID:         input.PatientID,
		Modality:          modality,
		SuggestedDecision: suggested,
		ClinicianDecision: clinician,
		Notes:             input.Notes,
	}
	if err := s.feedback.Save(ctx, entry); err != nil {
		return nil, submitFeedbackOutput{}, fmt.Errorf("save feedback: %w", err)
	}

	message := "Feedback recorded: clinician agreed with the gating decision"
	if !entry.ClinicianAgreed {
		message = fmt.Sprintf("Feedback recorded: clinician overrode %s with %s", entry.SuggestedDecision, entry.ClinicianDecision)
	}
	return nil, submitFeedbackOutput{Success: true, Message: message, Feedback: toEntry(entry)}, nil
}

func (s *Server) handleQueryFeedback(ctx context.Context, _ *sdkmcp.CallToolRequest, input queryFeedbackInput) (*sdkmcp.CallToolResult, queryFeedbackOutput, error) {
	patientID := strings.TrimSpace(input.PatientID)
	modality := strings.TrimSpace(input.Modality)

	var out queryFeedbackOutput
	switch {
	case modality != "" && patientID == "":
		return nil, out, errors.New("modality requires patient_id")

	case modality != "":
		m, err := domain.ParseModality(modality)
		if err != nil {
			return nil, out, err
		}
		entry, err := s.feedback.Get(ctx, patientID, m)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			out.Feedback = []feedbackEntry{}
		case err != nil:
			return nil, out, fmt.Errorf("get feedback: %w", err)
		default:
			out.Feedback = []feedbackEntry{toEntry(entry)}
		}
		out.Total = int64(len(out.Feedback))

	case patientID != "":
		list, err := s.feedback.ListByPatient(ctx, patientID)
		if err != nil {
			return nil, out, fmt.Errorf("list feedback: %w", err)
		}
		out.Feedback = toEntries(list)
		out.Total = int64(len(list))

	default:
		limit := input.Limit
		if limit <= 0 {
			limit = defaultQueryLimit
		}
		offset := max(input.Offset, 0)
		list, err := s.feedback.List(ctx, limit, offset)
		if err != nil {
			return nil, out, fmt.Errorf("list feedback: %w", err)
		}
		total, err := s.feedback.Count(ctx)
		if err != nil {
			return nil, out, fmt.Errorf("count feedback: %w", err)
		}
		out.Feedback = toEntries(list)
		out.Total = total
	}
	out.Count = len(out.Feedback)

	if input.IncludeSummary {
		summary, err := s.feedback.Summary(ctx)
		if err != nil {
			return nil, out, fmt.Errorf("summarize feedback: %w", err)
		}
		out.Summary = summary
	}
	return nil, out, nil
}

func (s *Server) handleExportFeedback(ctx context.Context, _ *sdkmcp.CallToolRequest, input exportFeedbackInput) (*sdkmcp.CallToolResult, exportFeedbackOutput, error) {
	path := strings.TrimSpace(input.FilePath)
	if path == "" {
		if s.exportDir == "" {
			return nil, exportFeedbackOutput{}, errors.New("file_path is required when no export directory is configured")
		}
		path = fmt.Sprintf("gating_feedback_%s.json", time.Now().UTC().Format("20060102_150405"))
	}
	path, err := s.resolveFeedbackPath(path)
	if err != nil {
		return nil, exportFeedbackOutput{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, exportFeedbackOutput{}, fmt.Errorf("create export directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, exportFeedbackOutput{}, fmt.Errorf("create export file: %w", err)
	}
	defer file.Close()

	if err := s.feedback.ExportJSON(ctx, file); err != nil {
		return nil, exportFeedbackOutput{}, fmt.Errorf("export feedback: %w", err)
	}
	count, err := s.feedback.Count(ctx)
	if err != nil {
		return nil, exportFeedbackOutput{}, fmt.Errorf("count feedback: %w", err)
	}

	return nil, exportFeedbackOutput{
		Success:  true,
		FilePath: path,
		Count:    count,
		Message:  fmt.Sprintf("Exported %d feedback entries to %s", count, path),
	}, nil
}

func (s *Server) handleImportFeedback(ctx context.Context, _ *sdkmcp.CallToolRequest, input importFeedbackInput) (*sdkmcp.CallToolResult, importFeedbackOutput, error) {
	path, err := s.resolveFeedbackPath(strings.TrimSpace(input.FilePath))
	if err != nil {
		return nil, importFeedbackOutput{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, importFeedbackOutput{}, fmt.Errorf("open import file: %w", err)
	}
	defer file.Close()

	imported, skipped, err := s.feedback.ImportJSON(ctx, file)
	if err != nil {
		return nil, importFeedbackOutput{}, fmt.Errorf("import feedback: %w", err)
	}
	return nil, importFeedbackOutput{
		Success:  true,
		Imported: imported,
		Skipped:  skipped,
		Message:  fmt.Sprintf("Imported %d entries, skipped %d duplicates", imported, skipped),
	}, nil
}

// resolveFeedbackPath confines export and import files to the export directory when one is
// configured. Relative paths are taken from the export directory.
func (s *Server) resolveFeedbackPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("file_path is required")
	}
	if s.exportDir == "" {
		return path, nil
	}

	dir, err := filepath.Abs(s.exportDir)
	if err != nil {
		return "", fmt.Errorf("resolve export directory: %w", err)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file_path %q must be a file inside the export directory %s", path, dir)
	}
	return path, nil
}

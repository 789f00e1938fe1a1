// Package feedback stores clinician feedback on modality gating decisions.
// Clinicians confirm or override the decision suggested for a patient; the
// feedback is kept for audit and export and never changes the analysis.
package feedback

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/physio-triage-server/internal/domain"
)

// ExportVersion is written into every export document.
const ExportVersion = "1.0"

// GatingFeedback is a clinician's decision on one modality for one patient.
type GatingFeedback struct {
	ID                int64                 `json:"id,omitempty"`
	PatientID         string                `json:"patient_id"`
	Modality          domain.Modality       `json:"modality"`
	SuggestedDecision domain.GatingDecision `json:"suggested_decision"` // Engine's decision
	ClinicianDecision domain.GatingDecision `json:"clinician_decision"` // Clinician's decision
	ClinicianAgreed   bool                  `json:"clinician_agreed"`
	Notes             string                `json:"notes,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// Validate checks the identifying fields and decisions, trims free text and
// derives ClinicianAgreed.
func (f *GatingFeedback) Validate() error {
	f.PatientID = strings.TrimSpace(f.PatientID)
	f.Notes = strings.TrimSpace(f.Notes)
	if f.PatientID == "" {
		return domain.ErrInvalidPatientID
	}
	if !f.Modality.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidModality, f.Modality)
	}
	if !f.SuggestedDecision.IsValid() {
		return fmt.Errorf("suggested decision: %w: %q", domain.ErrInvalidDecision, f.SuggestedDecision)
	}
	if !f.ClinicianDecision.IsValid() {
		return fmt.Errorf("clinician decision: %w: %q", domain.ErrInvalidDecision, f.ClinicianDecision)
	}
	f.ClinicianAgreed = f.SuggestedDecision == f.ClinicianDecision
	return nil
}

// ModalitySummary aggregates feedback for one modality.
type ModalitySummary struct {
	Modality   domain.Modality `json:"modality"`
	Total      int64           `json:"total"`
	Agreed     int64           `json:"agreed"`
	Overridden int64           `json:"overridden"`
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback. Feedback for the same patient and modality is updated.
	Save(ctx context.Context, feedback *GatingFeedback) error

	// Get retrieves the feedback of a patient for a modality. It returns domain.ErrNotFound
	// when none exists.
	Get(ctx context.Context, patientID string, modality domain.Modality) (*GatingFeedback, error)

	// List returns all feedback entries with pagination, newest first.
	List(ctx context.Context, limit, offset int) ([]*GatingFeedback, error)

	// ListByPatient returns every feedback entry of a patient ordered by modality.
	ListByPatient(ctx context.Context, patientID string) ([]*GatingFeedback, error)

	// Summary returns agreement counts per modality.
	Summary(ctx context.Context) ([]ModalitySummary, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader, skipping entries that already exist.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Count      int               `json:"count"`
	Feedback   []*GatingFeedback `json:"feedback"`
}

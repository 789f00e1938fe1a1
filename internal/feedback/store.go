package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/physio-triage-server/internal/domain"
)

// Supported storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// DatabaseFile is the SQLite file name created inside the data directory.
const DatabaseFile = "feedback.db"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// Open creates the store selected by cfg. databaseURL is only used by the postgres backend.
func Open(cfg domain.FeedbackConfig, databaseURL string) (Store, error) {
	switch cfg.Backend {
	case "", BackendSQLite:
		return NewSQLiteStore(filepath.Join(cfg.DataDir, DatabaseFile))
	case BackendPostgres:
		return NewPostgresStoreFromURL(databaseURL)
	default:
		return nil, fmt.Errorf("unsupported feedback backend: %s", cfg.Backend)
	}
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const selectColumns = `
	SELECT id, patient_id, modality, suggested_decision, clinician_decision,
		clinician_agreed, notes, created_at, updated_at
	FROM gating_feedback`

// scanFeedback scans a row into a GatingFeedback struct.
func scanFeedback(s scanner) (*GatingFeedback, error) {
	fb := &GatingFeedback{}
	var modality, suggested, clinician string

	err := s.Scan(
		&fb.ID, &fb.PatientID, &modality, &suggested, &clinician,
		&fb.ClinicianAgreed, &fb.Notes, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fb.Modality = domain.Modality(modality)
	fb.SuggestedDecision = domain.GatingDecision(suggested)
	fb.ClinicianDecision = domain.GatingDecision(clinician)
	return fb, nil
}

func scanAll(rows *sql.Rows) ([]*GatingFeedback, error) {
	defer rows.Close()

	result := []*GatingFeedback{}
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

func scanSummary(rows *sql.Rows) ([]ModalitySummary, error) {
	defer rows.Close()

	result := []ModalitySummary{}
	for rows.Next() {
		var modality string
		var s ModalitySummary
		if err := rows.Scan(&modality, &s.Total, &s.Agreed); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		s.Modality = domain.Modality(modality)
		s.Overridden = s.Total - s.Agreed
		result = append(result, s)
	}
	return result, rows.Err()
}

func exportJSON(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	export := &Export{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importJSON(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		if fb == nil {
			continue
		}
		_, err := store.Get(ctx, fb.PatientID, fb.Modality)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		fb.ID = 0
		if err := store.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/physio-triage-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL feedback store.
// It expects the gating_feedback table to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL feedback store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save stores or updates clinician feedback.
func (s *PostgresStore) Save(ctx context.Context, feedback *GatingFeedback) error {
	if err := feedback.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO gating_feedback (
			patient_id, modality, suggested_decision, clinician_decision,
			clinician_agreed, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (patient_id, modality) DO UPDATE SET
			suggested_decision = EXCLUDED.suggested_decision,
			clinician_decision = EXCLUDED.clinician_decision,
			clinician_agreed = EXCLUDED.clinician_agreed,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		feedback.PatientID,
		string(feedback.Modality),
		string(feedback.SuggestedDecision),
		string(feedback.ClinicianDecision),
		feedback.ClinicianAgreed,
		feedback.Notes,
		now,
		now,
	).Scan(&feedback.ID, &feedback.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	feedback.UpdatedAt = now
	return nil
}

// Get retrieves the feedback of a patient for a modality.
func (s *PostgresStore) Get(ctx context.Context, patientID string, modality domain.Modality) (*GatingFeedback, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+`
		WHERE patient_id = $1 AND modality = $2
		LIMIT 1
	`, patientID, string(modality))

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("feedback for %s/%s: %w", patientID, modality, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return fb, nil
}

// List returns all feedback entries with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*GatingFeedback, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return scanAll(rows)
}

// ListByPatient returns every feedback entry of a patient.
func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string) ([]*GatingFeedback, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE patient_id = $1
		ORDER BY modality
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient feedback: %w", err)
	}
	return scanAll(rows)
}

// Summary returns agreement counts per modality.
func (s *PostgresStore) Summary(ctx context.Context) ([]ModalitySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT modality, COUNT(*), COUNT(*) FILTER (WHERE clinician_agreed)
		FROM gating_feedback
		GROUP BY modality
		ORDER BY modality
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize feedback: %w", err)
	}
	return scanSummary(rows)
}

// Count returns the total number of feedback entries.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM gating_feedback").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

// Delete removes a feedback entry by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM gating_feedback WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("feedback %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ExportJSON exports all feedback to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports feedback from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/physio-triage-server/internal/domain"
)

// ScreeningRepository persists patient medical screenings, one per patient.
type ScreeningRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewScreeningRepository creates a new screening repository
func NewScreeningRepository(db *pgxpool.Pool, logger *logrus.Logger) *ScreeningRepository {
	return &ScreeningRepository{
		db:  db,
		log: logger,
	}
}

// SaveScreening inserts or replaces the screening of a patient. A locked screening is never
// overwritten; domain.ErrScreeningLocked is returned instead.
func (r *ScreeningRepository) SaveScreening(ctx context.Context, screening *domain.Screening) error {
	payload, err := json.Marshal(screening.Input)
	if err != nil {
		return fmt.Errorf("marshaling screening: %w", err)
	}

	query := `
		INSERT INTO screenings (patient_id, screening, submitted, locked)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (patient_id) DO UPDATE SET
			screening = EXCLUDED.screening,
			submitted = EXCLUDED.submitted,
			locked = EXCLUDED.locked,
			updated_at = NOW()
		WHERE screenings.locked = FALSE
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		screening.PatientID,
		payload,
		screening.Submitted,
		screening.Locked,
	).Scan(&screening.CreatedAt, &screening.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("screening for patient %s: %w", screening.PatientID, domain.ErrScreeningLocked)
		}
		r.log.WithFields(logrus.Fields{
			"patient_id": screening.PatientID,
			"error":      err,
		}).Error("Failed to save screening")
		return fmt.Errorf("saving screening: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"patient_id": screening.PatientID,
		"submitted":  screening.Submitted,
	}).Debug("Screening saved")

	return nil
}

// GetScreening retrieves the screening of a patient
func (r *ScreeningRepository) GetScreening(ctx context.Context, patientID string) (*domain.Screening, error) {
	query := `
		SELECT patient_id, screening, submitted, locked, created_at, updated_at
		FROM screenings
		WHERE patient_id = $1`

	var screening domain.Screening
	var payload []byte

	err := r.db.QueryRow(ctx, query, patientID).Scan(
		&screening.PatientID,
		&payload,
		&screening.Submitted,
		&screening.Locked,
		&screening.CreatedAt,
		&screening.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("screening for patient %s: %w", patientID, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to get screening")
		return nil, fmt.Errorf("getting screening: %w", err)
	}

	if err := json.Unmarshal(payload, &screening.Input); err != nil {
		return nil, fmt.Errorf("unmarshaling screening: %w", err)
	}

	return &screening, nil
}

// LockScreening marks a screening read-only.
func (r *ScreeningRepository) LockScreening(ctx context.Context, patientID string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE screenings SET locked = TRUE, updated_at = NOW() WHERE patient_id = $1`,
		patientID,
	)
	if err != nil {
		return fmt.Errorf("locking screening: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("screening for patient %s: %w", patientID, domain.ErrNotFound)
	}

	r.log.WithField("patient_id", patientID).Info("Screening locked")
	return nil
}

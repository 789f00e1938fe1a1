package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/physio-triage-server/internal/domain"
)

// DefaultHistoryLimit bounds history queries that pass a non-positive limit.
const DefaultHistoryLimit = 50

// AnalysisRecordRepository stores every analysis produced for a stored screening.
type AnalysisRecordRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAnalysisRecordRepository creates a new analysis record repository
func NewAnalysisRecordRepository(db *pgxpool.Pool, logger *logrus.Logger) *AnalysisRecordRepository {
	return &AnalysisRecordRepository{
		db:  db,
		log: logger,
	}
}

// SaveAnalysisRecord inserts a new analysis record. A missing ID is generated.
func (r *AnalysisRecordRepository) SaveAnalysisRecord(ctx context.Context, record *domain.AnalysisRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	analysisJSON, err := json.Marshal(record.Analysis)
	if err != nil {
		return fmt.Errorf("marshaling analysis: %w", err)
	}

	query := `
		INSERT INTO analysis_records (
			id, patient_id, input_hash, gating_policy, risk_score, urgency_level, analysis
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING created_at`

	err = r.db.QueryRow(ctx, query,
		record.ID,
		record.PatientID,
		record.InputHash,
		record.GatingPolicy,
		record.RiskScore,
		record.UrgencyLevel.String(),
		analysisJSON,
	).Scan(&record.CreatedAt)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"record_id":  record.ID,
			"patient_id": record.PatientID,
			"error":      err,
		}).Error("Failed to create analysis record")
		return fmt.Errorf("creating analysis record: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"record_id":     record.ID,
		"patient_id":    record.PatientID,
		"risk_score":    record.RiskScore,
		"urgency_level": record.UrgencyLevel.String(),
	}).Info("Analysis record created")

	return nil
}

const selectRecordColumns = `
		SELECT id, patient_id, input_hash, gating_policy, risk_score, urgency_level, analysis, created_at
		FROM analysis_records`

// GetLatestAnalysisRecord returns the most recent record of a patient
func (r *AnalysisRecordRepository) GetLatestAnalysisRecord(ctx context.Context, patientID string) (*domain.AnalysisRecord, error) {
	query := selectRecordColumns + `
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	record, err := scanRecord(r.db.QueryRow(ctx, query, patientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("analysis record for patient %s: %w", patientID, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to get latest analysis record")
		return nil, fmt.Errorf("getting latest analysis record: %w", err)
	}
	return record, nil
}

// ListAnalysisRecords returns up to limit records of a patient, newest first
func (r *AnalysisRecordRepository) ListAnalysisRecords(ctx context.Context, patientID string, limit int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := selectRecordColumns + `
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, patientID, limit)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to list analysis records")
		return nil, fmt.Errorf("listing analysis records: %w", err)
	}
	defer rows.Close()

	records := []*domain.AnalysisRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis record row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analysis record rows: %w", err)
	}

	return records, nil
}

func scanRecord(row pgx.Row) (*domain.AnalysisRecord, error) {
	var record domain.AnalysisRecord
	var id uuid.UUID
	var urgency string
	var analysisJSON []byte

	if err := row.Scan(
		&id,
		&record.PatientID,
		&record.InputHash,
		&record.GatingPolicy,
		&record.RiskScore,
		&urgency,
		&analysisJSON,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}

	record.ID = id.String()
	record.UrgencyLevel = domain.UrgencyLevel(urgency)
	if err := json.Unmarshal(analysisJSON, &record.Analysis); err != nil {
		return nil, fmt.Errorf("unmarshaling analysis: %w", err)
	}
	return &record, nil
}

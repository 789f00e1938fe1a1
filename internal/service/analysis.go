package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/physio-triage-server/internal/cache"
	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/triage"
)

// Defaults for batch analysis.
const (
	DefaultMaxBatchSize     = 100
	DefaultBatchConcurrency = 8
)

// AnalysisService wraps the triage engine with memoization, persistence and audit logging.
type AnalysisService struct {
	logger      *logrus.Logger
	engine      *triage.Engine
	cache       domain.AnalysisCache
	screenings  domain.ScreeningRepository
	records     domain.AnalysisRecordRepository
	maxBatch    int
	concurrency int
	persist     bool
}

// Option configures an AnalysisService.
type Option func(*AnalysisService)

// WithCache memoizes analyses in the given cache.
func WithCache(c domain.AnalysisCache) Option {
	return func(s *AnalysisService) { s.cache = c }
}

// WithScreeningRepository enables screening intake and analysis by patient.
func WithScreeningRepository(repo domain.ScreeningRepository) Option {
	return func(s *AnalysisService) { s.screenings = repo }
}

// WithAnalysisRecordRepository records every patient analysis.
func WithAnalysisRecordRepository(repo domain.AnalysisRecordRepository) Option {
	return func(s *AnalysisService) {
		s.records = repo
		s.persist = repo != nil
	}
}

// WithBatchLimits sets the maximum batch size and the number of concurrent analyses per batch.
func WithBatchLimits(maxBatch, concurrency int) Option {
	return func(s *AnalysisService) {
		if maxBatch > 0 {
			s.maxBatch = maxBatch
		}
		if concurrency > 0 {
			s.concurrency = concurrency
		}
	}
}

// NewAnalysisService creates a new analysis service around engine.
func NewAnalysisService(logger *logrus.Logger, engine *triage.Engine, opts ...Option) *AnalysisService {
	s := &AnalysisService{
		logger:      logger,
		engine:      engine,
		maxBatch:    DefaultMaxBatchSize,
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the gating policy of the underlying engine.
func (s *AnalysisService) Policy() triage.GatingPolicy {
	return s.engine.Policy()
}

// MaxBatchSize returns the largest accepted batch.
func (s *AnalysisService) MaxBatchSize() int {
	return s.maxBatch
}

// Analyze returns the analysis of a screening, served from the cache when possible.
// Cache failures are logged and never fail the analysis.
func (s *AnalysisService) Analyze(ctx context.Context, input domain.ScreeningInput) (*domain.ClinicalAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input = input.Normalized()
	hash := input.Hash()
	key := cache.AnalysisKey(s.engine.Policy().String(), hash)

	if s.cache != nil {
		if cached, ok := s.lookup(ctx, key); ok {
			s.logger.WithField("input_hash", hash).Debug("Analysis served from cache")
			return cached, nil
		}
	}

	startTime := time.Now()
	analysis := s.engine.Analyze(input)

	s.logger.WithFields(logrus.Fields(analysis.LogFields())).
		WithFields(logrus.Fields(input.LogFields())).
		WithFields(logrus.Fields{
			"input_hash":      hash,
			"gating_policy":   s.engine.Policy().String(),
			"processing_time": time.Since(startTime),
		}).Info("Clinical analysis completed")

	if s.cache != nil {
		s.store(ctx, key, &analysis)
	}

	return &analysis, nil
}

func (s *AnalysisService) lookup(ctx context.Context, key string) (*domain.ClinicalAnalysis, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Analysis cache lookup failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var analysis domain.ClinicalAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Discarding corrupt analysis cache entry")
		_ = s.cache.Delete(ctx, key)
		return nil, false
	}
	return &analysis, true
}

func (s *AnalysisService) store(ctx context.Context, key string, analysis *domain.ClinicalAnalysis) {
	data, err := json.Marshal(analysis)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to encode analysis for cache")
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to cache analysis")
	}
}

// AnalyzeBatch analyses inputs concurrently and returns results in input order.
func (s *AnalysisService) AnalyzeBatch(ctx context.Context, inputs []domain.ScreeningInput) ([]domain.ClinicalAnalysis, error) {
	if len(inputs) == 0 {
		return []domain.ClinicalAnalysis{}, nil
	}
	if len(inputs) > s.maxBatch {
		return nil, fmt.Errorf("%w: %d inputs, maximum is %d", domain.ErrBatchTooLarge, len(inputs), s.maxBatch)
	}

	results := make([]domain.ClinicalAnalysis, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range inputs {
		g.Go(func() error {
			analysis, err := s.Analyze(gctx, inputs[i])
			if err != nil {
				return fmt.Errorf("failed to analyze input %d: %w", i, err)
			}
			results[i] = *analysis
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.WithField("batch_size", len(inputs)).Info("Batch analysis completed")
	return results, nil
}

// SubmitScreening stores a patient's screening, replacing any earlier unlocked submission.
func (s *AnalysisService) SubmitScreening(ctx context.Context, patientID string, input domain.ScreeningInput) (*domain.Screening, error) {
	if s.screenings == nil {
		return nil, errors.New("screening storage is not configured")
	}
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, domain.ErrInvalidPatientID
	}

	screening := &domain.Screening{
		PatientID: patientID,
		Input:     input.Normalized(),
		Submitted: true,
	}
	if err := s.screenings.SaveScreening(ctx, screening); err != nil {
		return nil, fmt.Errorf("failed to save screening: %w", err)
	}

	s.logger.WithFields(logrus.Fields(screening.Input.LogFields())).
		WithField("patient_id", patientID).
		Info("Screening submitted")

	return screening, nil
}

// AnalyzePatient analyses the stored screening of a patient. It returns domain.ErrNotFound when the
// patient has no screening.
func (s *AnalysisService) AnalyzePatient(ctx context.Context, patientID string) (*domain.PatientAnalysisResponse, error) {
	if s.screenings == nil {
		return nil, errors.New("screening storage is not configured")
	}
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, domain.ErrInvalidPatientID
	}

	s.logger.WithField("patient_id", patientID).Debug("Analyzing stored screening")

	// Step 1: Load the screening
	screening, err := s.screenings.GetScreening(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load screening: %w", err)
	}

	// Step 2: Analyze
	analysis, err := s.Analyze(ctx, screening.Input)
	if err != nil {
		return nil, err
	}

	response := &domain.PatientAnalysisResponse{
		Success:              true,
		PatientID:            patientID,
		ScreeningCompletedAt: screening.UpdatedAt,
		Analysis:             *analysis,
	}

	// Step 3: Record the analysis
	if s.persist {
		record := &domain.AnalysisRecord{
			ID:           uuid.New().String(),
			PatientID:    patientID,
			InputHash:    screening.Input.Hash(),
			GatingPolicy: s.engine.Policy().String(),
			RiskScore:    analysis.RiskScore,
			UrgencyLevel: analysis.UrgencyLevel,
			Analysis:     *analysis,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.records.SaveAnalysisRecord(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to record analysis: %w", err)
		}
		response.RecordID = record.ID
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":    patientID,
		"risk_score":    analysis.RiskScore,
		"urgency_level": analysis.UrgencyLevel.String(),
		"record_id":     response.RecordID,
	}).Info("Patient analysis completed")

	return response, nil
}

// LockScreening makes a patient's screening read-only. Later submissions fail with
// domain.ErrScreeningLocked.
func (s *AnalysisService) LockScreening(ctx context.Context, patientID string) error {
	if s.screenings == nil {
		return errors.New("screening storage is not configured")
	}
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return domain.ErrInvalidPatientID
	}
	if err := s.screenings.LockScreening(ctx, patientID); err != nil {
		return fmt.Errorf("failed to lock screening: %w", err)
	}
	s.logger.WithField("patient_id", patientID).Info("Screening locked")
	return nil
}

// LatestAnalysis returns the most recent recorded analysis of a patient.
func (s *AnalysisService) LatestAnalysis(ctx context.Context, patientID string) (*domain.AnalysisRecord, error) {
	if s.records == nil {
		return nil, errors.New("analysis records are not configured")
	}
	record, err := s.records.GetLatestAnalysisRecord(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest analysis: %w", err)
	}
	return record, nil
}

// AnalysisHistory lists recorded analyses for a patient, newest first.
func (s *AnalysisService) AnalysisHistory(ctx context.Context, patientID string, limit int) ([]*domain.AnalysisRecord, error) {
	if s.records == nil {
		return nil, errors.New("analysis records are not configured")
	}
	records, err := s.records.ListAnalysisRecords(ctx, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis records: %w", err)
	}
	return records, nil
}

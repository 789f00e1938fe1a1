package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physio-triage-server/internal/cache"
	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/triage"
)

type memoryScreenings struct {
	mu   sync.Mutex
	data map[string]*domain.Screening
}

func newMemoryScreenings() *memoryScreenings {
	return &memoryScreenings{data: make(map[string]*domain.Screening)}
}

func (m *memoryScreenings) SaveScreening(_ context.Context, s *domain.Screening) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := m.data[s.PatientID]; ok {
		if existing.Locked {
			return domain.ErrScreeningLocked
		}
		s.CreatedAt = existing.CreatedAt
	} else {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	stored := *s
	m.data[s.PatientID] = &stored
	return nil
}

func (m *memoryScreenings) GetScreening(_ context.Context, patientID string) (*domain.Screening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[patientID]
	if !ok {
		return nil, fmt.Errorf("screening for patient %s: %w", patientID, domain.ErrNotFound)
	}
	out := *s
	return &out, nil
}

func (m *memoryScreenings) LockScreening(_ context.Context, patientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[patientID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Locked = true
	return nil
}

type memoryRecords struct {
	mu      sync.Mutex
	records []*domain.AnalysisRecord
	err     error
}

func (m *memoryRecords) SaveAnalysisRecord(_ context.Context, r *domain.AnalysisRecord) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *memoryRecords) GetLatestAnalysisRecord(_ context.Context, patientID string) (*domain.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].PatientID == patientID {
			return m.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memoryRecords) ListAnalysisRecords(_ context.Context, patientID string, limit int) ([]*domain.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AnalysisRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].PatientID == patientID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

// countingCache records how often each operation is called.
type countingCache struct {
	*cache.MemoryCache
	mu   sync.Mutex
	sets int
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.MemoryCache.Set(ctx, key, value)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestAnalysisService_AnalyzeMatchesEngine(t *testing.T) {
	svc := NewAnalysisService(testLogger(), triage.New())
	in := domain.ScreeningInput{NightPain: true, TraumaHistory: true, DizzinessBalanceIssues: true, ConsentGiven: true}

	got, err := svc.Analyze(context.Background(), in)
	require.NoError(t, err)

	want := triage.Analyze(in)
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("analysis mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalysisService_Memoizes(t *testing.T) {
	c := &countingCache{MemoryCache: cache.NewMemoryCache(10, time.Minute)}
	svc := NewAnalysisService(testLogger(), triage.New(), WithCache(c))
	ctx := context.Background()

	in := domain.ScreeningInput{CancerHistory: true, Allergies: "latex"}
	first, err := svc.Analyze(ctx, in)
	require.NoError(t, err)

	// Padding in free text normalizes to the same key.
	in.Allergies = "  latex "
	second, err := svc.Analyze(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, 1, c.sets)
	assert.Equal(t, int64(1), c.Stats().Hits)
	assert.Empty(t, cmp.Diff(first, second))

	// Results are independent copies.
	first.ModalityGating[domain.ModalityMENS] = domain.ModalityAssessment{}
	third, err := svc.Analyze(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionDoNotUseUntilCleared, third.ModalityGating[domain.ModalityMENS].Decision)
}

func TestAnalysisService_CacheKeyIncludesPolicy(t *testing.T) {
	shared := cache.NewMemoryCache(10, time.Minute)
	ctx := context.Background()
	in := domain.ScreeningInput{CancerHistory: true, CardiovascularSymptoms: true}

	modern := NewAnalysisService(testLogger(), triage.New(), WithCache(shared))
	legacy := NewAnalysisService(testLogger(), triage.New(triage.WithGatingPolicy(triage.GatingPolicySequentialOverwrite)), WithCache(shared))

	a, err := modern.Analyze(ctx, in)
	require.NoError(t, err)
	b, err := legacy.Analyze(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionDoNotUseUntilCleared, a.ModalityGating[domain.ModalityMENS].Decision)
	assert.Equal(t, domain.DecisionAllowedWithPrecautions, b.ModalityGating[domain.ModalityMENS].Decision)
}

func TestAnalysisService_CorruptCacheEntryIsRecomputed(t *testing.T) {
	c := cache.NewMemoryCache(10, time.Minute)
	svc := NewAnalysisService(testLogger(), triage.New(), WithCache(c))
	ctx := context.Background()
	in := domain.ScreeningInput{SteroidUse: true}

	key := cache.AnalysisKey(svc.Policy().String(), in.Hash())
	require.NoError(t, c.Set(ctx, key, []byte("not json")))

	got, err := svc.Analyze(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 5, got.RiskScore)
}

func TestAnalysisService_AnalyzeBatch(t *testing.T) {
	svc := NewAnalysisService(testLogger(), triage.New(), WithBatchLimits(5, 2))
	ctx := context.Background()

	inputs := []domain.ScreeningInput{
		{},
		{BladderBowelDysfunction: true},
		{NeurologicalSymptoms: true},
	}
	results, err := svc.AnalyzeBatch(ctx, inputs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, domain.UrgencyLow, results[0].UrgencyLevel)
	assert.Equal(t, domain.UrgencyUrgent, results[1].UrgencyLevel)
	assert.Equal(t, domain.DomainNeurogenic, results[2].TriageClassification.LikelyDomain)

	_, err = svc.AnalyzeBatch(ctx, make([]domain.ScreeningInput, 6))
	assert.ErrorIs(t, err, domain.ErrBatchTooLarge)

	empty, err := svc.AnalyzeBatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAnalysisService_AnalyzeCancelled(t *testing.T) {
	svc := NewAnalysisService(testLogger(), triage.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, domain.ScreeningInput{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalysisService_PatientFlow(t *testing.T) {
	screenings := newMemoryScreenings()
	records := &memoryRecords{}
	svc := NewAnalysisService(testLogger(), triage.New(),
		WithScreeningRepository(screenings),
		WithAnalysisRecordRepository(records),
	)
	ctx := context.Background()

	_, err := svc.AnalyzePatient(ctx, "patient-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	screening, err := svc.SubmitScreening(ctx, " patient-1 ", domain.ScreeningInput{NightPain: true, GPDetails: " Dr Who "})
	require.NoError(t, err)
	assert.Equal(t, "patient-1", screening.PatientID)
	assert.Equal(t, "Dr Who", screening.Input.GPDetails)
	assert.True(t, screening.Submitted)

	response, err := svc.AnalyzePatient(ctx, "patient-1")
	require.NoError(t, err)
	assert.True(t, response.Success)
	assert.Equal(t, "patient-1", response.PatientID)
	assert.Equal(t, 10, response.Analysis.RiskScore)
	assert.False(t, response.ScreeningCompletedAt.IsZero())
	assert.NotEmpty(t, response.RecordID)

	history, err := svc.AnalysisHistory(ctx, "patient-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, response.RecordID, history[0].ID)
	assert.Equal(t, string(triage.GatingPolicyMonotonicMax), history[0].GatingPolicy)
	assert.Equal(t, screening.Input.Hash(), history[0].InputHash)

	latest, err := svc.LatestAnalysis(ctx, "patient-1")
	require.NoError(t, err)
	assert.Equal(t, response.RecordID, latest.ID)
}

func TestAnalysisService_LockedScreeningRejectsResubmission(t *testing.T) {
	svc := NewAnalysisService(testLogger(), triage.New(), WithScreeningRepository(newMemoryScreenings()))
	ctx := context.Background()

	assert.ErrorIs(t, svc.LockScreening(ctx, "p"), domain.ErrNotFound)

	_, err := svc.SubmitScreening(ctx, "p", domain.ScreeningInput{})
	require.NoError(t, err)
	require.NoError(t, svc.LockScreening(ctx, "p"))

	_, err = svc.SubmitScreening(ctx, "p", domain.ScreeningInput{CancerHistory: true})
	assert.ErrorIs(t, err, domain.ErrScreeningLocked)

	response, err := svc.AnalyzePatient(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 0, response.Analysis.RiskScore)
}

func TestAnalysisService_PatientValidation(t *testing.T) {
	svc := NewAnalysisService(testLogger(), triage.New(), WithScreeningRepository(newMemoryScreenings()))
	ctx := context.Background()

	_, err := svc.SubmitScreening(ctx, "   ", domain.ScreeningInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidPatientID)

	_, err = svc.AnalyzePatient(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidPatientID)

	noStorage := NewAnalysisService(testLogger(), triage.New())
	_, err = noStorage.SubmitScreening(ctx, "p", domain.ScreeningInput{})
	assert.Error(t, err)
}

func TestAnalysisService_RecordFailureIsReturned(t *testing.T) {
	screenings := newMemoryScreenings()
	svc := NewAnalysisService(testLogger(), triage.New(),
		WithScreeningRepository(screenings),
		WithAnalysisRecordRepository(&memoryRecords{err: errors.New("disk full")}),
	)
	ctx := context.Background()

	_, err := svc.SubmitScreening(ctx, "p", domain.ScreeningInput{})
	require.NoError(t, err)

	_, err = svc.AnalyzePatient(ctx, "p")
	assert.ErrorContains(t, err, "failed to record analysis")
}

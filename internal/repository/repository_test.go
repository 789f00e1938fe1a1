package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/physio-triage-server/internal/database"
	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/triage"
)

// generateTestPassword creates a random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: 30 * time.Minute,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	runner, err := database.NewMigrationRunner(config.URL(), "../../migrations", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = runner.Close() })
	require.NoError(t, runner.Up(ctx))

	db, err := database.NewConnection(ctx, config, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func TestRepositories(t *testing.T) {
	db := setupTestDB(t)
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	screenings := NewScreeningRepository(db.Pool, logger)
	records := NewAnalysisRecordRepository(db.Pool, logger)
	ctx := context.Background()

	t.Run("missing screening is not found", func(t *testing.T) {
		_, err := screenings.GetScreening(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, screenings.LockScreening(ctx, "nobody"), domain.ErrNotFound)
	})

	t.Run("screening upsert round trip", func(t *testing.T) {
		first := &domain.Screening{
			PatientID: "patient-1",
			Input:     domain.ScreeningInput{NightPain: true, Allergies: "latex"},
			Submitted: true,
		}
		require.NoError(t, screenings.SaveScreening(ctx, first))
		assert.False(t, first.CreatedAt.IsZero())

		second := &domain.Screening{
			PatientID: "patient-1",
			Input:     domain.ScreeningInput{CancerHistory: true},
			Submitted: true,
		}
		require.NoError(t, screenings.SaveScreening(ctx, second))
		assert.True(t, second.CreatedAt.Equal(first.CreatedAt))

		got, err := screenings.GetScreening(ctx, "patient-1")
		require.NoError(t, err)
		assert.Equal(t, second.Input, got.Input)
		assert.True(t, got.Submitted)
		assert.False(t, got.Locked)
	})

	t.Run("locked screening is not overwritten", func(t *testing.T) {
		require.NoError(t, screenings.SaveScreening(ctx, &domain.Screening{PatientID: "patient-2", Submitted: true}))
		require.NoError(t, screenings.LockScreening(ctx, "patient-2"))

		err := screenings.SaveScreening(ctx, &domain.Screening{
			PatientID: "patient-2",
			Input:     domain.ScreeningInput{BladderBowelDysfunction: true},
		})
		assert.ErrorIs(t, err, domain.ErrScreeningLocked)

		got, err := screenings.GetScreening(ctx, "patient-2")
		require.NoError(t, err)
		assert.True(t, got.Locked)
		assert.False(t, got.Input.BladderBowelDysfunction)
	})

	t.Run("analysis records newest first", func(t *testing.T) {
		_, err := records.GetLatestAnalysisRecord(ctx, "patient-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		inputs := []domain.ScreeningInput{{}, {CancerHistory: true}}
		var ids []string
		for _, in := range inputs {
			analysis := triage.Analyze(in)
			record := &domain.AnalysisRecord{
				ID:           uuid.New().String(),
				PatientID:    "patient-1",
				InputHash:    in.Hash(),
				GatingPolicy: triage.DefaultGatingPolicy.String(),
				RiskScore:    analysis.RiskScore,
				UrgencyLevel: analysis.UrgencyLevel,
				Analysis:     analysis,
			}
			require.NoError(t, records.SaveAnalysisRecord(ctx, record))
			ids = append(ids, record.ID)
			time.Sleep(10 * time.Millisecond)
		}

		latest, err := records.GetLatestAnalysisRecord(ctx, "patient-1")
		require.NoError(t, err)
		assert.Equal(t, ids[1], latest.ID)
		assert.Equal(t, 10, latest.RiskScore)
		assert.Equal(t, domain.DecisionDoNotUseUntilCleared, latest.Analysis.ModalityGating[domain.ModalityMENS].Decision)

		history, err := records.ListAnalysisRecords(ctx, "patient-1", 0)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, ids[1], history[0].ID)
		assert.Equal(t, ids[0], history[1].ID)

		limited, err := records.ListAnalysisRecords(ctx, "patient-1", 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("record requires a stored screening", func(t *testing.T) {
		err := records.SaveAnalysisRecord(ctx, &domain.AnalysisRecord{
			PatientID:    "ghost",
			InputHash:    domain.ScreeningInput{}.Hash(),
			GatingPolicy: triage.DefaultGatingPolicy.String(),
			UrgencyLevel: domain.UrgencyLow,
			Analysis:     triage.Analyze(domain.ScreeningInput{}),
		})
		assert.Error(t, err)
	})
}

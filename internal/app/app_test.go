package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/physio-triage-server/internal/config"
	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/health"
	"github.com/physio-triage-server/internal/logging"
)

func testConfig(t *testing.T) *domain.Config {
	t.Helper()
	manager, err := config.NewManager()
	require.NoError(t, err)
	cfg := manager.GetConfig()
	cfg.Feedback.DataDir = t.TempDir()
	return cfg
}

func TestNew_UnknownPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.GatingPolicy = "strictest"

	_, err := New(context.Background(), cfg, WithLogger(logging.Discard()))
	assert.ErrorContains(t, err, "unknown gating policy")
}

func TestNew_DatabaseUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = 1

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := New(ctx, cfg, WithLogger(logging.Discard()))
	assert.ErrorContains(t, err, "failed to connect to database")
}

func TestNew_WithPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("triage"),
		postgres.WithUsername("clinic"),
		postgres.WithPassword("clinicpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Database.Host = host
	cfg.Database.Port = port.Int()
	cfg.Database.Database = "triage"
	cfg.Database.Username = "clinic"
	cfg.Database.Password = "clinicpass"
	cfg.Database.MigrationsPath = filepath.Join("..", "..", "migrations")
	// Redis is optional; an unreachable server leaves the memory tier in place.
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"

	a, err := New(ctx, cfg, WithLogger(logging.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	status := a.Health.Run(ctx)
	assert.Equal(t, health.StateHealthy, status.Overall)
	assert.Contains(t, status.Components, "database")
	assert.NotContains(t, status.Components, "redis")

	_, err = a.Analysis.SubmitScreening(ctx, "p-1", domain.ScreeningInput{NeurologicalSymptoms: true})
	require.NoError(t, err)
	response, err := a.Analysis.AnalyzePatient(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 15, response.Analysis.RiskScore)
	assert.NotEmpty(t, response.RecordID)

	count, err := a.Feedback.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

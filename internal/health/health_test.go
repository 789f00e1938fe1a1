package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/feedback"
	"github.com/physio-triage-server/internal/triage"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func fixed(name string, state State) Check {
	return CheckFunc{CheckName: name, Fn: func(context.Context) ComponentHealth {
		return ComponentHealth{Status: state, Message: string(state)}
	}}
}

func TestChecker_Run(t *testing.T) {
	tests := []struct {
		name   string
		checks []Check
		want   State
	}{
		{"no checks", nil, StateHealthy},
		{"all healthy", []Check{fixed("a", StateHealthy), fixed("b", StateHealthy)}, StateHealthy},
		{"warning", []Check{fixed("a", StateHealthy), fixed("b", StateWarning)}, StateWarning},
		{"unhealthy wins", []Check{fixed("a", StateWarning), fixed("b", StateUnhealthy)}, StateUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := NewChecker(quietLogger(), "1.2.3", tt.checks...).Run(context.Background())
			assert.Equal(t, tt.want, status.Overall)
			assert.Equal(t, "1.2.3", status.Version)
			assert.Len(t, status.Components, len(tt.checks))
		})
	}
}

func TestChecker_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	checker := NewChecker(quietLogger(), "dev", fixed("engine", StateHealthy))

	r := gin.New()
	r.GET("/health", checker.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, StateHealthy, status.Overall)
	assert.Equal(t, "engine", status.Components["engine"].Name)

	checker.Register(CheckFunc{CheckName: "database", Fn: func(context.Context) ComponentHealth {
		return unhealthy("Database connection failed", errors.New("refused"))
	}})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEngineCheck(t *testing.T) {
	result := EngineCheck{Analyzer: triage.New()}.Check(context.Background())
	assert.Equal(t, StateHealthy, result.Status)
	assert.Equal(t, len(domain.AllModalities()), result.Metadata["modalities"])
}

func TestFeedbackCheck(t *testing.T) {
	store, err := feedback.NewSQLiteStore(filepath.Join(t.TempDir(), "fb.db"))
	require.NoError(t, err)

	check := FeedbackCheck{Store: store}
	assert.Equal(t, StateHealthy, check.Check(context.Background()).Status)

	require.NoError(t, store.Close())
	assert.Equal(t, StateUnhealthy, check.Check(context.Background()).Status)
}

func TestRedisCheck_UnavailableIsWarning(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	result := RedisCheck{Client: client}.Check(context.Background())
	assert.Equal(t, StateWarning, result.Status)
	assert.NotEmpty(t, result.Error)

	assert.Equal(t, StateWarning, RedisCheck{}.Check(context.Background()).Status)
}

func TestDatabaseCheck_NotConfigured(t *testing.T) {
	assert.Equal(t, StateUnhealthy, DatabaseCheck{}.Check(context.Background()).Status)
}

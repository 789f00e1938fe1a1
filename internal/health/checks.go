package health

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/feedback"
)

// DatabaseCheck pings the Postgres pool and reports its statistics.
type DatabaseCheck struct {
	Pool *pgxpool.Pool
}

func (d DatabaseCheck) Name() string { return "database" }

func (d DatabaseCheck) Check(ctx context.Context) ComponentHealth {
	if d.Pool == nil {
		return ComponentHealth{Status: StateUnhealthy, Message: "Database connection not configured"}
	}
	if err := d.Pool.Ping(ctx); err != nil {
		return unhealthy("Database connection failed", err)
	}

	stats := d.Pool.Stat()
	result := ComponentHealth{
		Status:  StateHealthy,
		Message: "Database connection healthy",
		Metadata: map[string]interface{}{
			"total_connections":    stats.TotalConns(),
			"acquired_connections": stats.AcquiredConns(),
			"idle_connections":     stats.IdleConns(),
			"max_connections":      stats.MaxConns(),
		},
	}
	if stats.MaxConns() > 0 && stats.AcquiredConns() == stats.MaxConns() {
		result.Status = StateWarning
		result.Message = "Database connection pool exhausted"
	}
	return result
}

// RedisCheck pings the shared cache tier. The tier is optional, so a failure is a warning.
type RedisCheck struct {
	Client *redis.Client
}

func (r RedisCheck) Name() string { return "redis" }

func (r RedisCheck) Check(ctx context.Context) ComponentHealth {
	if r.Client == nil {
		return ComponentHealth{Status: StateWarning, Message: "Redis client not configured"}
	}
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return ComponentHealth{Status: StateWarning, Message: "Redis unavailable, using in-process cache", Error: err.Error()}
	}

	stats := r.Client.PoolStats()
	return ComponentHealth{
		Status:  StateHealthy,
		Message: "Redis connection healthy",
		Metadata: map[string]interface{}{
			"hits":        stats.Hits,
			"misses":      stats.Misses,
			"total_conns": stats.TotalConns,
		},
	}
}

// FeedbackCheck verifies the feedback store answers queries.
type FeedbackCheck struct {
	Store feedback.Store
}

func (f FeedbackCheck) Name() string { return "feedback_store" }

func (f FeedbackCheck) Check(ctx context.Context) ComponentHealth {
	count, err := f.Store.Count(ctx)
	if err != nil {
		return unhealthy("Feedback store query failed", err)
	}
	return ComponentHealth{
		Status:   StateHealthy,
		Message:  "Feedback store healthy",
		Metadata: map[string]interface{}{"entries": count},
	}
}

// EngineCheck runs a fixed screening through the analyzer and verifies every modality is gated.
type EngineCheck struct {
	Analyzer domain.Analyzer
}

func (e EngineCheck) Name() string { return "triage_engine" }

func (e EngineCheck) Check(ctx context.Context) ComponentHealth {
	analysis := e.Analyzer.Analyze(domain.ScreeningInput{CancerHistory: true})
	modalities := domain.AllModalities()
	for _, m := range modalities {
		if _, ok := analysis.ModalityGating[m]; !ok {
			return unhealthy("Triage engine self-test failed", fmt.Errorf("modality %s not gated", m))
		}
	}
	return ComponentHealth{
		Status:   StateHealthy,
		Message:  "Triage engine self-test passed",
		Metadata: map[string]interface{}{"modalities": len(modalities)},
	}
}

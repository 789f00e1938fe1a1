// Package health runs dependency checks for the HTTP server's health endpoint.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// State is the health of a component or of the whole server.
type State string

const (
	StateHealthy   State = "healthy"
	StateWarning   State = "warning"
	StateUnhealthy State = "unhealthy"
)

// DefaultTimeout bounds a full health run.
const DefaultTimeout = 5 * time.Second

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Name     string                 `json:"name"`
	Status   State                  `json:"status"`
	Message  string                 `json:"message"`
	Duration time.Duration          `json:"duration"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// Status is the aggregated result of a health run.
type Status struct {
	Overall    State                      `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// Check is a single dependency probe.
type Check interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

// Checker runs registered checks concurrently.
type Checker struct {
	logger    *logrus.Logger
	version   string
	timeout   time.Duration
	startedAt time.Time

	mu     sync.RWMutex
	checks []Check
}

// NewChecker creates a checker reporting version.
func NewChecker(logger *logrus.Logger, version string, checks ...Check) *Checker {
	return &Checker{
		logger:    logger,
		version:   version,
		timeout:   DefaultTimeout,
		startedAt: time.Now(),
		checks:    checks,
	}
}

// Register adds a check.
func (h *Checker) Register(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// Run executes every check in parallel and aggregates the results. Any unhealthy component
// makes the server unhealthy.
func (h *Checker) Run(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mu.RLock()
	checks := append([]Check(nil), h.checks...)
	h.mu.RUnlock()

	results := make(chan ComponentHealth, len(checks))
	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(c Check) {
			defer wg.Done()
			start := time.Now()
			result := c.Check(ctx)
			result.Name = c.Name()
			result.Duration = time.Since(start)
			results <- result
		}(check)
	}
	wg.Wait()
	close(results)

	overall := StateHealthy
	components := make(map[string]ComponentHealth, len(checks))
	var unhealthy []string
	for result := range results {
		components[result.Name] = result
		switch result.Status {
		case StateUnhealthy:
			overall = StateUnhealthy
			unhealthy = append(unhealthy, result.Name)
		case StateWarning:
			if overall == StateHealthy {
				overall = StateWarning
			}
		}
	}

	if overall != StateHealthy {
		sort.Strings(unhealthy)
		h.logger.WithFields(logrus.Fields{
			"overall_status":       overall,
			"unhealthy_components": unhealthy,
		}).Warn("Health check completed with issues")
	} else {
		h.logger.Debug("Health check completed successfully")
	}

	return Status{
		Overall:    overall,
		Timestamp:  time.Now().UTC(),
		Version:    h.version,
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
		Components: components,
	}
}

// Handler serves the aggregated status, with 503 when unhealthy.
func (h *Checker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := h.Run(c.Request.Context())
		code := http.StatusOK
		if status.Overall == StateUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}

// CheckFunc adapts a function to the Check interface.
type CheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) ComponentHealth
}

func (f CheckFunc) Name() string { return f.CheckName }

func (f CheckFunc) Check(ctx context.Context) ComponentHealth { return f.Fn(ctx) }

func unhealthy(message string, err error) ComponentHealth {
	return ComponentHealth{Status: StateUnhealthy, Message: message, Error: err.Error()}
}

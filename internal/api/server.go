// Package api exposes the triage service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/feedback"
	"github.com/physio-triage-server/internal/health"
	"github.com/physio-triage-server/internal/middleware"
	"github.com/physio-triage-server/internal/service"
)

// maxBodyBytes caps request bodies; a full batch of screenings fits comfortably.
const maxBodyBytes = 4 << 20

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	analysis      *service.AnalysisService
	parser        domain.ScreeningParser
	feedback      feedback.Store
	health        *health.Checker
	limiter       *middleware.RateLimiter
	upgrader      websocket.Upgrader
	router        *gin.Engine
	server        *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithFeedbackStore enables the clinician feedback endpoints.
func WithFeedbackStore(store feedback.Store) Option {
	return func(s *Server) { s.feedback = store }
}

// WithHealthChecker serves dependency checks on /health.
func WithHealthChecker(checker *health.Checker) Option {
	return func(s *Server) { s.health = checker }
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, logger *logrus.Logger, analysis *service.AnalysisService, opts ...Option) (*Server, error) {
	cfg := configManager.GetConfig()

	// Production always runs gin in release mode, whatever the log level
	if cfg.Logging.Level == "debug" && !configManager.IsProduction() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		configManager: configManager,
		logger:        logger,
		analysis:      analysis,
		parser:        domain.NewStandardScreeningParser(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.RateLimit.Enabled {
		limiter, err := middleware.NewRateLimiter(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("creating rate limiter: %w", err)
		}
		s.limiter = limiter
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware())
	router.Use(middleware.AuditLogger(logger))
	s.router = router

	s.setupRoutes(cfg.Server.RequestTimeout)

	return s, nil
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(logrus.Fields{
			"addr":          addr,
			"tls":           cfg.TLSEnabled,
			"gating_policy": s.analysis.Policy().String(),
		}).Info("HTTP server listening")

		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(requestTimeout time.Duration) {
	if s.health != nil {
		s.router.GET("/health", s.health.Handler())
	} else {
		s.router.GET("/health", s.handleHealth)
	}

	// The websocket is long lived and skips the request timeout.
	s.router.GET("/api/v1/ws/analyze", s.handleAnalyzeStream)

	v1 := s.router.Group("/api/v1")
	if s.limiter != nil {
		v1.Use(s.limiter.Middleware())
	}
	v1.Use(middleware.RequestTimeout(requestTimeout))
	v1.Use(bodyLimit(maxBodyBytes))
	{
		v1.GET("/modalities", s.handleListModalities)
		v1.POST("/analyze", s.handleAnalyze)
		v1.POST("/analyze/batch", s.handleAnalyzeBatch)

		patients := v1.Group("/patients/:patientId")
		patients.PUT("/screening", s.handleSubmitScreening)
		patients.POST("/screening/lock", s.handleLockScreening)
		patients.GET("/analysis", s.handleAnalyzePatient)
		patients.GET("/analysis/latest", s.handleLatestAnalysis)
		patients.GET("/analyses", s.handleAnalysisHistory)

		if s.feedback != nil {
			patients.GET("/feedback", s.handlePatientFeedback)

			fb := v1.Group("/feedback")
			fb.POST("", s.handleSubmitFeedback)
			fb.GET("", s.handleListFeedback)
			fb.GET("/summary", s.handleFeedbackSummary)
			fb.GET("/export", s.handleExportFeedback)
			fb.DELETE("/:id", s.handleDeleteFeedback)
		}
	}
}

// handleHealth handles health check requests when no checker is configured
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Correlation-ID, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

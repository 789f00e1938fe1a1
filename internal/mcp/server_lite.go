package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/physio-triage-server/internal/cache"
	litecfg "github.com/physio-triage-server/internal/config"
	"github.com/physio-triage-server/internal/feedback"
	"github.com/physio-triage-server/internal/logging"
	"github.com/physio-triage-server/internal/service"
	"github.com/physio-triage-server/internal/triage"
)

// Lite server identity.
const (
	LiteServerName    = "physio-triage-mcp-lite"
	LiteServerVersion = "v1.0.0"
)

// LiteServer is a lightweight MCP server that requires no external databases.
// It uses in-memory caching and SQLite for persistence.
type LiteServer struct {
	*Server
	config        *litecfg.LiteConfig
	feedbackStore feedback.Store
	cache         *cache.MemoryCache
	logger        *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithFeedbackStore sets a custom feedback store.
func WithFeedbackStore(store feedback.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.feedbackStore = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{config: cfg}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Stdout carries the stdio transport, so logs go to stderr
	if server.logger == nil {
		logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "stderr")
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		server.logger = logger
	}

	policy, err := triage.ParseGatingPolicy(cfg.GatingPolicy)
	if err != nil {
		return nil, err
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	server.cache = cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)

	if server.feedbackStore == nil {
		store, err := feedback.NewSQLiteStore(cfg.FeedbackDBPath())
		if err != nil {
			server.cache.Close()
			return nil, fmt.Errorf("failed to create feedback store: %w", err)
		}
		server.feedbackStore = store
	}

	analysis := service.NewAnalysisService(server.logger,
		triage.New(triage.WithGatingPolicy(policy)),
		service.WithCache(server.cache),
	)

	server.Server = NewServer(
		ServerInfo{Name: LiteServerName, Version: LiteServerVersion},
		analysis,
		server.logger,
		WithFeedback(server.feedbackStore, cfg.ExportDir()),
	)

	server.logger.WithFields(logrus.Fields{
		"data_dir":      cfg.DataDir,
		"gating_policy": policy.String(),
	}).Info("Lite server initialized successfully")
	return server, nil
}

// Start runs the lite MCP server on the configured transport.
func (s *LiteServer) Start(ctx context.Context) error {
	return s.Run(ctx, s.config.Transport, s.config.HTTPHost, s.config.HTTPPort)
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	var err error
	if s.feedbackStore != nil {
		if cerr := s.feedbackStore.Close(); cerr != nil {
			s.logger.WithError(cerr).Error("Failed to close feedback store")
			err = errors.Join(err, cerr)
		}
	}
	if s.cache != nil {
		err = errors.Join(err, s.cache.Close())
	}
	return err
}

// GetFeedbackStore returns the feedback store for external access.
func (s *LiteServer) GetFeedbackStore() feedback.Store {
	return s.feedbackStore
}

// GetCache returns the memory cache for external access.
func (s *LiteServer) GetCache() *cache.MemoryCache {
	return s.cache
}

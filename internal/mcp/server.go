// Package mcp exposes the triage engine and clinician feedback as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/physio-triage-server/internal/feedback"
	"github.com/physio-triage-server/internal/service"
)

// Transport names accepted by Run.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ServerInfo contains MCP server metadata
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Server represents the triage MCP server. It owns no storage; callers pass the analysis service
// and feedback store and close them.
type Server struct {
	info      ServerInfo
	mcpServer *sdkmcp.Server
	analysis  *service.AnalysisService
	feedback  feedback.Store
	exportDir string
	logger    *logrus.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithFeedback registers the gating feedback tools backed by store. Exports default to exportDir.
func WithFeedback(store feedback.Store, exportDir string) ServerOption {
	return func(s *Server) {
		s.feedback = store
		s.exportDir = exportDir
	}
}

// NewServer creates a new MCP server instance
func NewServer(info ServerInfo, analysis *service.AnalysisService, logger *logrus.Logger, opts ...ServerOption) *Server {
	s := &Server{
		info:     info,
		analysis: analysis,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    info.Name,
		Version: info.Version,
	}, nil)

	s.registerTools()
	s.registerPrompts()
	s.registerResources()
	return s
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.mcpServer
}

// Run serves the tools over the named transport until ctx is cancelled.
func (s *Server) Run(ctx context.Context, transport, httpHost string, httpPort int) error {
	s.logger.WithFields(logrus.Fields{
		"server":         s.info.Name,
		"version":        s.info.Version,
		"transport_type": transport,
		"gating_policy":  s.analysis.Policy().String(),
	}).Info("Starting MCP server")

	switch transport {
	case "", TransportStdio:
		if err := s.mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil
	case TransportHTTP:
		return s.serveHTTP(ctx, net.JoinHostPort(httpHost, strconv.Itoa(httpPort)))
	default:
		return fmt.Errorf("unsupported transport type: %s", transport)
	}
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	handler := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return s.mcpServer
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("MCP streamable HTTP transport listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("MCP HTTP transport failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down MCP HTTP transport")
	return httpServer.Shutdown(shutdownCtx)
}

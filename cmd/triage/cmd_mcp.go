package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/physio-triage-server/internal/app"
	litecfg "github.com/physio-triage-server/internal/config"
	"github.com/physio-triage-server/internal/mcp"
)

var mcpFlags struct {
	lite      bool
	transport string
	dataDir   string
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start a Model Context Protocol server exposing the screening analysis and
clinician feedback tools.

With --lite the server needs no external services: analyses are cached in
memory and feedback is stored in SQLite under the data directory, configured
through TRIAGE_* environment variables. Without it the full configuration is
loaded and PostgreSQL backs the stack.

Logs go to stderr so stdout stays reserved for the stdio transport.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	f := mcpCmd.Flags()
	f.BoolVar(&mcpFlags.lite, "lite", false, "Run without PostgreSQL or Redis")
	f.StringVar(&mcpFlags.transport, "transport", "", "Transport: stdio or http (overrides configuration)")
	f.StringVar(&mcpFlags.dataDir, "data-dir", "", "Data directory for --lite (overrides TRIAGE_DATA_DIR)")
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if mcpFlags.lite {
		cfg := litecfg.LoadLiteConfig()
		if mcpFlags.transport != "" {
			cfg.Transport = mcpFlags.transport
		}
		if mcpFlags.dataDir != "" {
			cfg.DataDir = mcpFlags.dataDir
		}

		server, err := mcp.NewLiteServer(cfg)
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		defer server.Close()
		return server.Start(ctx)
	}

	manager, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := manager.GetConfig()

	a, err := app.New(ctx, cfg, app.WithLogOutput("stderr"))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer a.Close()

	transport := cfg.MCP.TransportType
	if mcpFlags.transport != "" {
		transport = mcpFlags.transport
	}

	server := mcp.NewServer(
		mcp.ServerInfo{Name: cfg.MCP.ServerName, Version: cfg.MCP.ServerVersion},
		a.Analysis,
		a.Logger,
		mcp.WithFeedback(a.Feedback, filepath.Join(cfg.Feedback.DataDir, "exports")),
	)
	return server.Run(ctx, transport, cfg.MCP.HTTPHost, cfg.MCP.HTTPPort)
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/physio-triage-server/internal/api"
	"github.com/physio-triage-server/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the REST and WebSocket API backed by PostgreSQL, with an optional
Redis cache tier. Configuration comes from the config file and TRIAGE_*
environment variables.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	manager, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, manager.GetConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer a.Close()

	server, err := api.NewServer(manager, a.Logger, a.Analysis,
		api.WithFeedbackStore(a.Feedback),
		api.WithHealthChecker(a.Health),
	)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	a.Logger.Info("Server stopped")
	return nil
}

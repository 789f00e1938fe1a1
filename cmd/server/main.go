package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/physio-triage-server/internal/api"
	"github.com/physio-triage-server/internal/app"
	"github.com/physio-triage-server/internal/config"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, configManager.GetConfig())
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	server, err := api.NewServer(configManager, a.Logger, a.Analysis,
		api.WithFeedbackStore(a.Feedback),
		api.WithHealthChecker(a.Health),
	)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Server failed: %v", err)
	}

	a.Logger.Info("Server stopped")
}

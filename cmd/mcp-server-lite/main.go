// Package main provides the standalone triage MCP server. It requires no external databases:
// analyses are cached in memory and clinician feedback is stored in SQLite.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/physio-triage-server/internal/config"
	"github.com/physio-triage-server/internal/mcp"
	"github.com/physio-triage-server/internal/setup"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		runSetup(os.Args[2:])
		return
	}

	cfg := config.LoadLiteConfig()

	server, err := mcp.NewLiteServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}
}

// runSetup handles "setup", "setup status" and "setup validate".
func runSetup(args []string) {
	if len(args) == 0 {
		if err := setup.NewWizard(os.Stdin, os.Stdout).Run(); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	switch args[0] {
	case "status":
		setup.PrintStatus(os.Stdout, setup.GetStatus(""))
	case "validate":
		valid, issues := setup.Validate("")
		for _, issue := range issues {
			log.Printf("  - %s", issue)
		}
		if !valid {
			os.Exit(1)
		}
		log.Println("Setup is valid")
	default:
		log.Fatalf("Unknown setup command %q (want status or validate)", args[0])
	}
}

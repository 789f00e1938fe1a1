package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/physio-triage-server/internal/app"
	"github.com/physio-triage-server/internal/config"
	"github.com/physio-triage-server/internal/triage"
)

var rootFlags struct {
	configFile string
}

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Physiotherapy pre-treatment screening triage",
	Long: `triage analyzes pre-treatment screening questionnaires. It scores red flags,
assigns urgency, classifies the likely risk domain and gates electrotherapy and
manual therapy modalities before a first session.

The analysis is decision support for a clinician; it is not a diagnosis.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and default gating policy",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "triage %s (default gating policy: %s)\n", app.Version, triage.DefaultGatingPolicy)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configFile, "config", "", "Config file (default: ./config.yaml, ./config/config.yaml or /etc/physio-triage/config.yaml)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(modalitiesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = app.Version
}

// loadConfig reads and validates the server configuration.
func loadConfig() (*config.Manager, error) {
	var opts []config.Option
	if rootFlags.configFile != "" {
		opts = append(opts, config.WithConfigFile(rootFlags.configFile))
	}
	manager, err := config.NewManager(opts...)
	if err != nil {
		return nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return manager, nil
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/physio-triage-server/internal/config"
	"github.com/physio-triage-server/internal/database"
	"github.com/physio-triage-server/internal/feedback"
)

var feedbackFlags struct {
	lite    bool
	dataDir string
	file    string
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Export or import clinician gating feedback",
}

var feedbackExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all feedback as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openFeedbackStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var w io.Writer = cmd.OutOrStdout()
		if feedbackFlags.file != "" {
			f, err := os.Create(feedbackFlags.file)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			defer f.Close()
			w = f
		}
		return store.ExportJSON(cmd.Context(), w)
	},
}

var feedbackImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import feedback from a JSON export, skipping entries that already exist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openFeedbackStore()
		if err != nil {
			return err
		}
		defer store.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()

		imported, skipped, err := store.ImportJSON(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", imported, skipped)
		return nil
	},
}

func init() {
	pf := feedbackCmd.PersistentFlags()
	pf.BoolVar(&feedbackFlags.lite, "lite", false, "Use the SQLite store of the lite MCP server")
	pf.StringVar(&feedbackFlags.dataDir, "data-dir", "", "Data directory for --lite (overrides TRIAGE_DATA_DIR)")
	feedbackExportCmd.Flags().StringVarP(&feedbackFlags.file, "file", "f", "", "Write to file instead of stdout")

	feedbackCmd.AddCommand(feedbackExportCmd)
	feedbackCmd.AddCommand(feedbackImportCmd)
}

func openFeedbackStore() (feedback.Store, error) {
	if feedbackFlags.lite {
		cfg := config.LoadLiteConfig()
		if feedbackFlags.dataDir != "" {
			cfg.DataDir = feedbackFlags.dataDir
		}
		if err := cfg.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return feedback.Open(cfg.FeedbackConfig(), "")
	}

	manager, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := manager.GetConfig()
	return feedback.Open(cfg.Feedback, database.ConfigFromDomain(cfg.Database).URL())
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/logging"
	"github.com/physio-triage-server/internal/service"
	"github.com/physio-triage-server/internal/triage"
)

var analyzeFlags struct {
	inputFormat  string
	outputFormat string
	policy       string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [screening-file]",
	Short: "Analyze a screening questionnaire",
	Long: `Analyze a screening read from a JSON or YAML file, or from stdin when the
file is omitted or "-".

Examples:
  triage analyze screening.json
  triage analyze screening.yaml -o yaml
  cat screening.json | triage analyze --policy sequential_overwrite`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.inputFormat, "input", "auto", "Input format: auto, json or yaml (auto uses the file extension, JSON for stdin)")
	f.StringVarP(&analyzeFlags.outputFormat, "output", "o", "json", "Output format: json or yaml")
	f.StringVar(&analyzeFlags.policy, "policy", string(triage.DefaultGatingPolicy), "Gating policy: monotonic_max or sequential_overwrite")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) > 0 {
		path = args[0]
	}

	data, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	input, err := parseScreening(data, inputFormat(analyzeFlags.inputFormat, path))
	if err != nil {
		return err
	}

	policy, err := triage.ParseGatingPolicy(analyzeFlags.policy)
	if err != nil {
		return err
	}

	logger, err := logging.New("warn", "text", "stderr")
	if err != nil {
		return err
	}
	svc := service.NewAnalysisService(logger, triage.New(triage.WithGatingPolicy(policy)))

	analysis, err := svc.Analyze(cmd.Context(), input)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), analysis, analyzeFlags.outputFormat)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading screening: %w", err)
	}
	return data, nil
}

func inputFormat(flag, path string) string {
	if flag != "auto" {
		return flag
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func parseScreening(data []byte, format string) (domain.ScreeningInput, error) {
	parser := domain.NewStandardScreeningParser()
	switch format {
	case "json":
		return parser.ParseJSON(data)
	case "yaml":
		return parser.ParseYAML(data)
	default:
		return domain.ScreeningInput{}, fmt.Errorf("unsupported input format %q (want json or yaml)", format)
	}
}

// writeOutput encodes v as indented JSON or as YAML with the JSON field names.
func writeOutput(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q (want json or yaml)", format)
	}
}

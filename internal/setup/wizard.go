package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Wizard walks a user through registering the server. It reads answers from in and writes
// prompts to out.
type Wizard struct {
	in  *bufio.Reader
	out io.Writer

	ConfigPath string
	Args       []string
}

// NewWizard creates a wizard over the given streams.
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{in: bufio.NewReader(in), out: out}
}

func (w *Wizard) ask(prompt, def string) string {
	if def != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", prompt, def)
	} else {
		fmt.Fprintf(w.out, "%s: ", prompt)
	}
	answer, _ := w.in.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def
	}
	return answer
}

func (w *Wizard) confirm(prompt string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	answer := strings.ToLower(w.ask(fmt.Sprintf("%s [%s]", prompt, hint), ""))
	if answer == "" {
		return def
	}
	return answer == "y" || answer == "yes"
}

// Run executes the interactive setup.
func (w *Wizard) Run() error {
	fmt.Fprintln(w.out, "Physio Triage MCP Server - Setup")
	fmt.Fprintln(w.out)

	// Step 1: Check current status
	status := GetStatus(w.ConfigPath)
	if status.Configured {
		fmt.Fprintf(w.out, "Already configured with binary %s\n", status.ServerPath)
		if !w.confirm("Reconfigure", false) {
			fmt.Fprintln(w.out, "Setup unchanged.")
			return nil
		}
	}

	// Step 2: Collect settings
	execPath, _ := os.Executable()
	binaryPath := w.ask("Server binary path", execPath)
	if _, err := os.Stat(binaryPath); err != nil {
		fmt.Fprintf(w.out, "Warning: binary not found at %s\n", binaryPath)
		if !w.confirm("Continue anyway", false) {
			return fmt.Errorf("setup cancelled")
		}
	}
	dataDir := w.ask("Data directory", GetDefaultDataDir())
	policy := w.ask("Gating policy (monotonic_max or sequential_overwrite)", "monotonic_max")

	// Step 3: Apply configuration
	configPath, err := ConfigureClaudeDesktop(Options{
		ConfigPath:   w.ConfigPath,
		BinaryPath:   binaryPath,
		Args:         w.Args,
		DataDir:      dataDir,
		GatingPolicy: policy,
	})
	if err != nil {
		return fmt.Errorf("failed to configure: %w", err)
	}
	if err := EnsureDataDir(dataDir); err != nil {
		fmt.Fprintf(w.out, "Warning: could not create data directory: %v\n", err)
	}

	fmt.Fprintln(w.out)
	fmt.Fprintf(w.out, "Configured %s in %s\n", ServerName, configPath)
	fmt.Fprintln(w.out, "Restart Claude Desktop, then ask it to analyze a screening.")
	return nil
}

// PrintStatus writes a human readable status report.
func PrintStatus(out io.Writer, status *Status) {
	mark := func(ok bool) string {
		if ok {
			return "ok"
		}
		return "missing"
	}

	fmt.Fprintln(out, "Claude Desktop:")
	fmt.Fprintf(out, "  Config path: %s\n", status.ClaudeDesktopPath)
	fmt.Fprintf(out, "  Registered:  %s\n", mark(status.Configured))
	if status.Configured {
		fmt.Fprintf(out, "  Binary:      %s %s\n", status.ServerPath, strings.Join(status.ServerArgs, " "))
	}

	fmt.Fprintln(out, "Data directory:")
	fmt.Fprintf(out, "  Path:        %s\n", status.DataDir)
	_, dirErr := os.Stat(status.DataDir)
	fmt.Fprintf(out, "  Exists:      %s\n", mark(dirErr == nil))
	_, dbErr := os.Stat(filepath.Join(status.DataDir, "feedback.db"))
	fmt.Fprintf(out, "  Feedback DB: %s\n", mark(dbErr == nil))

	if len(status.Issues) > 0 {
		fmt.Fprintln(out, "Issues:")
		for _, issue := range status.Issues {
			fmt.Fprintf(out, "  - %s\n", issue)
		}
	}
}

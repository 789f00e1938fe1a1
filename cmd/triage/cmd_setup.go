package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/physio-triage-server/internal/setup"
)

var setupFlags struct {
	configPath string
	binary     string
	args       []string
	dataDir    string
	policy     string
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Register the lite MCP server with Claude Desktop",
	Long: `Register the lite MCP server in the Claude Desktop configuration. Without a
subcommand an interactive wizard asks for the binary, data directory and
gating policy. Other servers and settings in the configuration are preserved.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := setup.NewWizard(cmd.InOrStdin(), cmd.OutOrStdout())
		w.ConfigPath = setupFlags.configPath
		w.Args = liteArgs()
		return w.Run()
	},
}

var setupClaudeDesktopCmd = &cobra.Command{
	Use:   "claude-desktop",
	Short: "Register the server without prompting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		binary := setupFlags.binary
		if binary == "" {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("could not determine executable path: %w", err)
			}
			binary = exe
		}

		if setupFlags.dataDir != "" {
			if err := setup.EnsureDataDir(setupFlags.dataDir); err != nil {
				return err
			}
		}

		path, err := setup.ConfigureClaudeDesktop(setup.Options{
			ConfigPath:   setupFlags.configPath,
			BinaryPath:   binary,
			Args:         setupFlags.args,
			DataDir:      setupFlags.dataDir,
			GatingPolicy: setupFlags.policy,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s\nRestart Claude Desktop to load it.\n", setup.ServerName, path)
		return nil
	},
}

var setupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current registration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		setup.PrintStatus(cmd.OutOrStdout(), setup.GetStatus(setupFlags.configPath))
	},
}

var setupValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the registration is usable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		valid, issues := setup.Validate(setupFlags.configPath)
		for _, issue := range issues {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", issue)
		}
		if !valid {
			return fmt.Errorf("setup is not valid")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Setup is valid")
		return nil
	},
}

func init() {
	setupCmd.PersistentFlags().StringVar(&setupFlags.configPath, "claude-config", "", "Claude Desktop config path (default: platform location)")

	f := setupClaudeDesktopCmd.Flags()
	f.StringVar(&setupFlags.binary, "binary", "", "Server binary to register (default: this executable)")
	f.StringSliceVar(&setupFlags.args, "args", liteArgs(), "Arguments passed to the binary")
	f.StringVar(&setupFlags.dataDir, "data-dir", "", "Data directory passed as TRIAGE_DATA_DIR")
	f.StringVar(&setupFlags.policy, "policy", "", "Gating policy passed as TRIAGE_GATING_POLICY")

	setupCmd.AddCommand(setupClaudeDesktopCmd)
	setupCmd.AddCommand(setupStatusCmd)
	setupCmd.AddCommand(setupValidateCmd)
}

// liteArgs are the arguments Claude Desktop passes when it launches this binary.
func liteArgs() []string {
	return []string{"mcp", "--lite"}
}

// Package setup registers the triage MCP server with Claude Desktop.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ServerName is the key of the server entry in the Claude Desktop configuration.
const ServerName = "physio-triage"

// DataDirEnv is the environment variable the lite server reads its data directory from.
const DataDirEnv = "TRIAGE_DATA_DIR"

// ClaudeDesktopConfig represents the Claude Desktop configuration file structure.
// Keys other than mcpServers are kept as read.
type ClaudeDesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	Other      map[string]json.RawMessage `json:"-"`
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for the setup process.
type Options struct {
	ConfigPath   string // Claude Desktop config file; empty selects the platform default
	BinaryPath   string // Path to the server binary
	Args         []string
	DataDir      string
	GatingPolicy string
}

// UnmarshalJSON keeps unknown top-level keys so saving does not drop other settings.
func (c *ClaudeDesktopConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.MCPServers = make(map[string]MCPServerConfig)
	if servers, ok := raw["mcpServers"]; ok {
		if err := json.Unmarshal(servers, &c.MCPServers); err != nil {
			return fmt.Errorf("mcpServers: %w", err)
		}
		delete(raw, "mcpServers")
	}
	c.Other = raw
	return nil
}

// MarshalJSON writes mcpServers alongside the preserved keys.
func (c ClaudeDesktopConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Other)+1)
	for k, v := range c.Other {
		out[k] = v
	}
	servers := c.MCPServers
	if servers == nil {
		servers = map[string]MCPServerConfig{}
	}
	out["mcpServers"] = servers
	return json.Marshal(out)
}

// GetClaudeDesktopConfigPath returns the path to Claude Desktop's config file.
func GetClaudeDesktopConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return GetClaudeDesktopConfigPath()
}

// LoadClaudeDesktopConfig loads the existing Claude Desktop configuration. A missing file yields an
// empty configuration.
func LoadClaudeDesktopConfig(configPath string) (*ClaudeDesktopConfig, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return &ClaudeDesktopConfig{MCPServers: make(map[string]MCPServerConfig)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ClaudeDesktopConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// SaveClaudeDesktopConfig saves the configuration to the Claude Desktop config file.
func SaveClaudeDesktopConfig(configPath string, config *ClaudeDesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigureClaudeDesktop adds or replaces the triage server entry and returns the config path.
func ConfigureClaudeDesktop(opts Options) (string, error) {
	configPath, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return "", err
	}

	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		return "", err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		if binaryPath, err = findBinary(); err != nil {
			return "", fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := MCPServerConfig{
		Command: binaryPath,
		Args:    opts.Args,
		Env:     make(map[string]string),
	}
	if opts.DataDir != "" {
		entry.Env[DataDirEnv] = opts.DataDir
	}
	if opts.GatingPolicy != "" {
		entry.Env["TRIAGE_GATING_POLICY"] = opts.GatingPolicy
	}
	config.MCPServers[ServerName] = entry

	if err := SaveClaudeDesktopConfig(configPath, config); err != nil {
		return "", err
	}
	return configPath, nil
}

// findBinary attempts to find the server binary in common locations.
func findBinary() (string, error) {
	const binaryName = "mcp-server-lite"

	if path, err := exec.LookPath(binaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + binaryName,
		"./build/" + binaryName,
		"/usr/local/bin/" + binaryName,
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".local", "bin", binaryName))
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}
	return "", fmt.Errorf("binary '%s' not found in common locations", binaryName)
}

// Status represents the current setup status.
type Status struct {
	ClaudeDesktopPath string
	Configured        bool
	ServerPath        string
	ServerArgs        []string
	DataDir           string
	Issues            []string
}

// GetStatus reports how the triage server is registered in the Claude Desktop config at
// configPath. Problems are collected in Issues rather than returned.
func GetStatus(configPath string) *Status {
	status := &Status{Issues: []string{}}

	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not determine Claude Desktop config path: %v", err))
		status.DataDir = GetDefaultDataDir()
		return status
	}
	status.ClaudeDesktopPath = configPath

	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not load Claude Desktop config: %v", err))
	} else if entry, ok := config.MCPServers[ServerName]; ok {
		status.Configured = true
		status.ServerPath = entry.Command
		status.ServerArgs = entry.Args
		status.DataDir = entry.Env[DataDirEnv]

		if _, err := os.Stat(entry.Command); err != nil {
			status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found at: %s", entry.Command))
		}
	}

	if status.DataDir == "" {
		status.DataDir = GetDefaultDataDir()
	}
	return status
}

// Validate checks if the current setup is usable. Issues that only warn, such as a data directory
// that will be created on first run, do not make it invalid.
func Validate(configPath string) (bool, []string) {
	status := GetStatus(configPath)
	issues := status.Issues
	valid := len(issues) == 0

	if !status.Configured && valid {
		issues = append(issues, "Physio triage server is not configured in Claude Desktop")
		valid = false
	}

	if status.Configured {
		if info, err := os.Stat(status.ServerPath); err == nil && info.Mode()&0o111 == 0 {
			issues = append(issues, fmt.Sprintf("Server binary is not executable: %s", status.ServerPath))
			valid = false
		}
	}

	if _, err := os.Stat(status.DataDir); errors.Is(err, fs.ErrNotExist) {
		issues = append(issues, fmt.Sprintf("Data directory will be created on first run: %s", status.DataDir))
	}
	return valid, issues
}

// GetDefaultDataDir returns the default data directory path.
func GetDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".physio-triage"
	}
	return filepath.Join(home, ".physio-triage")
}

// EnsureDataDir creates the data directory and its exports subdirectory.
func EnsureDataDir(dataDir string) error {
	if strings.TrimSpace(dataDir) == "" {
		dataDir = GetDefaultDataDir()
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "exports"), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Package config loads loom's project configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the workspace root when no explicit config
// path is given.
const DefaultFileName = "loom.yaml"

// Config is the project configuration.
type Config struct {
	// Include globs select the model files to analyze, relative to the
	// workspace root.
	Include []string `yaml:"include"`

	// Exclude globs filter matched files out.
	Exclude []string `yaml:"exclude,omitempty"`

	// RulesDir holds the Risor rule scripts, relative to the workspace root.
	RulesDir string `yaml:"rules_dir,omitempty"`

	// Severities overrides the reported severity per diagnostic kind, e.g.
	// "unresolved-import: warning". Valid values: error, warning, info, off.
	Severities map[string]string `yaml:"severities,omitempty"`

	// Export configures the SQLite snapshot export.
	Export ExportConfig `yaml:"export,omitempty"`

	// LSP configures the language server.
	LSP LSPConfig `yaml:"lsp,omitempty"`
}

// ExportConfig controls the snapshot export target.
type ExportConfig struct {
	Database string `yaml:"database,omitempty"`
}

// LSPConfig controls the language server.
type LSPConfig struct {
	// DebounceMillis delays re-analysis after a burst of edits.
	DebounceMillis int `yaml:"debounce_millis,omitempty"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Include: []string{"**/*.sysml", "**/*.kerml"},
		Export:  ExportConfig{Database: "loom.db"},
		LSP:     LSPConfig{DebounceMillis: 100},
	}
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads the config file from root if present, otherwise the
// defaults.
func LoadOrDefault(root string) (*Config, error) {
	path := filepath.Join(root, DefaultFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Save writes configuration to a YAML file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func validate(cfg *Config) error {
	if len(cfg.Include) == 0 {
		return fmt.Errorf("include patterns are required")
	}
	if cfg.LSP.DebounceMillis < 0 {
		return fmt.Errorf("lsp.debounce_millis must not be negative")
	}
	for kind, sev := range cfg.Severities {
		switch sev {
		case "error", "warning", "info", "off":
		default:
			return fmt.Errorf("severities[%s]: unknown severity %q", kind, sev)
		}
	}
	return nil
}

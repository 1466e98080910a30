package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileName is the base name of the config file searched for.
const FileName = "fbxflatten"

// Load loads configuration with priority: defaults < file < flags.
// fl may be nil when no command-line flags were registered.
func Load(fl *Flags) (*Config, error) {
	cfg := Default()

	// Explicit path takes priority over the search
	configPath := fl.configPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	fl.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	var candidates []string
	for _, dir := range []string{".", ConfigDir()} {
		for _, ext := range []string{".yaml", ".yml", ".toml"} {
			candidates = append(candidates, filepath.Join(dir, FileName+ext))
		}
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "FBXFlatten")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "FBXFlatten")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "fbxflatten")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "fbxflatten")
	}
}

// loadFromFile merges a YAML or TOML file into cfg. The format follows the
// file extension.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if isTOML(path) {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "ROUTESCOPE_CONFIG"
	// ConfigFileName is the config file name looked up in the working directory
	ConfigFileName = "routescope.yaml"
	// ConfigDirName is the config directory name under XDG and /etc
	ConfigDirName = "routescope"

	logFileName = "routescope.log"
)

// FindConfigPath searches for config file in priority order:
// 1. $ROUTESCOPE_CONFIG (explicit path)
// 2. ./routescope.yaml (working directory)
// 3. $XDG_CONFIG_HOME/routescope/config.yaml
// 4. ~/.config/routescope/config.yaml
// 5. /etc/routescope/config.yaml
//
// Returns empty string if no config file found
func FindConfigPath() string {
	for _, path := range configCandidates() {
		if !fileExists(path) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

func configCandidates() []string {
	var paths []string
	if path := os.Getenv(EnvConfigPath); path != "" {
		paths = append(paths, path)
	}
	paths = append(paths, ConfigFileName)
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// DefaultConfigPath returns the preferred location for a new config file.
// Prefers XDG config home, falls back to working directory.
func DefaultConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// DefaultLogFile returns where service mode writes its log when log_file is unset
func DefaultLogFile() string {
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, ConfigDirName, logFileName)
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".local", "state", ConfigDirName, logFileName)
	}
	return filepath.Join(os.TempDir(), logFileName)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

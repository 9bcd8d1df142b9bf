// Package paths resolves the default on-disk locations used by autoaccept.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const appName = "autoaccept"

// ConfigDir returns $XDG_CONFIG_HOME/autoaccept, falling back to ~/.config/autoaccept.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(homeDir(), ".config", appName)
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns $XDG_STATE_HOME/autoaccept, falling back to ~/.local/state/autoaccept.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(homeDir(), ".local", "state", appName)
}

// StateDB returns the default state database path.
func StateDB() string {
	return filepath.Join(StateDir(), "state.db")
}

// Expand resolves a leading ~ and cleans the path. Empty input returns fallback.
func Expand(path, fallback string) string {
	if path == "" {
		return fallback
	}
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		return filepath.Join(homeDir(), path[2:])
	}
	return filepath.Clean(path)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

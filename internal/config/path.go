package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns where the pebble backend keeps its database when
// store.dataDir is unset: $XDG_DATA_HOME/bee, then ~/.local/share/bee, then
// ./bee-data when no home directory is known.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "bee")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./bee-data"
	}
	return filepath.Join(homeDir, ".local", "share", "bee")
}

// ResolveDataDir returns cfg's data dir or the default.
func (c Config) ResolveDataDir() string {
	if c.Store.DataDir != "" {
		return c.Store.DataDir
	}
	return DefaultDataDir()
}

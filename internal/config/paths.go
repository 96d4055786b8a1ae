// Package config provides configuration loading and path management.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths contains the standard paths for sessionengine data.
type Paths struct {
	Data   string // ~/.local/share/sessionengine
	Config string // ~/.config/sessionengine
	Cache  string // ~/.cache/sessionengine
	State  string // ~/.local/state/sessionengine
}

// GetPaths returns the standard paths for sessionengine data.
func GetPaths() *Paths {
	return &Paths{
		Data:   filepath.Join(getEnvOrDefault("XDG_DATA_HOME", defaultDataHome()), "sessionengine"),
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", defaultConfigHome()), "sessionengine"),
		Cache:  filepath.Join(getEnvOrDefault("XDG_CACHE_HOME", defaultCacheHome()), "sessionengine"),
		State:  filepath.Join(getEnvOrDefault("XDG_STATE_HOME", defaultStateHome()), "sessionengine"),
	}
}

// EnsurePaths creates all required directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Data, p.Config, p.Cache, p.State} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// StoragePath returns the path to the state store directory: the root a
// file-backed Store walks, or the directory holding the sqlite-backed
// alternates' database files when Config.StoreBackend selects one of them.
func (p *Paths) StoragePath() string {
	return filepath.Join(p.Data, "storage")
}

// StateDBPath returns the database file a sqlite-backed Store opens when
// Config.StoreBackend is "sqlite". Unused when the default file backend is
// selected.
func (p *Paths) StateDBPath() string {
	return filepath.Join(p.StoragePath(), "state.db")
}

// CountersDBPath returns the database file the Janitor's daily-aggregate
// CounterStore opens, independent of Config.StoreBackend.
func (p *Paths) CountersDBPath() string {
	return filepath.Join(p.StoragePath(), "counters.db")
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultDataHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share")
}

func defaultConfigHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

func defaultCacheHome() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "cache")
	}
	return filepath.Join(os.Getenv("HOME"), ".cache")
}

func defaultStateHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state")
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	return filepath.Join(GetPaths().Config, "config.yaml")
}

// ProjectConfigPath returns the path to the project config file.
func ProjectConfigPath(directory string) string {
	return filepath.Join(directory, ".sessionengine", "config.yaml")
}

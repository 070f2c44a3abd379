package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appName = "benchtop"

type ResolvedPaths struct {
	ConfigDir   string
	StateDir    string
	CacheDir    string
	DatabaseDir string
	DBPath      string
	BackupDir   string
	ThemeFile   string
	LogFile     string
}

// ResolvePaths resolves the configured directories against base, usually
// the directory holding the config file. Unset directories fall back to
// the XDG state and cache homes.
func ResolvePaths(cfg *Config, base string) (ResolvedPaths, error) {
	if strings.TrimSpace(base) == "" {
		return ResolvedPaths{}, fmt.Errorf("base directory must not be empty")
	}

	stateDir := strings.TrimSpace(cfg.Paths.StateDir)
	if stateDir == "" {
		stateDir = DefaultStateDir()
	} else {
		stateDir = ResolveRelative(base, stateDir)
	}
	cacheDir := strings.TrimSpace(cfg.Paths.CacheDir)
	if cacheDir == "" {
		cacheDir = defaultCacheDir()
	} else {
		cacheDir = ResolveRelative(base, cacheDir)
	}
	databaseDir := stateDir
	if strings.TrimSpace(cfg.Paths.DatabaseDir) != "" {
		databaseDir = ResolveRelative(base, cfg.Paths.DatabaseDir)
	}

	logFile := strings.TrimSpace(cfg.UI.LogFile)
	if logFile == "" {
		logFile = filepath.Join(stateDir, appName+".log")
	} else {
		logFile = ResolveRelative(stateDir, logFile)
	}

	return ResolvedPaths{
		ConfigDir:   filepath.Clean(base),
		StateDir:    filepath.Clean(stateDir),
		CacheDir:    filepath.Clean(cacheDir),
		DatabaseDir: filepath.Clean(databaseDir),
		DBPath:      ResolveRelative(databaseDir, cfg.Store.Path),
		BackupDir:   ResolveRelative(stateDir, cfg.Store.BackupDir),
		ThemeFile:   filepath.Join(filepath.Clean(stateDir), "theme.toml"),
		LogFile:     logFile,
	}, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if strings.HasPrefix(raw, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, raw[2:])
		}
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// DefaultStateDir is $XDG_STATE_HOME/benchtop, or ~/.local/state/benchtop.
func DefaultStateDir() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), appName, "state")
	}
	return filepath.Join(home, ".local", "state", appName)
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(os.TempDir(), appName, "cache")
}

// DefaultConfigPath is $XDG_CONFIG_HOME/benchtop/benchtop.toml.
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, appName, appName+".toml")
	}
	return appName + ".toml"
}

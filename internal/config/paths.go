package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".remem"

const (
	defaultStateRel  = ".remem/auto-memory-state.json"
	defaultLogRel    = ".remem/session-checkpoints.ndjson"
	defaultRecallRel = ".remem/session-recalls.ndjson"
	defaultWrapRel   = ".remem/wrapper-state.json"
)

// DataDir returns the base per-user data directory for remem.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// SettingsPath returns the path to the optional settings file.
func SettingsPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "config.toml"), nil
}

// CodexHome returns the Codex CLI home directory, honoring CODEX_HOME.
func CodexHome() string {
	if override := os.Getenv("CODEX_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codex"
	}
	return filepath.Join(home, ".codex")
}

// resolvePath anchors raw under cwd unless it is already absolute; an empty
// raw falls back to the default relative path.
func resolvePath(cwd, raw, defaultRel string) string {
	if raw == "" {
		return filepath.Join(cwd, defaultRel)
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	return filepath.Join(cwd, raw)
}

package config

import (
	"errors"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Settings is the optional on-disk configuration file. Every field has an
// environment-variable override; the file only supplies defaults for values
// the environment leaves unset.
type Settings struct {
	API        APISettings        `toml:"api"`
	Checkpoint CheckpointSettings `toml:"checkpoint"`
	Summary    SummarySettings    `toml:"summary"`
	Logging    LoggingSettings    `toml:"logging"`
}

type APISettings struct {
	URL string `toml:"url"`
	Key string `toml:"key"`
}

type CheckpointSettings struct {
	IntervalSeconds int    `toml:"interval_seconds"`
	MinEvents       int    `toml:"min_events"`
	StateFile       string `toml:"state_file"`
	LogFile         string `toml:"log_file"`
}

type SummarySettings struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type LoggingSettings struct {
	Level string `toml:"level"`
}

// LoadSettings reads the settings file, returning zero-value settings when
// the file does not exist or is empty.
func LoadSettings() (Settings, error) {
	path, err := SettingsPath()
	if err != nil {
		return Settings{}, err
	}
	return loadSettingsFromPath(path)
}

func loadSettingsFromPath(path string) (Settings, error) {
	var settings Settings
	if err := readTOML(path, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

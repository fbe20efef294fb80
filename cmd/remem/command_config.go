package main

import (
	"flag"
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
)

type ConfigCommand struct {
	wiring commandWiring
}

func NewConfigCommand(wiring commandWiring) *ConfigCommand {
	return &ConfigCommand{wiring: wiring}
}

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
)

// configOutput is the effective configuration with the API key reduced
// to a presence flag so the command is safe to paste into bug reports.
type configOutput struct {
	Project            string `json:"project" toml:"project"`
	SessionID          string `json:"session_id,omitempty" toml:"session_id,omitempty"`
	APIURL             string `json:"api_url" toml:"api_url"`
	APIKeySet          bool   `json:"api_key_set" toml:"api_key_set"`
	Enabled            bool   `json:"enabled" toml:"enabled"`
	RollupOnSessionEnd bool   `json:"rollup_on_session_end" toml:"rollup_on_session_end"`
	IntervalSeconds    int    `json:"interval_seconds" toml:"interval_seconds"`
	MinEvents          int    `json:"min_events" toml:"min_events"`
	StatePath          string `json:"state_path" toml:"state_path"`
	LogPath            string `json:"log_path" toml:"log_path"`
	RecallPath         string `json:"recall_path" toml:"recall_path"`
	WrapPath           string `json:"wrap_path" toml:"wrap_path"`
	LogLevel           string `json:"log_level" toml:"log_level"`

	Summary configSummaryOutput `json:"summary" toml:"summary"`
}

type configSummaryOutput struct {
	Enabled        bool   `json:"enabled" toml:"enabled"`
	Provider       string `json:"provider,omitempty" toml:"provider,omitempty"`
	Model          string `json:"model,omitempty" toml:"model,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds" toml:"timeout_seconds"`
	MaxTokens      int    `json:"max_tokens" toml:"max_tokens"`
	HeadLines      int    `json:"head_lines" toml:"head_lines"`
	TailLines      int    `json:"tail_lines" toml:"tail_lines"`
	MaxMessages    int    `json:"max_messages" toml:"max_messages"`
	MaxChars       int    `json:"max_chars" toml:"max_chars"`
	ScanLimit      int    `json:"scan_limit" toml:"scan_limit"`
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	format := fs.String("format", configFormatTOML, "output format: toml or json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cwd, err := c.wiring.getwd()
	if err != nil {
		return err
	}
	cfg := c.wiring.loadConfig(cwd, "")

	out := configOutput{
		Project:            cfg.Project,
		SessionID:          cfg.SessionID,
		APIURL:             cfg.APIURL,
		APIKeySet:          cfg.APIKey != "",
		Enabled:            cfg.Enabled,
		RollupOnSessionEnd: cfg.RollupOnSessionEnd,
		IntervalSeconds:    cfg.IntervalSeconds,
		MinEvents:          cfg.MinEvents,
		StatePath:          cfg.StatePath,
		LogPath:            cfg.LogPath,
		RecallPath:         cfg.RecallPath,
		WrapPath:           cfg.WrapPath,
		LogLevel:           cfg.LogLevel,
		Summary: configSummaryOutput{
			Enabled:        cfg.Summary.Enabled,
			Provider:       cfg.Summary.Provider,
			Model:          cfg.Summary.Model,
			TimeoutSeconds: cfg.Summary.TimeoutSeconds,
			MaxTokens:      cfg.Summary.MaxTokens,
			HeadLines:      cfg.Summary.HeadLines,
			TailLines:      cfg.Summary.TailLines,
			MaxMessages:    cfg.Summary.MaxMessages,
			MaxChars:       cfg.Summary.MaxChars,
			ScanLimit:      cfg.Summary.ScanLimit,
		},
	}

	switch *format {
	case configFormatJSON:
		return printJSON(c.wiring.stdout, out)
	case configFormatTOML:
		encoded, err := toml.Marshal(out)
		if err != nil {
			return err
		}
		_, err = c.wiring.stdout.Write(encoded)
		return err
	default:
		return fmt.Errorf("invalid format %q (toml, json)", *format)
	}
}

package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REMEM_MEMORY_PROJECT", "")
	t.Setenv("REMEM_MEMORY_SESSION_ID", "")

	cfg := load(dir, "abc-123", Settings{})

	if cfg.SessionID != "abc-123" {
		t.Fatalf("session id: got %q", cfg.SessionID)
	}
	if cfg.Project != filepath.Base(dir) {
		t.Fatalf("project: got %q", cfg.Project)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("api url: got %q", cfg.APIURL)
	}
	if cfg.IntervalSeconds != DefaultIntervalSeconds {
		t.Fatalf("interval: got %d", cfg.IntervalSeconds)
	}
	if cfg.MinEvents != DefaultMinEvents {
		t.Fatalf("min events: got %d", cfg.MinEvents)
	}
	if cfg.StatePath != filepath.Join(dir, defaultStateRel) {
		t.Fatalf("state path: got %q", cfg.StatePath)
	}
	if !cfg.Enabled || !cfg.RollupOnSessionEnd || !cfg.Summary.Enabled {
		t.Fatalf("expected feature toggles on by default")
	}
}

func TestLoadEnvOverridesSettings(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REMEM_API_URL", "https://remem.example.com/")
	t.Setenv("REMEM_MEMORY_MIN_EVENTS", "9")

	settings := Settings{
		API:        APISettings{URL: "https://settings.example.com"},
		Checkpoint: CheckpointSettings{MinEvents: 2, IntervalSeconds: 60},
	}
	cfg := load(dir, "s", settings)

	if cfg.APIURL != "https://remem.example.com" {
		t.Fatalf("expected env url with trailing slash trimmed, got %q", cfg.APIURL)
	}
	if cfg.MinEvents != 9 {
		t.Fatalf("expected env min events, got %d", cfg.MinEvents)
	}
	if cfg.IntervalSeconds != 60 {
		t.Fatalf("expected settings interval, got %d", cfg.IntervalSeconds)
	}
}

func TestLoadMalformedValuesFallBack(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REMEM_MEMORY_INTERVAL_SECONDS", "not-a-number")
	t.Setenv("REMEM_MEMORY_MIN_EVENTS", "0")
	t.Setenv("REMEM_MEMORY_AUTO_ENABLED", "off")

	cfg := load(dir, "s", Settings{})

	if cfg.IntervalSeconds != DefaultIntervalSeconds {
		t.Fatalf("interval fallback: got %d", cfg.IntervalSeconds)
	}
	if cfg.MinEvents != DefaultMinEvents {
		t.Fatalf("min events fallback: got %d", cfg.MinEvents)
	}
	if cfg.Enabled {
		t.Fatalf("expected auto capture disabled")
	}
}

func TestSessionIDEnvOverride(t *testing.T) {
	t.Setenv("REMEM_MEMORY_SESSION_ID", "forced-session")
	cfg := load(t.TempDir(), "payload-session", Settings{})
	if cfg.SessionID != "forced-session" {
		t.Fatalf("expected env session id, got %q", cfg.SessionID)
	}
}

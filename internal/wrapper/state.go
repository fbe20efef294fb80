package wrapper

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// stateFile is the wrapper's on-disk status record. Other tooling polls
// it to tell whether a wrapped session is still running.
type stateFile struct {
	Project            string `json:"project"`
	SessionID          string `json:"session_id"`
	StartedAt          string `json:"started_at"`
	EndedAt            string `json:"ended_at,omitempty"`
	Cwd                string `json:"cwd"`
	IntervalSeconds    int    `json:"interval_seconds"`
	IngestEnabled      bool   `json:"ingest_enabled"`
	InGitRepo          bool   `json:"in_git_repo"`
	SummaryEnabled     bool   `json:"summary_enabled"`
	TranscriptPath     string `json:"transcript_path"`
	CheckpointsCreated *int   `json:"checkpoints_created,omitempty"`
	CodexExitCode      *int   `json:"codex_exit_code,omitempty"`
	Active             bool   `json:"active"`
}

func writeStateFile(path string, st stateFile) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	file, err := os.CreateTemp(dir, ".tmp-wrapper-*.json")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(file.Name())
	}()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(st); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(file.Name(), path)
}

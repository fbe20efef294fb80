// Package types holds the data shapes shared across the checkpoint
// pipeline: persisted session state, structured summaries, ingestion
// documents, and audit log records.
package types

import "time"

// Kind classifies why a checkpoint was taken.
type Kind string

const (
	KindInterval  Kind = "interval"
	KindMilestone Kind = "milestone"
	KindFinal     Kind = "final"
	KindManual    Kind = "manual"
)

// RecentEventLimit bounds the rolling activity window kept in state.
const RecentEventLimit = 30

// ActivityEvent is one observed tool invocation.
type ActivityEvent struct {
	Timestamp float64  `json:"ts"`
	Tool      string   `json:"tool"`
	Summary   string   `json:"summary,omitempty"`
	Files     []string `json:"files,omitempty"`
}

// SessionState is the per-session accumulator persisted between hook
// invocations. Epochs are float seconds to stay readable alongside older
// state files.
type SessionState struct {
	SessionID             string          `json:"session_id"`
	Project               string          `json:"project,omitempty"`
	LastCheckpointEpoch   float64         `json:"last_checkpoint_epoch"`
	EventsSinceCheckpoint int             `json:"events_since_checkpoint"`
	RecentEvents          []ActivityEvent `json:"recent_events"`
	CheckpointsCreated    int             `json:"checkpoints_created"`
	LastRollupEpoch       float64         `json:"last_rollup_epoch,omitempty"`
	TranscriptPath        string          `json:"transcript_path,omitempty"`
}

// AppendEvent records one tool invocation, trimming the rolling window.
func (s *SessionState) AppendEvent(event ActivityEvent) {
	s.RecentEvents = append(s.RecentEvents, event)
	if len(s.RecentEvents) > RecentEventLimit {
		s.RecentEvents = s.RecentEvents[len(s.RecentEvents)-RecentEventLimit:]
	}
	s.EventsSinceCheckpoint++
}

// ResetAfterCheckpoint clears the accumulator after a checkpoint lands.
func (s *SessionState) ResetAfterCheckpoint(now time.Time) {
	s.LastCheckpointEpoch = float64(now.Unix())
	s.EventsSinceCheckpoint = 0
	s.RecentEvents = nil
	s.CheckpointsCreated++
}

// StructuredSummary is the model-produced digest of session activity.
// All fields are optional; a zero value means the model contributed
// nothing and the caller falls back to a templated summary.
type StructuredSummary struct {
	Summary       string   `json:"summary"`
	Decisions     []string `json:"decisions,omitempty"`
	OpenQuestions []string `json:"open_questions,omitempty"`
	NextActions   []string `json:"next_actions,omitempty"`
	FilesTouched  []string `json:"files_touched,omitempty"`
}

// IsZero reports whether the model produced nothing usable.
func (s StructuredSummary) IsZero() bool {
	return s.Summary == "" && len(s.Decisions) == 0 && len(s.OpenQuestions) == 0 &&
		len(s.NextActions) == 0 && len(s.FilesTouched) == 0
}

// Document is the payload shipped to the memory service ingest endpoint.
type Document struct {
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Source     string         `json:"source,omitempty"`
	SourceID   string         `json:"source_id,omitempty"`
	SourcePath string         `json:"source_path,omitempty"`
	MimeType   string         `json:"mime_type,omitempty"`
	ReturnID   bool           `json:"return_id,omitempty"`
}

// Audit log event names.
const (
	AuditEventCheckpoint = "auto_checkpoint"
	AuditEventRollup     = "auto_rollup"
)

// AuditRecord is one line of the local checkpoint audit log.
type AuditRecord struct {
	Timestamp float64        `json:"ts"`
	Event     string         `json:"event"`
	Payload   *Document      `json:"payload,omitempty"`
	Response  map[string]any `json:"response,omitempty"`
}

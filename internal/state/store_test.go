package state

import (
	"os"
	"path/filepath"
	"testing"

	"remem/internal/types"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	state := store.Load("s1")
	if state.SessionID != "s1" {
		t.Fatalf("session id: got %q", state.SessionID)
	}
	if state.EventsSinceCheckpoint != 0 || len(state.RecentEvents) != 0 {
		t.Fatalf("expected empty default state, got %+v", state)
	}
}

func TestLoadMalformedFileReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	state := NewStore(path).Load("s1")
	if state.SessionID != "s1" || state.EventsSinceCheckpoint != 0 {
		t.Fatalf("expected default state, got %+v", state)
	}
}

func TestLoadSessionMismatchReturnsDefault(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	stale := &types.SessionState{SessionID: "old", EventsSinceCheckpoint: 7}
	if err := store.Save(stale); err != nil {
		t.Fatalf("save: %v", err)
	}

	state := store.Load("new")
	if state.SessionID != "new" {
		t.Fatalf("session id: got %q", state.SessionID)
	}
	if state.EventsSinceCheckpoint != 0 {
		t.Fatalf("stale counters must not carry over, got %d", state.EventsSinceCheckpoint)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "state.json"))
	state := &types.SessionState{
		SessionID:             "s1",
		Project:               "demo",
		EventsSinceCheckpoint: 3,
		TranscriptPath:        "/tmp/transcript.jsonl",
	}
	state.AppendEvent(types.ActivityEvent{Tool: "Write", Summary: "Write a.py", Files: []string{"a.py"}})

	if err := store.Save(state); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded := store.Load("s1")
	if loaded.Project != "demo" || loaded.EventsSinceCheckpoint != 4 {
		t.Fatalf("round trip: %+v", loaded)
	}
	if len(loaded.RecentEvents) != 1 || loaded.RecentEvents[0].Tool != "Write" {
		t.Fatalf("events: %+v", loaded.RecentEvents)
	}
}

func TestAppendEventTrimsWindow(t *testing.T) {
	state := &types.SessionState{SessionID: "s1"}
	for i := 0; i < types.RecentEventLimit+10; i++ {
		state.AppendEvent(types.ActivityEvent{Tool: "Bash"})
	}
	if len(state.RecentEvents) != types.RecentEventLimit {
		t.Fatalf("window size: got %d", len(state.RecentEvents))
	}
	if state.EventsSinceCheckpoint != types.RecentEventLimit+10 {
		t.Fatalf("counter should not be capped, got %d", state.EventsSinceCheckpoint)
	}
}

func TestWithLockReleasesOnError(t *testing.T) {
	lock := NewLock(filepath.Join(t.TempDir(), "state.json.lock"))
	if err := lock.WithLock(func() error { return os.ErrInvalid }); err == nil {
		t.Fatalf("expected error from fn")
	}
	// Re-acquiring proves the first hold was released.
	done := make(chan struct{})
	go func() {
		defer close(done)
		release, err := lock.Acquire()
		if err != nil {
			t.Errorf("re-acquire: %v", err)
			return
		}
		release()
		release() // safe to call twice
	}()
	<-done
}

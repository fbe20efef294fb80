package checkpoint

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"remem/internal/config"
	"remem/internal/gitinfo"
	"remem/internal/logging"
	"remem/internal/summary"
	"remem/internal/types"
)

type stubSummarizer struct {
	checkpoint summary.Result
	rollup     summary.Result
	lastInput  summary.CheckpointInput
}

func (s *stubSummarizer) Checkpoint(ctx context.Context, in summary.CheckpointInput) summary.Result {
	s.lastInput = in
	return s.checkpoint
}

func (s *stubSummarizer) Rollup(ctx context.Context, in summary.RollupInput) summary.Result {
	return s.rollup
}

func noGit() *gitinfo.Git {
	return gitinfo.NewWithRunner(func(dir string, args ...string) (string, error) {
		return "", errors.New("no git")
	})
}

func testConfig() config.Config {
	return config.Config{
		Cwd:       "/work/proj",
		Project:   "proj",
		SessionID: "sess-1",
	}
}

func testBuilder(gen Summarizer) *Builder {
	b := NewBuilder(testConfig(), noGit(), gen, logging.Nop())
	b.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	return b
}

func stateWithEvents() *types.SessionState {
	state := &types.SessionState{SessionID: "sess-1", Project: "proj"}
	state.AppendEvent(types.ActivityEvent{Tool: "Write", Summary: "Write a.py", Files: []string{"a.py"}})
	state.AppendEvent(types.ActivityEvent{Tool: "Edit", Summary: "Edit b.py", Files: []string{"b.py"}})
	state.AppendEvent(types.ActivityEvent{Tool: "Write", Summary: "Write a.py", Files: []string{"a.py"}})
	state.AppendEvent(types.ActivityEvent{Tool: "Bash", Summary: "Bash pytest"})
	return state
}

func TestBuildTemplatedFallback(t *testing.T) {
	gen := &stubSummarizer{checkpoint: summary.Result{Status: summary.StatusInvalid}}
	doc := testBuilder(gen).Build(context.Background(), types.KindInterval, "PostToolUse", stateWithEvents())

	if doc.Title != "proj | sess-1 | interval checkpoint (auto)" {
		t.Fatalf("title = %q", doc.Title)
	}
	wantSummary := "Automatic interval checkpoint after 4 tool events. Recent files: a.py, b.py."
	if got := doc.Metadata["summary"]; got != wantSummary {
		t.Fatalf("summary = %q, want %q", got, wantSummary)
	}
	if !strings.Contains(doc.Content, wantSummary) {
		t.Fatalf("content missing fallback summary:\n%s", doc.Content)
	}
	// Model-only sections are omitted when the model contributed nothing.
	for _, heading := range []string{"## Decisions", "## Open Questions", "## Next Actions"} {
		if strings.Contains(doc.Content, heading) {
			t.Fatalf("unexpected section %q in fallback document", heading)
		}
	}
	if _, present := doc.Metadata["llm_summary_provider"]; present {
		t.Fatal("fallback document must not carry model provenance")
	}
}

func TestBuildFilesTouchedDedupedInOrder(t *testing.T) {
	gen := &stubSummarizer{checkpoint: summary.Result{Status: summary.StatusUnavailable}}
	doc := testBuilder(gen).Build(context.Background(), types.KindInterval, "PostToolUse", stateWithEvents())

	files, ok := doc.Metadata["files_touched"].([]string)
	if !ok || len(files) != 2 || files[0] != "a.py" || files[1] != "b.py" {
		t.Fatalf("files_touched = %v", doc.Metadata["files_touched"])
	}
}

func TestBuildStructuredSummary(t *testing.T) {
	gen := &stubSummarizer{checkpoint: summary.Result{
		Status:   summary.StatusOK,
		Provider: summary.ProviderClaudeCLI,
		Model:    "haiku",
		Summary: types.StructuredSummary{
			Summary:     "Refactored the parser and fixed two edge cases.",
			Decisions:   []string{"keep the lexer hand-written"},
			NextActions: []string{"profile large inputs"},
		},
	}}
	doc := testBuilder(gen).Build(context.Background(), types.KindMilestone, "TaskCompleted", stateWithEvents())

	if got := doc.Metadata["summary"]; got != "Refactored the parser and fixed two edge cases." {
		t.Fatalf("summary = %q", got)
	}
	if !strings.Contains(doc.Content, "## Decisions\n- keep the lexer hand-written") {
		t.Fatalf("decisions section missing:\n%s", doc.Content)
	}
	if doc.Metadata["llm_summary_provider"] != "claude-cli" || doc.Metadata["llm_summary_model"] != "haiku" {
		t.Fatalf("provenance metadata: %v", doc.Metadata)
	}
	// Open questions were empty and must not produce a section.
	if strings.Contains(doc.Content, "## Open Questions") {
		t.Fatal("empty list produced a section")
	}
}

func TestBuildZeroEventMilestone(t *testing.T) {
	gen := &stubSummarizer{checkpoint: summary.Result{Status: summary.StatusUnavailable}}
	state := &types.SessionState{SessionID: "sess-1"}
	doc := testBuilder(gen).Build(context.Background(), types.KindMilestone, "PreCompact", state)

	want := "Automatic milestone checkpoint triggered by PreCompact. Recent files: none."
	if got := doc.Metadata["summary"]; got != want {
		t.Fatalf("summary = %q", got)
	}
}

func TestBuildSourceIDAndTags(t *testing.T) {
	gen := &stubSummarizer{checkpoint: summary.Result{Status: summary.StatusUnavailable}}
	doc := testBuilder(gen).Build(context.Background(), types.KindInterval, "PostToolUse", stateWithEvents())

	if strings.ContainsAny(doc.SourceID, ":-") {
		t.Fatalf("source id keeps separators: %q", doc.SourceID)
	}
	if !strings.HasPrefix(doc.SourceID, "autocheckpoint") {
		t.Fatalf("source id = %q", doc.SourceID)
	}
	tags, ok := doc.Metadata["tags"].([]string)
	if !ok {
		t.Fatalf("tags: %v", doc.Metadata["tags"])
	}
	joined := strings.Join(tags, " ")
	for _, want := range []string{"memory:checkpoint", "memory:auto", "project:proj", "session:sess-1", "checkpoint:interval"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("tags missing %q: %v", want, tags)
		}
	}
	if doc.Source != "quick_capture" || doc.MimeType != "text/markdown" {
		t.Fatalf("source/mime: %q %q", doc.Source, doc.MimeType)
	}
}

func TestSlug(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My Project", "my-project"},
		{"remem_v2.1", "remem_v2.1"},
		{"a//b??c", "a-b-c"},
		{"  ", "unknown"},
		{"", "unknown"},
		{strings.Repeat("x", 200), strings.Repeat("x", 120)},
	}
	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Fatalf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildManual(t *testing.T) {
	doc := BuildManual(ManualInput{
		Project:      "proj",
		SessionID:    "sess-1",
		Kind:         types.KindManual,
		Summary:      "Wrapped up the migration.",
		Decisions:    []string{"use batched writes"},
		FilesTouched: []string{"db/migrate.go"},
		RepoRoot:     "/work/proj",
		Branch:       "main",
		ReturnID:     true,
	}, nil, time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))

	if doc.Title != "proj | sess-1 | manual checkpoint" {
		t.Fatalf("title = %q", doc.Title)
	}
	if !strings.HasPrefix(doc.Content, "# Coding Session Checkpoint\n") {
		t.Fatalf("content header:\n%s", doc.Content)
	}
	if !strings.Contains(doc.Content, "- Branch: main") {
		t.Fatalf("branch missing:\n%s", doc.Content)
	}
	if !doc.ReturnID {
		t.Fatal("return_id not carried")
	}
	const prefix = "checkpoint:proj:sess-1:manual:"
	if !strings.HasPrefix(doc.SourceID, prefix) {
		t.Fatalf("source id = %q", doc.SourceID)
	}
	if stamp := doc.SourceID[len(prefix):]; strings.ContainsAny(stamp, "-:") {
		t.Fatalf("timestamp not compacted: %q", stamp)
	}
}

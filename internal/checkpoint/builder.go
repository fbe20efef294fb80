// Package checkpoint assembles the markdown documents shipped to the
// memory service: per-checkpoint captures and the end-of-session rollup.
package checkpoint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"remem/internal/config"
	"remem/internal/gitinfo"
	"remem/internal/logging"
	"remem/internal/summary"
	"remem/internal/transcript"
	"remem/internal/types"
)

const (
	recentActivityLimit = 8
	recentFilesInline   = 5
	sourceIDMaxLen      = 200
)

// Summarizer produces structured summaries; satisfied by
// summary.Generator.
type Summarizer interface {
	Checkpoint(ctx context.Context, in summary.CheckpointInput) summary.Result
	Rollup(ctx context.Context, in summary.RollupInput) summary.Result
}

// Builder turns accumulated session state into ingest documents. The
// structured summary comes from the generator when a provider produces
// one; otherwise a templated summary keeps the document useful.
type Builder struct {
	cfg config.Config
	git *gitinfo.Git
	gen Summarizer
	log logging.Logger
	now func() time.Time
}

func NewBuilder(cfg config.Config, git *gitinfo.Git, gen Summarizer, log logging.Logger) *Builder {
	if log == nil {
		log = logging.Nop()
	}
	return &Builder{cfg: cfg, git: git, gen: gen, log: log, now: time.Now}
}

func (b *Builder) timestamp() string {
	return b.now().UTC().Format(time.RFC3339)
}

// Build assembles one checkpoint document from the current session state.
func (b *Builder) Build(ctx context.Context, kind types.Kind, hookEvent string, state *types.SessionState) *types.Document {
	timestamp := b.timestamp()
	projectSlug := Slug(b.cfg.Project)
	sessionSlug := Slug(b.cfg.SessionID)

	var files []string
	var activity []string
	for _, event := range state.RecentEvents {
		files = append(files, event.Files...)
		activity = append(activity, strings.TrimSpace(event.Summary))
	}
	files = summary.Dedupe(files)
	activity = summary.Dedupe(activity)
	if len(activity) > recentActivityLimit {
		activity = activity[:recentActivityLimit]
	}

	summaryText := b.fallbackSummary(kind, hookEvent, state.EventsSinceCheckpoint, files)
	var decisions, openQuestions, nextActions []string
	llmMeta := map[string]any{}

	result := b.gen.Checkpoint(ctx, summary.CheckpointInput{
		Project:        b.cfg.Project,
		SessionID:      b.cfg.SessionID,
		Kind:           kind,
		Trigger:        hookEvent,
		FilesTouched:   files,
		RecentActivity: activity,
		Excerpt:        transcript.Excerpt(state.TranscriptPath, b.budgets()),
	})
	if result.Status == summary.StatusOK {
		summaryText = result.Summary.Summary
		decisions = result.Summary.Decisions
		openQuestions = result.Summary.OpenQuestions
		nextActions = result.Summary.NextActions
		llmMeta["llm_summary_provider"] = string(result.Provider)
		llmMeta["llm_summary_model"] = result.Model
	} else if result.Status != summary.StatusUnavailable {
		b.log.Debug("structured summary skipped", logging.F("status", result.Status.String()))
	}

	branch := b.git.Branch(b.cfg.Cwd)
	if branch == "" {
		branch = "unknown"
	}

	lines := []string{
		"# Coding Session Checkpoint (Auto)",
		"- Project: " + b.cfg.Project,
		"- Session: " + b.cfg.SessionID,
		"- Kind: " + string(kind),
		"- Timestamp: " + timestamp,
		"- Branch: " + branch,
		"- Repo: " + b.cfg.Cwd,
		"- Trigger: " + hookEvent,
		"",
		"## Summary",
		summaryText,
		"",
	}
	lines = appendSection(lines, "## Files Touched", files)
	lines = appendSection(lines, "## Recent Activity", activity)
	lines = appendSection(lines, "## Decisions", decisions)
	lines = appendSection(lines, "## Open Questions", openQuestions)
	lines = appendSection(lines, "## Next Actions", nextActions)

	metadata := map[string]any{
		"project":         b.cfg.Project,
		"session_id":      b.cfg.SessionID,
		"checkpoint_kind": string(kind),
		"timestamp":       timestamp,
		"repo_root":       b.cfg.Cwd,
		"files_touched":   files,
		"summary":         summaryText,
		"decisions":       decisions,
		"open_questions":  openQuestions,
		"next_actions":    nextActions,
		"tags": []string{
			"memory:checkpoint",
			"memory:auto",
			"project:" + projectSlug,
			"session:" + sessionSlug,
			"checkpoint:" + string(kind),
		},
		"automation": "claude-hook",
		"hook_event": hookEvent,
	}
	for key, value := range llmMeta {
		metadata[key] = value
	}

	return &types.Document{
		Title:      fmt.Sprintf("%s | %s | %s checkpoint (auto)", b.cfg.Project, b.cfg.SessionID, kind),
		Content:    strings.TrimSpace(strings.Join(lines, "\n")),
		Metadata:   metadata,
		Source:     "quick_capture",
		SourceID:   autoSourceID("auto-checkpoint:" + projectSlug + ":" + sessionSlug + ":" + string(kind) + ":" + timestamp),
		SourcePath: b.cfg.Cwd,
		MimeType:   "text/markdown",
	}
}

func (b *Builder) fallbackSummary(kind types.Kind, hookEvent string, events int, files []string) string {
	inline := "none"
	if len(files) > 0 {
		shown := files
		if len(shown) > recentFilesInline {
			shown = shown[:recentFilesInline]
		}
		inline = strings.Join(shown, ", ")
	}
	if events > 0 {
		return fmt.Sprintf("Automatic %s checkpoint after %d tool events. Recent files: %s.", kind, events, inline)
	}
	return fmt.Sprintf("Automatic %s checkpoint triggered by %s. Recent files: %s.", kind, hookEvent, inline)
}

func (b *Builder) budgets() transcript.Budgets {
	return transcript.Budgets{
		HeadLines:   b.cfg.Summary.HeadLines,
		TailLines:   b.cfg.Summary.TailLines,
		MaxMessages: b.cfg.Summary.MaxMessages,
		MaxChars:    b.cfg.Summary.MaxChars,
	}
}

func appendSection(lines []string, heading string, items []string) []string {
	if len(items) == 0 {
		return lines
	}
	lines = append(lines, heading)
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return append(lines, "")
}

// autoSourceID strips separators so the id stays a single opaque token.
func autoSourceID(raw string) string {
	id := strings.NewReplacer(":", "", "-", "").Replace(raw)
	if len(id) > sourceIDMaxLen {
		id = id[:sourceIDMaxLen]
	}
	return id
}

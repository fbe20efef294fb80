package checkpoint

import (
	"fmt"
	"strings"
	"time"

	"remem/internal/gitinfo"
	"remem/internal/types"
)

// ManualInput holds operator-supplied checkpoint material from the CLI.
type ManualInput struct {
	Project       string
	SessionID     string
	Kind          types.Kind
	Title         string
	Summary       string
	Decisions     []string
	OpenQuestions []string
	NextActions   []string
	FilesTouched  []string
	RepoRoot      string
	Branch        string
	Source        string
	SourcePath    string
	ReturnID      bool
}

// BuildManual assembles a checkpoint document straight from CLI input,
// with no trigger policy or model call involved.
func BuildManual(in ManualInput, git *gitinfo.Git, now time.Time) *types.Document {
	timestamp := now.UTC().Format(time.RFC3339)
	projectSlug := Slug(in.Project)
	sessionSlug := Slug(in.SessionID)

	branch := in.Branch
	if branch == "" && git != nil {
		branch = git.Branch(in.RepoRoot)
	}
	branchLabel := branch
	if branchLabel == "" {
		branchLabel = "unknown"
	}

	lines := []string{
		"# Coding Session Checkpoint",
		"- Project: " + in.Project,
		"- Session: " + in.SessionID,
		"- Kind: " + string(in.Kind),
		"- Timestamp: " + timestamp,
		"- Branch: " + branchLabel,
		"- Repo: " + in.RepoRoot,
		"",
	}
	if in.Summary != "" {
		lines = append(lines, "## Summary", in.Summary, "")
	}
	lines = appendSection(lines, "## Files Touched", in.FilesTouched)
	lines = appendSection(lines, "## Decisions", in.Decisions)
	lines = appendSection(lines, "## Open Questions", in.OpenQuestions)
	lines = appendSection(lines, "## Next Actions", in.NextActions)

	title := in.Title
	if title == "" {
		title = fmt.Sprintf("%s | %s | %s checkpoint", in.Project, in.SessionID, in.Kind)
	}
	source := in.Source
	if source == "" {
		source = "quick_capture"
	}
	sourcePath := in.SourcePath
	if sourcePath == "" {
		sourcePath = in.RepoRoot
	}

	sourceID := "checkpoint:" + projectSlug + ":" + sessionSlug + ":" + string(in.Kind) + ":" + compactTimestamp(timestamp)
	if len(sourceID) > sourceIDMaxLen {
		sourceID = sourceID[:sourceIDMaxLen]
	}

	return &types.Document{
		Title:   title,
		Content: strings.TrimSpace(strings.Join(lines, "\n")),
		Metadata: map[string]any{
			"project":         in.Project,
			"session_id":      in.SessionID,
			"checkpoint_kind": string(in.Kind),
			"timestamp":       timestamp,
			"summary":         in.Summary,
			"branch":          branch,
			"repo_root":       in.RepoRoot,
			"files_touched":   in.FilesTouched,
			"decisions":       in.Decisions,
			"open_questions":  in.OpenQuestions,
			"next_actions":    in.NextActions,
			"tags": []string{
				"memory:checkpoint",
				"project:" + projectSlug,
				"session:" + sessionSlug,
				"checkpoint:" + string(in.Kind),
			},
		},
		Source:     source,
		SourceID:   sourceID,
		SourcePath: sourcePath,
		MimeType:   "text/markdown",
		ReturnID:   in.ReturnID,
	}
}

// compactTimestamp strips separators the way ingest source ids expect.
func compactTimestamp(timestamp string) string {
	return strings.NewReplacer("-", "", ":", "", "+00:00", "z", "Z", "z").Replace(timestamp)
}

// ManualRollupInput holds operator-supplied rollup material from the CLI.
type ManualRollupInput struct {
	Project    string
	SessionID  string
	Kind       types.Kind
	Title      string
	Summary    string
	Source     string
	SourcePath string
	ReturnID   bool
}

// BuildManualRollup consolidates checkpoint records into a rollup document
// without calling a model. The summary paragraph comes from the caller;
// section lists are harvested from the records themselves.
func BuildManualRollup(in ManualRollupInput, records []types.AuditRecord, now time.Time) *types.Document {
	timestamp := now.UTC().Format(time.RFC3339)
	projectSlug := Slug(in.Project)
	sessionSlug := Slug(in.SessionID)

	kind := in.Kind
	if kind == "" {
		kind = types.KindFinal
	}
	summaryText := strings.TrimSpace(in.Summary)
	if summaryText == "" {
		summaryText = "Session rollup generated from checkpoint log."
	}

	material := CollectMaterial(records)

	lines := []string{
		"# Coding Session Rollup",
		"- Project: " + in.Project,
		"- Session: " + in.SessionID,
		"- Generated: " + timestamp,
		fmt.Sprintf("- Checkpoints summarized: %d", len(records)),
		"",
		"## Summary",
		summaryText,
		"",
	}
	lines = appendSection(lines, "## Included Checkpoints", material.Titles)
	lines = appendSection(lines, "## Files Touched", material.FilesTouched)
	lines = appendSection(lines, "## Decisions", material.Decisions)
	lines = appendSection(lines, "## Open Questions", material.OpenQuestions)
	lines = appendSection(lines, "## Next Actions", material.NextActions)

	title := in.Title
	if title == "" {
		title = fmt.Sprintf("%s | %s | %s rollup", in.Project, in.SessionID, kind)
	}
	source := in.Source
	if source == "" {
		source = "quick_capture"
	}

	sourceID := "rollup:" + projectSlug + ":" + sessionSlug + ":" + compactTimestamp(timestamp)
	if len(sourceID) > sourceIDMaxLen {
		sourceID = sourceID[:sourceIDMaxLen]
	}

	return &types.Document{
		Title:   title,
		Content: strings.TrimSpace(strings.Join(lines, "\n")),
		Metadata: map[string]any{
			"project":         in.Project,
			"session_id":      in.SessionID,
			"checkpoint_kind": string(kind),
			"timestamp":       timestamp,
			"summary":         summaryText,
			"tags": []string{
				"memory:checkpoint",
				"memory:rollup",
				"project:" + projectSlug,
				"session:" + sessionSlug,
				"checkpoint:" + string(kind),
			},
		},
		Source:     source,
		SourceID:   sourceID,
		SourcePath: in.SourcePath,
		MimeType:   "text/markdown",
		ReturnID:   in.ReturnID,
	}
}

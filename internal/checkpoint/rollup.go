package checkpoint

import (
	"context"
	"fmt"
	"strings"

	"remem/internal/summary"
	"remem/internal/types"
)

const rollupFallbackSummary = "Automatic final rollup generated from checkpoint activity captured during this session."

// Material is everything harvested from a session's checkpoint records.
// Lists are deduplicated first-occurrence-wins so repeated checkpoints do
// not inflate the rollup.
type Material struct {
	Titles        []string
	Summaries     []string
	Decisions     []string
	OpenQuestions []string
	NextActions   []string
	FilesTouched  []string
}

// Rollup consolidates this session's checkpoint records into one final
// document. Returns nil when there are no records to summarize.
func (b *Builder) Rollup(ctx context.Context, records []types.AuditRecord) *types.Document {
	if len(records) == 0 {
		return nil
	}
	material := CollectMaterial(records)

	timestamp := b.timestamp()
	projectSlug := Slug(b.cfg.Project)
	sessionSlug := Slug(b.cfg.SessionID)

	rollupSummary := rollupFallbackSummary
	decisions := material.Decisions
	openQuestions := material.OpenQuestions
	nextActions := material.NextActions
	llmMeta := map[string]any{}

	result := b.gen.Rollup(ctx, summary.RollupInput{
		Project:             b.cfg.Project,
		SessionID:           b.cfg.SessionID,
		CheckpointSummaries: material.Summaries,
		Decisions:           decisions,
		OpenQuestions:       openQuestions,
		NextActions:         nextActions,
	})
	if result.Status == summary.StatusOK {
		rollupSummary = result.Summary.Summary
		if len(result.Summary.Decisions) > 0 {
			decisions = result.Summary.Decisions
		}
		if len(result.Summary.OpenQuestions) > 0 {
			openQuestions = result.Summary.OpenQuestions
		}
		if len(result.Summary.NextActions) > 0 {
			nextActions = result.Summary.NextActions
		}
		llmMeta["llm_summary_provider"] = string(result.Provider)
		llmMeta["llm_summary_model"] = result.Model
	}

	lines := []string{
		"# Coding Session Rollup (Auto)",
		"- Project: " + b.cfg.Project,
		"- Session: " + b.cfg.SessionID,
		"- Generated: " + timestamp,
		fmt.Sprintf("- Checkpoints summarized: %d", len(records)),
		"",
		"## Summary",
		rollupSummary,
		"",
	}
	lines = appendSection(lines, "## Included Checkpoints", material.Titles)
	lines = appendSection(lines, "## Files Touched", material.FilesTouched)
	lines = appendSection(lines, "## Decisions", decisions)
	lines = appendSection(lines, "## Open Questions", openQuestions)
	lines = appendSection(lines, "## Next Actions", nextActions)

	metadata := map[string]any{
		"project":         b.cfg.Project,
		"session_id":      b.cfg.SessionID,
		"checkpoint_kind": string(types.KindFinal),
		"timestamp":       timestamp,
		"summary":         rollupSummary,
		"decisions":       decisions,
		"open_questions":  openQuestions,
		"next_actions":    nextActions,
		"tags": []string{
			"memory:checkpoint",
			"memory:rollup",
			"memory:auto",
			"project:" + projectSlug,
			"session:" + sessionSlug,
			"checkpoint:final",
		},
		"automation": "claude-hook",
		"hook_event": "SessionEnd",
	}
	for key, value := range llmMeta {
		metadata[key] = value
	}

	return &types.Document{
		Title:      fmt.Sprintf("%s | %s | final rollup (auto)", b.cfg.Project, b.cfg.SessionID),
		Content:    strings.TrimSpace(strings.Join(lines, "\n")),
		Metadata:   metadata,
		Source:     "quick_capture",
		SourceID:   autoSourceID("auto-rollup:" + projectSlug + ":" + sessionSlug + ":" + timestamp),
		SourcePath: b.cfg.Cwd,
		MimeType:   "text/markdown",
	}
}

// CollectMaterial harvests rollup material from checkpoint records.
func CollectMaterial(records []types.AuditRecord) Material {
	var m Material
	for _, record := range records {
		doc := record.Payload
		if doc == nil {
			continue
		}
		if title := strings.TrimSpace(doc.Title); title != "" {
			m.Titles = append(m.Titles, title)
		}
		meta := doc.Metadata
		if summaryText := metaString(meta, "summary"); summaryText != "" {
			m.Summaries = append(m.Summaries, summaryText)
		} else if extracted := extractSummarySection(doc.Content); extracted != "" {
			m.Summaries = append(m.Summaries, extracted)
		}
		m.Decisions = append(m.Decisions, metaStrings(meta, "decisions")...)
		m.OpenQuestions = append(m.OpenQuestions, metaStrings(meta, "open_questions")...)
		m.NextActions = append(m.NextActions, metaStrings(meta, "next_actions")...)
		m.FilesTouched = append(m.FilesTouched, metaStrings(meta, "files_touched")...)
	}
	m.Titles = summary.Dedupe(m.Titles)
	m.Summaries = summary.Dedupe(m.Summaries)
	m.Decisions = summary.Dedupe(m.Decisions)
	m.OpenQuestions = summary.Dedupe(m.OpenQuestions)
	m.NextActions = summary.Dedupe(m.NextActions)
	m.FilesTouched = summary.Dedupe(m.FilesTouched)
	return m
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	value, _ := meta[key].(string)
	return strings.TrimSpace(value)
}

// metaStrings tolerates both []string (freshly built documents) and
// []any (documents decoded back from the audit log).
func metaStrings(meta map[string]any, key string) []string {
	if meta == nil {
		return nil
	}
	var out []string
	switch list := meta[key].(type) {
	case []string:
		for _, item := range list {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	case []any:
		for _, item := range list {
			if text, ok := item.(string); ok {
				if trimmed := strings.TrimSpace(text); trimmed != "" {
					out = append(out, trimmed)
				}
			}
		}
	}
	return out
}

// extractSummarySection pulls the first few lines under "## Summary" from
// older checkpoint content that predates the summary metadata field.
func extractSummarySection(content string) string {
	_, after, found := strings.Cut(content, "## Summary")
	if !found {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(strings.TrimLeft(after, "\n"), "\n") {
		if strings.HasPrefix(line, "## ") {
			break
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
		if len(lines) >= 6 {
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}

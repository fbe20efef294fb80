package checkpoint

import (
	"context"
	"strings"
	"testing"

	"remem/internal/summary"
	"remem/internal/types"
)

func checkpointRecord(title, summaryText string, meta map[string]any) types.AuditRecord {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["summary"] = summaryText
	return types.AuditRecord{
		Event:   types.AuditEventCheckpoint,
		Payload: &types.Document{Title: title, Metadata: meta},
	}
}

func TestRollupEmptyRecords(t *testing.T) {
	b := testBuilder(&stubSummarizer{})
	if doc := b.Rollup(context.Background(), nil); doc != nil {
		t.Fatalf("expected nil document, got %+v", doc)
	}
}

func TestRollupDedupesFirstSeen(t *testing.T) {
	records := []types.AuditRecord{
		checkpointRecord("cp one", "built the store", map[string]any{
			"decisions":     []any{"flock over lockfiles", "atomic writes"},
			"files_touched": []any{"store.go", "lock.go"},
		}),
		checkpointRecord("cp two", "built the store", map[string]any{
			"decisions":     []any{"atomic writes", "closed provider set"},
			"files_touched": []any{"lock.go", "provider.go"},
		}),
	}
	gen := &stubSummarizer{rollup: summary.Result{Status: summary.StatusUnavailable}}
	doc := testBuilder(gen).Rollup(context.Background(), records)

	decisions, _ := doc.Metadata["decisions"].([]string)
	want := []string{"flock over lockfiles", "atomic writes", "closed provider set"}
	if len(decisions) != len(want) {
		t.Fatalf("decisions = %v, want %v", decisions, want)
	}
	for i := range want {
		if decisions[i] != want[i] {
			t.Fatalf("decisions = %v, want %v", decisions, want)
		}
	}
	if !strings.Contains(doc.Content, "- store.go") || !strings.Contains(doc.Content, "- provider.go") {
		t.Fatalf("files missing:\n%s", doc.Content)
	}
	if strings.Count(doc.Content, "- lock.go") != 1 {
		t.Fatalf("duplicate file survived:\n%s", doc.Content)
	}
	if !strings.Contains(doc.Content, "- Checkpoints summarized: 2") {
		t.Fatalf("count line missing:\n%s", doc.Content)
	}
}

func TestRollupFallbackSummary(t *testing.T) {
	records := []types.AuditRecord{checkpointRecord("cp one", "did things", nil)}
	gen := &stubSummarizer{rollup: summary.Result{Status: summary.StatusInvalid}}
	doc := testBuilder(gen).Rollup(context.Background(), records)

	if doc.Metadata["summary"] != rollupFallbackSummary {
		t.Fatalf("summary = %q", doc.Metadata["summary"])
	}
	if doc.Title != "proj | sess-1 | final rollup (auto)" {
		t.Fatalf("title = %q", doc.Title)
	}
}

func TestRollupStructuredOverride(t *testing.T) {
	records := []types.AuditRecord{
		checkpointRecord("cp one", "did things", map[string]any{
			"decisions": []any{"raw decision"},
		}),
	}
	gen := &stubSummarizer{rollup: summary.Result{
		Status:   summary.StatusOK,
		Provider: summary.ProviderOpenAI,
		Model:    "gpt-4.1-nano",
		Summary: types.StructuredSummary{
			Summary:   "Consolidated session.",
			Decisions: []string{"synthesized decision"},
		},
	}}
	doc := testBuilder(gen).Rollup(context.Background(), records)

	if doc.Metadata["summary"] != "Consolidated session." {
		t.Fatalf("summary = %q", doc.Metadata["summary"])
	}
	decisions, _ := doc.Metadata["decisions"].([]string)
	if len(decisions) != 1 || decisions[0] != "synthesized decision" {
		t.Fatalf("decisions = %v", decisions)
	}
	if doc.Metadata["llm_summary_provider"] != "openai" {
		t.Fatalf("provenance: %v", doc.Metadata)
	}
	tags, _ := doc.Metadata["tags"].([]string)
	if !strings.Contains(strings.Join(tags, " "), "memory:rollup") {
		t.Fatalf("tags = %v", tags)
	}
}

func TestRollupExtractsSummaryFromContent(t *testing.T) {
	content := "# Coding Session Checkpoint (Auto)\n- Project: proj\n\n## Summary\nRecovered from content.\nSecond line.\n\n## Files Touched\n- a.go\n"
	records := []types.AuditRecord{{
		Event:   types.AuditEventCheckpoint,
		Payload: &types.Document{Title: "cp", Content: content, Metadata: map[string]any{}},
	}}
	material := CollectMaterial(records)
	if len(material.Summaries) != 1 || material.Summaries[0] != "Recovered from content. Second line." {
		t.Fatalf("summaries = %v", material.Summaries)
	}
}

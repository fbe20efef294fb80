package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"remem/internal/config"
	"remem/internal/logging"
	"remem/internal/types"
)

const (
	checkpointItemLimit = 10
	rollupItemLimit     = 18
	promptListLimit     = 12
	rollupListLimit     = 40
)

// Generator turns session material into a structured summary via the
// selected provider. A single Generator is safe for sequential reuse; it
// holds no per-call state.
type Generator struct {
	cfg   config.SummaryConfig
	avail Availability
	log   logging.Logger

	run          commandRunner
	httpClient   *http.Client
	codexHome    string
	anthropicURL string
	openAIURL    string
}

func NewGenerator(cfg config.SummaryConfig, log logging.Logger) *Generator {
	if log == nil {
		log = logging.Nop()
	}
	return &Generator{
		cfg:          cfg,
		avail:        DetectAvailability(cfg),
		log:          log,
		run:          runCommand,
		httpClient:   &http.Client{Timeout: cfg.Timeout()},
		codexHome:    config.CodexHome(),
		anthropicURL: anthropicMessagesURL,
		openAIURL:    openAIChatURL,
	}
}

// CheckpointInput is the material for one checkpoint summary.
type CheckpointInput struct {
	Project        string
	SessionID      string
	Kind           types.Kind
	Trigger        string
	FilesTouched   []string
	RecentActivity []string
	Excerpt        string
}

// RollupInput is the accumulated material for a session rollup.
type RollupInput struct {
	Project             string
	SessionID           string
	CheckpointSummaries []string
	Decisions           []string
	OpenQuestions       []string
	NextActions         []string
}

// Checkpoint generates a structured summary for one checkpoint. A blank
// excerpt is not worth a model call and reports unavailable.
func (g *Generator) Checkpoint(ctx context.Context, in CheckpointInput) Result {
	if !g.cfg.Enabled || strings.TrimSpace(in.Excerpt) == "" {
		return Result{Status: StatusUnavailable}
	}
	return g.generate(ctx, checkpointPrompt(in), checkpointItemLimit)
}

// Rollup generates the consolidated session summary. With no accumulated
// material there is nothing to synthesize.
func (g *Generator) Rollup(ctx context.Context, in RollupInput) Result {
	if !g.cfg.Enabled {
		return Result{Status: StatusUnavailable}
	}
	if len(in.CheckpointSummaries) == 0 && len(in.Decisions) == 0 &&
		len(in.OpenQuestions) == 0 && len(in.NextActions) == 0 {
		return Result{Status: StatusUnavailable}
	}
	return g.generate(ctx, rollupPrompt(in), rollupItemLimit)
}

func (g *Generator) generate(ctx context.Context, prompt string, itemLimit int) Result {
	provider := SelectProvider(g.cfg.Provider, g.avail)
	if provider == ProviderNone {
		return Result{Status: StatusUnavailable}
	}
	model := ModelFor(provider, g.cfg.Model)

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout())
	defer cancel()

	raw, err := g.dispatch(callCtx, provider, prompt, model)
	if err != nil {
		status := StatusInvalid
		if errors.Is(err, context.DeadlineExceeded) {
			status = StatusTimedOut
		}
		g.log.Warn("summary call failed",
			logging.F("provider", string(provider)),
			logging.F("model", model),
			logging.F("status", status.String()),
			logging.F("error", err.Error()))
		return Result{Status: status, Provider: provider, Model: model}
	}

	parsed, ok := parseStructuredSummary(raw, itemLimit)
	if !ok {
		g.log.Warn("summary reply not parseable",
			logging.F("provider", string(provider)),
			logging.F("model", model))
		return Result{Status: StatusInvalid, Provider: provider, Model: model}
	}
	return Result{Status: StatusOK, Summary: parsed, Provider: provider, Model: model}
}

func (g *Generator) dispatch(ctx context.Context, provider Provider, prompt, model string) (string, error) {
	switch provider {
	case ProviderClaudeCLI:
		return g.callClaudeCLI(ctx, prompt, model)
	case ProviderCodexCLI:
		return g.callCodexCLI(ctx, prompt, model)
	case ProviderAnthropic:
		return g.callAnthropic(ctx, prompt, model)
	case ProviderOpenAI:
		return g.callOpenAI(ctx, prompt, model)
	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}
}

func checkpointPrompt(in CheckpointInput) string {
	var b strings.Builder
	b.WriteString("You are generating a coding-session checkpoint for future engineers/agents.\n")
	b.WriteString("Return ONLY valid JSON (no markdown) with keys: summary, decisions, open_questions, next_actions.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- summary: 2-5 sentences, concrete technical details, mention outcomes.\n")
	b.WriteString("- decisions/open_questions/next_actions: arrays of strings, 0-10 items each.\n")
	b.WriteString("- Keep each bullet under 140 characters.\n")
	b.WriteString("- Do not include secrets or API keys; redact as [REDACTED] if needed.\n\n")
	fmt.Fprintf(&b, "Project: %s\n", in.Project)
	fmt.Fprintf(&b, "Session: %s\n", in.SessionID)
	fmt.Fprintf(&b, "Checkpoint kind: %s\n", in.Kind)
	fmt.Fprintf(&b, "Trigger: %s\n\n", in.Trigger)
	b.WriteString("Files touched (from tool activity):\n")
	writeBullets(&b, in.FilesTouched, promptListLimit)
	b.WriteString("\nRecent tool activity (high level):\n")
	writeBullets(&b, in.RecentActivity, promptListLimit)
	b.WriteString("\nConversation excerpt:\n")
	b.WriteString(in.Excerpt)
	b.WriteString("\n")
	return b.String()
}

func rollupPrompt(in RollupInput) string {
	var b strings.Builder
	b.WriteString("You are synthesizing a coding-session rollup from checkpoint notes.\n")
	b.WriteString("Return ONLY valid JSON (no markdown) with keys: summary, decisions, open_questions, next_actions.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- summary: 1-3 short paragraphs. Mention major outcomes, failures, and next steps.\n")
	b.WriteString("- Consolidate duplicates and keep the most important items.\n")
	b.WriteString("- Keep each bullet under 140 characters.\n\n")
	fmt.Fprintf(&b, "Project: %s\n", in.Project)
	fmt.Fprintf(&b, "Session: %s\n\n", in.SessionID)
	b.WriteString("Checkpoint summaries:\n")
	writeBullets(&b, in.CheckpointSummaries, rollupListLimit)
	b.WriteString("\nDecisions (raw):\n")
	writeBullets(&b, in.Decisions, rollupListLimit)
	b.WriteString("\nOpen questions (raw):\n")
	writeBullets(&b, in.OpenQuestions, rollupListLimit)
	b.WriteString("\nNext actions (raw):\n")
	writeBullets(&b, in.NextActions, rollupListLimit)
	return b.String()
}

func writeBullets(b *strings.Builder, items []string, limit int) {
	if len(items) == 0 {
		b.WriteString("- (none)\n")
		return
	}
	if len(items) > limit {
		items = items[:limit]
	}
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}

// parseStructuredSummary extracts the summary object from a raw model
// reply, tolerating markdown fences and surrounding prose. A reply whose
// summary field is empty is treated as unparseable.
func parseStructuredSummary(raw string, itemLimit int) (types.StructuredSummary, bool) {
	obj := extractJSONObject(raw)
	if obj == nil {
		return types.StructuredSummary{}, false
	}
	summaryText, _ := obj["summary"].(string)
	summaryText = strings.TrimSpace(summaryText)
	if summaryText == "" {
		return types.StructuredSummary{}, false
	}
	return types.StructuredSummary{
		Summary:       summaryText,
		Decisions:     sanitizeItems(obj["decisions"], itemLimit),
		OpenQuestions: sanitizeItems(obj["open_questions"], itemLimit),
		NextActions:   sanitizeItems(obj["next_actions"], itemLimit),
		FilesTouched:  sanitizeItems(obj["files_touched"], itemLimit),
	}, true
}

// extractJSONObject parses raw as a JSON object, stripping code fences
// and falling back to the outermost {...} span when the reply embeds the
// object in prose.
func extractJSONObject(raw string) map[string]any {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil
	}
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimSpace(strings.Trim(cleaned, "`"))
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "json"))
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err == nil {
		return obj
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &obj); err != nil {
		return nil
	}
	return obj
}

// sanitizeItems normalizes a model-supplied list: strings only, collapsed
// whitespace, capped at limit, first occurrence wins.
func sanitizeItems(value any, limit int) []string {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		text, ok := item.(string)
		if !ok {
			continue
		}
		cleaned := strings.Join(strings.Fields(text), " ")
		if cleaned == "" {
			continue
		}
		out = append(out, cleaned)
		if len(out) >= limit {
			break
		}
	}
	return Dedupe(out)
}

// Dedupe removes duplicates keeping first occurrence and original order.
func Dedupe(items []string) []string {
	if len(items) < 2 {
		return items
	}
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		key := strings.TrimSpace(item)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

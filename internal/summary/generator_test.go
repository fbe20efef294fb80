package summary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"remem/internal/config"
	"remem/internal/logging"
)

func testGenerator(cfg config.SummaryConfig, avail Availability, run commandRunner) *Generator {
	g := NewGenerator(cfg, logging.Nop())
	g.avail = avail
	if run != nil {
		g.run = run
	}
	return g
}

func testSummaryConfig() config.SummaryConfig {
	return config.SummaryConfig{
		Enabled:        true,
		TimeoutSeconds: 5,
		MaxTokens:      700,
	}
}

func checkpointInput() CheckpointInput {
	return CheckpointInput{
		Project:        "proj",
		SessionID:      "sess",
		Kind:           "interval",
		Trigger:        "post_tool_use",
		FilesTouched:   []string{"a.py", "b.py"},
		RecentActivity: []string{"Write a.py", "Bash pytest"},
		Excerpt:        "User: fix a.py\n\nAssistant: done",
	}
}

func TestCheckpointParsesCLIReply(t *testing.T) {
	reply := `{"summary":"Fixed the parser.","decisions":["use recursive descent"],"open_questions":[],"next_actions":["add fuzz tests"]}`
	var gotName string
	var gotArgs []string
	run := func(ctx context.Context, name string, args []string, stdin string, extraEnv []string) (string, error) {
		gotName = name
		gotArgs = args
		return reply, nil
	}
	g := testGenerator(testSummaryConfig(), Availability{ClaudeCLI: true}, run)

	result := g.Checkpoint(context.Background(), checkpointInput())
	if result.Status != StatusOK {
		t.Fatalf("status = %v", result.Status)
	}
	if result.Provider != ProviderClaudeCLI || result.Model != config.DefaultModelClaudeCLI {
		t.Fatalf("provenance: %v %q", result.Provider, result.Model)
	}
	if result.Summary.Summary != "Fixed the parser." {
		t.Fatalf("summary = %q", result.Summary.Summary)
	}
	if !reflect.DeepEqual(result.Summary.NextActions, []string{"add fuzz tests"}) {
		t.Fatalf("next actions = %v", result.Summary.NextActions)
	}
	if gotName != "claude" {
		t.Fatalf("command = %q", gotName)
	}
	prompt := gotArgs[len(gotArgs)-1]
	for _, want := range []string{"Project: proj", "Checkpoint kind: interval", "- a.py", "fix a.py"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestCheckpointInvalidReply(t *testing.T) {
	run := func(ctx context.Context, name string, args []string, stdin string, extraEnv []string) (string, error) {
		return "I could not produce JSON, sorry.", nil
	}
	g := testGenerator(testSummaryConfig(), Availability{ClaudeCLI: true}, run)
	result := g.Checkpoint(context.Background(), checkpointInput())
	if result.Status != StatusInvalid {
		t.Fatalf("status = %v, want invalid", result.Status)
	}
	if !result.Summary.IsZero() {
		t.Fatalf("invalid reply produced summary: %+v", result.Summary)
	}
}

func TestCheckpointNoProvider(t *testing.T) {
	g := testGenerator(testSummaryConfig(), Availability{}, nil)
	if result := g.Checkpoint(context.Background(), checkpointInput()); result.Status != StatusUnavailable {
		t.Fatalf("status = %v, want unavailable", result.Status)
	}
}

func TestCheckpointDisabled(t *testing.T) {
	cfg := testSummaryConfig()
	cfg.Enabled = false
	g := testGenerator(cfg, Availability{ClaudeCLI: true}, nil)
	if result := g.Checkpoint(context.Background(), checkpointInput()); result.Status != StatusUnavailable {
		t.Fatalf("status = %v, want unavailable", result.Status)
	}
}

func TestCheckpointEmptyExcerpt(t *testing.T) {
	g := testGenerator(testSummaryConfig(), Availability{ClaudeCLI: true}, nil)
	in := checkpointInput()
	in.Excerpt = "  "
	if result := g.Checkpoint(context.Background(), in); result.Status != StatusUnavailable {
		t.Fatalf("status = %v, want unavailable", result.Status)
	}
}

func TestCheckpointTimeout(t *testing.T) {
	run := func(ctx context.Context, name string, args []string, stdin string, extraEnv []string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	cfg := testSummaryConfig()
	cfg.TimeoutSeconds = 1
	g := testGenerator(cfg, Availability{ClaudeCLI: true}, run)
	result := g.Checkpoint(context.Background(), checkpointInput())
	if result.Status != StatusTimedOut {
		t.Fatalf("status = %v, want timed_out", result.Status)
	}
}

func TestRollupNothingToSynthesize(t *testing.T) {
	g := testGenerator(testSummaryConfig(), Availability{ClaudeCLI: true}, nil)
	in := RollupInput{Project: "proj", SessionID: "sess"}
	if result := g.Rollup(context.Background(), in); result.Status != StatusUnavailable {
		t.Fatalf("status = %v, want unavailable", result.Status)
	}
}

func TestRollupPromptIncludesMaterial(t *testing.T) {
	var prompt string
	run := func(ctx context.Context, name string, args []string, stdin string, extraEnv []string) (string, error) {
		prompt = args[len(args)-1]
		return `{"summary":"Session wrapped up."}`, nil
	}
	g := testGenerator(testSummaryConfig(), Availability{ClaudeCLI: true}, run)
	result := g.Rollup(context.Background(), RollupInput{
		Project:             "proj",
		SessionID:           "sess",
		CheckpointSummaries: []string{"built the store"},
		Decisions:           []string{"flock over lockfiles"},
	})
	if result.Status != StatusOK {
		t.Fatalf("status = %v", result.Status)
	}
	for _, want := range []string{"built the store", "flock over lockfiles", "Checkpoint summaries:"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("rollup prompt missing %q", want)
		}
	}
}

func TestAnthropicHostedCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "anthropic-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing version header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"summary\":\"Hosted summary.\"}"}]}`))
	}))
	defer server.Close()

	cfg := testSummaryConfig()
	cfg.AnthropicKey = "anthropic-key"
	g := testGenerator(cfg, Availability{Anthropic: true}, nil)
	g.anthropicURL = server.URL

	result := g.Checkpoint(context.Background(), checkpointInput())
	if result.Status != StatusOK {
		t.Fatalf("status = %v", result.Status)
	}
	if result.Summary.Summary != "Hosted summary." {
		t.Fatalf("summary = %q", result.Summary.Summary)
	}
	if result.Provider != ProviderAnthropic {
		t.Fatalf("provider = %v", result.Provider)
	}
}

func TestOpenAIHostedCallError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testSummaryConfig()
	cfg.OpenAIKey = "openai-key"
	g := testGenerator(cfg, Availability{OpenAI: true}, nil)
	g.openAIURL = server.URL

	result := g.Checkpoint(context.Background(), checkpointInput())
	if result.Status != StatusInvalid {
		t.Fatalf("status = %v, want invalid", result.Status)
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string // expected summary value, "" means nil object
	}{
		{"plain", `{"summary":"s"}`, "s"},
		{"fenced", "```json\n{\"summary\":\"s\"}\n```", "s"},
		{"embedded", `Here you go: {"summary":"s"} hope that helps`, "s"},
		{"empty", "", ""},
		{"prose", "no json here", ""},
		{"array", `["not","an","object"]`, ""},
	}
	for _, tc := range cases {
		obj := extractJSONObject(tc.raw)
		if tc.want == "" {
			if obj != nil {
				t.Fatalf("%s: expected nil, got %v", tc.name, obj)
			}
			continue
		}
		if obj == nil || obj["summary"] != tc.want {
			t.Fatalf("%s: got %v", tc.name, obj)
		}
	}
}

func TestSanitizeItems(t *testing.T) {
	raw := []any{"  keep  this ", "keep this", 42, "", "second"}
	got := sanitizeItems(raw, 10)
	want := []string{"keep this", "second"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sanitizeItems = %v, want %v", got, want)
	}
	if got := sanitizeItems("not a list", 10); got != nil {
		t.Fatalf("expected nil for non-list, got %v", got)
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	got := Dedupe([]string{"a.py", "b.py", "a.py", "c.py", "b.py"})
	want := []string{"a.py", "b.py", "c.py"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Dedupe = %v, want %v", got, want)
	}
}

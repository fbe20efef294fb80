package summary

import (
	"errors"
	"testing"

	"remem/internal/config"
)

func TestNormalizeProvider(t *testing.T) {
	cases := []struct {
		raw  string
		want Provider
		ok   bool
	}{
		{"claude", ProviderClaudeCLI, true},
		{"claude-cli", ProviderClaudeCLI, true},
		{"claude_cli", ProviderClaudeCLI, true},
		{"Codex", ProviderCodexCLI, true},
		{"codex-cli", ProviderCodexCLI, true},
		{"anthropic", ProviderAnthropic, true},
		{"OPENAI", ProviderOpenAI, true},
		{"", ProviderNone, false},
		{"gemini", ProviderNone, false},
	}
	for _, tc := range cases {
		got, ok := NormalizeProvider(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("NormalizeProvider(%q) = %v,%v want %v,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSelectProviderPrecedence(t *testing.T) {
	all := Availability{ClaudeCLI: true, CodexCLI: true, Anthropic: true, OpenAI: true}
	if got := SelectProvider("", all); got != ProviderClaudeCLI {
		t.Fatalf("expected claude-cli first, got %v", got)
	}
	if got := SelectProvider("", Availability{CodexCLI: true, OpenAI: true}); got != ProviderCodexCLI {
		t.Fatalf("expected codex-cli before hosted, got %v", got)
	}
	if got := SelectProvider("", Availability{OpenAI: true}); got != ProviderOpenAI {
		t.Fatalf("expected openai, got %v", got)
	}
	if got := SelectProvider("", Availability{}); got != ProviderNone {
		t.Fatalf("expected none, got %v", got)
	}
}

func TestSelectProviderForcedUnavailableNeverFallsBack(t *testing.T) {
	// codex is forced but not installed; claude is available and must NOT
	// be chosen instead.
	avail := Availability{ClaudeCLI: true}
	if got := SelectProvider("codex", avail); got != ProviderNone {
		t.Fatalf("forced unavailable provider selected %v, want none", got)
	}
	if got := SelectProvider("codex", Availability{CodexCLI: true}); got != ProviderCodexCLI {
		t.Fatalf("forced available provider = %v", got)
	}
	// Unknown forced names fall through to auto-detection.
	if got := SelectProvider("something-else", avail); got != ProviderClaudeCLI {
		t.Fatalf("unknown forced name should auto-detect, got %v", got)
	}
}

func TestDetectAvailability(t *testing.T) {
	lookPath := func(name string) (string, error) {
		if name == "claude" {
			return "/usr/bin/claude", nil
		}
		return "", errors.New("not found")
	}
	cfg := config.SummaryConfig{OpenAIKey: "sk-test"}
	avail := detectAvailability(cfg, lookPath)
	if !avail.ClaudeCLI || avail.CodexCLI || avail.Anthropic || !avail.OpenAI {
		t.Fatalf("unexpected availability: %+v", avail)
	}
}

func TestModelFor(t *testing.T) {
	if got := ModelFor(ProviderClaudeCLI, ""); got != config.DefaultModelClaudeCLI {
		t.Fatalf("claude default model = %q", got)
	}
	if got := ModelFor(ProviderAnthropic, ""); got != config.DefaultModelAnthropic {
		t.Fatalf("anthropic default model = %q", got)
	}
	if got := ModelFor(ProviderOpenAI, "custom-model"); got != "custom-model" {
		t.Fatalf("override ignored: %q", got)
	}
}

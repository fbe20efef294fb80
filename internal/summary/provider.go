// Package summary produces structured session digests by prompting a
// language model through whichever provider is available: a local agent
// CLI when one is installed, otherwise a hosted API when a key is set.
package summary

import (
	"os/exec"
	"strings"

	"remem/internal/config"
)

// Provider is one of a closed set of summarization backends. There is no
// extension point: each provider needs bespoke invocation and parsing, so
// an unknown name is a configuration error, not a plugin.
type Provider string

const (
	ProviderNone      Provider = "none"
	ProviderClaudeCLI Provider = "claude-cli"
	ProviderCodexCLI  Provider = "codex-cli"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// selection order when no provider is forced
var providerPrecedence = []Provider{
	ProviderClaudeCLI,
	ProviderCodexCLI,
	ProviderAnthropic,
	ProviderOpenAI,
}

// NormalizeProvider maps loose spellings onto the closed set. The second
// return is false for names outside the set.
func NormalizeProvider(raw string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return ProviderNone, false
	case "claude", "claude-cli", "claude_cli":
		return ProviderClaudeCLI, true
	case "codex", "codex-cli", "codex_cli":
		return ProviderCodexCLI, true
	case "anthropic":
		return ProviderAnthropic, true
	case "openai":
		return ProviderOpenAI, true
	default:
		return ProviderNone, false
	}
}

// Availability records which backends this environment can reach.
type Availability struct {
	ClaudeCLI bool
	CodexCLI  bool
	Anthropic bool
	OpenAI    bool
}

// DetectAvailability probes the PATH for agent CLIs and the config for
// hosted API keys.
func DetectAvailability(cfg config.SummaryConfig) Availability {
	return detectAvailability(cfg, exec.LookPath)
}

func detectAvailability(cfg config.SummaryConfig, lookPath func(string) (string, error)) Availability {
	hasClaude := false
	if _, err := lookPath("claude"); err == nil {
		hasClaude = true
	}
	hasCodex := false
	if _, err := lookPath("codex"); err == nil {
		hasCodex = true
	}
	return Availability{
		ClaudeCLI: hasClaude,
		CodexCLI:  hasCodex,
		Anthropic: cfg.AnthropicKey != "",
		OpenAI:    cfg.OpenAIKey != "",
	}
}

func (a Availability) has(p Provider) bool {
	switch p {
	case ProviderClaudeCLI:
		return a.ClaudeCLI
	case ProviderCodexCLI:
		return a.CodexCLI
	case ProviderAnthropic:
		return a.Anthropic
	case ProviderOpenAI:
		return a.OpenAI
	default:
		return false
	}
}

// SelectProvider picks the backend for this invocation. A forced provider
// that is not available yields ProviderNone rather than falling through to
// auto-detection, so an operator pinning a backend never gets a different
// one silently.
func SelectProvider(forced string, avail Availability) Provider {
	if normalized, ok := NormalizeProvider(forced); ok {
		if avail.has(normalized) {
			return normalized
		}
		return ProviderNone
	}
	for _, candidate := range providerPrecedence {
		if avail.has(candidate) {
			return candidate
		}
	}
	return ProviderNone
}

// ModelFor returns the model to request: the override when set, otherwise
// the provider's default.
func ModelFor(p Provider, override string) string {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		return trimmed
	}
	switch p {
	case ProviderClaudeCLI:
		return config.DefaultModelClaudeCLI
	case ProviderCodexCLI:
		return config.DefaultModelCodexCLI
	case ProviderOpenAI:
		return config.DefaultModelOpenAI
	case ProviderAnthropic:
		return config.DefaultModelAnthropic
	default:
		return ""
	}
}

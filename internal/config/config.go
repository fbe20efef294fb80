package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAPIURL          = "https://api.remem.io"
	DefaultIntervalSeconds = 20 * 60
	DefaultMinEvents       = 4

	DefaultSummaryTimeoutSeconds = 15
	DefaultSummaryMaxTokens      = 700
	DefaultSummaryHeadLines      = 120
	DefaultSummaryTailLines      = 600
	DefaultSummaryMaxMessages    = 80
	DefaultSummaryMaxChars       = 12000
	DefaultSummaryScanLimit      = 240

	DefaultModelClaudeCLI = "haiku"
	DefaultModelCodexCLI  = "gpt-5.3-codex-spark"
	DefaultModelAnthropic = "claude-3-5-haiku-20241022"
	DefaultModelOpenAI    = "gpt-4.1-nano"
)

// Config is the effective configuration for one invocation. It is built
// once at process start and passed down; components never read the
// environment themselves.
type Config struct {
	Cwd       string
	Project   string
	SessionID string

	APIURL string
	APIKey string

	IntervalSeconds int
	MinEvents       int

	StatePath  string
	LogPath    string
	RecallPath string
	WrapPath   string

	Enabled            bool
	RollupOnSessionEnd bool
	LogLevel           string

	Summary SummaryConfig
}

// SummaryConfig controls structured summary generation.
type SummaryConfig struct {
	Enabled        bool
	Provider       string // forced provider override; empty means auto-detect
	Model          string // model override; empty means per-provider default
	TimeoutSeconds int
	MaxTokens      int
	HeadLines      int
	TailLines      int
	MaxMessages    int
	MaxChars       int
	ScanLimit      int

	CodexSessionsDir string
	AnthropicKey     string
	OpenAIKey        string
}

// Timeout returns the summarization deadline as a duration.
func (s SummaryConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Load builds the effective configuration for a session rooted at cwd.
// Environment variables win over the settings file, which wins over
// defaults; missing or malformed values always fall back, never fail.
func Load(cwd, sessionID string) Config {
	settings, err := LoadSettings()
	if err != nil {
		settings = Settings{}
	}
	return load(cwd, sessionID, settings)
}

func load(cwd, sessionID string, settings Settings) Config {
	if strings.TrimSpace(cwd) == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}
	if abs, err := filepath.Abs(cwd); err == nil {
		cwd = abs
	}

	project := strings.TrimSpace(os.Getenv("REMEM_MEMORY_PROJECT"))
	if project == "" {
		project = filepath.Base(cwd)
	}
	if project == "" || project == "." || project == string(filepath.Separator) {
		project = "unknown"
	}

	if env := strings.TrimSpace(os.Getenv("REMEM_MEMORY_SESSION_ID")); env != "" {
		sessionID = env
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = "session-" + time.Now().UTC().Format("20060102T150405")
	}

	apiURL := firstNonEmpty(os.Getenv("REMEM_API_URL"), settings.API.URL, DefaultAPIURL)
	apiKey := firstNonEmpty(os.Getenv("REMEM_API_KEY"), settings.API.Key)

	codexSessions := strings.TrimSpace(os.Getenv("REMEM_MEMORY_CODEX_SESSIONS_DIR"))
	if codexSessions == "" {
		codexSessions = filepath.Join(CodexHome(), "sessions")
	}

	return Config{
		Cwd:       cwd,
		Project:   project,
		SessionID: strings.TrimSpace(sessionID),

		APIURL: strings.TrimRight(strings.TrimSpace(apiURL), "/"),
		APIKey: strings.TrimSpace(apiKey),

		IntervalSeconds: intEnv("REMEM_MEMORY_INTERVAL_SECONDS", defaultInt(settings.Checkpoint.IntervalSeconds, DefaultIntervalSeconds)),
		MinEvents:       intEnv("REMEM_MEMORY_MIN_EVENTS", defaultInt(settings.Checkpoint.MinEvents, DefaultMinEvents)),

		StatePath:  resolvePath(cwd, firstNonEmpty(os.Getenv("REMEM_MEMORY_STATE_FILE"), settings.Checkpoint.StateFile), defaultStateRel),
		LogPath:    resolvePath(cwd, firstNonEmpty(os.Getenv("REMEM_MEMORY_LOG_FILE"), settings.Checkpoint.LogFile), defaultLogRel),
		RecallPath: resolvePath(cwd, os.Getenv("REMEM_MEMORY_RECALL_LOG_FILE"), defaultRecallRel),
		WrapPath:   resolvePath(cwd, os.Getenv("REMEM_MEMORY_WRAPPER_STATE_FILE"), defaultWrapRel),

		Enabled:            boolEnv("REMEM_MEMORY_AUTO_ENABLED", true),
		RollupOnSessionEnd: boolEnv("REMEM_MEMORY_ROLLUP_ON_SESSION_END", true),
		LogLevel:           firstNonEmpty(os.Getenv("REMEM_LOG_LEVEL"), settings.Logging.Level, "info"),

		Summary: SummaryConfig{
			Enabled:        boolEnv("REMEM_MEMORY_SUMMARY_ENABLED", true),
			Provider:       firstNonEmpty(os.Getenv("REMEM_MEMORY_SUMMARY_PROVIDER"), settings.Summary.Provider),
			Model:          firstNonEmpty(os.Getenv("REMEM_MEMORY_SUMMARY_MODEL"), settings.Summary.Model),
			TimeoutSeconds: intEnv("REMEM_MEMORY_SUMMARY_TIMEOUT_SECONDS", defaultInt(settings.Summary.TimeoutSeconds, DefaultSummaryTimeoutSeconds)),
			MaxTokens:      intEnv("REMEM_MEMORY_SUMMARY_MAX_TOKENS", DefaultSummaryMaxTokens),
			HeadLines:      intEnv("REMEM_MEMORY_SUMMARY_HEAD_LINES", DefaultSummaryHeadLines),
			TailLines:      intEnv("REMEM_MEMORY_SUMMARY_TAIL_LINES", DefaultSummaryTailLines),
			MaxMessages:    intEnv("REMEM_MEMORY_SUMMARY_MAX_MESSAGES", DefaultSummaryMaxMessages),
			MaxChars:       intEnv("REMEM_MEMORY_SUMMARY_MAX_CHARS", DefaultSummaryMaxChars),
			ScanLimit:      intEnv("REMEM_MEMORY_SUMMARY_SCAN_LIMIT", DefaultSummaryScanLimit),

			CodexSessionsDir: codexSessions,
			AnthropicKey:     strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
			OpenAIKey:        strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func defaultInt(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func intEnv(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func boolEnv(name string, fallback bool) bool {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "0", "false", "no", "off", "":
		return false
	default:
		return true
	}
}

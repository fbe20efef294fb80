// Package wrapper runs the Codex CLI as a child process and produces
// checkpoints while it works: an interval timer snapshots git activity,
// SIGINT/SIGTERM are forwarded to the child, and a final milestone plus
// rollup are emitted when the child exits.
package wrapper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"remem/internal/checkpoint"
	"remem/internal/config"
	"remem/internal/gitinfo"
	"remem/internal/ingest"
	"remem/internal/logging"
	"remem/internal/summary"
	"remem/internal/transcript"
	"remem/internal/types"
)

// DefaultMaxFiles caps how many changed paths a wrapper checkpoint lists.
const DefaultMaxFiles = 12

// Options configure one wrapped run. Zero values fall back to the
// surrounding Config and its defaults.
type Options struct {
	Project           string
	SessionID         string
	IntervalSeconds   int
	MaxFiles          int
	CodexBin          string
	LogFile           string
	StateFile         string
	APIURL            string
	NoIngest          bool
	NoRollup          bool
	DryRun            bool
	CheckpointOnStart bool
	AlwaysCheckpoint  bool
	Args              []string
}

// child is the running agent process as the wrapper sees it.
type child interface {
	Signal(sig os.Signal)
	Wait() int
}

type execChild struct {
	cmd *exec.Cmd
}

func (c *execChild) Signal(sig os.Signal) {
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Signal(sig)
	}
}

func (c *execChild) Wait() int {
	err := c.cmd.Wait()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

func startChild(name string, args []string, dir string, env []string) (child, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execChild{cmd: cmd}, nil
}

// Wrapper supervises one wrapped agent session.
type Wrapper struct {
	cfg  config.Config
	opts Options
	log  logging.Logger

	git     *gitinfo.Git
	gen     checkpoint.Summarizer
	gateway *ingest.Gateway
	audit   *ingest.AuditLog

	project   string
	sessionID string
	apiURL    string
	codexBin  string
	ingestOn  bool
	interval  time.Duration
	maxFiles  int
	statePath string

	// set once Run starts
	inRepo    bool
	summaryOn bool
	startedAt time.Time

	mu             sync.Mutex
	created        int
	lastSnapshot   []string
	transcriptPath string

	now      func() time.Time
	lookPath func(string) (string, error)
	start    func(name string, args []string, dir string, env []string) (child, error)
}

func New(cfg config.Config, opts Options, log logging.Logger) *Wrapper {
	if log == nil {
		log = logging.Nop()
	}
	project := strings.TrimSpace(opts.Project)
	if project == "" {
		project = cfg.Project
	}
	sessionID := strings.TrimSpace(opts.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(cfg.SessionID)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	apiURL := strings.TrimSpace(opts.APIURL)
	if apiURL == "" {
		apiURL = cfg.APIURL
	}
	codexBin := strings.TrimSpace(opts.CodexBin)
	if codexBin == "" {
		codexBin = "codex"
	}
	intervalSeconds := opts.IntervalSeconds
	if intervalSeconds <= 0 {
		intervalSeconds = cfg.IntervalSeconds
	}
	if intervalSeconds < 1 {
		intervalSeconds = 1
	}
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	logPath := resolvePath(cfg.Cwd, opts.LogFile, cfg.LogPath)
	statePath := resolvePath(cfg.Cwd, opts.StateFile, cfg.WrapPath)

	// The wrapper summarizes with Codex only; other providers would spawn
	// a second agent stack mid-session.
	summaryCfg := cfg.Summary
	summaryCfg.Provider = string(summary.ProviderCodexCLI)

	return &Wrapper{
		cfg:       cfg,
		opts:      opts,
		log:       log,
		git:       gitinfo.New(),
		gen:       summary.NewGenerator(summaryCfg, log),
		gateway:   ingest.NewGateway(apiURL, cfg.APIKey, log),
		audit:     ingest.NewAuditLog(logPath),
		project:   project,
		sessionID: sessionID,
		apiURL:    apiURL,
		codexBin:  codexBin,
		ingestOn:  !opts.NoIngest && cfg.APIKey != "" && apiURL != "" && !opts.DryRun,
		interval:  time.Duration(intervalSeconds) * time.Second,
		maxFiles:  maxFiles,
		statePath: statePath,

		transcriptPath: strings.TrimSpace(os.Getenv("REMEM_MEMORY_CODEX_TRANSCRIPT_PATH")),

		now:      time.Now,
		lookPath: exec.LookPath,
		start:    startChild,
	}
}

// Run launches the agent and blocks until it exits, returning the child's
// exit code.
func (w *Wrapper) Run(ctx context.Context) (int, error) {
	if _, err := w.lookPath(w.codexBin); err != nil {
		return 2, fmt.Errorf("codex binary not found: %s", w.codexBin)
	}
	w.inRepo = w.git.IsRepo(w.cfg.Cwd)
	w.summaryOn = w.summaryEnabled()
	w.startedAt = w.now()

	if err := w.writeState(false, 0); err != nil {
		w.log.Warn("wrapper state write failed", logging.F("error", err))
	}

	w.log.Info("launching codex",
		logging.F("project", w.project),
		logging.F("session_id", w.sessionID))

	proc, err := w.start(w.codexBin, w.opts.Args, w.cfg.Cwd, w.childEnv())
	if err != nil {
		return 1, fmt.Errorf("launch codex: %w", err)
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case sig := <-sigCh:
				proc.Signal(sig)
			case <-stop:
				return
			}
		}
	}()

	if w.opts.CheckpointOnStart {
		w.maybeCheckpoint(ctx, types.KindInterval, "start", false)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.maybeCheckpoint(ctx, types.KindInterval, "interval", false)
			case <-stop:
				return
			}
		}
	}()

	exitCode := proc.Wait()
	close(stop)
	signal.Stop(sigCh)
	wg.Wait()

	// One last snapshot of whatever changed since the previous checkpoint.
	w.maybeCheckpoint(ctx, types.KindMilestone, "codex-exit", false)

	if !w.opts.NoRollup && w.createdCount() > 0 {
		w.finalRollup(ctx, exitCode)
	}

	if err := w.writeState(true, exitCode); err != nil {
		w.log.Warn("wrapper state write failed", logging.F("error", err))
	}
	return exitCode, nil
}

// maybeCheckpoint emits one checkpoint unless nothing changed since the
// last snapshot. Skipping requires a git repo: outside one there is no
// change signal, so every tick checkpoints.
func (w *Wrapper) maybeCheckpoint(ctx context.Context, kind types.Kind, reason string, force bool) bool {
	var changed []string
	if w.inRepo {
		changed = w.git.ChangedPaths(w.cfg.Cwd)
	}
	if !force && !w.opts.AlwaysCheckpoint && w.inRepo {
		if len(changed) == 0 || slices.Equal(changed, w.snapshot()) {
			return false
		}
	}

	summaryText := fallbackSummary(kind, reason, changed, w.maxFiles)
	var decisions, openQuestions, nextActions []string
	if w.summaryOn {
		if path := w.discoverTranscript(); path != "" {
			result := w.gen.Checkpoint(ctx, summary.CheckpointInput{
				Project:      w.project,
				SessionID:    w.sessionID,
				Kind:         kind,
				Trigger:      reason,
				FilesTouched: changed,
				Excerpt:      transcript.Excerpt(path, w.budgets()),
			})
			if result.Status == summary.StatusOK {
				summaryText = result.Summary.Summary
				decisions = result.Summary.Decisions
				openQuestions = result.Summary.OpenQuestions
				nextActions = result.Summary.NextActions
			}
		}
	}

	doc := checkpoint.BuildManual(checkpoint.ManualInput{
		Project:       w.project,
		SessionID:     w.sessionID,
		Kind:          kind,
		Summary:       summaryText,
		Decisions:     decisions,
		OpenQuestions: openQuestions,
		NextActions:   nextActions,
		FilesTouched:  w.absFiles(changed),
		RepoRoot:      w.cfg.Cwd,
	}, w.git, w.now())

	var response map[string]any
	if w.ingestOn {
		response = w.gateway.Ingest(ctx, doc)
	}
	if err := w.audit.AppendNow(types.AuditEventCheckpoint, doc, response); err != nil {
		w.log.Warn("checkpoint log append failed", logging.F("error", err))
	}

	w.mu.Lock()
	w.created++
	w.lastSnapshot = changed
	w.mu.Unlock()

	w.log.Info("wrapper checkpoint",
		logging.F("kind", string(kind)),
		logging.F("reason", reason),
		logging.F("changed_files", len(changed)))
	return true
}

func (w *Wrapper) finalRollup(ctx context.Context, exitCode int) {
	records, err := w.audit.CheckpointsFor(w.project, w.sessionID)
	if err != nil {
		w.log.Warn("checkpoint log read failed", logging.F("error", err))
	}

	summaryText := fmt.Sprintf(
		"Automatic final rollup from Codex wrapper. Exit code: %d. Checkpoints created: %d.",
		exitCode, w.createdCount())
	if w.summaryOn && len(records) > 0 {
		material := checkpoint.CollectMaterial(records)
		result := w.gen.Rollup(ctx, summary.RollupInput{
			Project:             w.project,
			SessionID:           w.sessionID,
			CheckpointSummaries: material.Summaries,
			Decisions:           material.Decisions,
			OpenQuestions:       material.OpenQuestions,
			NextActions:         material.NextActions,
		})
		if result.Status == summary.StatusOK {
			summaryText = result.Summary.Summary
		}
	}

	doc := checkpoint.BuildManualRollup(checkpoint.ManualRollupInput{
		Project:    w.project,
		SessionID:  w.sessionID,
		Kind:       types.KindFinal,
		Summary:    summaryText,
		SourcePath: w.cfg.Cwd,
	}, records, w.now())

	var response map[string]any
	if w.ingestOn {
		response = w.gateway.Ingest(ctx, doc)
	}
	if err := w.audit.AppendNow(types.AuditEventRollup, doc, response); err != nil {
		w.log.Warn("rollup log append failed", logging.F("error", err))
	}
}

// summaryEnabled reports whether structured summaries can run at all:
// summaries on, provider unset or Codex, binary on PATH, auth present.
func (w *Wrapper) summaryEnabled() bool {
	if !w.cfg.Summary.Enabled {
		return false
	}
	if raw := strings.TrimSpace(w.cfg.Summary.Provider); raw != "" {
		provider, ok := summary.NormalizeProvider(raw)
		if !ok || provider != summary.ProviderCodexCLI {
			return false
		}
	}
	if _, err := w.lookPath(w.codexBin); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(config.CodexHome(), "auth.json")); err != nil {
		return false
	}
	return true
}

func (w *Wrapper) discoverTranscript() string {
	w.mu.Lock()
	existing := w.transcriptPath
	w.mu.Unlock()

	found := transcript.DiscoverCodex(
		w.cfg.Summary.CodexSessionsDir, w.cfg.Cwd, existing, w.startedAt, w.cfg.Summary.ScanLimit)

	w.mu.Lock()
	w.transcriptPath = found
	w.mu.Unlock()
	return found
}

func (w *Wrapper) childEnv() []string {
	env := append(os.Environ(), "REMEM_API_URL="+w.apiURL)
	env = appendIfUnset(env, "REMEM_MEMORY_PROJECT", w.project)
	env = appendIfUnset(env, "REMEM_MEMORY_SESSION_ID", w.sessionID)
	return env
}

func (w *Wrapper) writeState(final bool, exitCode int) error {
	st := stateFile{
		Project:         w.project,
		SessionID:       w.sessionID,
		StartedAt:       w.startedAt.UTC().Format(time.RFC3339),
		Cwd:             w.cfg.Cwd,
		IntervalSeconds: int(w.interval / time.Second),
		IngestEnabled:   w.ingestOn,
		InGitRepo:       w.inRepo,
		SummaryEnabled:  w.summaryOn,
		TranscriptPath:  w.currentTranscript(),
		Active:          !final,
	}
	if final {
		created := w.createdCount()
		st.EndedAt = w.now().UTC().Format(time.RFC3339)
		st.CheckpointsCreated = &created
		st.CodexExitCode = &exitCode
	}
	return writeStateFile(w.statePath, st)
}

func (w *Wrapper) absFiles(changed []string) []string {
	if len(changed) > w.maxFiles {
		changed = changed[:w.maxFiles]
	}
	out := make([]string, 0, len(changed))
	for _, rel := range changed {
		if filepath.IsAbs(rel) {
			out = append(out, filepath.Clean(rel))
			continue
		}
		out = append(out, filepath.Join(w.cfg.Cwd, rel))
	}
	return out
}

func (w *Wrapper) budgets() transcript.Budgets {
	return transcript.Budgets{
		HeadLines:   w.cfg.Summary.HeadLines,
		TailLines:   w.cfg.Summary.TailLines,
		MaxMessages: w.cfg.Summary.MaxMessages,
		MaxChars:    w.cfg.Summary.MaxChars,
	}
}

func (w *Wrapper) snapshot() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSnapshot
}

func (w *Wrapper) createdCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.created
}

func (w *Wrapper) currentTranscript() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.transcriptPath
}

func fallbackSummary(kind types.Kind, reason string, changed []string, maxFiles int) string {
	if len(changed) == 0 {
		return fmt.Sprintf(
			"Automatic %s checkpoint from Codex wrapper (%s). No git-tracked changes detected.",
			kind, reason)
	}
	shown := changed
	suffix := ""
	if len(changed) > maxFiles {
		shown = changed[:maxFiles]
		suffix = fmt.Sprintf(" (+%d more)", len(changed)-maxFiles)
	}
	return fmt.Sprintf(
		"Automatic %s checkpoint from Codex wrapper (%s). Detected %d changed files: %s%s.",
		kind, reason, len(changed), strings.Join(shown, ", "), suffix)
}

func resolvePath(cwd, override, fallback string) string {
	path := strings.TrimSpace(override)
	if path == "" {
		path = fallback
	}
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

func appendIfUnset(env []string, key, value string) []string {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return env
		}
	}
	return append(env, prefix+value)
}

package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"remem/internal/checkpoint"
	"remem/internal/gitinfo"
	"remem/internal/ingest"
	"remem/internal/types"
)

type CheckpointCommand struct {
	wiring commandWiring
}

func NewCheckpointCommand(wiring commandWiring) *CheckpointCommand {
	return &CheckpointCommand{wiring: wiring}
}

func (c *CheckpointCommand) Run(args []string) error {
	fs := flag.NewFlagSet("checkpoint", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	project := fs.String("project", "", "project identifier (default: detected)")
	sessionID := fs.String("session-id", "", "session identifier (default: detected)")
	kindFlag := fs.String("kind", string(types.KindInterval), "checkpoint type")
	title := fs.String("title", "", "document title override")
	summaryFlag := fs.String("summary", "", "checkpoint summary text")
	summaryFile := fs.String("summary-file", "", "read summary text from file")
	var decisions, openQuestions, nextActions, filesTouched stringList
	fs.Var(&decisions, "decision", "decision made during the session (repeatable)")
	fs.Var(&openQuestions, "open-question", "open question to track (repeatable)")
	fs.Var(&nextActions, "next-action", "next action item (repeatable)")
	fs.Var(&filesTouched, "file-touched", "file touched in this segment (repeatable)")
	repoRoot := fs.String("repo-root", "", "repository root path (default: cwd)")
	branch := fs.String("branch", "", "git branch override")
	source := fs.String("source", "quick_capture", "ingest source")
	sourcePath := fs.String("source-path", "", "source path override")
	returnID := fs.Bool("return-id", false, "request immediate document_id in ingest response")
	doIngest := fs.Bool("ingest", false, "send payload to the memory API after building")
	apiURL := fs.String("api-url", "", "memory API base URL override")
	apiKey := fs.String("api-key", "", "memory API key override")
	logFile := fs.String("log-file", "", "local NDJSON log file override")
	noLog := fs.Bool("no-log", false, "skip writing the local log entry")
	dryRun := fs.Bool("dry-run", false, "print payload and exit without ingest")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kind, err := validKind(*kindFlag)
	if err != nil {
		return err
	}

	cwd, err := c.wiring.getwd()
	if err != nil {
		return err
	}
	cfg := c.wiring.loadConfig(cwd, *sessionID)
	if *project == "" {
		*project = cfg.Project
	}
	if *sessionID == "" {
		*sessionID = cfg.SessionID
	}
	if *repoRoot == "" {
		*repoRoot = cwd
	}
	if *apiURL == "" {
		*apiURL = cfg.APIURL
	}
	if *apiKey == "" {
		*apiKey = cfg.APIKey
	}

	summaryText, err := c.readSummary(*summaryFlag, *summaryFile)
	if err != nil {
		return err
	}

	doc := checkpoint.BuildManual(checkpoint.ManualInput{
		Project:       *project,
		SessionID:     *sessionID,
		Kind:          kind,
		Title:         *title,
		Summary:       summaryText,
		Decisions:     decisions,
		OpenQuestions: openQuestions,
		NextActions:   nextActions,
		FilesTouched:  filesTouched,
		RepoRoot:      *repoRoot,
		Branch:        *branch,
		Source:        *source,
		SourcePath:    *sourcePath,
		ReturnID:      *returnID,
	}, gitinfo.New(), time.Now())

	var response map[string]any
	if *doIngest && !*dryRun {
		response, err = ingestDocument(c.wiring, *apiURL, *apiKey, cfg.LogLevel, doc)
		if err != nil {
			return err
		}
	}

	if !*noLog {
		logPath := resolveLogPath(cwd, *logFile, cfg.LogPath)
		if err := ingest.NewAuditLog(logPath).AppendNow(types.AuditEventCheckpoint, doc, response); err != nil {
			return err
		}
	}

	return printJSON(c.wiring.stdout, map[string]any{
		"payload":  doc,
		"response": response,
	})
}

// readSummary prefers the flag, then the file, then piped stdin.
func (c *CheckpointCommand) readSummary(flagValue, filePath string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if filePath != "" {
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	if c.wiring.stdin != nil {
		if file, ok := c.wiring.stdin.(*os.File); ok {
			if info, err := file.Stat(); err != nil || info.Mode()&os.ModeCharDevice != 0 {
				return "", nil
			}
		}
		raw, err := io.ReadAll(c.wiring.stdin)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return "", nil
}

func ingestDocument(wiring commandWiring, apiURL, apiKey, logLevel string, doc *types.Document) (map[string]any, error) {
	if apiURL == "" || apiKey == "" {
		return nil, errIngestCredentials
	}
	log := newCommandLogger(wiring.stderr, logLevel)
	gateway := ingest.NewGateway(apiURL, apiKey, log)
	return gateway.Ingest(context.Background(), doc), nil
}

func resolveLogPath(cwd, override, fallback string) string {
	path := override
	if path == "" {
		path = fallback
	}
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

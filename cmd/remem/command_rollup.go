package main

import (
	"errors"
	"flag"
	"os"
	"time"

	"remem/internal/checkpoint"
	"remem/internal/ingest"
	"remem/internal/types"
)

type RollupCommand struct {
	wiring commandWiring
}

func NewRollupCommand(wiring commandWiring) *RollupCommand {
	return &RollupCommand{wiring: wiring}
}

func (c *RollupCommand) Run(args []string) error {
	fs := flag.NewFlagSet("rollup", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	project := fs.String("project", "", "project identifier (default: detected)")
	sessionID := fs.String("session-id", "", "session identifier (default: detected)")
	summaryFlag := fs.String("summary", "", "rollup summary paragraph")
	kindFlag := fs.String("kind", string(types.KindFinal), "rollup kind")
	title := fs.String("title", "", "document title override")
	source := fs.String("source", "quick_capture", "ingest source")
	sourcePath := fs.String("source-path", "", "source path override")
	returnID := fs.Bool("return-id", false, "request immediate document_id in ingest response")
	output := fs.String("output", "", "write rendered rollup markdown to this file")
	doIngest := fs.Bool("ingest", false, "send rollup to the memory API")
	apiURL := fs.String("api-url", "", "memory API base URL override")
	apiKey := fs.String("api-key", "", "memory API key override")
	logFile := fs.String("log-file", "", "checkpoint log file override")
	noLog := fs.Bool("no-log", false, "skip appending the rollup to the checkpoint log")
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
	if *project == "" || *sessionID == "" {
		return errors.New("--project and --session-id are required for rollups")
	}
	if *apiURL == "" {
		*apiURL = cfg.APIURL
	}
	if *apiKey == "" {
		*apiKey = cfg.APIKey
	}
	if *sourcePath == "" {
		*sourcePath = cwd
	}

	logPath := resolveLogPath(cwd, *logFile, cfg.LogPath)
	audit := ingest.NewAuditLog(logPath)
	records, err := audit.CheckpointsFor(*project, *sessionID)
	if err != nil {
		return err
	}

	doc := checkpoint.BuildManualRollup(checkpoint.ManualRollupInput{
		Project:    *project,
		SessionID:  *sessionID,
		Kind:       kind,
		Title:      *title,
		Summary:    *summaryFlag,
		Source:     *source,
		SourcePath: *sourcePath,
		ReturnID:   *returnID,
	}, records, time.Now())

	if *output != "" {
		if err := os.WriteFile(*output, []byte(doc.Content), 0o644); err != nil {
			return err
		}
	}

	var response map[string]any
	if *doIngest && !*dryRun {
		response, err = ingestDocument(c.wiring, *apiURL, *apiKey, cfg.LogLevel, doc)
		if err != nil {
			return err
		}
	}

	if !*noLog {
		if err := audit.AppendNow(types.AuditEventRollup, doc, response); err != nil {
			return err
		}
	}

	return printJSON(c.wiring.stdout, map[string]any{
		"payload":      doc,
		"response":     response,
		"records_used": len(records),
	})
}

package main

import (
	"flag"

	"remem/internal/wrapper"
)

type WrapCommand struct {
	wiring commandWiring
}

func NewWrapCommand(wiring commandWiring) *WrapCommand {
	return &WrapCommand{wiring: wiring}
}

func (c *WrapCommand) Run(args []string) error {
	fs := flag.NewFlagSet("wrap", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	project := fs.String("project", "", "project key for checkpoint metadata")
	sessionID := fs.String("session-id", "", "session id for grouping checkpoints")
	intervalSeconds := fs.Int("interval-seconds", 0, "interval for periodic checkpoints")
	maxFiles := fs.Int("max-files", 0, "max files listed per checkpoint")
	logFile := fs.String("log-file", "", "checkpoint NDJSON log file override")
	stateFile := fs.String("state-file", "", "wrapper state file override")
	codexBin := fs.String("codex-bin", "", "codex executable path")
	apiURL := fs.String("api-url", "", "memory API base URL override")
	noIngest := fs.Bool("no-ingest", false, "disable API ingest, write local logs only")
	noRollup := fs.Bool("no-rollup", false, "disable the final rollup on exit")
	dryRun := fs.Bool("dry-run", false, "build payloads only, skip API writes")
	checkpointOnStart := fs.Bool("checkpoint-on-start", false, "emit one checkpoint immediately after launch")
	alwaysCheckpoint := fs.Bool("always-checkpoint", false, "checkpoint even when git status has not changed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	forwarded := fs.Args()
	if len(forwarded) > 0 && forwarded[0] == "--" {
		forwarded = forwarded[1:]
	}

	cwd, err := c.wiring.getwd()
	if err != nil {
		return err
	}
	cfg := c.wiring.loadConfig(cwd, *sessionID)
	log := newCommandLogger(c.wiring.stderr, cfg.LogLevel)

	code, err := c.wiring.runWrapper(cfg, wrapper.Options{
		Project:           *project,
		SessionID:         *sessionID,
		IntervalSeconds:   *intervalSeconds,
		MaxFiles:          *maxFiles,
		CodexBin:          *codexBin,
		LogFile:           *logFile,
		StateFile:         *stateFile,
		APIURL:            *apiURL,
		NoIngest:          *noIngest,
		NoRollup:          *noRollup,
		DryRun:            *dryRun,
		CheckpointOnStart: *checkpointOnStart,
		AlwaysCheckpoint:  *alwaysCheckpoint,
		Args:              forwarded,
	}, log)
	if err != nil {
		return err
	}
	if code != 0 {
		c.wiring.exit(code)
	}
	return nil
}

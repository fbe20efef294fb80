package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"path/filepath"
	"strings"

	"remem/internal/checkpoint"
	"remem/internal/gitinfo"
	"remem/internal/hook"
	"remem/internal/ingest"
	"remem/internal/logging"
	"remem/internal/summary"
	"remem/internal/types"
)

// HookCommand handles one agent lifecycle event. It must never fail the
// calling agent: runtime problems are logged to stderr and swallowed;
// only misconfiguration (an unknown mode) surfaces as an error.
type HookCommand struct {
	wiring commandWiring
}

func NewHookCommand(wiring commandWiring) *HookCommand {
	return &HookCommand{wiring: wiring}
}

func (c *HookCommand) Run(args []string) error {
	fs := flag.NewFlagSet("hook", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	mode := fs.String("mode", hook.ModePostToolUse, "hook event mode")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var payload types.HookPayload
	raw, err := io.ReadAll(c.wiring.stdin)
	if err == nil && len(raw) > 0 {
		if decodeErr := json.Unmarshal(raw, &payload); decodeErr != nil {
			// A malformed payload is the agent's bug, not ours; stay silent
			// rather than interrupting the session.
			return nil
		}
	}

	cwd, err := c.resolveCwd(payload)
	if err != nil {
		return err
	}
	cfg := c.wiring.loadConfig(cwd, payload.SessionID)
	if !cfg.Enabled {
		return nil
	}
	log := newCommandLogger(c.wiring.stderr, cfg.LogLevel)

	gen := summary.NewGenerator(cfg.Summary, log)
	builder := checkpoint.NewBuilder(cfg, gitinfo.New(), gen, log)
	gateway := ingest.NewGateway(cfg.APIURL, cfg.APIKey, log)
	handler := hook.NewHandler(cfg, builder, gateway, log)

	if err := handler.Handle(context.Background(), *mode, payload); err != nil {
		var unknown *hook.UnknownModeError
		if errors.As(err, &unknown) {
			return err
		}
		log.Warn("hook failed", logging.F("mode", *mode), logging.F("error", err))
	}
	return nil
}

// resolveCwd anchors all state and log paths to the session's working
// directory from the payload. Hosts may invoke the hook from anywhere, so
// the process cwd is only a fallback.
func (c *HookCommand) resolveCwd(payload types.HookPayload) (string, error) {
	if cwd := strings.TrimSpace(payload.Cwd); cwd != "" {
		return filepath.Abs(cwd)
	}
	return c.wiring.getwd()
}

package main

import (
	"context"
	"io"
	"os"

	"remem/internal/config"
	"remem/internal/logging"
	"remem/internal/ui"
	"remem/internal/wrapper"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	getwd       func() (string, error)
	loadConfig  func(cwd, sessionID string) config.Config
	runWrapper  func(cfg config.Config, opts wrapper.Options, log logging.Logger) (int, error)
	runSessions func(logPath string) error
	exit        func(code int)
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:     stdout,
		stderr:     stderr,
		stdin:      os.Stdin,
		getwd:      os.Getwd,
		loadConfig: config.Load,
		runWrapper: func(cfg config.Config, opts wrapper.Options, log logging.Logger) (int, error) {
			return wrapper.New(cfg, opts, log).Run(context.Background())
		},
		runSessions: ui.Run,
		exit:        os.Exit,
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"hook":       NewHookCommand(wiring),
		"checkpoint": NewCheckpointCommand(wiring),
		"rollup":     NewRollupCommand(wiring),
		"recall":     NewRecallCommand(wiring),
		"wrap":       NewWrapCommand(wiring),
		"sessions":   NewSessionsCommand(wiring),
		"config":     NewConfigCommand(wiring),
	}
}

package main

import "flag"

type SessionsCommand struct {
	wiring commandWiring
}

func NewSessionsCommand(wiring commandWiring) *SessionsCommand {
	return &SessionsCommand{wiring: wiring}
}

func (c *SessionsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	logFile := fs.String("log-file", "", "checkpoint log file override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cwd, err := c.wiring.getwd()
	if err != nil {
		return err
	}
	cfg := c.wiring.loadConfig(cwd, "")
	return c.wiring.runSessions(resolveLogPath(cwd, *logFile, cfg.LogPath))
}

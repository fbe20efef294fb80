package main

import (
	"fmt"
	"os"
)

const usageText = `remem captures coding-session memory: automatic checkpoints from agent
hooks, manual checkpoints and rollups, and recall against the memory API.

Usage:
  remem <command> [flags]

Commands:
  hook        handle one agent hook event (payload JSON on stdin)
  checkpoint  build a checkpoint document from flags
  rollup      consolidate logged checkpoints into a session rollup
  recall      query the memory service
  wrap        run codex with interval checkpoints and a final rollup
  sessions    browse the local checkpoint log in a terminal UI
  config      print effective configuration
  help        show help

Flags:
  -h, --help   show help

Hook flags:
  --mode   post_tool_use | task_completed | pre_compact | session_end

Examples:
  remem hook --mode post_tool_use < payload.json
  remem checkpoint --summary "Fixed the flaky migration test" --ingest
  remem rollup --project api --session-id sess-42 --ingest
  remem recall --query "auth middleware decisions" --checkpoint-project api
  remem wrap --checkpoint-on-start -- --model gpt-5.3-codex-spark
  remem sessions
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}

package summary

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
)

// commandRunner executes an external CLI and returns its stdout. Tests
// substitute this to avoid spawning real agent processes.
type commandRunner func(ctx context.Context, name string, args []string, stdin string, extraEnv []string) (string, error)

func runCommand(ctx context.Context, name string, args []string, stdin string, extraEnv []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), extraEnv...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

// callClaudeCLI runs a one-shot non-interactive claude invocation with
// tools and slash commands disabled. The hook-suppression variables stop
// the nested agent from re-triggering this pipeline recursively.
func (g *Generator) callClaudeCLI(ctx context.Context, prompt, model string) (string, error) {
	args := []string{
		"-p",
		"--model", model,
		"--output-format", "text",
		"--no-session-persistence",
		"--tools", "",
		"--disable-slash-commands",
		"--setting-sources", "user",
		"--permission-mode", "bypassPermissions",
		prompt,
	}
	extraEnv := []string{
		"REMEM_MEMORY_AUTO_ENABLED=0",
		"REMEM_MEMORY_SUMMARY_ENABLED=0",
		"NO_COLOR=1",
	}
	out, err := g.run(ctx, "claude", args, "", extraEnv)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

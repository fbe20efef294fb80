package summary

import (
	"context"
	"strings"
)

// callCodexCLI runs a read-only ephemeral codex exec inside a throwaway
// CODEX_HOME. The CLI's exit status is unreliable for schema-constrained
// runs, so success is judged by whether the last-message file was written.
func (g *Generator) callCodexCLI(ctx context.Context, prompt, model string) (string, error) {
	sandbox, err := newCodexSandbox(g.codexHome)
	if err != nil {
		return "", err
	}
	defer sandbox.Close()

	args := []string{
		"exec",
		"--ephemeral",
		"--skip-git-repo-check",
		"-s", "read-only",
		"-m", model,
		"--color", "never",
		"--output-schema", sandbox.SchemaPath(),
		"--output-last-message", sandbox.OutputPath(),
		"-",
	}
	extraEnv := []string{
		"CODEX_HOME=" + sandbox.Home(),
		"NO_COLOR=1",
	}
	if _, err := g.run(ctx, "codex", args, prompt, extraEnv); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return strings.TrimSpace(sandbox.Output()), nil
}

package summary

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// codexSummarySchema constrains the codex CLI's final message to the
// structured summary shape.
const codexSummarySchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["summary", "decisions", "open_questions", "next_actions"],
  "properties": {
    "summary": {"type": "string"},
    "decisions": {"type": "array", "items": {"type": "string"}},
    "open_questions": {"type": "array", "items": {"type": "string"}},
    "next_actions": {"type": "array", "items": {"type": "string"}}
  }
}`

// codexSandboxAgents replaces the user's AGENTS.md inside the sandbox so
// a summarization call never executes user-wide agent workflows.
const codexSandboxAgents = "You are a summarization engine.\n" +
	"Do not run commands. Do not use tools. Do not read local files.\n" +
	"Return only the structured JSON requested.\n"

// codexSandbox is a throwaway CODEX_HOME holding only the credentials and
// constraints a single summarization call needs. Callers must Close it.
type codexSandbox struct {
	home string
}

// newCodexSandbox builds the sandbox from baseHome, which must contain
// auth.json. Missing credentials are an error so the caller can report
// the provider unavailable instead of spawning a doomed process.
func newCodexSandbox(baseHome string) (*codexSandbox, error) {
	authSrc := filepath.Join(baseHome, "auth.json")
	if _, err := os.Stat(authSrc); err != nil {
		return nil, errors.New("codex credentials not found in " + baseHome)
	}

	home, err := os.MkdirTemp("", "remem-codex-summary-")
	if err != nil {
		return nil, err
	}
	sandbox := &codexSandbox{home: home}

	if err := copyFile(authSrc, filepath.Join(home, "auth.json"), 0o600); err != nil {
		sandbox.Close()
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(home, "AGENTS.md"), []byte(codexSandboxAgents), 0o600); err != nil {
		sandbox.Close()
		return nil, err
	}
	if err := os.WriteFile(sandbox.SchemaPath(), []byte(codexSummarySchema), 0o600); err != nil {
		sandbox.Close()
		return nil, err
	}
	return sandbox, nil
}

func (s *codexSandbox) Home() string       { return s.home }
func (s *codexSandbox) SchemaPath() string { return filepath.Join(s.home, "output-schema.json") }
func (s *codexSandbox) OutputPath() string { return filepath.Join(s.home, "last-message.txt") }

// Output reads the CLI's final message, empty when the run produced none.
func (s *codexSandbox) Output() string {
	data, err := os.ReadFile(s.OutputPath())
	if err != nil {
		return ""
	}
	return string(data)
}

func (s *codexSandbox) Close() {
	if s == nil || s.home == "" {
		return
	}
	_ = os.RemoveAll(s.home)
	s.home = ""
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

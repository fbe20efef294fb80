// Package gitinfo shells out to git for the few repository facts the
// checkpoint pipeline embeds in documents. Every query degrades to a zero
// value when git is missing or cwd is not a repository.
package gitinfo

import (
	"os/exec"
	"strings"
)

// Runner executes git with -C dir semantics and returns stdout. Tests
// substitute this to avoid needing real repositories.
type Runner func(dir string, args ...string) (string, error)

func runGit(dir string, args ...string) (string, error) {
	full := append([]string{"-C", dir}, args...)
	out, err := exec.Command("git", full...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Git answers repository queries for one working directory.
type Git struct {
	run Runner
}

func New() *Git {
	return &Git{run: runGit}
}

// NewWithRunner is for tests.
func NewWithRunner(run Runner) *Git {
	return &Git{run: run}
}

// Branch returns the current branch name, empty when detached or not a
// repository.
func (g *Git) Branch(cwd string) string {
	out, err := g.run(cwd, "branch", "--show-current")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// IsRepo reports whether cwd is inside a git work tree.
func (g *Git) IsRepo(cwd string) bool {
	out, err := g.run(cwd, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "true"
}

// ChangedPaths returns the working tree's modified and untracked paths.
func (g *Git) ChangedPaths(cwd string) []string {
	out, err := g.run(cwd, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return nil
	}
	return ParsePorcelainPaths(strings.Split(out, "\n"))
}

// ParsePorcelainPaths extracts unique paths from `git status --porcelain`
// lines. Renames keep the destination side; quoted paths are unwrapped.
func ParsePorcelainPaths(lines []string) []string {
	var paths []string
	seen := make(map[string]struct{})
	for _, line := range lines {
		if len(line) < 4 {
			continue
		}
		raw := strings.TrimSpace(line[3:])
		if raw == "" {
			continue
		}
		if idx := strings.Index(raw, " -> "); idx >= 0 {
			raw = strings.TrimSpace(raw[idx+4:])
		}
		if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
			raw = raw[1 : len(raw)-1]
		}
		if raw == "" {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		paths = append(paths, raw)
	}
	return paths
}

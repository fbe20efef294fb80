package gitinfo

import (
	"errors"
	"reflect"
	"testing"
)

func TestParsePorcelainPaths(t *testing.T) {
	lines := []string{
		" M internal/app/model.go",
		"?? docs/notes.md",
		"R  old_name.go -> new_name.go",
		`?? "path with spaces.txt"`,
		" M internal/app/model.go", // duplicate
		"",
		"XY", // too short
	}
	got := ParsePorcelainPaths(lines)
	want := []string{
		"internal/app/model.go",
		"docs/notes.md",
		"new_name.go",
		"path with spaces.txt",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParsePorcelainPaths = %v, want %v", got, want)
	}
}

func TestBranch(t *testing.T) {
	g := NewWithRunner(func(dir string, args ...string) (string, error) {
		return "feature/checkpoints\n", nil
	})
	if got := g.Branch("/repo"); got != "feature/checkpoints" {
		t.Fatalf("Branch = %q", got)
	}

	failing := NewWithRunner(func(dir string, args ...string) (string, error) {
		return "", errors.New("not a repo")
	})
	if got := failing.Branch("/tmp"); got != "" {
		t.Fatalf("Branch on failure = %q, want empty", got)
	}
}

func TestIsRepo(t *testing.T) {
	g := NewWithRunner(func(dir string, args ...string) (string, error) {
		return "true\n", nil
	})
	if !g.IsRepo("/repo") {
		t.Fatal("expected IsRepo true")
	}
	outside := NewWithRunner(func(dir string, args ...string) (string, error) {
		return "", errors.New("fatal: not a git repository")
	})
	if outside.IsRepo("/tmp") {
		t.Fatal("expected IsRepo false")
	}
}

func TestChangedPaths(t *testing.T) {
	g := NewWithRunner(func(dir string, args ...string) (string, error) {
		return " M a.go\n?? b.go\n", nil
	})
	got := g.ChangedPaths("/repo")
	if !reflect.DeepEqual(got, []string{"a.go", "b.go"}) {
		t.Fatalf("ChangedPaths = %v", got)
	}
}

package transcript

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestJoinTurnsTrimsOnRuneBoundary(t *testing.T) {
	// 11 ASCII bytes then 400 two-byte runes; maxChars 101 puts the byte
	// cut inside a rune.
	turns := []string{"Assistant: " + strings.Repeat("é", 400)}

	excerpt := joinTurns(turns, 10, 101)

	if !utf8.ValidString(excerpt) {
		t.Fatalf("excerpt is not valid UTF-8: %q", excerpt[:12])
	}
	if want := strings.Repeat("é", 50); excerpt != want {
		t.Fatalf("excerpt = %q (len %d), want 50 runs of é", excerpt, len(excerpt))
	}
}

func TestJoinTurnsRealignsToUserTurn(t *testing.T) {
	turns := []string{
		"User: set up the database",
		"Assistant: done, migrations applied",
		"User: now add the cache layer",
		"Assistant: wired redis behind an interface",
	}

	excerpt := joinTurns(turns, 10, 80)

	if !strings.HasPrefix(excerpt, "User: now add the cache layer") {
		t.Fatalf("excerpt not realigned to a user turn:\n%s", excerpt)
	}
}

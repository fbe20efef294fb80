// Package transcript turns raw coding-agent conversation logs into bounded
// text excerpts suitable for prompting a summarization model. Two on-disk
// shapes are supported: Claude-style turn logs (one role-tagged message per
// line) and Codex-style rollout event streams.
package transcript

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Excerpt picks the parser by transcript shape: rollout files carry the
// event-stream format, everything else the turn-based one.
func Excerpt(path string, budgets Budgets) string {
	if strings.HasPrefix(filepath.Base(path), "rollout-") {
		return CodexExcerpt(path, budgets)
	}
	return ClaudeExcerpt(path, budgets)
}

// Budgets bound how much of a transcript survives into the excerpt.
type Budgets struct {
	HeadLines   int
	TailLines   int
	MaxMessages int
	MaxChars    int
}

func (b Budgets) normalized() Budgets {
	if b.HeadLines < 0 {
		b.HeadLines = 0
	}
	if b.TailLines < 0 {
		b.TailLines = 0
	}
	if b.MaxMessages < 1 {
		b.MaxMessages = 1
	}
	if b.MaxChars < 500 {
		b.MaxChars = 500
	}
	return b
}

// joinTurns caps turns to the most recent maxMessages, joins them with
// blank lines, and trims the front to maxChars. When the cut lands inside
// a turn the excerpt is realigned to the next user turn so no turn is
// truncated mid-thought if that can be avoided.
func joinTurns(turns []string, maxMessages, maxChars int) string {
	if len(turns) > maxMessages {
		turns = turns[len(turns)-maxMessages:]
	}
	excerpt := strings.TrimSpace(strings.Join(turns, "\n\n"))
	if len(excerpt) > maxChars {
		excerpt = excerpt[len(excerpt)-maxChars:]
		for len(excerpt) > 0 && !utf8.RuneStart(excerpt[0]) {
			excerpt = excerpt[1:]
		}
		if cut := strings.Index(excerpt, "User: "); cut > 0 {
			excerpt = excerpt[cut:]
		}
	}
	return strings.TrimSpace(excerpt)
}

// collapseSpaces squashes all runs of whitespace into single spaces.
func collapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// truncate shortens a one-line snippet, marking the cut with an ellipsis.
func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const maxToolSnippet = 180

type claudeLine struct {
	Type    string `json:"type"`
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type claudeBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ClaudeExcerpt reads a turn-based transcript and returns a bounded
// excerpt of user and assistant turns. A missing file or a transcript
// where nothing survives filtering yields the empty string; callers treat
// that as "skip summarization".
func ClaudeExcerpt(path string, budgets Budgets) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()
	budgets = budgets.normalized()

	// Collect a head window and a ring-buffered tail window in one pass.
	var head []string
	tailCap := budgets.TailLines
	if tailCap < 1 {
		tailCap = 1
	}
	tail := make([]string, 0, tailCap)
	tailStart := 0
	total := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 256*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		total++
		if budgets.HeadLines > 0 && total <= budgets.HeadLines {
			head = append(head, line)
		}
		if budgets.TailLines > 0 {
			if len(tail) < tailCap {
				tail = append(tail, line)
			} else {
				tail[tailStart] = line
				tailStart = (tailStart + 1) % tailCap
			}
		}
	}
	if total == 0 {
		return ""
	}

	combined := combineWindows(head, orderedTail(tail, tailStart), total, budgets)
	turns := claudeTurns(combined)
	return joinTurns(turns, budgets.MaxMessages, budgets.MaxChars)
}

func orderedTail(ring []string, start int) []string {
	if start == 0 {
		return ring
	}
	out := make([]string, 0, len(ring))
	out = append(out, ring[start:]...)
	out = append(out, ring[:start]...)
	return out
}

// combineWindows de-overlaps the head and tail windows by line position.
func combineWindows(head, tail []string, total int, budgets Budgets) []string {
	if len(tail) == 0 || total <= budgets.HeadLines {
		return head
	}
	tailStartIdx := total - len(tail)
	overlap := budgets.HeadLines - tailStartIdx
	if overlap < 0 {
		overlap = 0
	}
	if overlap > len(tail) {
		overlap = len(tail)
	}
	return append(append([]string{}, head...), tail[overlap:]...)
}

func claudeTurns(lines []string) []string {
	var turns []string
	for _, raw := range lines {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		var row claudeLine
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			continue
		}
		switch row.Type {
		case "user":
			if row.Message.Role != "user" {
				continue
			}
			text, hasToolResult := claudeUserText(row.Message.Content)
			// Pseudo-messages carrying tool-result payloads are not
			// conversation and are dropped.
			if hasToolResult || text == "" {
				continue
			}
			turns = append(turns, "User: "+text)
		case "assistant":
			if row.Message.Role != "assistant" {
				continue
			}
			text := claudeAssistantText(row.Message.Content)
			if text == "" {
				continue
			}
			turns = append(turns, "Assistant: "+text)
		}
	}
	return turns
}

func claudeUserText(raw json.RawMessage) (text string, hasToolResult bool) {
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		plain = strings.TrimSpace(plain)
		if isNoiseClaudeText(plain) {
			return "", false
		}
		return plain, false
	}

	var blocks []claudeBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", false
	}
	var parts []string
	for _, block := range blocks {
		switch block.Type {
		case "tool_result":
			hasToolResult = true
		case "text":
			trimmed := strings.TrimSpace(block.Text)
			if trimmed != "" && !isNoiseClaudeText(trimmed) {
				parts = append(parts, trimmed)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), hasToolResult
}

// claudeAssistantText extracts assistant prose and renders tool_use blocks
// as short [tool] lines inlined next to it.
func claudeAssistantText(raw json.RawMessage) string {
	var blocks []claudeBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		var plain string
		if err := json.Unmarshal(raw, &plain); err == nil {
			return strings.TrimSpace(plain)
		}
		return ""
	}

	var texts []string
	var tools []string
	for _, block := range blocks {
		switch block.Type {
		case "text":
			if trimmed := strings.TrimSpace(block.Text); trimmed != "" {
				texts = append(texts, trimmed)
			}
		case "tool_use":
			if snippet := toolUseSnippet(block.Name, block.Input); snippet != "" {
				tools = append(tools, snippet)
			}
		}
	}

	text := strings.TrimSpace(strings.Join(texts, "\n"))
	if text == "" {
		if len(tools) == 0 {
			return ""
		}
		if len(tools) > 3 {
			tools = tools[:3]
		}
		var lines []string
		for _, tool := range tools {
			lines = append(lines, "[tool] "+tool)
		}
		return strings.Join(lines, "\n")
	}
	if len(tools) > 0 {
		text += "\n[tool] " + tools[0]
	}
	if isNoiseClaudeText(text) {
		return ""
	}
	return text
}

func toolUseSnippet(name string, input json.RawMessage) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var fields map[string]any
	_ = json.Unmarshal(input, &fields)
	if name == "Bash" {
		if command, ok := fields["command"].(string); ok && strings.TrimSpace(command) != "" {
			return "Bash " + truncate(collapseSpaces(command), maxToolSnippet)
		}
		return name
	}
	for _, key := range []string{"file_path", "path"} {
		if value, ok := fields[key].(string); ok && strings.TrimSpace(value) != "" {
			return fmt.Sprintf("%s %s", name, strings.TrimSpace(value))
		}
	}
	return name
}

// isNoiseClaudeText matches host-injected boilerplate that carries no
// summarization value.
func isNoiseClaudeText(text string) bool {
	lowered := strings.ToLower(text)
	return strings.Contains(lowered, "<local-command-caveat>") ||
		strings.Contains(lowered, "<local-command-stdout>") ||
		strings.HasPrefix(lowered, "<command-name>") ||
		strings.Contains(lowered, "<system-reminder>")
}

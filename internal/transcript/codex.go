package transcript

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
)

type codexLine struct {
	Type    string `json:"type"`
	Payload struct {
		Type      string          `json:"type"`
		Role      string          `json:"role"`
		Content   json.RawMessage `json:"content"`
		Name      string          `json:"name"`
		Arguments string          `json:"arguments"`
	} `json:"payload"`
}

type codexContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CodexExcerpt scans an event-stream rollout transcript for message and
// function_call records and returns a bounded excerpt. Missing files and
// fully-filtered transcripts yield the empty string.
func CodexExcerpt(path string, budgets Budgets) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()
	budgets = budgets.normalized()

	var turns []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 256*1024), 10*1024*1024)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var row codexLine
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			continue
		}
		if row.Type != "response_item" {
			continue
		}
		switch row.Payload.Type {
		case "message":
			role := row.Payload.Role
			if role != "user" && role != "assistant" {
				continue
			}
			text := codexMessageText(row.Payload.Content, role)
			if text == "" {
				continue
			}
			if role == "user" && isNoiseCodexUserText(text) {
				continue
			}
			prefix := "Assistant: "
			if role == "user" {
				prefix = "User: "
			}
			turns = append(turns, prefix+text)
		case "function_call":
			name := strings.TrimSpace(row.Payload.Name)
			if name == "" {
				continue
			}
			snippet := name
			if args := strings.TrimSpace(row.Payload.Arguments); args != "" {
				snippet += " " + truncate(collapseSpaces(args), maxToolSnippet)
			}
			turns = append(turns, "[tool] "+snippet)
		}

		// Keep memory bounded on very long sessions.
		if len(turns) > budgets.MaxMessages*3 {
			turns = turns[len(turns)-budgets.MaxMessages*2:]
		}
	}

	return joinTurns(turns, budgets.MaxMessages, budgets.MaxChars)
}

func codexMessageText(raw json.RawMessage, role string) string {
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return strings.TrimSpace(plain)
	}
	var items []codexContentItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}
	allowed := map[string]bool{"text": true, "output_text": true}
	if role == "user" {
		allowed = map[string]bool{"text": true, "input_text": true}
	}
	var parts []string
	for _, item := range items {
		if item.Type != "" && !allowed[item.Type] {
			continue
		}
		if trimmed := strings.TrimSpace(item.Text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// isNoiseCodexUserText filters instruction-file and environment boilerplate
// that the Codex CLI injects as user messages.
func isNoiseCodexUserText(text string) bool {
	lowered := strings.ToLower(text)
	if strings.Contains(lowered, "# agents.md instructions for ") {
		return true
	}
	if strings.Contains(lowered, "<environment_context>") {
		return true
	}
	if strings.Contains(lowered, "<permissions instructions>") {
		return true
	}
	if strings.Contains(lowered, "## superpowers system") && len(lowered) > 400 {
		return true
	}
	return false
}

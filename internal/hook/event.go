package hook

import (
	"strings"
	"time"

	"remem/internal/types"
)

const bashSummaryLimit = 180

// ExtractToolEvent converts a host tool invocation into an activity
// event. Returns nil when the payload names no tool, which tells the
// caller there is nothing to record.
func ExtractToolEvent(payload types.HookPayload, now time.Time) *types.ActivityEvent {
	tool := strings.TrimSpace(payload.ToolName)
	if tool == "" {
		return nil
	}
	fields := payload.ToolInputFields()

	event := &types.ActivityEvent{
		Timestamp: float64(now.UnixNano()) / 1e9,
		Tool:      tool,
		Summary:   tool,
	}
	switch tool {
	case "Write", "Edit", "MultiEdit":
		path := stringField(fields, "file_path")
		if path == "" {
			path = stringField(fields, "path")
		}
		if path != "" {
			event.Files = []string{path}
			event.Summary = tool + " " + path
		}
	case "Bash":
		if command := stringField(fields, "command"); command != "" {
			collapsed := strings.Join(strings.Fields(command), " ")
			if len(collapsed) > bashSummaryLimit {
				collapsed = collapsed[:bashSummaryLimit-3] + "..."
			}
			event.Summary = "Bash " + collapsed
		}
	}
	return event
}

func stringField(fields map[string]any, key string) string {
	value, _ := fields[key].(string)
	return strings.TrimSpace(value)
}

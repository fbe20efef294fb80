package types

import "encoding/json"

// HookPayload is the JSON document a host agent writes to the hook's
// stdin. Unknown fields are ignored so newer hosts stay compatible.
type HookPayload struct {
	SessionID      string          `json:"session_id"`
	Cwd            string          `json:"cwd"`
	HookEventName  string          `json:"hook_event_name"`
	ToolName       string          `json:"tool_name"`
	ToolInput      json.RawMessage `json:"tool_input"`
	TranscriptPath string          `json:"transcript_path"`
}

// ToolInputFields decodes the tool input as a loose field map. Returns an
// empty map when the input is absent or not an object.
func (p HookPayload) ToolInputFields() map[string]any {
	if len(p.ToolInput) == 0 {
		return map[string]any{}
	}
	var fields map[string]any
	if err := json.Unmarshal(p.ToolInput, &fields); err != nil || fields == nil {
		return map[string]any{}
	}
	return fields
}

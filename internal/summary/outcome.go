package summary

import "remem/internal/types"

// Status says how a generation attempt ended. Callers branch on it
// instead of inspecting errors: every status except StatusOK means "use
// the templated fallback".
type Status int

const (
	// StatusOK means the model returned a usable structured summary.
	StatusOK Status = iota
	// StatusUnavailable means no provider could run (none installed,
	// no keys, or summarization disabled).
	StatusUnavailable
	// StatusTimedOut means the provider ran past its deadline.
	StatusTimedOut
	// StatusInvalid means the provider answered but the reply held no
	// parseable summary object.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnavailable:
		return "unavailable"
	case StatusTimedOut:
		return "timed_out"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Result carries one generation attempt's outcome plus provenance.
type Result struct {
	Status   Status
	Summary  types.StructuredSummary
	Provider Provider
	Model    string
}

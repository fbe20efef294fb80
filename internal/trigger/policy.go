// Package trigger decides when accumulated session activity justifies a
// checkpoint.
package trigger

import (
	"time"

	"remem/internal/types"
)

// RepeatSuppression is the window during which a milestone signal with no
// new activity is treated as a duplicate of the previous checkpoint.
const RepeatSuppression = 30 * time.Second

// Thresholds are the interval-checkpoint knobs.
type Thresholds struct {
	MinEvents       int
	IntervalSeconds int
}

// ShouldInterval reports whether an interval checkpoint should fire.
// Below MinEvents nothing fires regardless of elapsed time. At or above
// the floor, fire for the first-ever checkpoint, after the interval has
// elapsed, or once a burst reaches twice the floor.
func ShouldInterval(state *types.SessionState, thresholds Thresholds, now time.Time) bool {
	if state.EventsSinceCheckpoint < thresholds.MinEvents {
		return false
	}
	if state.LastCheckpointEpoch <= 0 {
		return true
	}
	elapsed := now.Unix() - int64(state.LastCheckpointEpoch)
	if elapsed >= int64(thresholds.IntervalSeconds) {
		return true
	}
	return state.EventsSinceCheckpoint >= thresholds.MinEvents*2
}

// ShouldMilestone reports whether a milestone signal (task completion,
// pre-compaction, session end) should produce a checkpoint. Milestones
// bypass the interval policy but are suppressed when the same signal
// repeats inside RepeatSuppression with no new activity.
func ShouldMilestone(state *types.SessionState, now time.Time) bool {
	if state.EventsSinceCheckpoint > 0 {
		return true
	}
	if state.LastCheckpointEpoch <= 0 {
		return true
	}
	elapsed := now.Sub(time.Unix(int64(state.LastCheckpointEpoch), 0))
	return elapsed >= RepeatSuppression
}

// Package hook implements the host-agent lifecycle handlers. Each mode
// runs under the cross-process state lock so concurrent hook invocations
// from parallel tool calls never interleave state updates.
package hook

import (
	"context"
	"strings"
	"time"

	"remem/internal/checkpoint"
	"remem/internal/config"
	"remem/internal/ingest"
	"remem/internal/logging"
	"remem/internal/state"
	"remem/internal/trigger"
	"remem/internal/types"
)

// Hook modes, matching the host agent's lifecycle events.
const (
	ModePostToolUse   = "post_tool_use"
	ModeTaskCompleted = "task_completed"
	ModePreCompact    = "pre_compact"
	ModeSessionEnd    = "session_end"
)

// Handler executes one hook invocation end to end.
type Handler struct {
	cfg     config.Config
	store   *state.Store
	lock    *state.Lock
	builder *checkpoint.Builder
	gateway *ingest.Gateway
	audit   *ingest.AuditLog
	log     logging.Logger
	now     func() time.Time
}

func NewHandler(cfg config.Config, builder *checkpoint.Builder, gateway *ingest.Gateway, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	store := state.NewStore(cfg.StatePath)
	return &Handler{
		cfg:     cfg,
		store:   store,
		lock:    state.NewLock(store.LockPath()),
		builder: builder,
		gateway: gateway,
		audit:   ingest.NewAuditLog(cfg.LogPath),
		log:     log,
		now:     time.Now,
	}
}

// Handle dispatches one mode. Unknown modes are an error; everything
// else degrades quietly so the host agent is never blocked.
func (h *Handler) Handle(ctx context.Context, mode string, payload types.HookPayload) error {
	switch mode {
	case ModePostToolUse:
		return h.postToolUse(ctx, payload)
	case ModeTaskCompleted:
		return h.taskCompleted(ctx, payload)
	case ModePreCompact:
		return h.preCompact(ctx, payload)
	case ModeSessionEnd:
		return h.sessionEnd(ctx, payload)
	default:
		return &UnknownModeError{Mode: mode}
	}
}

// UnknownModeError reports a mode outside the supported set.
type UnknownModeError struct {
	Mode string
}

func (e *UnknownModeError) Error() string {
	return "unknown hook mode " + e.Mode
}

func (h *Handler) postToolUse(ctx context.Context, payload types.HookPayload) error {
	event := ExtractToolEvent(payload, h.now())
	if event == nil {
		return nil
	}
	return h.lock.WithLock(func() error {
		st := h.store.Load(h.cfg.SessionID)
		st.Project = h.cfg.Project
		h.adoptTranscript(st, payload)
		st.AppendEvent(*event)

		thresholds := trigger.Thresholds{
			MinEvents:       h.cfg.MinEvents,
			IntervalSeconds: h.cfg.IntervalSeconds,
		}
		if trigger.ShouldInterval(st, thresholds, h.now()) {
			h.persistCheckpoint(ctx, types.KindInterval, hookEventName(payload, "PostToolUse"), st)
			st.ResetAfterCheckpoint(h.now())
		}
		return h.store.Save(st)
	})
}

// taskCompleted fires a milestone checkpoint, but only when there is
// pending activity.
func (h *Handler) taskCompleted(ctx context.Context, payload types.HookPayload) error {
	return h.lock.WithLock(func() error {
		st := h.store.Load(h.cfg.SessionID)
		h.adoptTranscript(st, payload)
		if st.EventsSinceCheckpoint <= 0 {
			return h.store.Save(st)
		}
		h.persistCheckpoint(ctx, types.KindMilestone, hookEventName(payload, "TaskCompleted"), st)
		st.ResetAfterCheckpoint(h.now())
		return h.store.Save(st)
	})
}

// preCompact checkpoints even with zero pending events, since compaction
// is about to discard transcript context. Rapid repeats with no new
// activity are suppressed.
func (h *Handler) preCompact(ctx context.Context, payload types.HookPayload) error {
	return h.lock.WithLock(func() error {
		st := h.store.Load(h.cfg.SessionID)
		st.Project = h.cfg.Project
		h.adoptTranscript(st, payload)
		if !trigger.ShouldMilestone(st, h.now()) {
			return h.store.Save(st)
		}
		h.persistCheckpoint(ctx, types.KindMilestone, hookEventName(payload, "PreCompact"), st)
		st.ResetAfterCheckpoint(h.now())
		return h.store.Save(st)
	})
}

func (h *Handler) sessionEnd(ctx context.Context, payload types.HookPayload) error {
	return h.lock.WithLock(func() error {
		st := h.store.Load(h.cfg.SessionID)
		h.adoptTranscript(st, payload)
		if st.EventsSinceCheckpoint > 0 {
			h.persistCheckpoint(ctx, types.KindMilestone, hookEventName(payload, "SessionEnd"), st)
			st.CheckpointsCreated++
		}
		if h.cfg.RollupOnSessionEnd {
			h.persistRollup(ctx)
			st.LastRollupEpoch = float64(h.now().Unix())
		}
		st.LastCheckpointEpoch = float64(h.now().Unix())
		st.EventsSinceCheckpoint = 0
		st.RecentEvents = nil
		return h.store.Save(st)
	})
}

func (h *Handler) persistCheckpoint(ctx context.Context, kind types.Kind, hookEvent string, st *types.SessionState) {
	doc := h.builder.Build(ctx, kind, hookEvent, st)
	response := h.gateway.Ingest(ctx, doc)
	if err := h.audit.AppendNow(types.AuditEventCheckpoint, doc, response); err != nil {
		h.log.Error("audit append failed", logging.F("error", err.Error()))
	}
	h.log.Info("checkpoint recorded",
		logging.F("kind", string(kind)),
		logging.F("event", hookEvent),
		logging.F("ingested", response != nil))
}

func (h *Handler) persistRollup(ctx context.Context) {
	records, err := h.audit.CheckpointsFor(h.cfg.Project, h.cfg.SessionID)
	if err != nil {
		h.log.Error("audit read failed", logging.F("error", err.Error()))
		return
	}
	doc := h.builder.Rollup(ctx, records)
	if doc == nil {
		return
	}
	response := h.gateway.Ingest(ctx, doc)
	if err := h.audit.AppendNow(types.AuditEventRollup, doc, response); err != nil {
		h.log.Error("audit append failed", logging.F("error", err.Error()))
	}
	h.log.Info("rollup recorded",
		logging.F("checkpoints", len(records)),
		logging.F("ingested", response != nil))
}

func (h *Handler) adoptTranscript(st *types.SessionState, payload types.HookPayload) {
	if path := strings.TrimSpace(payload.TranscriptPath); path != "" {
		st.TranscriptPath = path
	}
}

func hookEventName(payload types.HookPayload, fallback string) string {
	if name := strings.TrimSpace(payload.HookEventName); name != "" {
		return name
	}
	return fallback
}

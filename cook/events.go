package cook

import (
	"context"
	"time"
)

// EventType enumerates the append-only session event log entries.
type EventType string

const (
	EventSessionStart   EventType = "session_start"
	EventStepNavigate   EventType = "step_navigate"
	EventCheckStep      EventType = "check_step"
	EventTimerCreate    EventType = "timer_create"
	EventTimerStart     EventType = "timer_start"
	EventTimerPause     EventType = "timer_pause"
	EventTimerDone      EventType = "timer_done"
	EventTimerDelete    EventType = "timer_delete"
	EventAdjustApply    EventType = "adjust_apply"
	EventAdjustUndo     EventType = "adjust_undo"
	EventMethodApply    EventType = "method_apply"
	EventMethodReset    EventType = "method_reset"
	EventSettingsUpdate EventType = "settings_update"
	EventSessionComplete EventType = "session_complete"
	EventSessionAbandon EventType = "session_abandon"
)

// Event is one entry of the session event log. Events are written in
// the same transaction as the state change they record.
type Event struct {
	ID          string                 `json:"id"`
	WorkspaceID string                 `json:"workspace_id"`
	SessionID   string                 `json:"session_id"`
	Type        EventType              `json:"type"`
	StepIndex   *int                   `json:"step_index,omitempty"`
	BulletIndex *int                   `json:"bullet_index,omitempty"`
	TimerID     string                 `json:"timer_id,omitempty"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// EventStore reads the append-only event log. Appends happen through
// SessionStore.Mutate so event and state share a transaction.
type EventStore interface {
	// Recent returns the newest events for a session, newest first,
	// capped at limit.
	Recent(ctx context.Context, workspaceID, sessionID string, limit int) ([]Event, error)
}

func intPtr(v int) *int { return &v }

package cook

import (
	"time"

	"tasteos.dev/common"
)

// TimerState is a timer's lifecycle state.
type TimerState string

const (
	TimerCreated TimerState = "created"
	TimerRunning TimerState = "running"
	TimerPaused  TimerState = "paused"
	TimerDone    TimerState = "done"
	TimerDeleted TimerState = "deleted"
)

// Timer is a per-step countdown owned by a session. DueAt is set only
// while running and RemainingSec only while paused; created and
// terminal timers carry neither.
type Timer struct {
	ID          string     `json:"id"`
	StepIndex   int        `json:"step_index"`
	Label       string     `json:"label"`
	DurationSec int        `json:"duration_sec"`
	State       TimerState `json:"state"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	RemainingSec *int      `json:"remaining_sec,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// ClientID dedupes timer creation across request retries.
	ClientID string `json:"client_id,omitempty"`
}

// newTimer builds a created timer. Due and remaining times stay unset
// until the timer starts.
func newTimer(id string, stepIndex int, label string, durationSec int, clientID string, now time.Time) *Timer {
	return &Timer{
		ID:          id,
		StepIndex:   stepIndex,
		Label:       label,
		DurationSec: durationSec,
		State:       TimerCreated,
		ClientID:    clientID,
		CreatedAt:   now,
	}
}

// Start transitions created or paused to running.
func (t *Timer) Start(now time.Time) error {
	if t.State != TimerCreated && t.State != TimerPaused {
		return common.Validationf("timer %s cannot start from state %s", t.ID, t.State)
	}
	remaining := t.DurationSec
	if t.RemainingSec != nil {
		remaining = *t.RemainingSec
	}
	due := now.Add(time.Duration(remaining) * time.Second)
	t.State = TimerRunning
	t.DueAt = &due
	t.RemainingSec = nil
	t.StartedAt = &now
	return nil
}

// Pause freezes a running timer, capturing the remaining seconds.
func (t *Timer) Pause(now time.Time) error {
	if t.State != TimerRunning {
		return common.Validationf("timer %s cannot pause from state %s", t.ID, t.State)
	}
	remaining := int(t.DueAt.Sub(now).Round(time.Second) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	t.State = TimerPaused
	t.RemainingSec = &remaining
	t.DueAt = nil
	t.StartedAt = nil
	return nil
}

// MarkDone finishes a running or paused timer.
func (t *Timer) MarkDone() error {
	if t.State != TimerRunning && t.State != TimerPaused {
		return common.Validationf("timer %s cannot finish from state %s", t.ID, t.State)
	}
	t.State = TimerDone
	t.DueAt = nil
	t.RemainingSec = nil
	t.StartedAt = nil
	return nil
}

// MarkDeleted tombstones the timer. Deleting a deleted timer is an
// error; every other state may be deleted.
func (t *Timer) MarkDeleted() error {
	if t.State == TimerDeleted {
		return common.Validationf("timer %s is already deleted", t.ID)
	}
	t.State = TimerDeleted
	t.DueAt = nil
	t.RemainingSec = nil
	t.StartedAt = nil
	return nil
}

// Live reports whether the timer still counts toward the session.
func (t *Timer) Live() bool {
	return t.State == TimerCreated || t.State == TimerRunning || t.State == TimerPaused
}

// Remaining returns the seconds left on the timer at now. Running
// timers derive it from due_at and floor at zero.
func (t *Timer) Remaining(now time.Time) int {
	switch t.State {
	case TimerRunning:
		remaining := int(t.DueAt.Sub(now).Round(time.Second) / time.Second)
		if remaining < 0 {
			return 0
		}
		return remaining
	case TimerCreated, TimerPaused:
		if t.RemainingSec != nil {
			return *t.RemainingSec
		}
		return t.DurationSec
	default:
		return 0
	}
}

// timerByClientID finds a live-or-terminal timer created with the given
// client id, for create deduplication.
func (s *Session) timerByClientID(clientID string) *Timer {
	if clientID == "" {
		return nil
	}
	for _, t := range s.Timers {
		if t.ClientID == clientID {
			return t
		}
	}
	return nil
}

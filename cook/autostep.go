package cook

import (
	"time"
)

// Suggestion is the auto-step inference output.
type Suggestion struct {
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// manualOverrideCap bounds confidence while the user has recently
// navigated by hand.
const manualOverrideCap = 0.55

// autoJumpThreshold is the minimum confidence for auto_jump mode to
// move the current step.
const autoJumpThreshold = 0.7

// Inferencer derives where the cook probably is from recent activity.
// It is deterministic over (session, steps, events, now).
type Inferencer struct {
	// Window is how many recent events to consider.
	Window int
}

// Infer runs the signal rules in priority order. events must be newest
// first, as EventStore.Recent returns them.
func (inf *Inferencer) Infer(session *Session, steps []Step, events []Event, now time.Time) Suggestion {
	if len(steps) == 0 {
		return Suggestion{Index: 0, Confidence: 0, Reason: "no steps"}
	}

	window := events
	if inf.Window > 0 && len(window) > inf.Window {
		window = window[:inf.Window]
	}

	s := inf.infer(session, steps, window)
	s.Index = clampIndex(s.Index, len(steps))

	if session.ManualOverrideUntil != nil && now.Before(*session.ManualOverrideUntil) && s.Confidence > manualOverrideCap {
		s.Confidence = manualOverrideCap
	}
	return s
}

func (inf *Inferencer) infer(session *Session, steps []Step, window []Event) Suggestion {
	// Most recent timer start wins outright.
	for _, ev := range window {
		if ev.Type == EventTimerStart && ev.StepIndex != nil {
			return Suggestion{Index: *ev.StepIndex, Confidence: 0.8, Reason: "timer started on this step"}
		}
	}

	// A currently running timer is the same signal without the event.
	for _, t := range session.Timers {
		if t.State == TimerRunning {
			return Suggestion{Index: t.StepIndex, Confidence: 0.8, Reason: "timer running on this step"}
		}
	}

	// A fully checked step suggests moving to the one after it.
	for idx := len(steps) - 1; idx >= 0; idx-- {
		if len(steps[idx].Bullets) > 0 && session.checkedCount(idx) == len(steps[idx].Bullets) {
			next := idx + 1
			if next >= len(steps) {
				next = idx
			}
			return Suggestion{Index: next, Confidence: 0.75, Reason: "all bullets of the previous step are checked"}
		}
	}

	// Repeated check activity on one step.
	checkCounts := map[int]int{}
	for _, ev := range window {
		if ev.Type == EventCheckStep && ev.StepIndex != nil {
			checkCounts[*ev.StepIndex]++
		}
	}
	bestStep, bestCount := -1, 0
	for step, count := range checkCounts {
		if count > bestCount || (count == bestCount && step > bestStep) {
			bestStep, bestCount = step, count
		}
	}
	if bestCount >= 2 {
		return Suggestion{Index: bestStep, Confidence: 0.7, Reason: "repeated check activity on this step"}
	}

	return Suggestion{Index: session.CurrentStepIndex, Confidence: 0.4, Reason: "no strong signals"}
}

// applySuggestion stores the suggestion on the session and, in
// auto_jump mode with enough confidence and no recent manual
// navigation, moves the current step.
func applySuggestion(session *Session, s Suggestion, now time.Time) {
	idx := s.Index
	session.AutoStepSuggestedIndex = &idx
	session.AutoStepConfidence = s.Confidence
	session.AutoStepReason = s.Reason

	if session.AutoStepMode != AutoStepAutoJump || s.Confidence < autoJumpThreshold {
		return
	}
	if session.ManualOverrideUntil != nil && now.Before(*session.ManualOverrideUntil) {
		return
	}
	session.CurrentStepIndex = s.Index
}

func clampIndex(idx, length int) int {
	if idx < 0 {
		return 0
	}
	if idx >= length {
		return length - 1
	}
	return idx
}

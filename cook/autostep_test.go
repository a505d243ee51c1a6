package cook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferTimerStartEventWins(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	inf := Inferencer{Window: 20}
	now := time.Now().UTC()

	events := []Event{
		{Type: EventCheckStep, StepIndex: intPtr(0)},
		{Type: EventTimerStart, StepIndex: intPtr(2)},
	}
	s := inf.Infer(session, recipe.Steps, events, now)
	assert.Equal(t, 2, s.Index)
	assert.InDelta(t, 0.8, s.Confidence, 1e-9)
}

func TestInferRunningTimer(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	now := time.Now().UTC()

	timer := newTimer("t1", 1, "Brown", 600, "", now)
	require.NoError(t, timer.Start(now))
	session.Timers["t1"] = timer

	inf := Inferencer{Window: 20}
	s := inf.Infer(session, recipe.Steps, nil, now)
	assert.Equal(t, 1, s.Index)
	assert.InDelta(t, 0.8, s.Confidence, 1e-9)
}

func TestInferFullyCheckedStepSuggestsNext(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	session.StepChecks[0] = map[int]bool{0: true, 1: true}

	inf := Inferencer{Window: 20}
	s := inf.Infer(session, recipe.Steps, nil, time.Now().UTC())
	assert.Equal(t, 1, s.Index)
	assert.InDelta(t, 0.75, s.Confidence, 1e-9)
}

func TestInferFullyCheckedLastStepStaysPut(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	session.StepChecks[2] = map[int]bool{0: true, 1: true}

	inf := Inferencer{Window: 20}
	s := inf.Infer(session, recipe.Steps, nil, time.Now().UTC())
	assert.Equal(t, 2, s.Index)
}

func TestInferRepeatedCheckActivity(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)

	events := []Event{
		{Type: EventCheckStep, StepIndex: intPtr(1)},
		{Type: EventCheckStep, StepIndex: intPtr(1)},
	}
	inf := Inferencer{Window: 20}
	s := inf.Infer(session, recipe.Steps, events, time.Now().UTC())
	assert.Equal(t, 1, s.Index)
	assert.InDelta(t, 0.7, s.Confidence, 1e-9)
}

func TestInferDefaultKeepsCurrent(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	session.CurrentStepIndex = 1

	inf := Inferencer{Window: 20}
	s := inf.Infer(session, recipe.Steps, nil, time.Now().UTC())
	assert.Equal(t, 1, s.Index)
	assert.InDelta(t, 0.4, s.Confidence, 1e-9)
}

func TestInferManualOverrideCapsConfidence(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	now := time.Now().UTC()
	until := now.Add(time.Minute)
	session.ManualOverrideUntil = &until

	events := []Event{{Type: EventTimerStart, StepIndex: intPtr(2)}}
	inf := Inferencer{Window: 20}
	s := inf.Infer(session, recipe.Steps, events, now)

	assert.Equal(t, 2, s.Index)
	assert.InDelta(t, manualOverrideCap, s.Confidence, 1e-9)

	// Expired window restores full confidence.
	s = inf.Infer(session, recipe.Steps, events, now.Add(2*time.Minute))
	assert.InDelta(t, 0.8, s.Confidence, 1e-9)
}

func TestInferWindowLimitsEvents(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)

	// The timer start is outside the window of 1; the newest check
	// event is inside but a single check is not enough signal.
	events := []Event{
		{Type: EventCheckStep, StepIndex: intPtr(0)},
		{Type: EventTimerStart, StepIndex: intPtr(2)},
	}
	inf := Inferencer{Window: 1}
	s := inf.Infer(session, recipe.Steps, events, time.Now().UTC())
	assert.Equal(t, session.CurrentStepIndex, s.Index)
	assert.InDelta(t, 0.4, s.Confidence, 1e-9)
}

func TestApplySuggestionSuggestMode(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	now := time.Now().UTC()

	applySuggestion(session, Suggestion{Index: 2, Confidence: 0.8, Reason: "timer"}, now)

	require.NotNil(t, session.AutoStepSuggestedIndex)
	assert.Equal(t, 2, *session.AutoStepSuggestedIndex)
	assert.InDelta(t, 0.8, session.AutoStepConfidence, 1e-9)
	// Suggest mode never moves the step.
	assert.Equal(t, 0, session.CurrentStepIndex)
}

func TestApplySuggestionAutoJump(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	session.AutoStepMode = AutoStepAutoJump
	now := time.Now().UTC()

	applySuggestion(session, Suggestion{Index: 2, Confidence: 0.8}, now)
	assert.Equal(t, 2, session.CurrentStepIndex)

	// Below the threshold nothing moves.
	session.CurrentStepIndex = 0
	applySuggestion(session, Suggestion{Index: 1, Confidence: 0.55}, now)
	assert.Equal(t, 0, session.CurrentStepIndex)

	// A live manual override window also blocks the jump.
	until := now.Add(time.Minute)
	session.ManualOverrideUntil = &until
	applySuggestion(session, Suggestion{Index: 2, Confidence: 0.9}, now)
	assert.Equal(t, 0, session.CurrentStepIndex)
}

package cook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasteos.dev/common"
)

func TestTimerStartFromCreated(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	timer := newTimer("t1", 2, "Simmer", 600, "", now)

	require.Equal(t, TimerCreated, timer.State)
	assert.Nil(t, timer.RemainingSec)
	assert.Nil(t, timer.DueAt)
	assert.Equal(t, 600, timer.Remaining(now))

	require.NoError(t, timer.Start(now))
	assert.Equal(t, TimerRunning, timer.State)
	require.NotNil(t, timer.DueAt)
	assert.Equal(t, now.Add(10*time.Minute), *timer.DueAt)
	assert.Nil(t, timer.RemainingSec)
}

func TestTimerPauseResumePreservesRemaining(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	timer := newTimer("t1", 0, "Boil", 600, "", now)
	require.NoError(t, timer.Start(now))

	// Pause 90 seconds in.
	pauseAt := now.Add(90 * time.Second)
	require.NoError(t, timer.Pause(pauseAt))
	assert.Equal(t, TimerPaused, timer.State)
	require.NotNil(t, timer.RemainingSec)
	assert.InDelta(t, 510, *timer.RemainingSec, 1)
	assert.Nil(t, timer.DueAt)

	// Resume much later; the remaining time carries over.
	resumeAt := pauseAt.Add(time.Hour)
	require.NoError(t, timer.Start(resumeAt))
	require.NotNil(t, timer.DueAt)
	assert.InDelta(t, float64(510), timer.DueAt.Sub(resumeAt).Seconds(), 1)
}

func TestTimerPauseFloorsAtZero(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	timer := newTimer("t1", 0, "Rest", 60, "", now)
	require.NoError(t, timer.Start(now))

	require.NoError(t, timer.Pause(now.Add(5*time.Minute)))
	require.NotNil(t, timer.RemainingSec)
	assert.Equal(t, 0, *timer.RemainingSec)
}

func TestTimerInvalidTransitions(t *testing.T) {
	now := time.Now().UTC()
	timer := newTimer("t1", 0, "x", 60, "", now)

	// Pause before start.
	err := timer.Pause(now)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindValidation))

	// Done before start.
	err = timer.MarkDone()
	require.Error(t, err)

	require.NoError(t, timer.Start(now))

	// Start while running.
	err = timer.Start(now)
	require.Error(t, err)

	require.NoError(t, timer.MarkDone())
	assert.Equal(t, TimerDone, timer.State)

	// Terminal states reject everything but delete.
	assert.Error(t, timer.Start(now))
	assert.Error(t, timer.Pause(now))
	assert.Error(t, timer.MarkDone())
	require.NoError(t, timer.MarkDeleted())
	assert.Error(t, timer.MarkDeleted())
}

func TestTimerRemaining(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	timer := newTimer("t1", 0, "x", 300, "", now)

	assert.Equal(t, 300, timer.Remaining(now))

	require.NoError(t, timer.Start(now))
	assert.Equal(t, 300, timer.Remaining(now))
	assert.Equal(t, 240, timer.Remaining(now.Add(time.Minute)))
	assert.Equal(t, 0, timer.Remaining(now.Add(time.Hour)))

	require.NoError(t, timer.MarkDone())
	assert.Equal(t, 0, timer.Remaining(now))
}

package cook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasteos.dev/ai"
	"tasteos.dev/common"
)

func testRecipe() *Recipe {
	ten := 10
	twenty := 20
	return &Recipe{
		ID:          "rec-1",
		WorkspaceID: "ws1",
		Title:       "Weeknight Chili",
		Servings:    4,
		TimeMinutes: 45,
		Steps: []Step{
			{Index: 0, Title: "Prep the vegetables", Bullets: []string{"Dice onion", "Mince garlic"}},
			{Index: 1, Title: "Brown the beef", Bullets: []string{"Heat the pan", "Add beef"}, MinutesEst: &ten},
			{Index: 2, Title: "Simmer the chili", Bullets: []string{"Add tomatoes", "Season to taste"}, MinutesEst: &twenty},
		},
	}
}

func testSession(recipe *Recipe) *Session {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	return &Session{
		ID:             "sess-1",
		WorkspaceID:    "ws1",
		RecipeID:       recipe.ID,
		Status:         StatusActive,
		StartedAt:      now,
		UpdatedAt:      now,
		StepChecks:     map[int]map[int]bool{},
		ServingsBase:   recipe.Servings,
		ServingsTarget: recipe.Servings,
		Timers:         map[string]*Timer{},
		AutoStepMode:   AutoStepSuggest,
		StateVersion:   1,
	}
}

func TestDraftAdjustment(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	client := ai.NewHeuristic()

	adj, preview, err := draftAdjustment(context.Background(), client, recipe, session, 2, "too_salty")
	require.NoError(t, err)

	assert.NotEmpty(t, adj.ID)
	assert.Equal(t, 2, adj.StepIndex)
	assert.Equal(t, "too_salty", adj.Kind)
	assert.NotEmpty(t, adj.Bullets)

	// Drafting leaves the session untouched and only the target step
	// changes in the preview.
	assert.Nil(t, session.StepsOverride)
	require.Len(t, preview, 3)
	assert.Equal(t, recipe.Steps[0].Title, preview[0].Title)
	assert.NotEqual(t, recipe.Steps[2].Title, preview[2].Title)
}

func TestDraftAdjustmentValidation(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	client := ai.NewHeuristic()

	_, _, err := draftAdjustment(context.Background(), client, recipe, session, 3, "too_salty")
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindValidation))

	_, _, err = draftAdjustment(context.Background(), client, recipe, session, -1, "too_salty")
	require.Error(t, err)

	_, _, err = draftAdjustment(context.Background(), client, recipe, session, 1, "")
	require.Error(t, err)
}

func TestApplyAndUndoAdjustment(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	now := time.Now().UTC()

	adj := Adjustment{
		ID:        "adj-1",
		StepIndex: 2,
		Kind:      "too_salty",
		Title:     "Balance the seasoning",
		Bullets:   []string{"Add a splash of acid"},
	}
	entry, err := applyAdjustment(session, recipe, adj, now)
	require.NoError(t, err)

	// The override replaces the target step, keeps its minute estimate
	// and records the pre-image.
	require.NotNil(t, session.StepsOverride)
	assert.Equal(t, "Balance the seasoning", session.StepsOverride[2].Title)
	require.NotNil(t, session.StepsOverride[2].MinutesEst)
	assert.Equal(t, 20, *session.StepsOverride[2].MinutesEst)
	assert.Equal(t, "Simmer the chili", entry.BeforeStep.Title)
	assert.False(t, entry.Undone())

	// Undo restores the recipe steps exactly and clears the override.
	undone, err := undoAdjustment(session, recipe, "adj-1", now)
	require.NoError(t, err)
	assert.True(t, undone.Undone())
	assert.Nil(t, session.StepsOverride)
	assert.True(t, stepsEqual(session.EffectiveSteps(recipe), recipe.Steps))
}

func TestUndoLatestWhenNoID(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	now := time.Now().UTC()

	first := Adjustment{ID: "adj-1", StepIndex: 0, Title: "First fix", Bullets: []string{"a"}}
	second := Adjustment{ID: "adj-2", StepIndex: 2, Title: "Second fix", Bullets: []string{"b"}}
	_, err := applyAdjustment(session, recipe, first, now)
	require.NoError(t, err)
	_, err = applyAdjustment(session, recipe, second, now)
	require.NoError(t, err)

	undone, err := undoAdjustment(session, recipe, "", now)
	require.NoError(t, err)
	assert.Equal(t, "adj-2", undone.Adjustment.ID)

	// The first adjustment is still in force.
	require.NotNil(t, session.StepsOverride)
	assert.Equal(t, "First fix", session.StepsOverride[0].Title)
	assert.Equal(t, "Simmer the chili", session.StepsOverride[2].Title)
}

func TestUndoErrors(t *testing.T) {
	recipe := testRecipe()
	session := testSession(recipe)
	now := time.Now().UTC()

	_, err := undoAdjustment(session, recipe, "", now)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindNotFound))

	adj := Adjustment{ID: "adj-1", StepIndex: 1, Title: "Fix", Bullets: []string{"a"}}
	_, err = applyAdjustment(session, recipe, adj, now)
	require.NoError(t, err)
	_, err = undoAdjustment(session, recipe, "adj-1", now)
	require.NoError(t, err)

	// Undoing twice fails.
	_, err = undoAdjustment(session, recipe, "adj-1", now)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestReplayAdjustments(t *testing.T) {
	recipe := testRecipe()
	now := time.Now().UTC()

	log := []AdjustmentLogEntry{
		{Adjustment: Adjustment{ID: "a1", StepIndex: 0, Title: "Kept fix", Bullets: []string{"x"}}, AppliedAt: now},
		{Adjustment: Adjustment{ID: "a2", StepIndex: 1, Title: "Undone fix", Bullets: []string{"y"}}, AppliedAt: now, UndoneAt: &now},
	}

	steps := replayAdjustments(recipe, log)
	require.NotNil(t, steps)
	assert.Equal(t, "Kept fix", steps[0].Title)
	assert.Equal(t, recipe.Steps[1].Title, steps[1].Title)

	// All undone -> nothing differs from the recipe.
	log[0].UndoneAt = &now
	assert.Nil(t, replayAdjustments(recipe, log))
}

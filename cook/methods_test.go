package cook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasteos.dev/ai"
	"tasteos.dev/common"
)

func TestMethodCatalog(t *testing.T) {
	methods := Methods()
	require.Len(t, methods, 7)

	keys := map[string]bool{}
	for _, m := range methods {
		keys[m.Key] = true
	}
	for _, key := range []string{"stovetop", "oven", "air_fryer", "instant_pot", "slow_cooker", "grill", "microwave"} {
		assert.True(t, keys[key], "missing method %s", key)
	}

	m, ok := MethodByKey("instant_pot")
	require.True(t, ok)
	assert.Equal(t, -40.0, m.TimeDeltaPct)

	_, ok = MethodByKey("sous_vide")
	assert.False(t, ok)
}

func TestDraftMethodRewritesCookSteps(t *testing.T) {
	recipe := testRecipe()
	client := ai.NewHeuristic()

	steps, tradeoffs, err := draftMethod(context.Background(), client, recipe, "air_fryer")
	require.NoError(t, err)
	require.Len(t, steps, 3)

	// Prep steps are untouched; the simmer step gets the appliance
	// prefix and a scaled estimate (20 min at -20% -> 16).
	assert.Equal(t, "Prep the vegetables", steps[0].Title)
	assert.Equal(t, "Air fryer: Simmer the chili", steps[2].Title)
	require.NotNil(t, steps[2].MinutesEst)
	assert.Equal(t, 16, *steps[2].MinutesEst)

	assert.Equal(t, "low", tradeoffs.Cleanup)
	// 45 minutes at -20% rounds to -9.
	assert.Equal(t, -9, tradeoffs.TimeDeltaMin)
}

func TestDraftMethodSlowCookerAddsTime(t *testing.T) {
	recipe := testRecipe()
	client := ai.NewHeuristic()

	_, tradeoffs, err := draftMethod(context.Background(), client, recipe, "slow_cooker")
	require.NoError(t, err)
	assert.Equal(t, 90, tradeoffs.TimeDeltaMin)
	assert.Equal(t, "minimal", tradeoffs.HandsOn)
}

func TestDraftMethodUnknownKey(t *testing.T) {
	recipe := testRecipe()
	client := ai.NewHeuristic()

	_, _, err := draftMethod(context.Background(), client, recipe, "campfire")
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindValidation))
}

func TestDraftMethodIgnoresOverride(t *testing.T) {
	recipe := testRecipe()
	client := ai.NewHeuristic()

	// Previews always start from the recipe's canonical steps, so two
	// previews in a row are identical.
	first, _, err := draftMethod(context.Background(), client, recipe, "oven")
	require.NoError(t, err)
	second, _, err := draftMethod(context.Background(), client, recipe, "oven")
	require.NoError(t, err)
	assert.True(t, stepsEqual(first, second))
}

package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestAdjustmentKnownKind(t *testing.T) {
	h := NewHeuristic()

	draft, err := h.SuggestAdjustment(context.Background(), AdjustmentRequest{
		RecipeTitle: "Weeknight Chili",
		Kind:        "too_salty",
		Step:        Step{Title: "Simmer the chili", Bullets: []string{"Season to taste"}},
	})
	require.NoError(t, err)
	assert.Contains(t, draft.Title, "Simmer the chili")
	assert.NotEmpty(t, draft.Bullets)
	assert.Equal(t, SourceHeuristic, draft.Source)
	assert.InDelta(t, 0.6, draft.Confidence, 1e-9)
}

func TestSuggestAdjustmentUnknownKindFallsBack(t *testing.T) {
	h := NewHeuristic()

	draft, err := h.SuggestAdjustment(context.Background(), AdjustmentRequest{Kind: "fix"})
	require.NoError(t, err)
	assert.NotEmpty(t, draft.Title)
	assert.NotEmpty(t, draft.Bullets)
}

func TestRewriteForMethodScalesCookSteps(t *testing.T) {
	h := NewHeuristic()
	twenty := 20
	five := 5

	draft, err := h.RewriteForMethod(context.Background(), MethodRequest{
		MethodKey:    "air_fryer",
		MethodLabel:  "Air fryer",
		TimeDeltaPct: -20,
		Steps: []Step{
			{Title: "Chop the vegetables", Bullets: []string{"Dice onion"}, MinutesEst: &five},
			{Title: "Roast until golden", Bullets: []string{"Flip halfway"}, MinutesEst: &twenty},
		},
	})
	require.NoError(t, err)
	require.Len(t, draft.Steps, 2)

	// Prep steps keep their title and estimate.
	assert.Equal(t, "Chop the vegetables", draft.Steps[0].Title)
	require.NotNil(t, draft.Steps[0].MinutesEst)
	assert.Equal(t, 5, *draft.Steps[0].MinutesEst)

	// Cook steps get the appliance prefix and a scaled estimate.
	assert.Equal(t, "Air fryer: Roast until golden", draft.Steps[1].Title)
	require.NotNil(t, draft.Steps[1].MinutesEst)
	assert.Equal(t, 16, *draft.Steps[1].MinutesEst)
	assert.Equal(t, SourceHeuristic, draft.Source)
}

func TestRewriteForMethodKeepsMinimumMinute(t *testing.T) {
	h := NewHeuristic()
	one := 1

	draft, err := h.RewriteForMethod(context.Background(), MethodRequest{
		MethodLabel:  "Microwave",
		TimeDeltaPct: -60,
		Steps:        []Step{{Title: "Simmer the sauce", MinutesEst: &one}},
	})
	require.NoError(t, err)
	require.NotNil(t, draft.Steps[0].MinutesEst)
	assert.Equal(t, 1, *draft.Steps[0].MinutesEst)
}

func TestWithFallback(t *testing.T) {
	failing := &Mock{Err: errors.New("model offline")}
	client := WithFallback(failing, NewHeuristic())

	draft, err := client.SuggestAdjustment(context.Background(), AdjustmentRequest{Kind: "burning"})
	require.NoError(t, err)
	assert.Equal(t, SourceHeuristic, draft.Source)
	assert.Len(t, failing.AdjustmentCalls, 1)

	method, err := client.RewriteForMethod(context.Background(), MethodRequest{MethodLabel: "Oven"})
	require.NoError(t, err)
	assert.Equal(t, SourceHeuristic, method.Source)
}

func TestWithFallbackPrefersPrimary(t *testing.T) {
	primary := &Mock{Adjustment: &AdjustmentDraft{Title: "Primary answer", Bullets: []string{"x"}, Confidence: 0.95}}
	client := WithFallback(primary, NewHeuristic())

	draft, err := client.SuggestAdjustment(context.Background(), AdjustmentRequest{Kind: "too_dry"})
	require.NoError(t, err)
	assert.Equal(t, "Primary answer", draft.Title)
	assert.Equal(t, SourceMock, draft.Source)
}

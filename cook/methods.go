package cook

import (
	"context"
	"math"

	"tasteos.dev/ai"
	"tasteos.dev/common"
)

// Method is one entry of the curated cooking method catalog.
type Method struct {
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	TimeDeltaPct float64 `json:"time_delta_pct"`
	Cleanup      string  `json:"cleanup"`
	HandsOn      string  `json:"hands_on"`
	Flavor       string  `json:"flavor"`
}

// Tradeoffs is the per-session snapshot of what switching methods
// changes, including the absolute time delta for this recipe.
type Tradeoffs struct {
	Cleanup      string `json:"cleanup"`
	HandsOn      string `json:"hands_on"`
	Flavor       string `json:"flavor"`
	TimeDeltaMin int    `json:"time_delta_min"`
}

// methodCatalog is curated, not user-extensible. Time deltas are rough
// heuristics relative to the recipe's stated total time.
var methodCatalog = []Method{
	{Key: "stovetop", Label: "Stovetop", TimeDeltaPct: 0, Cleanup: "medium", HandsOn: "high", Flavor: "classic sear and control"},
	{Key: "oven", Label: "Oven", TimeDeltaPct: 0, Cleanup: "low", HandsOn: "low", Flavor: "even, gentle browning"},
	{Key: "air_fryer", Label: "Air fryer", TimeDeltaPct: -20, Cleanup: "low", HandsOn: "low", Flavor: "crispier exterior, less oil"},
	{Key: "instant_pot", Label: "Instant Pot", TimeDeltaPct: -40, Cleanup: "low", HandsOn: "low", Flavor: "softer textures, melded flavors"},
	{Key: "slow_cooker", Label: "Slow cooker", TimeDeltaPct: 200, Cleanup: "low", HandsOn: "minimal", Flavor: "deep, long-braised flavor"},
	{Key: "grill", Label: "Grill", TimeDeltaPct: -10, Cleanup: "medium", HandsOn: "high", Flavor: "smoky char"},
	{Key: "microwave", Label: "Microwave", TimeDeltaPct: -60, Cleanup: "minimal", HandsOn: "minimal", Flavor: "fast, no browning"},
}

// Methods returns the catalog.
func Methods() []Method {
	out := make([]Method, len(methodCatalog))
	copy(out, methodCatalog)
	return out
}

// MethodByKey looks up a catalog entry.
func MethodByKey(key string) (Method, bool) {
	for _, m := range methodCatalog {
		if m.Key == key {
			return m, true
		}
	}
	return Method{}, false
}

// draftMethod rewrites the recipe's canonical steps for a target
// method and computes the tradeoff snapshot. Previews always start
// from the recipe steps, not the current override, so repeated
// previews are stable.
func draftMethod(ctx context.Context, client ai.Client, recipe *Recipe, methodKey string) ([]Step, Tradeoffs, error) {
	method, ok := MethodByKey(methodKey)
	if !ok {
		return nil, Tradeoffs{}, common.Validationf("unknown method %q", methodKey)
	}

	reqSteps := make([]ai.Step, len(recipe.Steps))
	for i, s := range recipe.Steps {
		reqSteps[i] = toAIStep(s)
	}
	draft, err := client.RewriteForMethod(ctx, ai.MethodRequest{
		MethodKey:    method.Key,
		MethodLabel:  method.Label,
		TimeDeltaPct: method.TimeDeltaPct,
		TimeMinutes:  recipe.TimeMinutes,
		Steps:        reqSteps,
	})
	if err != nil {
		return nil, Tradeoffs{}, common.Wrap(common.KindTransient, err, "method rewrite failed")
	}
	if len(draft.Steps) == 0 {
		return nil, Tradeoffs{}, common.Transientf("method rewrite for %q returned no steps", methodKey)
	}

	steps := fromAISteps(draft.Steps)
	tradeoffs := Tradeoffs{
		Cleanup:      method.Cleanup,
		HandsOn:      method.HandsOn,
		Flavor:       method.Flavor,
		TimeDeltaMin: int(math.Round(float64(recipe.TimeMinutes) * method.TimeDeltaPct / 100)),
	}
	return steps, tradeoffs, nil
}

package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Heuristic is the deterministic fallback client. It is also the default
// client when no model backend is configured, so every AI-assisted
// operation works offline.
type Heuristic struct{}

// NewHeuristic creates the deterministic client.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// adjustmentTemplates maps problem kinds to replacement bullet lists.
var adjustmentTemplates = map[string]struct {
	title   string
	bullets []string
}{
	"too_salty": {
		title: "Balance the seasoning",
		bullets: []string{
			"Add a splash of acid (lemon juice or vinegar) to cut the salt",
			"Bulk it out with an unsalted ingredient such as potato, rice or cream",
			"Dilute with unsalted stock or water if the dish allows",
			"Taste before seasoning any further",
		},
	},
	"too_spicy": {
		title: "Tame the heat",
		bullets: []string{
			"Stir in dairy (yogurt, cream or coconut milk) to mellow the spice",
			"Add a little sweetness to balance the burn",
			"Dilute with more of the unspiced base ingredients",
		},
	},
	"burning": {
		title: "Rescue from burning",
		bullets: []string{
			"Pull the pan off the heat immediately",
			"Transfer the unburnt portion to a clean pan; do not scrape the bottom",
			"Resume at a lower heat, stirring more frequently",
		},
	},
	"too_dry": {
		title: "Bring back moisture",
		bullets: []string{
			"Add liquid a few tablespoons at a time (stock, water or sauce)",
			"Cover and lower the heat to trap steam",
			"Finish with a knob of butter or drizzle of oil",
		},
	},
	"undercooked": {
		title: "Finish the cooking",
		bullets: []string{
			"Return to heat and extend the cook time in small increments",
			"Cover to speed things along and keep moisture in",
			"Check doneness at the thickest part before serving",
		},
	},
}

// defaultAdjustment covers unrecognized kinds, including the generic
// "fix" kind.
var defaultAdjustment = struct {
	title   string
	bullets []string
}{
	title: "Course-correct this step",
	bullets: []string{
		"Pause and re-read the step from the top",
		"Make one small correction at a time and re-taste",
		"Adjust seasoning and texture before moving on",
	},
}

func (h *Heuristic) SuggestAdjustment(ctx context.Context, req AdjustmentRequest) (*AdjustmentDraft, error) {
	tpl, ok := adjustmentTemplates[strings.ToLower(strings.TrimSpace(req.Kind))]
	if !ok {
		tpl = defaultAdjustment
	}

	title := tpl.title
	if req.Step.Title != "" {
		title = fmt.Sprintf("%s (%s)", tpl.title, req.Step.Title)
	}

	return &AdjustmentDraft{
		Title:      title,
		Bullets:    append([]string(nil), tpl.bullets...),
		Confidence: 0.6,
		Source:     SourceHeuristic,
	}, nil
}

// cookVerbs mark steps whose titles get the appliance prefix.
var cookVerbs = []string{
	"bake", "roast", "fry", "saute", "sauté", "cook", "simmer", "boil",
	"grill", "sear", "braise", "steam", "broil", "toast",
}

func (h *Heuristic) RewriteForMethod(ctx context.Context, req MethodRequest) (*MethodDraft, error) {
	steps := make([]Step, len(req.Steps))
	for i, step := range req.Steps {
		rewritten := Step{
			Title:   step.Title,
			Bullets: append([]string(nil), step.Bullets...),
		}
		if isCookStep(step.Title) {
			rewritten.Title = fmt.Sprintf("%s: %s", req.MethodLabel, step.Title)
			if step.MinutesEst != nil {
				minutes := scaleMinutes(*step.MinutesEst, req.TimeDeltaPct)
				rewritten.MinutesEst = &minutes
			}
		} else {
			rewritten.MinutesEst = step.MinutesEst
		}
		steps[i] = rewritten
	}

	return &MethodDraft{Steps: steps, Source: SourceHeuristic}, nil
}

func isCookStep(title string) bool {
	lower := strings.ToLower(title)
	for _, verb := range cookVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}

// scaleMinutes applies a percentage delta and keeps at least one minute.
func scaleMinutes(minutes int, deltaPct float64) int {
	scaled := int(math.Round(float64(minutes) * (1 + deltaPct/100)))
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}

package cook

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tasteos.dev/ai"
	"tasteos.dev/common"
)

// Adjustment is a drafted replacement for one step, produced for a
// problem kind such as "too_salty" or "burning".
type Adjustment struct {
	ID         string   `json:"id"`
	StepIndex  int      `json:"step_index"`
	Kind       string   `json:"kind"`
	Title      string   `json:"title"`
	Bullets    []string `json:"bullets"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
}

// AdjustmentLogEntry records an applied adjustment together with the
// step it replaced, so the application can be undone exactly.
type AdjustmentLogEntry struct {
	Adjustment Adjustment `json:"adjustment"`
	BeforeStep Step       `json:"before_step"`
	AppliedAt  time.Time  `json:"applied_at"`
	UndoneAt   *time.Time `json:"undone_at,omitempty"`
}

// Undone reports whether the entry has been rolled back.
func (e *AdjustmentLogEntry) Undone() bool { return e.UndoneAt != nil }

// draftAdjustment asks the AI client for a replacement step and returns
// the adjustment plus the step list it would produce. Nothing is
// persisted; apply is a separate call.
func draftAdjustment(ctx context.Context, client ai.Client, recipe *Recipe, session *Session, stepIndex int, kind string) (*Adjustment, []Step, error) {
	steps := session.EffectiveSteps(recipe)
	if stepIndex < 0 || stepIndex >= len(steps) {
		return nil, nil, common.Validationf("step_index %d out of range [0, %d)", stepIndex, len(steps))
	}
	if kind == "" {
		return nil, nil, common.Validationf("adjustment kind is required")
	}

	target := steps[stepIndex]
	draft, err := client.SuggestAdjustment(ctx, ai.AdjustmentRequest{
		RecipeTitle: recipe.Title,
		Kind:        kind,
		Step:        toAIStep(target),
	})
	if err != nil {
		return nil, nil, common.Wrap(common.KindTransient, err, "adjustment draft failed")
	}

	adj := &Adjustment{
		ID:         uuid.NewString(),
		StepIndex:  stepIndex,
		Kind:       kind,
		Title:      draft.Title,
		Bullets:    append([]string(nil), draft.Bullets...),
		Confidence: draft.Confidence,
		Source:     draft.Source,
	}

	preview := cloneSteps(steps)
	preview[stepIndex] = adjustedStep(target, adj)
	return adj, preview, nil
}

// applyAdjustment replaces the target step in the effective list and
// records the pre-image in the adjustments log. Returns the applied
// log entry.
func applyAdjustment(session *Session, recipe *Recipe, adj Adjustment, now time.Time) (*AdjustmentLogEntry, error) {
	steps := session.EffectiveSteps(recipe)
	if adj.StepIndex < 0 || adj.StepIndex >= len(steps) {
		return nil, common.Validationf("step_index %d out of range [0, %d)", adj.StepIndex, len(steps))
	}

	before := cloneStep(steps[adj.StepIndex])
	next := cloneSteps(steps)
	next[adj.StepIndex] = adjustedStep(before, &adj)
	session.StepsOverride = next

	entry := AdjustmentLogEntry{
		Adjustment: adj,
		BeforeStep: before,
		AppliedAt:  now,
	}
	session.AdjustmentsLog = append(session.AdjustmentsLog, entry)
	return &session.AdjustmentsLog[len(session.AdjustmentsLog)-1], nil
}

// undoAdjustment restores the pre-image of an applied adjustment. An
// empty id targets the most recent non-undone entry. If the restore
// brings the effective steps back to the recipe's own, the override is
// dropped entirely.
func undoAdjustment(session *Session, recipe *Recipe, adjustmentID string, now time.Time) (*AdjustmentLogEntry, error) {
	var entry *AdjustmentLogEntry
	for i := len(session.AdjustmentsLog) - 1; i >= 0; i-- {
		candidate := &session.AdjustmentsLog[i]
		if candidate.Undone() {
			continue
		}
		if adjustmentID == "" || candidate.Adjustment.ID == adjustmentID {
			entry = candidate
			break
		}
	}
	if entry == nil {
		if adjustmentID == "" {
			return nil, common.NotFoundf("no adjustment to undo")
		}
		return nil, common.NotFoundf("adjustment %s not found or already undone", adjustmentID)
	}

	steps := cloneSteps(session.EffectiveSteps(recipe))
	idx := entry.Adjustment.StepIndex
	if idx < 0 || idx >= len(steps) {
		return nil, common.Conflictf("adjustment %s no longer maps onto the step list", entry.Adjustment.ID)
	}
	steps[idx] = cloneStep(entry.BeforeStep)

	if stepsEqual(steps, recipe.Steps) {
		session.StepsOverride = nil
	} else {
		session.StepsOverride = steps
	}

	entry.UndoneAt = &now
	return entry, nil
}

// adjustedStep builds the replacement step, keeping the original's
// index and minute estimate.
func adjustedStep(original Step, adj *Adjustment) Step {
	return Step{
		Index:      original.Index,
		Title:      adj.Title,
		Bullets:    append([]string(nil), adj.Bullets...),
		MinutesEst: original.MinutesEst,
	}
}

func toAIStep(s Step) ai.Step {
	return ai.Step{Title: s.Title, Bullets: append([]string(nil), s.Bullets...), MinutesEst: s.MinutesEst}
}

func fromAISteps(steps []ai.Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = Step{Index: i, Title: s.Title, Bullets: append([]string(nil), s.Bullets...), MinutesEst: s.MinutesEst}
	}
	return out
}

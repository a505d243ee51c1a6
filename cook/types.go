// Package cook implements the cook session engine: the per-user cooking
// run aggregate with step checklists, timers, AI-assisted adjustments with
// undo, method overrides, auto-step inference and the session update bus.
package cook

import (
	"context"
	"time"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusDone      Status = "done"
	StatusAbandoned Status = "abandoned"
)

// AutoStepMode selects how auto-step suggestions are applied.
type AutoStepMode string

const (
	// AutoStepSuggest only updates the suggestion fields.
	AutoStepSuggest AutoStepMode = "suggest"
	// AutoStepAutoJump moves current_step_index when confidence allows.
	AutoStepAutoJump AutoStepMode = "auto_jump"
)

// Step is one recipe step. Indices are 0-based and dense.
type Step struct {
	Index      int      `json:"index"`
	Title      string   `json:"title"`
	Bullets    []string `json:"bullets"`
	MinutesEst *int     `json:"minutes_est,omitempty"`
}

// Recipe is the external input the session runs against. Recipes are
// owned by the CRUD surface upstream; the engine only reads them.
type Recipe struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Title       string `json:"title"`
	Servings    int    `json:"servings"`
	TimeMinutes int    `json:"time_minutes"`
	Steps       []Step `json:"steps"`
}

// Session is the aggregate root of one cooking run.
type Session struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	RecipeID    string `json:"recipe_id"`

	Status      Status     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	EndedReason string     `json:"ended_reason,omitempty"`

	CurrentStepIndex int                  `json:"current_step_index"`
	StepChecks       map[int]map[int]bool `json:"step_checks"`
	ServingsBase     int                  `json:"servings_base"`
	ServingsTarget   int                  `json:"servings_target"`

	Timers map[string]*Timer `json:"timers"`

	MethodKey       string              `json:"method_key,omitempty"`
	MethodTradeoffs *Tradeoffs          `json:"method_tradeoffs,omitempty"`
	StepsOverride   []Step              `json:"steps_override,omitempty"`
	AdjustmentsLog  []AdjustmentLogEntry `json:"adjustments_log"`

	AutoStepEnabled        bool         `json:"auto_step_enabled"`
	AutoStepMode           AutoStepMode `json:"auto_step_mode"`
	AutoStepSuggestedIndex *int         `json:"auto_step_suggested_index,omitempty"`
	AutoStepConfidence     float64      `json:"auto_step_confidence"`
	AutoStepReason         string       `json:"auto_step_reason,omitempty"`
	ManualOverrideUntil    *time.Time   `json:"manual_override_until,omitempty"`

	// StateVersion is a monotone counter incremented on every successful
	// mutation; clients use it as an optimistic-read sentinel.
	StateVersion int64 `json:"state_version"`
}

// EffectiveSteps returns the step list currently in force: the override
// when set, else the recipe's canonical steps.
func (s *Session) EffectiveSteps(recipe *Recipe) []Step {
	if s.StepsOverride != nil {
		return s.StepsOverride
	}
	return recipe.Steps
}

// Active reports whether the session still accepts mutations.
func (s *Session) Active() bool {
	return s.Status == StatusActive
}

// checkedCount returns how many bullets of step are checked.
func (s *Session) checkedCount(step int) int {
	count := 0
	for _, checked := range s.StepChecks[step] {
		if checked {
			count++
		}
	}
	return count
}

// RecipeStore reads recipes. Recipes are external input to the engine.
type RecipeStore interface {
	Get(ctx context.Context, workspaceID, recipeID string) (*Recipe, error)
}

// SessionStore persists sessions. Mutate runs fn inside one transaction
// holding a write lock on the session row; the state write and the
// returned events become visible atomically. Serialization failures are
// retried by the implementation. When fn returns no events the mutation
// is treated as a no-op and nothing is written.
type SessionStore interface {
	// Create inserts a new session and its session_start event in one
	// transaction.
	Create(ctx context.Context, session *Session, event Event) error

	// Get returns a session by id within the workspace.
	Get(ctx context.Context, workspaceID, sessionID string) (*Session, error)

	// ActiveByRecipe returns the active session for a recipe, or nil.
	ActiveByRecipe(ctx context.Context, workspaceID, recipeID string) (*Session, error)

	// Mutate loads the session under a row lock, applies fn, bumps
	// state_version, persists the session and appends the returned
	// events atomically.
	Mutate(ctx context.Context, workspaceID, sessionID string, fn func(*Session) ([]Event, error)) (*Session, error)
}

// cloneSteps deep-copies a step list.
func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = cloneStep(s)
	}
	return out
}

func cloneStep(s Step) Step {
	c := s
	c.Bullets = append([]string(nil), s.Bullets...)
	if s.MinutesEst != nil {
		v := *s.MinutesEst
		c.MinutesEst = &v
	}
	return c
}

// stepsEqual compares step lists by title, bullets and minute estimates.
func stepsEqual(a, b []Step) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !stepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func stepEqual(a, b Step) bool {
	if a.Title != b.Title || len(a.Bullets) != len(b.Bullets) {
		return false
	}
	for i := range a.Bullets {
		if a.Bullets[i] != b.Bullets[i] {
			return false
		}
	}
	switch {
	case a.MinutesEst == nil && b.MinutesEst == nil:
		return true
	case a.MinutesEst == nil || b.MinutesEst == nil:
		return false
	default:
		return *a.MinutesEst == *b.MinutesEst
	}
}

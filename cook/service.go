package cook

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"tasteos.dev/ai"
	"tasteos.dev/common"
)

// Options tunes the service. Zero values fall back to Defaults.
type Options struct {
	// ManualOverrideWindow is how long a manual navigation suppresses
	// auto-jump and caps suggestion confidence.
	ManualOverrideWindow time.Duration
	// EventWindow is how many recent events auto-step inference reads.
	EventWindow int
	// RecentLimit caps the events endpoint page size.
	RecentLimit int
}

// Defaults returns the production option values.
func Defaults() Options {
	return Options{
		ManualOverrideWindow: 3 * time.Minute,
		EventWindow:          20,
		RecentLimit:          50,
	}
}

func (o Options) withDefaults() Options {
	d := Defaults()
	if o.ManualOverrideWindow <= 0 {
		o.ManualOverrideWindow = d.ManualOverrideWindow
	}
	if o.EventWindow <= 0 {
		o.EventWindow = d.EventWindow
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = d.RecentLimit
	}
	return o
}

// Service is the cook session engine. All mutations go through
// SessionStore.Mutate so state change and event log stay atomic, and
// every successful mutation publishes a session_updated notification.
type Service struct {
	sessions SessionStore
	recipes  RecipeStore
	events   EventStore
	bus      Bus
	ai       ai.Client
	inf      Inferencer
	opts     Options

	now func() time.Time
}

// NewService wires the engine.
func NewService(sessions SessionStore, recipes RecipeStore, events EventStore, bus Bus, aiClient ai.Client, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		sessions: sessions,
		recipes:  recipes,
		events:   events,
		bus:      bus,
		ai:       aiClient,
		inf:      Inferencer{Window: opts.EventWindow},
		opts:     opts,
		now:      time.Now,
	}
}

// SetClock overrides the time source for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// StartInput creates a session.
type StartInput struct {
	RecipeID       string `json:"recipe_id"`
	ServingsTarget int    `json:"servings_target,omitempty"`
}

// Start creates a session for a recipe. At most one active session per
// (workspace, recipe) exists at a time.
func (s *Service) Start(ctx context.Context, workspaceID string, in StartInput) (*Session, error) {
	if in.RecipeID == "" {
		return nil, common.Validationf("recipe_id is required")
	}
	recipe, err := s.recipes.Get(ctx, workspaceID, in.RecipeID)
	if err != nil {
		return nil, err
	}
	if existing, err := s.sessions.ActiveByRecipe(ctx, workspaceID, in.RecipeID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, common.Conflictf("recipe %s already has active session %s", in.RecipeID, existing.ID)
	}

	target := in.ServingsTarget
	if target <= 0 {
		target = recipe.Servings
	}

	now := s.now().UTC()
	session := &Session{
		ID:              uuid.NewString(),
		WorkspaceID:     workspaceID,
		RecipeID:        recipe.ID,
		Status:          StatusActive,
		StartedAt:       now,
		UpdatedAt:       now,
		StepChecks:      map[int]map[int]bool{},
		ServingsBase:    recipe.Servings,
		ServingsTarget:  target,
		Timers:          map[string]*Timer{},
		AdjustmentsLog:  []AdjustmentLogEntry{},
		AutoStepEnabled: true,
		AutoStepMode:    AutoStepSuggest,
		StateVersion:    1,
	}

	event := s.newEvent(session, EventSessionStart, nil)
	event.Meta = map[string]interface{}{"recipe_id": recipe.ID, "servings_target": target}
	if err := s.sessions.Create(ctx, session, event); err != nil {
		return nil, err
	}
	s.publish(ctx, session)
	return session, nil
}

// Get returns a session by id.
func (s *Service) Get(ctx context.Context, workspaceID, sessionID string) (*Session, error) {
	return s.sessions.Get(ctx, workspaceID, sessionID)
}

// ActiveByRecipe returns the recipe's active session, or a not-found
// error when none exists.
func (s *Service) ActiveByRecipe(ctx context.Context, workspaceID, recipeID string) (*Session, error) {
	session, err := s.sessions.ActiveByRecipe(ctx, workspaceID, recipeID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, common.NotFoundf("no active session for recipe %s", recipeID)
	}
	return session, nil
}

// Recipe resolves the session's recipe.
func (s *Service) Recipe(ctx context.Context, session *Session) (*Recipe, error) {
	return s.recipes.Get(ctx, session.WorkspaceID, session.RecipeID)
}

// RecentEvents returns the newest events for a session, newest first.
func (s *Service) RecentEvents(ctx context.Context, workspaceID, sessionID string, limit int) ([]Event, error) {
	if _, err := s.sessions.Get(ctx, workspaceID, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.opts.RecentLimit {
		limit = s.opts.RecentLimit
	}
	return s.events.Recent(ctx, workspaceID, sessionID, limit)
}

// PatchRequest is the tagged-union mutation for live session state.
// Each present field is one sub-command; they are applied in struct
// order inside a single transaction.
type PatchRequest struct {
	CurrentStepIndex *int          `json:"current_step_index,omitempty"`
	StepCheck        *StepCheck    `json:"step_checks_patch,omitempty"`
	ServingsTarget   *int          `json:"servings_target,omitempty"`
	AutoStepEnabled  *bool         `json:"auto_step_enabled,omitempty"`
	AutoStepMode     *AutoStepMode `json:"auto_step_mode,omitempty"`
	TimerCreate      *TimerCreate  `json:"timer_create,omitempty"`
	TimerAction      *TimerAction  `json:"timer_action,omitempty"`
	TimerPatch       *TimerPatch   `json:"timer_patch,omitempty"`
}

// StepCheck toggles one bullet of one step.
type StepCheck struct {
	StepIndex   int  `json:"step_index"`
	BulletIndex int  `json:"bullet_index"`
	Checked     bool `json:"checked"`
}

// TimerCreate adds a countdown to a step. ClientID makes the create
// idempotent across request retries.
type TimerCreate struct {
	StepIndex   int    `json:"step_index"`
	Label       string `json:"label"`
	DurationSec int    `json:"duration_sec"`
	ClientID    string `json:"client_id,omitempty"`
}

// TimerAction drives the timer state machine.
type TimerAction struct {
	TimerID string `json:"timer_id"`
	Action  string `json:"action"`
}

// TimerPatch renames a timer without touching its state.
type TimerPatch struct {
	TimerID string `json:"timer_id"`
	Label   string `json:"label"`
}

func (p *PatchRequest) empty() bool {
	return p.CurrentStepIndex == nil && p.StepCheck == nil && p.ServingsTarget == nil &&
		p.AutoStepEnabled == nil && p.AutoStepMode == nil &&
		p.TimerCreate == nil && p.TimerAction == nil && p.TimerPatch == nil
}

func (p *PatchRequest) validate() error {
	if p.empty() {
		return common.Validationf("patch must contain at least one field")
	}
	timerCommands := 0
	for _, present := range []bool{p.TimerCreate != nil, p.TimerAction != nil, p.TimerPatch != nil} {
		if present {
			timerCommands++
		}
	}
	if timerCommands > 1 {
		return common.Validationf("patch may contain at most one timer command")
	}
	if p.AutoStepMode != nil && *p.AutoStepMode != AutoStepSuggest && *p.AutoStepMode != AutoStepAutoJump {
		return common.Validationf("auto_step_mode must be %q or %q", AutoStepSuggest, AutoStepAutoJump)
	}
	if p.ServingsTarget != nil && *p.ServingsTarget <= 0 {
		return common.Validationf("servings_target must be positive")
	}
	return nil
}

// Patch applies the request's sub-commands atomically and re-runs
// auto-step inference when the activity signals changed.
func (s *Service) Patch(ctx context.Context, workspaceID, sessionID string, req PatchRequest) (*Session, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// Inference reads the pre-patch log; the new events of this patch
	// are folded in below.
	recent, err := s.events.Recent(ctx, workspaceID, sessionID, s.opts.EventWindow)
	if err != nil {
		recent = nil
	}

	session, err := s.mutateActive(ctx, workspaceID, sessionID, func(session *Session, recipe *Recipe) ([]Event, error) {
		now := s.now().UTC()
		steps := session.EffectiveSteps(recipe)
		var events []Event
		rerunInference := false

		if req.CurrentStepIndex != nil {
			to := *req.CurrentStepIndex
			if to < 0 || to >= len(steps) {
				return nil, common.Validationf("current_step_index %d out of range [0, %d)", to, len(steps))
			}
			from := session.CurrentStepIndex
			session.CurrentStepIndex = to
			until := now.Add(s.opts.ManualOverrideWindow)
			session.ManualOverrideUntil = &until
			ev := s.newEvent(session, EventStepNavigate, intPtr(to))
			ev.Meta = map[string]interface{}{"from": from, "to": to}
			events = append(events, ev)
			rerunInference = true
		}

		if req.StepCheck != nil {
			check := *req.StepCheck
			if check.StepIndex < 0 || check.StepIndex >= len(steps) {
				return nil, common.Validationf("step_index %d out of range [0, %d)", check.StepIndex, len(steps))
			}
			bullets := steps[check.StepIndex].Bullets
			if check.BulletIndex < 0 || check.BulletIndex >= len(bullets) {
				return nil, common.Validationf("bullet_index %d out of range [0, %d)", check.BulletIndex, len(bullets))
			}
			if session.StepChecks == nil {
				session.StepChecks = map[int]map[int]bool{}
			}
			if session.StepChecks[check.StepIndex] == nil {
				session.StepChecks[check.StepIndex] = map[int]bool{}
			}
			session.StepChecks[check.StepIndex][check.BulletIndex] = check.Checked
			ev := s.newEvent(session, EventCheckStep, intPtr(check.StepIndex))
			ev.BulletIndex = intPtr(check.BulletIndex)
			ev.Meta = map[string]interface{}{"checked": check.Checked}
			events = append(events, ev)
			rerunInference = true
		}

		if req.ServingsTarget != nil {
			session.ServingsTarget = *req.ServingsTarget
			ev := s.newEvent(session, EventSettingsUpdate, nil)
			ev.Meta = map[string]interface{}{"servings_target": *req.ServingsTarget}
			events = append(events, ev)
		}

		if req.AutoStepEnabled != nil || req.AutoStepMode != nil {
			meta := map[string]interface{}{}
			if req.AutoStepEnabled != nil {
				session.AutoStepEnabled = *req.AutoStepEnabled
				meta["auto_step_enabled"] = *req.AutoStepEnabled
			}
			if req.AutoStepMode != nil {
				session.AutoStepMode = *req.AutoStepMode
				meta["auto_step_mode"] = string(*req.AutoStepMode)
			}
			ev := s.newEvent(session, EventSettingsUpdate, nil)
			ev.Meta = meta
			events = append(events, ev)
			rerunInference = true
		}

		if req.TimerCreate != nil {
			create := *req.TimerCreate
			if create.StepIndex < 0 || create.StepIndex >= len(steps) {
				return nil, common.Validationf("step_index %d out of range [0, %d)", create.StepIndex, len(steps))
			}
			if create.DurationSec <= 0 {
				return nil, common.Validationf("duration_sec must be positive")
			}
			if existing := session.timerByClientID(create.ClientID); existing != nil {
				// Retry of a creation we already performed; no state
				// change, no event.
			} else {
				timer := newTimer(uuid.NewString(), create.StepIndex, create.Label, create.DurationSec, create.ClientID, now)
				if session.Timers == nil {
					session.Timers = map[string]*Timer{}
				}
				session.Timers[timer.ID] = timer
				ev := s.newEvent(session, EventTimerCreate, intPtr(create.StepIndex))
				ev.TimerID = timer.ID
				events = append(events, ev)
			}
		}

		if req.TimerAction != nil {
			action := *req.TimerAction
			timer, ok := session.Timers[action.TimerID]
			if !ok || timer.State == TimerDeleted {
				return nil, common.NotFoundf("timer %s not found", action.TimerID)
			}
			var evType EventType
			switch action.Action {
			case "start":
				if err := timer.Start(now); err != nil {
					return nil, err
				}
				evType = EventTimerStart
				rerunInference = true
			case "pause":
				if err := timer.Pause(now); err != nil {
					return nil, err
				}
				evType = EventTimerPause
			case "done":
				if err := timer.MarkDone(); err != nil {
					return nil, err
				}
				evType = EventTimerDone
				rerunInference = true
			case "delete":
				if err := timer.MarkDeleted(); err != nil {
					return nil, err
				}
				evType = EventTimerDelete
			default:
				return nil, common.Validationf("unknown timer action %q", action.Action)
			}
			ev := s.newEvent(session, evType, intPtr(timer.StepIndex))
			ev.TimerID = timer.ID
			events = append(events, ev)
		}

		if req.TimerPatch != nil {
			patch := *req.TimerPatch
			timer, ok := session.Timers[patch.TimerID]
			if !ok || timer.State == TimerDeleted {
				return nil, common.NotFoundf("timer %s not found", patch.TimerID)
			}
			if patch.Label == "" {
				return nil, common.Validationf("timer label must not be empty")
			}
			timer.Label = patch.Label
			ev := s.newEvent(session, EventSettingsUpdate, intPtr(timer.StepIndex))
			ev.TimerID = timer.ID
			ev.Meta = map[string]interface{}{"label": patch.Label}
			events = append(events, ev)
		}

		if rerunInference && session.AutoStepEnabled {
			window := append(append([]Event(nil), reverseEvents(events)...), recent...)
			suggestion := s.inf.Infer(session, session.EffectiveSteps(recipe), window, now)
			applySuggestion(session, suggestion, now)
		}

		return events, nil
	})
	return session, err
}

// Complete finishes an active session.
func (s *Service) Complete(ctx context.Context, workspaceID, sessionID string) (*Session, error) {
	return s.mutateActive(ctx, workspaceID, sessionID, func(session *Session, _ *Recipe) ([]Event, error) {
		now := s.now().UTC()
		session.Status = StatusDone
		session.CompletedAt = &now
		for _, t := range session.Timers {
			if t.State == TimerRunning || t.State == TimerPaused {
				t.MarkDone()
			}
		}
		return []Event{s.newEvent(session, EventSessionComplete, nil)}, nil
	})
}

// Abandon ends an active session without finishing it.
func (s *Service) Abandon(ctx context.Context, workspaceID, sessionID, reason string) (*Session, error) {
	return s.mutateActive(ctx, workspaceID, sessionID, func(session *Session, _ *Recipe) ([]Event, error) {
		now := s.now().UTC()
		session.Status = StatusAbandoned
		session.CompletedAt = &now
		session.EndedReason = reason
		for _, t := range session.Timers {
			if t.Live() {
				t.MarkDeleted()
			}
		}
		ev := s.newEvent(session, EventSessionAbandon, nil)
		if reason != "" {
			ev.Meta = map[string]interface{}{"reason": reason}
		}
		return []Event{ev}, nil
	})
}

// AdjustmentPreview is the dry-run result of drafting an adjustment.
type AdjustmentPreview struct {
	Adjustment Adjustment `json:"adjustment"`
	Steps      []Step     `json:"steps"`
}

// PreviewAdjustment drafts a step replacement without persisting it.
func (s *Service) PreviewAdjustment(ctx context.Context, workspaceID, sessionID string, stepIndex int, kind string) (*AdjustmentPreview, error) {
	session, recipe, err := s.load(ctx, workspaceID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, common.Gonef("session %s has ended", sessionID)
	}
	adj, steps, err := draftAdjustment(ctx, s.ai, recipe, session, stepIndex, kind)
	if err != nil {
		return nil, err
	}
	return &AdjustmentPreview{Adjustment: *adj, Steps: steps}, nil
}

// ApplyAdjustment applies a previously previewed adjustment, or drafts
// and applies one in a single call when only step_index and kind are
// given. The AI call happens outside the transaction.
func (s *Service) ApplyAdjustment(ctx context.Context, workspaceID, sessionID string, adj *Adjustment, stepIndex int, kind string) (*Session, error) {
	if adj == nil {
		session, recipe, err := s.load(ctx, workspaceID, sessionID)
		if err != nil {
			return nil, err
		}
		if !session.Active() {
			return nil, common.Gonef("session %s has ended", sessionID)
		}
		drafted, _, err := draftAdjustment(ctx, s.ai, recipe, session, stepIndex, kind)
		if err != nil {
			return nil, err
		}
		adj = drafted
	}
	if adj.ID == "" {
		adj.ID = uuid.NewString()
	}

	return s.mutateActive(ctx, workspaceID, sessionID, func(session *Session, recipe *Recipe) ([]Event, error) {
		entry, err := applyAdjustment(session, recipe, *adj, s.now().UTC())
		if err != nil {
			return nil, err
		}
		ev := s.newEvent(session, EventAdjustApply, intPtr(entry.Adjustment.StepIndex))
		ev.Meta = map[string]interface{}{
			"adjustment_id": entry.Adjustment.ID,
			"kind":          entry.Adjustment.Kind,
			"source":        entry.Adjustment.Source,
		}
		return []Event{ev}, nil
	})
}

// UndoAdjustment rolls back an applied adjustment. An empty id undoes
// the most recent one.
func (s *Service) UndoAdjustment(ctx context.Context, workspaceID, sessionID, adjustmentID string) (*Session, error) {
	return s.mutateActive(ctx, workspaceID, sessionID, func(session *Session, recipe *Recipe) ([]Event, error) {
		entry, err := undoAdjustment(session, recipe, adjustmentID, s.now().UTC())
		if err != nil {
			return nil, err
		}
		ev := s.newEvent(session, EventAdjustUndo, intPtr(entry.Adjustment.StepIndex))
		ev.Meta = map[string]interface{}{"adjustment_id": entry.Adjustment.ID}
		return []Event{ev}, nil
	})
}

// MethodPreview is the dry-run result of a method switch.
type MethodPreview struct {
	MethodKey string    `json:"method_key"`
	Steps     []Step    `json:"steps"`
	Tradeoffs Tradeoffs `json:"tradeoffs"`
}

// PreviewMethod rewrites the recipe steps for a method without
// persisting anything.
func (s *Service) PreviewMethod(ctx context.Context, workspaceID, sessionID, methodKey string) (*MethodPreview, error) {
	session, recipe, err := s.load(ctx, workspaceID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, common.Gonef("session %s has ended", sessionID)
	}
	steps, tradeoffs, err := draftMethod(ctx, s.ai, recipe, methodKey)
	if err != nil {
		return nil, err
	}
	return &MethodPreview{MethodKey: methodKey, Steps: steps, Tradeoffs: tradeoffs}, nil
}

// ApplyMethod switches the session to a method. The rewritten steps
// replace the whole override; a later adjustment or method apply wins
// over an earlier one.
func (s *Service) ApplyMethod(ctx context.Context, workspaceID, sessionID, methodKey string) (*Session, error) {
	session, recipe, err := s.load(ctx, workspaceID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, common.Gonef("session %s has ended", sessionID)
	}
	steps, tradeoffs, err := draftMethod(ctx, s.ai, recipe, methodKey)
	if err != nil {
		return nil, err
	}

	return s.mutateActive(ctx, workspaceID, sessionID, func(session *Session, recipe *Recipe) ([]Event, error) {
		session.MethodKey = methodKey
		session.MethodTradeoffs = &tradeoffs
		session.StepsOverride = cloneSteps(steps)
		reconcileStepRefs(session, steps)
		ev := s.newEvent(session, EventMethodApply, nil)
		ev.Meta = map[string]interface{}{"method_key": methodKey}
		return []Event{ev}, nil
	})
}

// ResetMethod drops the method override. Adjustments that were applied
// and not undone are replayed on top of the recipe's own steps.
func (s *Service) ResetMethod(ctx context.Context, workspaceID, sessionID string) (*Session, error) {
	return s.mutateActive(ctx, workspaceID, sessionID, func(session *Session, recipe *Recipe) ([]Event, error) {
		if session.MethodKey == "" {
			return nil, common.Validationf("session has no method override")
		}
		cleared := session.MethodKey
		session.MethodKey = ""
		session.MethodTradeoffs = nil
		session.StepsOverride = replayAdjustments(recipe, session.AdjustmentsLog)
		reconcileStepRefs(session, session.EffectiveSteps(recipe))
		ev := s.newEvent(session, EventMethodReset, nil)
		ev.Meta = map[string]interface{}{"method_key": cleared}
		return []Event{ev}, nil
	})
}

// replayAdjustments rebuilds the override from the recipe steps and the
// non-undone adjustment log. Returns nil when nothing differs.
func replayAdjustments(recipe *Recipe, log []AdjustmentLogEntry) []Step {
	steps := cloneSteps(recipe.Steps)
	changed := false
	for i := range log {
		entry := &log[i]
		if entry.Undone() {
			continue
		}
		idx := entry.Adjustment.StepIndex
		if idx < 0 || idx >= len(steps) {
			continue
		}
		steps[idx] = adjustedStep(steps[idx], &entry.Adjustment)
		changed = true
	}
	if !changed {
		return nil
	}
	return steps
}

// reconcileStepRefs keeps every step reference inside the effective
// step list after an override replacement shrank it: out-of-range
// checklist entries are dropped, timers move to the last step, and a
// stale auto-step suggestion is cleared.
func reconcileStepRefs(session *Session, steps []Step) {
	n := len(steps)
	if n == 0 {
		return
	}
	for idx, checks := range session.StepChecks {
		if idx >= n {
			delete(session.StepChecks, idx)
			continue
		}
		for bullet := range checks {
			if bullet >= len(steps[idx].Bullets) {
				delete(checks, bullet)
			}
		}
	}
	for _, t := range session.Timers {
		if t.StepIndex >= n {
			t.StepIndex = n - 1
		}
	}
	if session.AutoStepSuggestedIndex != nil && *session.AutoStepSuggestedIndex >= n {
		session.AutoStepSuggestedIndex = nil
		session.AutoStepConfidence = 0
		session.AutoStepReason = ""
	}
	if session.CurrentStepIndex >= n {
		session.CurrentStepIndex = n - 1
	}
}

// NextAction is the "what should I do now" hint.
type NextAction struct {
	Action      string `json:"action"`
	StepIndex   *int   `json:"step_index,omitempty"`
	TimerID     string `json:"timer_id,omitempty"`
	DurationSec *int   `json:"duration_sec,omitempty"`
	Remaining   []int  `json:"remaining_bullets,omitempty"`
}

// NextAction derives the suggested next action from the session state.
func (s *Service) NextAction(ctx context.Context, workspaceID, sessionID string) (*NextAction, error) {
	session, recipe, err := s.load(ctx, workspaceID, sessionID)
	if err != nil {
		return nil, err
	}
	steps := session.EffectiveSteps(recipe)
	if !session.Active() || len(steps) == 0 {
		return &NextAction{Action: "none"}, nil
	}

	current := clampIndex(session.CurrentStepIndex, len(steps))
	step := steps[current]

	// Unchecked bullets on the current step come first.
	var remaining []int
	for i := range step.Bullets {
		if !session.StepChecks[current][i] {
			remaining = append(remaining, i)
		}
	}
	if len(remaining) > 0 {
		return &NextAction{Action: "check_bullets", StepIndex: intPtr(current), Remaining: remaining}, nil
	}

	// Then a pending timer anywhere in the session.
	for _, t := range session.Timers {
		if t.State == TimerCreated || t.State == TimerPaused {
			return &NextAction{Action: "start_timer", StepIndex: intPtr(t.StepIndex), TimerID: t.ID}, nil
		}
	}

	// Then a missing timer for a step with a time estimate.
	if step.MinutesEst != nil && !session.hasTimerForStep(current) {
		duration := *step.MinutesEst * 60
		return &NextAction{Action: "create_timer", StepIndex: intPtr(current), DurationSec: &duration}, nil
	}

	if current+1 < len(steps) {
		return &NextAction{Action: "next_step", StepIndex: intPtr(current + 1)}, nil
	}
	return &NextAction{Action: "complete_session"}, nil
}

func (s *Session) hasTimerForStep(step int) bool {
	for _, t := range s.Timers {
		if t.StepIndex == step && t.State != TimerDeleted {
			return true
		}
	}
	return false
}

// Summary is the post-hoc recap of a run.
type Summary struct {
	SessionID        string     `json:"session_id"`
	RecipeID         string     `json:"recipe_id"`
	Status           Status     `json:"status"`
	MethodKey        string     `json:"method_key,omitempty"`
	EndedReason      string     `json:"ended_reason,omitempty"`
	ServingsBase     int        `json:"servings_base"`
	ServingsTarget   int        `json:"servings_target"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Duration         string     `json:"duration"`
	StepsTotal       int        `json:"steps_total"`
	ChecksCompleted  int        `json:"checks_completed"`
	TimersCompleted  int        `json:"timers_completed"`
	AdjustmentsCount int        `json:"adjustments_count"`
	EventsTail       []Event    `json:"events_tail"`
}

// Summary builds the recap. It works for active sessions too, using
// now as the open end of the duration.
func (s *Service) Summary(ctx context.Context, workspaceID, sessionID string) (*Summary, error) {
	session, recipe, err := s.load(ctx, workspaceID, sessionID)
	if err != nil {
		return nil, err
	}

	end := s.now().UTC()
	if session.CompletedAt != nil {
		end = *session.CompletedAt
	}

	checks := 0
	for step := range session.StepChecks {
		checks += session.checkedCount(step)
	}
	timersDone := 0
	for _, t := range session.Timers {
		if t.State == TimerDone {
			timersDone++
		}
	}
	adjustments := 0
	for i := range session.AdjustmentsLog {
		if !session.AdjustmentsLog[i].Undone() {
			adjustments++
		}
	}

	tail, err := s.events.Recent(ctx, workspaceID, sessionID, 10)
	if err != nil {
		tail = nil
	}

	return &Summary{
		SessionID:        session.ID,
		RecipeID:         session.RecipeID,
		Status:           session.Status,
		MethodKey:        session.MethodKey,
		EndedReason:      session.EndedReason,
		ServingsBase:     session.ServingsBase,
		ServingsTarget:   session.ServingsTarget,
		StartedAt:        session.StartedAt,
		CompletedAt:      session.CompletedAt,
		Duration:         humanize.RelTime(session.StartedAt, end, "", ""),
		StepsTotal:       len(session.EffectiveSteps(recipe)),
		ChecksCompleted:  checks,
		TimersCompleted:  timersDone,
		AdjustmentsCount: adjustments,
		EventsTail:       tail,
	}, nil
}

// mutateActive runs fn through the store's transactional mutate,
// enforcing that the session is still active, and publishes the update
// notification on success. The recipe is read-only external input and
// is fetched before the session lock is taken.
func (s *Service) mutateActive(ctx context.Context, workspaceID, sessionID string, fn func(*Session, *Recipe) ([]Event, error)) (*Session, error) {
	current, err := s.sessions.Get(ctx, workspaceID, sessionID)
	if err != nil {
		return nil, err
	}
	recipe, err := s.recipes.Get(ctx, current.WorkspaceID, current.RecipeID)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Mutate(ctx, workspaceID, sessionID, func(session *Session) ([]Event, error) {
		if !session.Active() {
			return nil, common.Gonef("session %s has ended", sessionID)
		}
		events, err := fn(session, recipe)
		if err != nil {
			return nil, err
		}
		session.UpdatedAt = s.now().UTC()
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, session)
	return session, nil
}

func (s *Service) load(ctx context.Context, workspaceID, sessionID string) (*Session, *Recipe, error) {
	session, err := s.sessions.Get(ctx, workspaceID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	recipe, err := s.recipes.Get(ctx, workspaceID, session.RecipeID)
	if err != nil {
		return nil, nil, err
	}
	return session, recipe, nil
}

func (s *Service) newEvent(session *Session, typ EventType, stepIndex *int) Event {
	return Event{
		ID:          uuid.NewString(),
		WorkspaceID: session.WorkspaceID,
		SessionID:   session.ID,
		Type:        typ,
		StepIndex:   stepIndex,
		CreatedAt:   s.now().UTC(),
	}
}

// publish announces the update. Bus failures are logged and swallowed;
// the mutation already committed.
func (s *Service) publish(ctx context.Context, session *Session) {
	if s.bus == nil {
		return
	}
	n := Notification{
		Type:        NotificationSessionUpdated,
		SessionID:   session.ID,
		WorkspaceID: session.WorkspaceID,
		UpdatedAt:   session.UpdatedAt,
	}
	if err := s.bus.Publish(ctx, n); err != nil {
		common.Logger.WithError(err).WithField("session_id", session.ID).Warn("session notification publish failed")
	}
}

// reverseEvents returns the slice newest-first, matching what
// EventStore.Recent yields.
func reverseEvents(events []Event) []Event {
	out := make([]Event, len(events))
	for i, ev := range events {
		out[len(events)-1-i] = ev
	}
	return out
}

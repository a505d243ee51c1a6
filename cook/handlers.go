package cook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"tasteos.dev/api"
	"tasteos.dev/common"
)

// Handlers exposes the engine over HTTP.
type Handlers struct {
	svc       *Service
	keepAlive time.Duration
	doneGrace time.Duration
}

// NewHandlers builds the HTTP surface. keepAlive is the SSE comment
// interval; doneGrace is how long a stream stays open after the
// session reaches a terminal state.
func NewHandlers(svc *Service, keepAlive, doneGrace time.Duration) *Handlers {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	if doneGrace <= 0 {
		doneGrace = 30 * time.Second
	}
	return &Handlers{svc: svc, keepAlive: keepAlive, doneGrace: doneGrace}
}

// RegisterRoutes mounts the cook endpoints on g. gate wraps mutating
// routes with the idempotency middleware for the given route key.
func (h *Handlers) RegisterRoutes(g *echo.Group, gate func(routeKey string) echo.MiddlewareFunc) {
	g.GET("/cook/methods", h.Methods)

	g.POST("/cook/session/start", h.Start, gate("cook.session.start"))
	g.GET("/cook/session/active", h.Active)
	g.GET("/cook/session/:id", h.Get)
	g.PATCH("/cook/session/:id", h.Patch, gate("cook.session.patch"))
	g.POST("/cook/session/:id/complete", h.Complete, gate("cook.session.complete"))
	g.POST("/cook/session/:id/abandon", h.Abandon, gate("cook.session.abandon"))
	g.GET("/cook/session/:id/summary", h.Summary)
	g.GET("/cook/session/:id/next", h.NextAction)
	g.GET("/cook/session/:id/events/recent", h.Events)
	g.GET("/cook/session/:id/events", h.Stream)

	g.POST("/cook/session/:id/adjust/preview", h.AdjustPreview)
	g.POST("/cook/session/:id/adjust/apply", h.AdjustApply, gate("cook.session.adjust.apply"))
	g.POST("/cook/session/:id/adjust/undo", h.AdjustUndo, gate("cook.session.adjust.undo"))

	g.POST("/cook/session/:id/method/preview", h.MethodPreview)
	g.POST("/cook/session/:id/method/apply", h.MethodApply, gate("cook.session.method.apply"))
	g.POST("/cook/session/:id/method/reset", h.MethodReset, gate("cook.session.method.reset"))
}

// Methods lists the curated method catalog.
func (h *Handlers) Methods(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"methods": Methods()})
}

// Start creates a session.
func (h *Handlers) Start(c echo.Context) error {
	var in StartInput
	if err := bindStrict(c, &in); err != nil {
		return err
	}
	session, err := h.svc.Start(c.Request().Context(), api.WorkspaceID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, session)
}

// Get returns a session by id.
func (h *Handlers) Get(c echo.Context) error {
	session, err := h.svc.Get(c.Request().Context(), api.WorkspaceID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// Active returns the active session for ?recipe_id=.
func (h *Handlers) Active(c echo.Context) error {
	recipeID := c.QueryParam("recipe_id")
	if recipeID == "" {
		return common.Validationf("recipe_id query parameter is required")
	}
	session, err := h.svc.ActiveByRecipe(c.Request().Context(), api.WorkspaceID(c), recipeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// Patch applies a tagged-union mutation.
func (h *Handlers) Patch(c echo.Context) error {
	var req PatchRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	session, err := h.svc.Patch(c.Request().Context(), api.WorkspaceID(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// Complete finishes the session.
func (h *Handlers) Complete(c echo.Context) error {
	session, err := h.svc.Complete(c.Request().Context(), api.WorkspaceID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

type abandonRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Abandon ends the session without finishing.
func (h *Handlers) Abandon(c echo.Context) error {
	var req abandonRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	session, err := h.svc.Abandon(c.Request().Context(), api.WorkspaceID(c), c.Param("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// Summary returns the session recap.
func (h *Handlers) Summary(c echo.Context) error {
	summary, err := h.svc.Summary(c.Request().Context(), api.WorkspaceID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// NextAction returns the suggested next action.
func (h *Handlers) NextAction(c echo.Context) error {
	action, err := h.svc.NextAction(c.Request().Context(), api.WorkspaceID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, action)
}

// Events returns the newest events, newest first.
func (h *Handlers) Events(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return common.Validationf("limit must be a positive integer")
		}
		limit = parsed
	}
	events, err := h.svc.RecentEvents(c.Request().Context(), api.WorkspaceID(c), c.Param("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
}

type adjustRequest struct {
	StepIndex  *int        `json:"step_index,omitempty"`
	Kind       string      `json:"kind,omitempty"`
	Adjustment *Adjustment `json:"adjustment,omitempty"`
}

// AdjustPreview drafts an adjustment without applying it.
func (h *Handlers) AdjustPreview(c echo.Context) error {
	var req adjustRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	if req.StepIndex == nil {
		return common.Validationf("step_index is required")
	}
	preview, err := h.svc.PreviewAdjustment(c.Request().Context(), api.WorkspaceID(c), c.Param("id"), *req.StepIndex, req.Kind)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, preview)
}

// AdjustApply applies a previewed adjustment, or drafts and applies in
// one call when only step_index and kind are given.
func (h *Handlers) AdjustApply(c echo.Context) error {
	var req adjustRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	stepIndex := -1
	if req.StepIndex != nil {
		stepIndex = *req.StepIndex
	}
	if req.Adjustment == nil && req.StepIndex == nil {
		return common.Validationf("either adjustment or step_index is required")
	}
	session, err := h.svc.ApplyAdjustment(c.Request().Context(), api.WorkspaceID(c), c.Param("id"), req.Adjustment, stepIndex, req.Kind)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

type undoRequest struct {
	AdjustmentID string `json:"adjustment_id,omitempty"`
}

// AdjustUndo rolls back an adjustment; the latest one when no id is
// given.
func (h *Handlers) AdjustUndo(c echo.Context) error {
	var req undoRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	session, err := h.svc.UndoAdjustment(c.Request().Context(), api.WorkspaceID(c), c.Param("id"), req.AdjustmentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

type methodRequest struct {
	MethodKey string `json:"method_key"`
}

// MethodPreview rewrites steps for a method without applying.
func (h *Handlers) MethodPreview(c echo.Context) error {
	var req methodRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	preview, err := h.svc.PreviewMethod(c.Request().Context(), api.WorkspaceID(c), c.Param("id"), req.MethodKey)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, preview)
}

// MethodApply switches the session's method.
func (h *Handlers) MethodApply(c echo.Context) error {
	var req methodRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	session, err := h.svc.ApplyMethod(c.Request().Context(), api.WorkspaceID(c), c.Param("id"), req.MethodKey)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// MethodReset drops the method override.
func (h *Handlers) MethodReset(c echo.Context) error {
	session, err := h.svc.ResetMethod(c.Request().Context(), api.WorkspaceID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// bindStrict decodes a JSON body rejecting unknown fields. An empty
// body binds the zero value.
func bindStrict(c echo.Context, v interface{}) error {
	body := c.Request().Body
	if body == nil {
		return nil
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return common.Validationf("invalid request body: %v", err)
	}
	return nil
}

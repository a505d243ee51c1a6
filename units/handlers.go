package units

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"tasteos.dev/api"
	"tasteos.dev/common"
)

// Handlers exposes the unit conversion and density override endpoints.
type Handlers struct {
	resolver *Resolver
	store    DensityStore
}

// NewHandlers creates the units HTTP handlers.
func NewHandlers(resolver *Resolver, store DensityStore) *Handlers {
	return &Handlers{resolver: resolver, store: store}
}

// RegisterRoutes adds the units endpoints to an Echo group. gate wraps
// the mutating routes with the idempotency middleware for the given
// route key.
func (h *Handlers) RegisterRoutes(g *echo.Group, gate func(routeKey string) echo.MiddlewareFunc) {
	g.POST("/units/convert", h.handleConvert)
	g.PUT("/units/densities", h.handleUpsertDensity, gate("units.density.upsert"))
	g.GET("/units/densities", h.handleListDensities)
	g.DELETE("/units/densities/:id", h.handleDeleteDensity, gate("units.density.delete"))
}

func (h *Handlers) handleConvert(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return common.Validationf("malformed conversion request")
	}
	if req.FromUnit == "" {
		return common.Validationf("from_unit is required")
	}
	req.WorkspaceID = api.WorkspaceID(c)

	result := h.resolver.Convert(c.Request().Context(), req)
	return c.JSON(http.StatusOK, result)
}

func (h *Handlers) handleUpsertDensity(c echo.Context) error {
	var in UpsertInput
	if err := c.Bind(&in); err != nil {
		return common.Validationf("malformed density override")
	}

	density, err := ResolveDensityInput(in)
	if err != nil {
		return err
	}

	stored, err := h.store.Upsert(c.Request().Context(), DensityOverride{
		ID:            uuid.NewString(),
		WorkspaceID:   api.WorkspaceID(c),
		IngredientKey: common.NormalizeKey(in.IngredientName),
		DisplayName:   in.IngredientName,
		DensityGPerML: density,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stored)
}

func (h *Handlers) handleListDensities(c echo.Context) error {
	overrides, err := h.store.List(c.Request().Context(), api.WorkspaceID(c), c.QueryParam("query"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": overrides})
}

func (h *Handlers) handleDeleteDensity(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), api.WorkspaceID(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

package units

import (
	"context"
	"time"

	"tasteos.dev/common"
)

// MaxDensityGPerML is the sanity upper bound for stored densities.
// Osmium is 22.6 g/ml; nothing edible exceeds 5.
const MaxDensityGPerML = 5.0

// DensityOverride is a workspace-scoped ingredient density record.
// Uniqueness is enforced on (workspace_id, ingredient_key) at the store.
type DensityOverride struct {
	ID            string    `json:"id"`
	WorkspaceID   string    `json:"workspace_id"`
	IngredientKey string    `json:"ingredient_key"`
	DisplayName   string    `json:"display_name"`
	DensityGPerML float64   `json:"density_g_per_ml"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DensityStore persists density overrides.
type DensityStore interface {
	// Upsert inserts or replaces the override for its
	// (workspace_id, ingredient_key) pair and returns the stored record.
	Upsert(ctx context.Context, override DensityOverride) (*DensityOverride, error)

	// Lookup returns the override for a normalized ingredient key, or
	// nil when none exists.
	Lookup(ctx context.Context, workspaceID, ingredientKey string) (*DensityOverride, error)

	// List returns the workspace's overrides, optionally filtered by a
	// substring query against display name or ingredient key.
	List(ctx context.Context, workspaceID, query string) ([]DensityOverride, error)

	// Delete removes an override by id within the workspace.
	Delete(ctx context.Context, workspaceID, id string) error
}

// MeasuredDensity derives a density from a measured mass/volume pair,
// e.g. 200 g per 100 ml -> 2.0 g/ml. Only mass and volume primitives are
// accepted.
type MeasuredDensity struct {
	MassValue float64 `json:"mass_value"`
	MassUnit  string  `json:"mass_unit"`
	VolValue  float64 `json:"vol_value"`
	VolUnit   string  `json:"vol_unit"`
}

// UpsertInput is the validated input for a density upsert. Either
// DensityGPerML or Measured must be supplied.
type UpsertInput struct {
	IngredientName string           `json:"ingredient_name"`
	DensityGPerML  *float64         `json:"density_g_per_ml,omitempty"`
	Measured       *MeasuredDensity `json:"density,omitempty"`
}

// ResolveDensityInput validates input and computes the final density.
func ResolveDensityInput(in UpsertInput) (float64, error) {
	if in.IngredientName == "" || common.NormalizeKey(in.IngredientName) == "" {
		return 0, common.Validationf("ingredient_name is required")
	}

	var density float64
	switch {
	case in.DensityGPerML != nil:
		density = *in.DensityGPerML
	case in.Measured != nil:
		m := in.Measured
		massUnit, ok := Normalize(m.MassUnit)
		if !ok || DimensionOf(massUnit) != DimensionMass {
			return 0, common.Validationf("mass_unit %q is not a mass unit", m.MassUnit)
		}
		volUnit, ok := Normalize(m.VolUnit)
		if !ok || DimensionOf(volUnit) != DimensionVolume {
			return 0, common.Validationf("vol_unit %q is not a volume unit", m.VolUnit)
		}
		if m.MassValue <= 0 || m.VolValue <= 0 {
			return 0, common.Validationf("mass and volume values must be positive")
		}
		grams, _ := toGrams(m.MassValue, massUnit)
		ml, _ := toML(m.VolValue, volUnit)
		density = grams / ml
	default:
		return 0, common.Validationf("either density_g_per_ml or a mass/volume pair is required")
	}

	if density <= 0 || density > MaxDensityGPerML {
		return 0, common.Validationf("density %.4f g/ml is outside (0, %g]", density, MaxDensityGPerML)
	}
	return density, nil
}

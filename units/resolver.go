package units

import (
	"context"
	"fmt"

	"tasteos.dev/common"
)

// Request describes a single conversion. Exactly one of ToUnit or
// TargetSystem should be set; when TargetSystem is given the resolver
// picks a readable destination unit within the source dimension.
type Request struct {
	Qty             float64  `json:"qty"`
	FromUnit        string   `json:"from_unit"`
	ToUnit          string   `json:"to_unit,omitempty"`
	TargetSystem    string   `json:"target_system,omitempty"` // "metric" or "us_customary"
	IngredientName  string   `json:"ingredient_name,omitempty"`
	WorkspaceID     string   `json:"-"`
	ForceCrossType  bool     `json:"force_cross_type,omitempty"`
	OverrideDensity *float64 `json:"override_density,omitempty"`
}

// Result is a converted quantity with a confidence label. Conversions
// never fail; missing data degrades the confidence instead.
type Result struct {
	Qty        float64    `json:"qty"`
	Unit       string     `json:"unit"`
	Confidence Confidence `json:"confidence"`
	IsApprox   bool       `json:"is_approx"`
	Note       string     `json:"note,omitempty"`
}

// Resolver converts quantities between units, resolving ingredient
// densities for volume/mass crossings. The store is optional; without it
// only the common table and the water fallback apply.
type Resolver struct {
	store DensityStore
}

// NewResolver creates a resolver backed by the given density store.
// Pass nil for a resolver without workspace overrides.
func NewResolver(store DensityStore) *Resolver {
	return &Resolver{store: store}
}

// Convert translates req.Qty from req.FromUnit into the destination unit.
func (r *Resolver) Convert(ctx context.Context, req Request) Result {
	from, ok := Normalize(req.FromUnit)
	if !ok {
		return Result{
			Qty:        req.Qty,
			Unit:       req.FromUnit,
			Confidence: ConfidenceLow,
			IsApprox:   true,
			Note:       fmt.Sprintf("unknown unit %q", req.FromUnit),
		}
	}

	var to string
	if req.ToUnit != "" {
		to, ok = Normalize(req.ToUnit)
		if !ok {
			return Result{
				Qty:        req.Qty,
				Unit:       from,
				Confidence: ConfidenceLow,
				IsApprox:   true,
				Note:       fmt.Sprintf("unknown unit %q", req.ToUnit),
			}
		}
	} else if req.TargetSystem != "" {
		to = smartTarget(req.Qty, from, req.TargetSystem)
	} else {
		to = from
	}

	if from == to {
		return Result{Qty: req.Qty, Unit: to, Confidence: ConfidenceHigh}
	}

	fromDim, toDim := DimensionOf(from), DimensionOf(to)

	switch {
	case fromDim == DimensionMass && toDim == DimensionMass:
		grams, _ := toGrams(req.Qty, from)
		return Result{Qty: grams / massToGrams[to], Unit: to, Confidence: ConfidenceHigh}

	case fromDim == DimensionVolume && toDim == DimensionVolume:
		ml, _ := toML(req.Qty, from)
		return Result{Qty: ml / volumeToML[to], Unit: to, Confidence: ConfidenceHigh}

	case fromDim == DimensionMass && toDim == DimensionVolume,
		fromDim == DimensionVolume && toDim == DimensionMass:
		return r.convertCross(ctx, req, from, to, fromDim)

	default:
		return Result{
			Qty:        req.Qty,
			Unit:       from,
			Confidence: ConfidenceLow,
			IsApprox:   true,
			Note:       fmt.Sprintf("cannot convert %s to %s", from, to),
		}
	}
}

// convertCross handles volume<->mass crossings using a resolved density.
func (r *Resolver) convertCross(ctx context.Context, req Request, from, to string, fromDim Dimension) Result {
	density, confidence, approx, note, ok := r.resolveDensity(ctx, req)
	if !ok {
		return Result{
			Qty:        req.Qty,
			Unit:       from,
			Confidence: ConfidenceLow,
			IsApprox:   true,
			Note:       "density unknown; supply an ingredient name or force_cross_type",
		}
	}

	var grams float64
	if fromDim == DimensionMass {
		grams, _ = toGrams(req.Qty, from)
	} else {
		ml, _ := toML(req.Qty, from)
		grams = ml * density
	}

	var qty float64
	if DimensionOf(to) == DimensionMass {
		qty = grams / massToGrams[to]
	} else {
		qty = (grams / density) / volumeToML[to]
	}

	return Result{Qty: qty, Unit: to, Confidence: confidence, IsApprox: approx, Note: note}
}

// resolveDensity walks the priority chain: explicit override, workspace
// override store, common-ingredient table, water fallback.
func (r *Resolver) resolveDensity(ctx context.Context, req Request) (density float64, confidence Confidence, approx bool, note string, ok bool) {
	if req.OverrideDensity != nil && *req.OverrideDensity > 0 {
		return *req.OverrideDensity, ConfidenceHigh, false, "", true
	}

	key := common.NormalizeKey(req.IngredientName)

	if r.store != nil && key != "" && req.WorkspaceID != "" {
		if override, err := r.store.Lookup(ctx, req.WorkspaceID, key); err == nil && override != nil {
			return override.DensityGPerML, ConfidenceHigh, false, "", true
		}
	}

	if key != "" {
		if d, found := lookupCommonDensity(key); found {
			return d, ConfidenceMedium, true, fmt.Sprintf("using common default density for %s", key), true
		}
	}

	if req.ForceCrossType || req.IngredientName != "" {
		return 1.0, ConfidenceNone, true, "assuming water density 1.0 g/ml", true
	}

	return 0, ConfidenceLow, true, "", false
}

// smartTarget picks a readable destination unit inside the source
// dimension for the requested measurement system.
func smartTarget(qty float64, from, system string) string {
	switch DimensionOf(from) {
	case DimensionMass:
		grams, _ := toGrams(qty, from)
		if system == "us_customary" {
			if grams/massToGrams["oz"] < 16 {
				return "oz"
			}
			return "lb"
		}
		if grams < 1000 {
			return "g"
		}
		return "kg"

	case DimensionVolume:
		ml, _ := toML(qty, from)
		if system == "us_customary" {
			switch {
			case ml/volumeToML["tsp"] < 3:
				return "tsp"
			case ml/volumeToML["tbsp"] < 4:
				return "tbsp"
			case ml/volumeToML["cup"] < 4:
				return "cup"
			case ml/volumeToML["quart"] < 4:
				return "quart"
			default:
				return "gal"
			}
		}
		if ml < 1000 {
			return "ml"
		}
		return "l"
	}
	return from
}

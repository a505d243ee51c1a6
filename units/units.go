// Package units implements quantity conversion with ingredient density
// resolution. Conversion within a dimension uses fixed constants; crossing
// volume and mass requires a density resolved from workspace overrides,
// the curated common-ingredient table, or the water fallback.
package units

import "tasteos.dev/common"

// Dimension classifies a unit.
type Dimension string

const (
	DimensionMass   Dimension = "mass"
	DimensionVolume Dimension = "volume"
	DimensionCount  Dimension = "count"
	DimensionOther  Dimension = "other"
)

// Confidence labels a conversion result.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// massToGrams maps canonical mass units to grams.
var massToGrams = map[string]float64{
	"g":  1,
	"kg": 1000,
	"mg": 0.001,
	"oz": 28.3495,
	"lb": 453.592,
}

// volumeToML maps canonical volume units to milliliters.
var volumeToML = map[string]float64{
	"ml":    1,
	"l":     1000,
	"tsp":   4.92892,
	"tbsp":  14.7868,
	"cup":   236.588,
	"fl_oz": 29.5735,
	"pint":  473.176,
	"quart": 946.353,
	"gal":   3785.41,
}

// countUnits are dimensionless counting units.
var countUnits = map[string]bool{
	"piece": true,
	"clove": true,
	"slice": true,
	"can":   true,
	"stick": true,
	"bunch": true,
	"pinch": true,
	"dash":  true,
}

// synonyms maps spellings, abbreviations and plurals onto canonical units.
var synonyms = map[string]string{
	"gram": "g", "grams": "g", "gr": "g",
	"kilogram": "kg", "kilograms": "kg", "kilo": "kg", "kilos": "kg",
	"milligram": "mg", "milligrams": "mg",
	"ounce": "oz", "ounces": "oz",
	"pound": "lb", "pounds": "lb", "lbs": "lb",
	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"teaspoon": "tsp", "teaspoons": "tsp", "t": "tsp", "tsps": "tsp",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbs": "tbsp", "tbsps": "tbsp",
	"cups": "cup", "c": "cup",
	"fluid ounce": "fl_oz", "fluid ounces": "fl_oz", "floz": "fl_oz", "fl oz": "fl_oz",
	"pints": "pint", "pt": "pint",
	"quarts": "quart", "qt": "quart",
	"gallon": "gal", "gallons": "gal",
	"pieces": "piece", "pc": "piece", "pcs": "piece", "each": "piece", "ea": "piece",
	"cloves": "clove", "slices": "slice", "cans": "can",
	"sticks": "stick", "bunches": "bunch", "pinches": "pinch", "dashes": "dash",
}

// Normalize resolves a unit string to its canonical form. The second
// return is false when the unit is unrecognized. Single-letter synonyms
// are matched case-sensitively ("T" is tablespoon, "t" teaspoon).
func Normalize(unit string) (string, bool) {
	if unit == "T" {
		return "tbsp", true
	}
	key := common.NormalizeKey(unit)
	if key == "" {
		return "", false
	}
	if canonical, ok := synonyms[key]; ok {
		return canonical, true
	}
	if _, ok := massToGrams[key]; ok {
		return key, true
	}
	if _, ok := volumeToML[key]; ok {
		return key, true
	}
	if countUnits[key] {
		return key, true
	}
	return "", false
}

// DimensionOf returns the dimension of a canonical unit.
func DimensionOf(unit string) Dimension {
	if _, ok := massToGrams[unit]; ok {
		return DimensionMass
	}
	if _, ok := volumeToML[unit]; ok {
		return DimensionVolume
	}
	if countUnits[unit] {
		return DimensionCount
	}
	return DimensionOther
}

// KnownUnits returns every canonical unit. Used by the self-conversion
// property test and the catalog endpoint.
func KnownUnits() []string {
	units := make([]string, 0, len(massToGrams)+len(volumeToML)+len(countUnits))
	for u := range massToGrams {
		units = append(units, u)
	}
	for u := range volumeToML {
		units = append(units, u)
	}
	for u := range countUnits {
		units = append(units, u)
	}
	return units
}

// toGrams converts a mass quantity to grams.
func toGrams(qty float64, unit string) (float64, bool) {
	factor, ok := massToGrams[unit]
	return qty * factor, ok
}

// toML converts a volume quantity to milliliters.
func toML(qty float64, unit string) (float64, bool) {
	factor, ok := volumeToML[unit]
	return qty * factor, ok
}

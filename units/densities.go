package units

// commonDensities is the curated common-ingredient density table in g/ml.
// Loaded once, read-only after startup. Keys are normalized ingredient
// keys; lookups fall back to substring matching so "all-purpose flour"
// still hits "flour".
var commonDensities = map[string]float64{
	"water":              1.0,
	"milk":               1.03,
	"heavy cream":        0.99,
	"buttermilk":         1.03,
	"flour":              0.53,
	"all purpose flour":  0.53,
	"bread flour":        0.55,
	"whole wheat flour":  0.51,
	"sugar":              0.85,
	"granulated sugar":   0.85,
	"brown sugar":        0.81,
	"powdered sugar":     0.56,
	"butter":             0.91,
	"oil":                0.92,
	"olive oil":          0.92,
	"vegetable oil":      0.92,
	"honey":              1.42,
	"maple syrup":        1.37,
	"molasses":           1.4,
	"salt":               1.22,
	"kosher salt":        0.69,
	"baking soda":        0.96,
	"baking powder":      0.9,
	"cocoa powder":       0.52,
	"cornstarch":         0.54,
	"rice":               0.85,
	"oats":               0.41,
	"rolled oats":        0.41,
	"yogurt":             1.04,
	"sour cream":         0.97,
	"peanut butter":      1.09,
	"mayonnaise":         0.94,
	"ketchup":            1.14,
	"soy sauce":          1.2,
	"vinegar":            1.01,
	"wine":               0.99,
	"breadcrumbs":        0.42,
	"parmesan":           0.42,
	"shredded cheese":    0.47,
	"chocolate chips":    0.72,
	"raisins":            0.64,
	"ground coffee":      0.4,
	"cornmeal":           0.66,
	"semolina":           0.6,
	"lentils":            0.85,
	"quinoa":             0.73,
	"tomato paste":       1.1,
	"condensed milk":     1.29,
	"cream cheese":       1.01,
}

// lookupCommonDensity resolves a density from the curated table. Exact
// normalized match wins; otherwise the longest table key contained in
// the ingredient name is used ("sifted cake flour" -> "flour").
func lookupCommonDensity(ingredientKey string) (float64, bool) {
	if d, ok := commonDensities[ingredientKey]; ok {
		return d, true
	}
	var best string
	for key := range commonDensities {
		if len(key) > len(best) && containsWord(ingredientKey, key) {
			best = key
		}
	}
	if best == "" {
		return 0, false
	}
	return commonDensities[best], true
}

// containsWord reports whether name contains key as a whole-word
// substring on space boundaries.
func containsWord(name, key string) bool {
	if name == key {
		return true
	}
	n, k := " "+name+" ", " "+key+" "
	for i := 0; i+len(k) <= len(n); i++ {
		if n[i:i+len(k)] == k {
			return true
		}
	}
	return false
}

package units

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasteos.dev/common"
)

// memoryDensityStore is the package-local DensityStore fixture.
type memoryDensityStore struct {
	overrides map[string]DensityOverride
}

func newMemoryDensityStore() *memoryDensityStore {
	return &memoryDensityStore{overrides: map[string]DensityOverride{}}
}

func (m *memoryDensityStore) Upsert(ctx context.Context, override DensityOverride) (*DensityOverride, error) {
	now := time.Now().UTC()
	for id, existing := range m.overrides {
		if existing.WorkspaceID == override.WorkspaceID && existing.IngredientKey == override.IngredientKey {
			existing.DisplayName = override.DisplayName
			existing.DensityGPerML = override.DensityGPerML
			existing.UpdatedAt = now
			m.overrides[id] = existing
			return &existing, nil
		}
	}
	stored := override
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.overrides[stored.ID] = stored
	return &stored, nil
}

func (m *memoryDensityStore) Lookup(ctx context.Context, workspaceID, ingredientKey string) (*DensityOverride, error) {
	for _, existing := range m.overrides {
		if existing.WorkspaceID == workspaceID && existing.IngredientKey == ingredientKey {
			found := existing
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memoryDensityStore) List(ctx context.Context, workspaceID, query string) ([]DensityOverride, error) {
	query = strings.ToLower(query)
	var out []DensityOverride
	for _, existing := range m.overrides {
		if existing.WorkspaceID != workspaceID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(existing.DisplayName), query) &&
			!strings.Contains(existing.IngredientKey, query) {
			continue
		}
		out = append(out, existing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IngredientKey < out[j].IngredientKey })
	return out, nil
}

func (m *memoryDensityStore) Delete(ctx context.Context, workspaceID, id string) error {
	existing, ok := m.overrides[id]
	if !ok || existing.WorkspaceID != workspaceID {
		return common.NotFoundf("density override %s not found", id)
	}
	delete(m.overrides, id)
	return nil
}

func TestResolveDensityInputDirect(t *testing.T) {
	density := 0.7
	got, err := ResolveDensityInput(UpsertInput{IngredientName: "Rolled Oats", DensityGPerML: &density})
	require.NoError(t, err)
	assert.Equal(t, 0.7, got)
}

func TestResolveDensityInputMeasuredPair(t *testing.T) {
	got, err := ResolveDensityInput(UpsertInput{
		IngredientName: "Heavy Sand",
		Measured:       &MeasuredDensity{MassValue: 200, MassUnit: "g", VolValue: 100, VolUnit: "ml"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 1e-9)
}

func TestResolveDensityInputMeasuredPairWithUnits(t *testing.T) {
	// 1 lb per 1 cup = 453.592 / 236.588 g/ml.
	got, err := ResolveDensityInput(UpsertInput{
		IngredientName: "Packed Brown Sugar",
		Measured:       &MeasuredDensity{MassValue: 1, MassUnit: "lb", VolValue: 1, VolUnit: "cup"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 453.592/236.588, got, 1e-6)
}

func TestResolveDensityInputBounds(t *testing.T) {
	zero := 0.0
	_, err := ResolveDensityInput(UpsertInput{IngredientName: "Air", DensityGPerML: &zero})
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindValidation))

	tooDense := 7.5
	_, err = ResolveDensityInput(UpsertInput{IngredientName: "Lead Shot", DensityGPerML: &tooDense})
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindValidation))
}

func TestResolveDensityInputRejectsWrongDimensions(t *testing.T) {
	_, err := ResolveDensityInput(UpsertInput{
		IngredientName: "Broth",
		Measured:       &MeasuredDensity{MassValue: 1, MassUnit: "cup", VolValue: 1, VolUnit: "ml"},
	})
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindValidation))

	_, err = ResolveDensityInput(UpsertInput{
		IngredientName: "Broth",
		Measured:       &MeasuredDensity{MassValue: 1, MassUnit: "g", VolValue: 1, VolUnit: "oz"},
	})
	require.Error(t, err)
}

func TestResolveDensityInputMissing(t *testing.T) {
	_, err := ResolveDensityInput(UpsertInput{IngredientName: "Flour"})
	require.Error(t, err)

	density := 0.5
	_, err = ResolveDensityInput(UpsertInput{IngredientName: "   ", DensityGPerML: &density})
	require.Error(t, err)
}

func TestNormalizeUnit(t *testing.T) {
	tests := map[string]string{
		"Grams":       "g",
		"tablespoons": "tbsp",
		"Cups":        "cup",
		"fl oz":       "fl_oz",
		"lbs":         "lb",
		"pinches":     "pinch",
	}
	for input, want := range tests {
		got, ok := Normalize(input)
		require.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}

	_, ok := Normalize("parsec")
	assert.False(t, ok)
}

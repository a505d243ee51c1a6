package db

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tasteos.dev/common"
	"tasteos.dev/cook"
	"tasteos.dev/units"
)

// MemoryStores bundles in-memory implementations of every store
// interface. One instance shares a single lock so Mutate gets the same
// atomicity the database transaction provides.
type MemoryStores struct {
	mu       sync.Mutex
	sessions map[string]string // id -> session JSON
	events   map[string][]cook.Event
	recipes  map[string]*cook.Recipe
	density  map[string]units.DensityOverride // id -> override
}

// NewMemoryStores creates an empty bundle.
func NewMemoryStores() *MemoryStores {
	return &MemoryStores{
		sessions: map[string]string{},
		events:   map[string][]cook.Event{},
		recipes:  map[string]*cook.Recipe{},
		density:  map[string]units.DensityOverride{},
	}
}

// Sessions returns the cook.SessionStore view.
func (m *MemoryStores) Sessions() cook.SessionStore { return (*memorySessions)(m) }

// Events returns the cook.EventStore view.
func (m *MemoryStores) Events() cook.EventStore { return (*memoryEvents)(m) }

// Recipes returns the cook.RecipeStore view.
func (m *MemoryStores) Recipes() *MemoryRecipeStore { return (*MemoryRecipeStore)(m) }

// Densities returns the units.DensityStore view.
func (m *MemoryStores) Densities() units.DensityStore { return (*memoryDensities)(m) }

type memorySessions MemoryStores

func (m *memorySessions) key(workspaceID, sessionID string) string {
	return workspaceID + "/" + sessionID
}

func (m *memorySessions) Create(ctx context.Context, session *cook.Session, event cook.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.key(session.WorkspaceID, session.ID)
	if _, ok := m.sessions[key]; ok {
		return common.Conflictf("session %s already exists", session.ID)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return common.Wrap(common.KindFatal, err, "encode session")
	}
	m.sessions[key] = string(data)
	m.events[key] = append(m.events[key], event)
	return nil
}

func (m *memorySessions) Get(ctx context.Context, workspaceID, sessionID string) (*cook.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(workspaceID, sessionID)
}

func (m *memorySessions) get(workspaceID, sessionID string) (*cook.Session, error) {
	data, ok := m.sessions[m.key(workspaceID, sessionID)]
	if !ok {
		return nil, common.NotFoundf("session %s not found", sessionID)
	}
	var s cook.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, common.Wrap(common.KindFatal, err, "decode session %s", sessionID)
	}
	return &s, nil
}

func (m *memorySessions) ActiveByRecipe(ctx context.Context, workspaceID, recipeID string) (*cook.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, data := range m.sessions {
		if !strings.HasPrefix(key, workspaceID+"/") {
			continue
		}
		var s cook.Session
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return nil, common.Wrap(common.KindFatal, err, "decode session")
		}
		if s.RecipeID == recipeID && s.Status == cook.StatusActive {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memorySessions) Mutate(ctx context.Context, workspaceID, sessionID string, fn func(*cook.Session) ([]cook.Event, error)) (*cook.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.get(workspaceID, sessionID)
	if err != nil {
		return nil, err
	}

	events, err := fn(session)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return session, nil
	}

	session.StateVersion++
	data, err := json.Marshal(session)
	if err != nil {
		return nil, common.Wrap(common.KindFatal, err, "encode session")
	}
	key := m.key(workspaceID, sessionID)
	m.sessions[key] = string(data)
	m.events[key] = append(m.events[key], events...)
	return session, nil
}

type memoryEvents MemoryStores

func (m *memoryEvents) Recent(ctx context.Context, workspaceID, sessionID string, limit int) ([]cook.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.events[workspaceID+"/"+sessionID]
	if limit <= 0 {
		limit = 50
	}
	out := make([]cook.Event, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// MemoryRecipeStore is the in-memory cook.RecipeStore, with Put for
// seeding.
type MemoryRecipeStore MemoryStores

func (m *MemoryRecipeStore) Get(ctx context.Context, workspaceID, recipeID string) (*cook.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recipe, ok := m.recipes[workspaceID+"/"+recipeID]
	if !ok {
		return nil, common.NotFoundf("recipe %s not found", recipeID)
	}
	return recipe, nil
}

func (m *MemoryRecipeStore) Put(ctx context.Context, recipe *cook.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipes[recipe.WorkspaceID+"/"+recipe.ID] = recipe
	return nil
}

type memoryDensities MemoryStores

func (m *memoryDensities) Upsert(ctx context.Context, override units.DensityOverride) (*units.DensityOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for id, existing := range m.density {
		if existing.WorkspaceID == override.WorkspaceID && existing.IngredientKey == override.IngredientKey {
			existing.DisplayName = override.DisplayName
			existing.DensityGPerML = override.DensityGPerML
			existing.UpdatedAt = now
			m.density[id] = existing
			return &existing, nil
		}
	}
	stored := override
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.density[stored.ID] = stored
	return &stored, nil
}

func (m *memoryDensities) Lookup(ctx context.Context, workspaceID, ingredientKey string) (*units.DensityOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.density {
		if existing.WorkspaceID == workspaceID && existing.IngredientKey == ingredientKey {
			found := existing
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memoryDensities) List(ctx context.Context, workspaceID, query string) ([]units.DensityOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	query = strings.ToLower(query)
	var out []units.DensityOverride
	for _, existing := range m.density {
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

func (m *memoryDensities) Delete(ctx context.Context, workspaceID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.density[id]
	if !ok || existing.WorkspaceID != workspaceID {
		return common.NotFoundf("density override %s not found", id)
	}
	delete(m.density, id)
	return nil
}

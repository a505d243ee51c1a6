package db

import (
	"encoding/json"
	"time"

	"tasteos.dev/common"
	"tasteos.dev/cook"
	"tasteos.dev/units"
)

// SessionRow stores a session aggregate. The aggregate itself lives as
// a JSON blob; the indexed columns exist for lookups and the active-
// session uniqueness check.
type SessionRow struct {
	ID           string `gorm:"primaryKey"`
	WorkspaceID  string `gorm:"index:idx_sessions_ws_recipe"`
	RecipeID     string `gorm:"index:idx_sessions_ws_recipe"`
	Status       string `gorm:"index"`
	StateVersion int64
	UpdatedAt    time.Time
	Data         string `gorm:"type:text"`
}

// TableName keeps the table name stable across gorm versions.
func (SessionRow) TableName() string { return "cook_sessions" }

func newSessionRow(s *cook.Session) (*SessionRow, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, common.Wrap(common.KindFatal, err, "encode session")
	}
	return &SessionRow{
		ID:           s.ID,
		WorkspaceID:  s.WorkspaceID,
		RecipeID:     s.RecipeID,
		Status:       string(s.Status),
		StateVersion: s.StateVersion,
		UpdatedAt:    s.UpdatedAt,
		Data:         string(data),
	}, nil
}

func (r *SessionRow) session() (*cook.Session, error) {
	var s cook.Session
	if err := json.Unmarshal([]byte(r.Data), &s); err != nil {
		return nil, common.Wrap(common.KindFatal, err, "decode session %s", r.ID)
	}
	return &s, nil
}

// EventRow stores one event log entry.
type EventRow struct {
	ID          string `gorm:"primaryKey"`
	WorkspaceID string `gorm:"index:idx_events_ws_session"`
	SessionID   string `gorm:"index:idx_events_ws_session"`
	Type        string
	CreatedAt   time.Time `gorm:"index"`
	Data        string    `gorm:"type:text"`
}

func (EventRow) TableName() string { return "cook_events" }

func newEventRow(ev cook.Event) (*EventRow, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, common.Wrap(common.KindFatal, err, "encode event")
	}
	return &EventRow{
		ID:          ev.ID,
		WorkspaceID: ev.WorkspaceID,
		SessionID:   ev.SessionID,
		Type:        string(ev.Type),
		CreatedAt:   ev.CreatedAt,
		Data:        string(data),
	}, nil
}

func (r *EventRow) event() (cook.Event, error) {
	var ev cook.Event
	if err := json.Unmarshal([]byte(r.Data), &ev); err != nil {
		return cook.Event{}, common.Wrap(common.KindFatal, err, "decode event %s", r.ID)
	}
	return ev, nil
}

// RecipeRow stores a recipe as a JSON blob. Recipes are written by the
// upstream CRUD surface; the engine reads them here.
type RecipeRow struct {
	ID          string `gorm:"primaryKey"`
	WorkspaceID string `gorm:"index"`
	Title       string
	UpdatedAt   time.Time
	Data        string `gorm:"type:text"`
}

func (RecipeRow) TableName() string { return "recipes" }

func (r *RecipeRow) recipe() (*cook.Recipe, error) {
	var rec cook.Recipe
	if err := json.Unmarshal([]byte(r.Data), &rec); err != nil {
		return nil, common.Wrap(common.KindFatal, err, "decode recipe %s", r.ID)
	}
	return &rec, nil
}

// DensityRow stores a workspace density override in plain columns.
type DensityRow struct {
	ID            string `gorm:"primaryKey"`
	WorkspaceID   string `gorm:"uniqueIndex:idx_density_ws_key"`
	IngredientKey string `gorm:"uniqueIndex:idx_density_ws_key"`
	DisplayName   string
	DensityGPerML float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (DensityRow) TableName() string { return "density_overrides" }

func (r *DensityRow) override() units.DensityOverride {
	return units.DensityOverride{
		ID:            r.ID,
		WorkspaceID:   r.WorkspaceID,
		IngredientKey: r.IngredientKey,
		DisplayName:   r.DisplayName,
		DensityGPerML: r.DensityGPerML,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

package db

import (
	"context"

	"gorm.io/gorm"

	"tasteos.dev/common"
	"tasteos.dev/cook"
)

// GormEventStore implements cook.EventStore on Postgres. Appends go
// through GormSessionStore.Mutate; this store only reads.
type GormEventStore struct {
	db *gorm.DB
}

// NewEventStore creates the store.
func NewEventStore(gdb *gorm.DB) *GormEventStore {
	return &GormEventStore{db: gdb}
}

func (s *GormEventStore) Recent(ctx context.Context, workspaceID, sessionID string, limit int) ([]cook.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []EventRow
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND session_id = ?", workspaceID, sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, common.Wrap(common.KindTransient, err, "load events")
	}
	events := make([]cook.Event, 0, len(rows))
	for i := range rows {
		ev, err := rows[i].event()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tasteos.dev/common"
	"tasteos.dev/cook"
)

// GormSessionStore implements cook.SessionStore on Postgres.
type GormSessionStore struct {
	db      *gorm.DB
	retries int
}

// NewSessionStore creates the store. retries bounds how often Mutate
// re-runs after a serialization failure.
func NewSessionStore(gdb *gorm.DB, retries int) *GormSessionStore {
	if retries <= 0 {
		retries = 3
	}
	return &GormSessionStore{db: gdb, retries: retries}
}

func (s *GormSessionStore) Create(ctx context.Context, session *cook.Session, event cook.Event) error {
	row, err := newSessionRow(session)
	if err != nil {
		return err
	}
	evRow, err := newEventRow(event)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return tx.Create(evRow).Error
	})
	if err != nil {
		return common.Wrap(common.KindTransient, err, "create session")
	}
	return nil
}

func (s *GormSessionStore) Get(ctx context.Context, workspaceID, sessionID string) (*cook.Session, error) {
	var row SessionRow
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, sessionID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("session %s not found", sessionID)
	}
	if err != nil {
		return nil, common.Wrap(common.KindTransient, err, "load session")
	}
	return row.session()
}

func (s *GormSessionStore) ActiveByRecipe(ctx context.Context, workspaceID, recipeID string) (*cook.Session, error) {
	var row SessionRow
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND recipe_id = ? AND status = ?", workspaceID, recipeID, string(cook.StatusActive)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, common.Wrap(common.KindTransient, err, "load active session")
	}
	return row.session()
}

// Mutate locks the session row, applies fn and writes state plus events
// atomically. Serialization failures are retried with backoff. A fn
// returning no events leaves the row untouched.
func (s *GormSessionStore) Mutate(ctx context.Context, workspaceID, sessionID string, fn func(*cook.Session) ([]cook.Event, error)) (*cook.Session, error) {
	var result *cook.Session

	for attempt := 0; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var row SessionRow
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("workspace_id = ? AND id = ?", workspaceID, sessionID).
				First(&row).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.NotFoundf("session %s not found", sessionID)
			}
			if err != nil {
				return err
			}

			session, err := row.session()
			if err != nil {
				return err
			}

			events, err := fn(session)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				result = session
				return nil
			}

			session.StateVersion++
			updated, err := newSessionRow(session)
			if err != nil {
				return err
			}
			if err := tx.Model(&SessionRow{}).Where("id = ?", session.ID).Updates(map[string]interface{}{
				"status":        updated.Status,
				"state_version": updated.StateVersion,
				"updated_at":    updated.UpdatedAt,
				"data":          updated.Data,
			}).Error; err != nil {
				return err
			}

			for _, ev := range events {
				evRow, err := newEventRow(ev)
				if err != nil {
					return err
				}
				if err := tx.Create(evRow).Error; err != nil {
					return err
				}
			}

			result = session
			return nil
		})
		if err == nil {
			return result, nil
		}
		if !retryableTxError(err) || attempt+1 >= s.retries {
			var kinded *common.Error
			if errors.As(err, &kinded) {
				return nil, err
			}
			return nil, common.Wrap(common.KindTransient, err, "session mutation failed")
		}
		select {
		case <-ctx.Done():
			return nil, common.Wrap(common.KindTransient, ctx.Err(), "session mutation cancelled")
		case <-time.After(time.Duration(50*(1<<attempt)) * time.Millisecond):
		}
	}
}

// retryableTxError matches Postgres serialization and deadlock
// failures (SQLSTATE 40001, 40P01).
func retryableTxError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "40001") || strings.Contains(msg, "40P01") ||
		strings.Contains(msg, "deadlock detected")
}

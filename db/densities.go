package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tasteos.dev/common"
	"tasteos.dev/units"
)

// GormDensityStore implements units.DensityStore on Postgres.
type GormDensityStore struct {
	db *gorm.DB
}

// NewDensityStore creates the store.
func NewDensityStore(gdb *gorm.DB) *GormDensityStore {
	return &GormDensityStore{db: gdb}
}

func (s *GormDensityStore) Upsert(ctx context.Context, override units.DensityOverride) (*units.DensityOverride, error) {
	now := time.Now().UTC()
	row := DensityRow{
		ID:            override.ID,
		WorkspaceID:   override.WorkspaceID,
		IngredientKey: override.IngredientKey,
		DisplayName:   override.DisplayName,
		DensityGPerML: override.DensityGPerML,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "ingredient_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "density_g_per_ml", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, common.Wrap(common.KindTransient, err, "upsert density override")
	}

	// Re-read so the caller sees the surviving row id and created_at.
	stored, err := s.Lookup(ctx, override.WorkspaceID, override.IngredientKey)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, common.Fatalf("density override vanished after upsert")
	}
	return stored, nil
}

func (s *GormDensityStore) Lookup(ctx context.Context, workspaceID, ingredientKey string) (*units.DensityOverride, error) {
	var row DensityRow
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND ingredient_key = ?", workspaceID, ingredientKey).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, common.Wrap(common.KindTransient, err, "lookup density override")
	}
	override := row.override()
	return &override, nil
}

func (s *GormDensityStore) List(ctx context.Context, workspaceID, query string) ([]units.DensityOverride, error) {
	q := s.db.WithContext(ctx).Where("workspace_id = ?", workspaceID)
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(display_name) LIKE ? OR ingredient_key LIKE ?", like, like)
	}
	var rows []DensityRow
	if err := q.Order("ingredient_key ASC").Find(&rows).Error; err != nil {
		return nil, common.Wrap(common.KindTransient, err, "list density overrides")
	}
	out := make([]units.DensityOverride, len(rows))
	for i := range rows {
		out[i] = rows[i].override()
	}
	return out, nil
}

func (s *GormDensityStore) Delete(ctx context.Context, workspaceID, id string) error {
	res := s.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Delete(&DensityRow{})
	if res.Error != nil {
		return common.Wrap(common.KindTransient, res.Error, "delete density override")
	}
	if res.RowsAffected == 0 {
		return common.NotFoundf("density override %s not found", id)
	}
	return nil
}

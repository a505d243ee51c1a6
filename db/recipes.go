package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"tasteos.dev/common"
	"tasteos.dev/cook"
)

// GormRecipeStore implements cook.RecipeStore on Postgres.
type GormRecipeStore struct {
	db *gorm.DB
}

// NewRecipeStore creates the store.
func NewRecipeStore(gdb *gorm.DB) *GormRecipeStore {
	return &GormRecipeStore{db: gdb}
}

func (s *GormRecipeStore) Get(ctx context.Context, workspaceID, recipeID string) (*cook.Recipe, error) {
	var row RecipeRow
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, recipeID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundf("recipe %s not found", recipeID)
	}
	if err != nil {
		return nil, common.Wrap(common.KindTransient, err, "load recipe")
	}
	return row.recipe()
}

// Put inserts or replaces a recipe. The CRUD surface upstream owns
// recipes; this exists for seeding and tests.
func (s *GormRecipeStore) Put(ctx context.Context, recipe *cook.Recipe) error {
	data, err := json.Marshal(recipe)
	if err != nil {
		return common.Wrap(common.KindFatal, err, "encode recipe")
	}
	row := RecipeRow{
		ID:          recipe.ID,
		WorkspaceID: recipe.WorkspaceID,
		Title:       recipe.Title,
		UpdatedAt:   time.Now().UTC(),
		Data:        string(data),
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return common.Wrap(common.KindTransient, err, "save recipe")
	}
	return nil
}

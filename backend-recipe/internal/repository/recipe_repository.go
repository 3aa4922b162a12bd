package repository

import (
	"context"

	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/domain"
)

// RecipeRepository defines the interface for recipe data access
type RecipeRepository interface {
	// GetByID retrieves a recipe, returning nil when it does not exist
	GetByID(ctx context.Context, id int64) (*domain.Recipe, error)
	// GetByIDs returns recipes in the order of ids, skipping missing ones
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.Recipe, error)
	// CreateBatch stores recipes in one transaction and fills in their ids.
	// stale lists previously stored recipes whose view changed because a
	// shared ingredient gained allergens.
	CreateBatch(ctx context.Context, recipes []*domain.Recipe) (stale []int64, err error)
	// Search matches query case-insensitively against the chosen field
	Search(ctx context.Context, query string, field domain.SearchField) ([]*domain.Recipe, error)
	// Delete removes a recipe, reporting whether it existed
	Delete(ctx context.Context, id int64) (bool, error)
}

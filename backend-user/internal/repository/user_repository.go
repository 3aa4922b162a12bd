package repository

import (
	"context"

	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/domain"
)

// UserRepository is the credential store. Lookups return (nil, nil) when the
// user does not exist.
type UserRepository interface {
	// Create inserts user and sets its ID. Returns domain.ErrDuplicateEmail
	// when the email is already taken.
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	// AddSavedRecipe is a no-op when the recipe is already saved
	AddSavedRecipe(ctx context.Context, userID, recipeID int64) error
	// RemoveSavedRecipe is a no-op when the recipe is not saved
	RemoveSavedRecipe(ctx context.Context, userID, recipeID int64) error
	// RemoveRecipeFromAll drops recipeID from every saved list
	RemoveRecipeFromAll(ctx context.Context, recipeID int64) (int64, error)
	// SetAdmin returns false when no user has the email
	SetAdmin(ctx context.Context, email string, admin bool) (bool, error)
}

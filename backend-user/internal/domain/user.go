package domain

import (
	"time"

	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
)

// User is a registered identity
type User struct {
	ID             int64
	Email          string
	PasswordHash   string
	Admin          bool
	SavedRecipeIDs []int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ToPublic returns the redacted view exposed over the API
func (u *User) ToPublic() *dto.PublicUser {
	saved := u.SavedRecipeIDs
	if saved == nil {
		saved = []int64{}
	}
	return &dto.PublicUser{
		ID:             u.ID,
		Email:          u.Email,
		Admin:          u.Admin,
		SavedRecipeIDs: saved,
	}
}

// HasSavedRecipe reports whether recipeID is in the saved list
func (u *User) HasSavedRecipe(recipeID int64) bool {
	for _, id := range u.SavedRecipeIDs {
		if id == recipeID {
			return true
		}
	}
	return false
}

package dto

import (
	"strings"
	"time"
)

// Search types accepted by the recipe search endpoint
const (
	SearchTypeRecipe     = "recipe"
	SearchTypeIngredient = "ingredient"
	SearchTypeAllergen   = "allergen"
)

// IngredientRequest describes one ingredient of a new recipe
type IngredientRequest struct {
	Name      string   `json:"name" binding:"required"`
	Allergens []string `json:"allergens"`
}

// RecipeRequest describes a recipe to be created
type RecipeRequest struct {
	Name        string              `json:"name" binding:"required"`
	Image       string              `json:"image"`
	Description string              `json:"description"`
	Ingredients []IngredientRequest `json:"ingredients"`
	Steps       []string            `json:"steps"`
	Tags        []string            `json:"tags"`
}

// Validate validates a recipe request
func (r *RecipeRequest) Validate() (bool, string) {
	if strings.TrimSpace(r.Name) == "" {
		return false, "Recipe name is required"
	}
	for _, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return false, "Ingredient name is required"
		}
		for _, a := range ing.Allergens {
			if strings.TrimSpace(a) == "" {
				return false, "Allergen name must not be empty"
			}
		}
	}
	for _, t := range r.Tags {
		if strings.TrimSpace(t) == "" {
			return false, "Tag name must not be empty"
		}
	}
	return true, ""
}

// Recipe is the public view of a recipe. Allergens is the de-duplicated
// union of every ingredient's allergens.
type Recipe struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Image       string   `json:"image"`
	Ingredients []string `json:"ingredients"`
	Allergens   []string `json:"allergens"`
	Steps       []string `json:"steps"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// RecipeEventType names a recipe lifecycle event
type RecipeEventType string

const (
	RecipeEventDeleted RecipeEventType = "recipe.deleted"
)

// RecipeEvent is published on the recipe events topic
type RecipeEvent struct {
	EventType  RecipeEventType `json:"event_type"`
	RecipeID   int64           `json:"recipe_id"`
	OccurredAt time.Time       `json:"occurred_at"`
}

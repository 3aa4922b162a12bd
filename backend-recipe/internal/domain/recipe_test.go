package domain

import (
	"testing"

	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
	"github.com/stretchr/testify/assert"
)

func TestParseSearchField(t *testing.T) {
	tests := []struct {
		in   string
		want SearchField
	}{
		{"recipe", SearchByRecipe},
		{"", SearchByRecipe},
		{"INGREDIENT", SearchByIngredient},
		{" allergen ", SearchByAllergen},
		{"chef", SearchByRecipe},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSearchField(tt.in), tt.in)
	}
}

func TestNewRecipeFromRequest_MergesDuplicates(t *testing.T) {
	req := &dto.RecipeRequest{
		Name:  " Gazpacho ",
		Steps: []string{"Blend", "Chill"},
		Tags:  []string{"cold", "vegan", "cold", ""},
		Ingredients: []dto.IngredientRequest{
			{Name: "Tomato"},
			{Name: "Bread", Allergens: []string{"Gluten"}},
			{Name: "Bread", Allergens: []string{"Gluten", "Sesame"}},
		},
	}

	r := NewRecipeFromRequest(req)

	assert.Equal(t, "Gazpacho", r.Name)
	assert.Equal(t, []string{"cold", "vegan"}, r.Tags)
	assert.Equal(t, []Ingredient{
		{Name: "Tomato", Allergens: []string{}},
		{Name: "Bread", Allergens: []string{"Gluten", "Sesame"}},
	}, r.Ingredients)
}

func TestRecipe_ToDTO(t *testing.T) {
	r := &Recipe{
		ID:   3,
		Name: "Salmorejo",
		Ingredients: []Ingredient{
			{Name: "Bread", Allergens: []string{"Gluten"}},
			{Name: "Egg", Allergens: []string{"Egg"}},
			{Name: "Crouton", Allergens: []string{"Gluten"}},
		},
	}

	got := r.ToDTO()

	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, []string{"Bread", "Egg", "Crouton"}, got.Ingredients)
	assert.Equal(t, []string{"Gluten", "Egg"}, got.Allergens)
	assert.NotNil(t, got.Steps)
	assert.NotNil(t, got.Tags)
}

package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecipeFromModel(t *testing.T) {
	m := &RecipeModel{
		ID:          4,
		Name:        "Ajoblanco",
		Description: "Cold almond soup",
		Steps: []RecipeStepModel{
			{Position: 1, Step: "Blend"},
			{Position: 0, Step: "Soak almonds"},
		},
		Ingredients: []IngredientModel{
			{Name: "Almond", Allergens: []AllergenModel{{Name: "Tree nuts"}}},
			{Name: "Garlic"},
		},
		Tags: []TagModel{{Name: "vegan"}},
	}

	r := recipeFromModel(m)

	assert.Equal(t, int64(4), r.ID)
	assert.Equal(t, []string{"Soak almonds", "Blend"}, r.Steps)
	assert.Equal(t, "Almond", r.Ingredients[0].Name)
	assert.Equal(t, []string{"Tree nuts"}, r.Ingredients[0].Allergens)
	assert.Empty(t, r.Ingredients[1].Allergens)
	assert.Equal(t, []string{"vegan"}, r.Tags)
}

func TestLikeEscaper(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, likeEscaper.Replace(`50% off_now\`))
}

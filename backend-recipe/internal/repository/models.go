package repository

import (
	"cmp"
	"slices"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/domain"
)

// RecipeModel maps the recipes table
type RecipeModel struct {
	ID          int64             `gorm:"primaryKey"`
	Name        string            `gorm:"not null"`
	Image       string            `gorm:"not null;default:''"`
	Description string            `gorm:"not null;default:''"`
	Steps       []RecipeStepModel `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	Ingredients []IngredientModel `gorm:"many2many:recipe_ingredients;joinForeignKey:RecipeID;joinReferences:IngredientID"`
	Tags        []TagModel        `gorm:"many2many:recipe_tags;joinForeignKey:RecipeID;joinReferences:TagID"`
	CreatedAt   time.Time
}

func (RecipeModel) TableName() string { return "recipes" }

// RecipeStepModel maps one ordered step of a recipe
type RecipeStepModel struct {
	ID       int64  `gorm:"primaryKey"`
	RecipeID int64  `gorm:"not null;index"`
	Position int    `gorm:"not null"`
	Step     string `gorm:"not null"`
}

func (RecipeStepModel) TableName() string { return "recipe_steps" }

// IngredientModel maps the ingredients table
type IngredientModel struct {
	ID        int64           `gorm:"primaryKey"`
	Name      string          `gorm:"uniqueIndex;not null"`
	Allergens []AllergenModel `gorm:"many2many:ingredient_allergens;joinForeignKey:IngredientID;joinReferences:AllergenID"`
}

func (IngredientModel) TableName() string { return "ingredients" }

// AllergenModel maps the allergens table
type AllergenModel struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (AllergenModel) TableName() string { return "allergens" }

// TagModel maps the tags table
type TagModel struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (TagModel) TableName() string { return "tags" }

func recipeFromModel(m *RecipeModel) *domain.Recipe {
	r := &domain.Recipe{
		ID:          m.ID,
		Name:        m.Name,
		Image:       m.Image,
		Description: m.Description,
		Steps:       make([]string, 0, len(m.Steps)),
		Ingredients: make([]domain.Ingredient, 0, len(m.Ingredients)),
		Tags:        make([]string, 0, len(m.Tags)),
	}
	steps := slices.Clone(m.Steps)
	slices.SortStableFunc(steps, func(a, b RecipeStepModel) int { return cmp.Compare(a.Position, b.Position) })
	for _, s := range steps {
		r.Steps = append(r.Steps, s.Step)
	}
	for _, in := range m.Ingredients {
		allergens := make([]string, 0, len(in.Allergens))
		for _, a := range in.Allergens {
			allergens = append(allergens, a.Name)
		}
		r.Ingredients = append(r.Ingredients, domain.Ingredient{Name: in.Name, Allergens: allergens})
	}
	for _, t := range m.Tags {
		r.Tags = append(r.Tags, t.Name)
	}
	return r
}

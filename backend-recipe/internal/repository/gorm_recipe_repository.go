package repository

import (
	"context"
	"strings"

	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GormRecipeRepository implements RecipeRepository on gorm
type GormRecipeRepository struct {
	db *gorm.DB
}

// NewGormRecipeRepository creates a new GormRecipeRepository
func NewGormRecipeRepository(db *gorm.DB) *GormRecipeRepository {
	return &GormRecipeRepository{db: db}
}

// withAssociations preloads everything a recipe view needs
func (r *GormRecipeRepository) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_steps.position") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("ingredients.id") }).
		Preload("Ingredients.Allergens", func(db *gorm.DB) *gorm.DB { return db.Order("allergens.id") }).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") })
}

// GetByID retrieves a recipe by ID
func (r *GormRecipeRepository) GetByID(ctx context.Context, id int64) (*domain.Recipe, error) {
	var models []RecipeModel
	if err := r.withAssociations(ctx).Where("recipes.id = ?", id).Limit(1).Find(&models).Error; err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	return recipeFromModel(&models[0]), nil
}

// GetByIDs retrieves recipes in request order. Duplicated ids repeat the recipe.
func (r *GormRecipeRepository) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Recipe, error) {
	if len(ids) == 0 {
		return []*domain.Recipe{}, nil
	}

	var models []RecipeModel
	if err := r.withAssociations(ctx).Where("recipes.id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.Recipe, len(models))
	for i := range models {
		byID[models[i].ID] = recipeFromModel(&models[i])
	}

	out := make([]*domain.Recipe, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// CreateBatch stores all recipes or none. Allergens, ingredients and tags are
// looked up by name and created when missing. Allergens listed for an
// existing ingredient are added to it.
func (r *GormRecipeRepository) CreateBatch(ctx context.Context, recipes []*domain.Recipe) ([]int64, error) {
	var stale []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		relinked := make(map[int64]struct{})
		for _, rec := range recipes {
			if err := createRecipe(tx, rec, relinked); err != nil {
				return err
			}
		}
		if len(relinked) == 0 {
			return nil
		}

		ingredientIDs := make([]int64, 0, len(relinked))
		for id := range relinked {
			ingredientIDs = append(ingredientIDs, id)
		}
		newIDs := make([]int64, 0, len(recipes))
		for _, rec := range recipes {
			newIDs = append(newIDs, rec.ID)
		}
		return tx.Table("recipe_ingredients").
			Distinct("recipe_id").
			Where("ingredient_id IN ? AND recipe_id NOT IN ?", ingredientIDs, newIDs).
			Order("recipe_id").
			Pluck("recipe_id", &stale).Error
	})
	if err != nil {
		return nil, err
	}
	return stale, nil
}

// createRecipe inserts rec and its links. Ingredients that gain an allergen
// link are added to relinked.
func createRecipe(tx *gorm.DB, rec *domain.Recipe, relinked map[int64]struct{}) error {
	model := RecipeModel{
		Name:        rec.Name,
		Image:       rec.Image,
		Description: rec.Description,
	}
	for i, step := range rec.Steps {
		model.Steps = append(model.Steps, RecipeStepModel{Position: i, Step: step})
	}
	if err := tx.Omit("Ingredients", "Tags").Create(&model).Error; err != nil {
		return err
	}
	rec.ID = model.ID

	for _, in := range rec.Ingredients {
		ingredientID, err := findOrCreateByName(tx, "ingredients", in.Name)
		if err != nil {
			return err
		}
		for _, allergen := range in.Allergens {
			allergenID, err := findOrCreateByName(tx, "allergens", allergen)
			if err != nil {
				return err
			}
			added, err := link(tx, "ingredient_allergens", map[string]interface{}{
				"ingredient_id": ingredientID,
				"allergen_id":   allergenID,
			})
			if err != nil {
				return err
			}
			if added {
				relinked[ingredientID] = struct{}{}
			}
		}
		if _, err := link(tx, "recipe_ingredients", map[string]interface{}{
			"recipe_id":     model.ID,
			"ingredient_id": ingredientID,
		}); err != nil {
			return err
		}
	}

	for _, tag := range rec.Tags {
		tagID, err := findOrCreateByName(tx, "tags", tag)
		if err != nil {
			return err
		}
		if _, err := link(tx, "recipe_tags", map[string]interface{}{
			"recipe_id": model.ID,
			"tag_id":    tagID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// findOrCreateByName returns the id of the row named name in table, inserting
// it first when absent. Concurrent inserts of the same name are absorbed by
// the unique constraint.
func findOrCreateByName(tx *gorm.DB, table, name string) (int64, error) {
	err := tx.Table(table).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(map[string]interface{}{"name": name}).Error
	if err != nil {
		return 0, err
	}

	var ids []int64
	if err := tx.Table(table).Where("name = ?", name).Limit(1).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return ids[0], nil
}

// link inserts a join row and reports whether it was new
func link(tx *gorm.DB, table string, row map[string]interface{}) (bool, error) {
	res := tx.Table(table).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	return res.RowsAffected > 0, res.Error
}

// Search finds recipes whose recipe, ingredient or allergen name contains query
func (r *GormRecipeRepository) Search(ctx context.Context, query string, field domain.SearchField) ([]*domain.Recipe, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"

	q := r.withAssociations(ctx)
	switch field {
	case domain.SearchByIngredient:
		sub := r.db.Table("recipe_ingredients AS ri").
			Select("ri.recipe_id").
			Joins("JOIN ingredients i ON i.id = ri.ingredient_id").
			Where("i.name ILIKE ?", pattern)
		q = q.Where("recipes.id IN (?)", sub)
	case domain.SearchByAllergen:
		sub := r.db.Table("recipe_ingredients AS ri").
			Select("ri.recipe_id").
			Joins("JOIN ingredient_allergens ia ON ia.ingredient_id = ri.ingredient_id").
			Joins("JOIN allergens a ON a.id = ia.allergen_id").
			Where("a.name ILIKE ?", pattern)
		q = q.Where("recipes.id IN (?)", sub)
	default:
		q = q.Where("recipes.name ILIKE ?", pattern)
	}

	var models []RecipeModel
	if err := q.Order("recipes.id").Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*domain.Recipe, 0, len(models))
	for i := range models {
		out = append(out, recipeFromModel(&models[i]))
	}
	return out, nil
}

// Delete removes a recipe. Steps and join rows go with it through ON DELETE CASCADE.
func (r *GormRecipeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&RecipeModel{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

package domain

import (
	"strings"

	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
)

// SearchField selects which name a recipe search matches against
type SearchField string

const (
	SearchByRecipe     SearchField = dto.SearchTypeRecipe
	SearchByIngredient SearchField = dto.SearchTypeIngredient
	SearchByAllergen   SearchField = dto.SearchTypeAllergen
)

// ParseSearchField maps a query parameter to a SearchField. Unknown values
// fall back to a recipe name search.
func ParseSearchField(s string) SearchField {
	switch SearchField(strings.ToLower(strings.TrimSpace(s))) {
	case SearchByIngredient:
		return SearchByIngredient
	case SearchByAllergen:
		return SearchByAllergen
	default:
		return SearchByRecipe
	}
}

// Ingredient is an ingredient together with the allergens it carries
type Ingredient struct {
	Name      string   `json:"name"`
	Allergens []string `json:"allergens"`
}

// Recipe represents a recipe in the catalog
type Recipe struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Image       string       `json:"image"`
	Description string       `json:"description"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []string     `json:"steps"`
	Tags        []string     `json:"tags"`
}

// NewRecipeFromRequest builds an unsaved recipe from a request
func NewRecipeFromRequest(req *dto.RecipeRequest) *Recipe {
	r := &Recipe{
		Name:        strings.TrimSpace(req.Name),
		Image:       req.Image,
		Description: req.Description,
		Steps:       append([]string{}, req.Steps...),
		Tags:        uniqueNames(req.Tags),
	}

	seen := make(map[string]int)
	for _, in := range req.Ingredients {
		name := strings.TrimSpace(in.Name)
		if i, ok := seen[name]; ok {
			r.Ingredients[i].Allergens = uniqueNames(append(r.Ingredients[i].Allergens, in.Allergens...))
			continue
		}
		seen[name] = len(r.Ingredients)
		r.Ingredients = append(r.Ingredients, Ingredient{Name: name, Allergens: uniqueNames(in.Allergens)})
	}
	return r
}

// AllergenNames returns the de-duplicated union of every ingredient's
// allergens, in first-seen order
func (r *Recipe) AllergenNames() []string {
	var all []string
	for _, in := range r.Ingredients {
		all = append(all, in.Allergens...)
	}
	return uniqueNames(all)
}

// ToDTO converts the recipe to its public view
func (r *Recipe) ToDTO() *dto.Recipe {
	ingredients := make([]string, 0, len(r.Ingredients))
	for _, in := range r.Ingredients {
		ingredients = append(ingredients, in.Name)
	}
	steps := r.Steps
	if steps == nil {
		steps = []string{}
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}

	return &dto.Recipe{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		Ingredients: ingredients,
		Allergens:   r.AllergenNames(),
		Steps:       steps,
		Description: r.Description,
		Tags:        tags,
	}
}

// ToDTOs converts a list of recipes
func ToDTOs(recipes []*Recipe) []*dto.Recipe {
	out := make([]*dto.Recipe, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, r.ToDTO())
	}
	return out
}

func uniqueNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

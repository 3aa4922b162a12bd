package service

import (
	"context"
	"fmt"

	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/domain"
	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/repository"
	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
	"github.com/D-Tasker207/gazpacho-backend/pkg/logger"
	"github.com/D-Tasker207/gazpacho-backend/pkg/telemetry"
	"github.com/D-Tasker207/gazpacho-backend/pkg/token"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RecipeServiceConfig holds configuration for RecipeService
type RecipeServiceConfig struct {
	MaxBatchSize int
}

// BearerResolver validates an Authorization header locally
type BearerResolver interface {
	ResolveBearer(header string) (*token.Principal, bool)
}

// UserDirectory looks up the identity behind an Authorization header
type UserDirectory interface {
	CurrentUser(ctx context.Context, authorization string) (*dto.PublicUser, error)
}

// RecipeService defines the interface for recipe business logic
type RecipeService interface {
	// View returns one recipe
	View(ctx context.Context, id int64) (*dto.Recipe, error)
	// GetBatch returns the recipes that exist among ids, in request order
	GetBatch(ctx context.Context, ids []int64) ([]*dto.Recipe, error)
	// AddBatch creates recipes, reusing allergens, ingredients and tags by name
	AddBatch(ctx context.Context, reqs []dto.RecipeRequest) ([]*dto.Recipe, error)
	// Search matches query against recipe, ingredient or allergen names
	Search(ctx context.Context, query, searchType string) ([]*dto.Recipe, error)
	// Delete removes a recipe on behalf of an admin
	Delete(ctx context.Context, authorization string, id int64) error
}

type recipeService struct {
	repo      repository.RecipeRepository
	tokens    BearerResolver
	users     UserDirectory
	publisher EventPublisher
	config    *RecipeServiceConfig
}

// NewRecipeService creates a new RecipeService
func NewRecipeService(
	repo repository.RecipeRepository,
	tokens BearerResolver,
	users UserDirectory,
	publisher EventPublisher,
	config *RecipeServiceConfig,
) RecipeService {
	if config == nil {
		config = &RecipeServiceConfig{}
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 100
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &recipeService{
		repo:      repo,
		tokens:    tokens,
		users:     users,
		publisher: publisher,
		config:    config,
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// View returns the recipe with id
func (s *recipeService) View(ctx context.Context, id int64) (*dto.Recipe, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.recipe.view")
	defer span.End()
	span.SetAttributes(attribute.Int64("recipe_id", id))

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	if rec == nil {
		return nil, domain.ErrRecipeNotFound
	}
	return rec.ToDTO(), nil
}

// GetBatch returns existing recipes among ids
func (s *recipeService) GetBatch(ctx context.Context, ids []int64) ([]*dto.Recipe, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.recipe.get_batch")
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(ids)))

	if len(ids) > s.config.MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d ids per request", domain.ErrInvalidRecipe, s.config.MaxBatchSize)
	}

	recipes, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fail(span, err)
	}
	return domain.ToDTOs(recipes), nil
}

// AddBatch validates every request before storing any of them
func (s *recipeService) AddBatch(ctx context.Context, reqs []dto.RecipeRequest) ([]*dto.Recipe, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.recipe.add_batch")
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(reqs)))

	if len(reqs) > s.config.MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d recipes per request", domain.ErrInvalidRecipe, s.config.MaxBatchSize)
	}

	recipes := make([]*domain.Recipe, 0, len(reqs))
	for i := range reqs {
		if valid, msg := reqs[i].Validate(); !valid {
			return nil, fmt.Errorf("%w: recipe %d: %s", domain.ErrInvalidRecipe, i, msg)
		}
		recipes = append(recipes, domain.NewRecipeFromRequest(&reqs[i]))
	}
	if len(recipes) == 0 {
		return []*dto.Recipe{}, nil
	}

	if _, err := s.repo.CreateBatch(ctx, recipes); err != nil {
		return nil, fail(span, err)
	}
	return domain.ToDTOs(recipes), nil
}

// Search runs a case-insensitive substring search. Unknown types search recipe names.
func (s *recipeService) Search(ctx context.Context, query, searchType string) ([]*dto.Recipe, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.recipe.search")
	defer span.End()

	field := domain.ParseSearchField(searchType)
	span.SetAttributes(attribute.String("search.type", string(field)))

	recipes, err := s.repo.Search(ctx, query, field)
	if err != nil {
		return nil, fail(span, err)
	}
	return domain.ToDTOs(recipes), nil
}

// Delete checks the caller's token locally, then asks the user service
// whether the caller is an admin before deleting
func (s *recipeService) Delete(ctx context.Context, authorization string, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "service.recipe.delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("recipe_id", id))

	principal, ok := s.tokens.ResolveBearer(authorization)
	if !ok {
		return domain.ErrUnauthenticated
	}
	span.SetAttributes(attribute.Int64("user_id", principal.UserID))

	user, err := s.users.CurrentUser(ctx, authorization)
	if err != nil {
		return fail(span, err)
	}
	if !user.Admin {
		return domain.ErrForbidden
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fail(span, err)
	}
	if !deleted {
		return domain.ErrRecipeNotFound
	}

	// Deletion is committed; a failed publish is only logged
	if err := s.publisher.PublishRecipeDeleted(ctx, id); err != nil {
		span.RecordError(err)
		logger.Get().Error("Failed to publish recipe.deleted", zap.Int64("recipe_id", id), zap.Error(err))
	}
	return nil
}

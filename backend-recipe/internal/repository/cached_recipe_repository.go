package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/domain"
	"github.com/D-Tasker207/gazpacho-backend/pkg/logger"
	pkgredis "github.com/D-Tasker207/gazpacho-backend/pkg/redis"
	"go.uber.org/zap"
)

const (
	recipeCachePrefix = "recipe:detail:"
	// DefaultRecipeCacheTTL bounds how long a cached view may outlive a write
	DefaultRecipeCacheTTL = 5 * time.Minute
)

// CachedRecipeRepository caches single recipe views in Redis. Redis failures
// fall through to the wrapped repository.
type CachedRecipeRepository struct {
	next  RecipeRepository
	redis *pkgredis.Client
	ttl   time.Duration
}

// NewCachedRecipeRepository wraps next with a Redis read-through cache
func NewCachedRecipeRepository(next RecipeRepository, redis *pkgredis.Client, ttl time.Duration) *CachedRecipeRepository {
	if ttl <= 0 {
		ttl = DefaultRecipeCacheTTL
	}
	return &CachedRecipeRepository{next: next, redis: redis, ttl: ttl}
}

func recipeCacheKey(id int64) string {
	return recipeCachePrefix + strconv.FormatInt(id, 10)
}

// GetByID serves from cache and fills it on a miss. Missing recipes are not cached.
func (c *CachedRecipeRepository) GetByID(ctx context.Context, id int64) (*domain.Recipe, error) {
	key := recipeCacheKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec domain.Recipe
		if jsonErr := json.Unmarshal(data, &rec); jsonErr == nil {
			return &rec, nil
		}
		logger.Get().Warn("Dropping unreadable cached recipe", zap.String("key", key))
		c.redis.Del(ctx, key)
	case !errors.Is(err, pkgredis.Nil):
		logger.Get().Warn("Recipe cache read failed", zap.String("key", key), zap.Error(err))
	}

	rec, err := c.next.GetByID(ctx, id)
	if err != nil || rec == nil {
		return rec, err
	}

	if data, err := json.Marshal(rec); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.Get().Warn("Recipe cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return rec, nil
}

// GetByIDs reads through to the database
func (c *CachedRecipeRepository) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Recipe, error) {
	return c.next.GetByIDs(ctx, ids)
}

// CreateBatch writes through to the database and evicts the views of
// existing recipes it changed. New ids have nothing cached.
func (c *CachedRecipeRepository) CreateBatch(ctx context.Context, recipes []*domain.Recipe) ([]int64, error) {
	stale, err := c.next.CreateBatch(ctx, recipes)
	if err != nil || len(stale) == 0 {
		return stale, err
	}

	keys := make([]string, 0, len(stale))
	for _, id := range stale {
		keys = append(keys, recipeCacheKey(id))
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		logger.Get().Warn("Recipe cache eviction failed", zap.Int64s("recipe_ids", stale), zap.Error(err))
	}
	return stale, nil
}

// Search reads through to the database
func (c *CachedRecipeRepository) Search(ctx context.Context, query string, field domain.SearchField) ([]*domain.Recipe, error) {
	return c.next.Search(ctx, query, field)
}

// Delete removes the recipe and evicts its cached view
func (c *CachedRecipeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := c.next.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if err := c.redis.Del(ctx, recipeCacheKey(id)).Err(); err != nil {
		logger.Get().Warn("Recipe cache eviction failed", zap.Int64("recipe_id", id), zap.Error(err))
	}
	return deleted, nil
}

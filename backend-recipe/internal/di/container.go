package di

import (
	"time"

	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/client"
	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/handler"
	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/repository"
	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/service"
	"github.com/D-Tasker207/gazpacho-backend/pkg/database"
	pkgredis "github.com/D-Tasker207/gazpacho-backend/pkg/redis"
	"github.com/D-Tasker207/gazpacho-backend/pkg/token"
)

// Container holds all dependencies for the recipe service
type Container struct {
	// Infrastructure
	DB     *database.GormDB
	Redis  *pkgredis.Client
	Tokens *token.Codec

	// Repositories
	RecipeRepo repository.RecipeRepository

	// Clients
	UserClient *client.UserClient

	// Services
	EventPublisher service.EventPublisher
	RecipeService  service.RecipeService

	// Handlers
	HealthHandler *handler.HealthHandler
	RecipeHandler *handler.RecipeHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB             *database.GormDB
	Redis          *pkgredis.Client // optional, enables the recipe cache
	CacheTTL       time.Duration
	Tokens         *token.Codec
	UserClient     *client.UserClient
	EventPublisher service.EventPublisher // optional, defaults to no-op
	ServiceConfig  *service.RecipeServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		Tokens:         cfg.Tokens,
		UserClient:     cfg.UserClient,
		EventPublisher: cfg.EventPublisher,
	}

	// Initialize repositories
	c.RecipeRepo = repository.NewGormRecipeRepository(c.DB.DB())
	if c.Redis != nil {
		c.RecipeRepo = repository.NewCachedRecipeRepository(c.RecipeRepo, c.Redis, cfg.CacheTTL)
	}

	if c.EventPublisher == nil {
		c.EventPublisher = service.NewNoOpEventPublisher()
	}

	// Initialize services
	c.RecipeService = service.NewRecipeService(
		c.RecipeRepo,
		c.Tokens,
		c.UserClient,
		c.EventPublisher,
		cfg.ServiceConfig,
	)

	// Initialize handlers
	var cache handler.Pinger
	if c.Redis != nil {
		cache = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(c.DB, cache)
	c.RecipeHandler = handler.NewRecipeHandler(c.RecipeService)

	return c
}

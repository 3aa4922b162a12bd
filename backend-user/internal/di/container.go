package di

import (
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/client"
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/handler"
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/repository"
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/service"
	"github.com/D-Tasker207/gazpacho-backend/pkg/database"
	"github.com/D-Tasker207/gazpacho-backend/pkg/token"
)

// Container holds all dependencies for the user service
type Container struct {
	// Infrastructure
	DB     *database.PostgresDB
	Tokens *token.Codec

	// Repositories
	UserRepo repository.UserRepository

	// Clients
	RecipeClient *client.RecipeClient

	// Services
	IdentityService service.IdentityService

	// Handlers
	HealthHandler *handler.HealthHandler
	UserHandler   *handler.UserHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB            *database.PostgresDB
	Tokens        *token.Codec
	UserRepo      repository.UserRepository
	RecipeClient  *client.RecipeClient
	ServiceConfig *service.IdentityServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:           cfg.DB,
		Tokens:       cfg.Tokens,
		UserRepo:     cfg.UserRepo,
		RecipeClient: cfg.RecipeClient,
	}

	if c.UserRepo == nil {
		c.UserRepo = repository.NewPostgresUserRepository(c.DB.Pool())
	}

	// Initialize services
	c.IdentityService = service.NewIdentityService(
		c.UserRepo,
		c.Tokens,
		c.RecipeClient,
		cfg.ServiceConfig,
	)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB)
	c.UserHandler = handler.NewUserHandler(c.IdentityService)

	return c
}

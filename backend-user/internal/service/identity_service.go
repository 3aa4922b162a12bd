package service

import (
	"context"
	"errors"

	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/domain"
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/repository"
	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
	"github.com/D-Tasker207/gazpacho-backend/pkg/telemetry"
	"github.com/D-Tasker207/gazpacho-backend/pkg/token"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

// IdentityServiceConfig holds configuration for IdentityService
type IdentityServiceConfig struct {
	BcryptCost int
}

// TokenIssuer issues and checks access/refresh tokens
type TokenIssuer interface {
	IssuePair(id int64) (*dto.TokenResponse, error)
	ExtractSubject(tok string, kind token.Kind) (int64, bool)
	ResolveBearer(header string) (*token.Principal, bool)
}

// RecipeCatalog answers whether a recipe exists in the recipe service
type RecipeCatalog interface {
	RecipeExists(ctx context.Context, recipeID int64) (bool, error)
}

// IdentityService owns every read and write of user identities
type IdentityService interface {
	// Register creates a non-admin user
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.PublicUser, error)
	// Login verifies credentials and issues an access/refresh pair
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Refresh exchanges a valid refresh token for a new pair
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// ResolveBearer authenticates an Authorization header value
	ResolveBearer(ctx context.Context, header string) (*token.Principal, error)
	// GetPublicIdentity returns the redacted user view
	GetPublicIdentity(ctx context.Context, id int64) (*dto.PublicUser, error)
	// SetSavedRecipe adds or removes a recipe from the user's saved list
	SetSavedRecipe(ctx context.Context, userID, recipeID int64, add bool) error
	// RemoveRecipeEverywhere drops a deleted recipe from all saved lists
	RemoveRecipeEverywhere(ctx context.Context, recipeID int64) (int64, error)
	// PromoteAdmin grants the admin flag to the user with email
	PromoteAdmin(ctx context.Context, email string) error
}

type identityService struct {
	userRepo  repository.UserRepository
	tokens    TokenIssuer
	catalog   RecipeCatalog
	config    *IdentityServiceConfig
	dummyHash []byte
}

// NewIdentityService creates a new IdentityService
func NewIdentityService(
	userRepo repository.UserRepository,
	tokens TokenIssuer,
	catalog RecipeCatalog,
	config *IdentityServiceConfig,
) IdentityService {
	if config == nil {
		config = &IdentityServiceConfig{}
	}
	if config.BcryptCost < bcrypt.MinCost || config.BcryptCost > bcrypt.MaxCost {
		config.BcryptCost = bcrypt.DefaultCost
	}

	// Compared against on unknown emails so both login failures cost one bcrypt run
	dummyHash, _ := bcrypt.GenerateFromPassword([]byte("gazpacho-unknown-user"), config.BcryptCost)

	return &identityService{
		userRepo:  userRepo,
		tokens:    tokens,
		catalog:   catalog,
		config:    config,
		dummyHash: dummyHash,
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Register creates a new user
func (s *identityService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.PublicUser, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.identity.register")
	defer span.End()

	// Fast path only; the unique constraint decides under concurrency
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fail(span, err)
	}
	if exists {
		return nil, fail(span, domain.ErrDuplicateEmail)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fail(span, err)
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Admin:        false,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.Int64("user_id", user.ID))
	return user.ToPublic(), nil
}

// Login authenticates a user
func (s *identityService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.identity.login")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fail(span, err)
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return nil, fail(span, domain.ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fail(span, domain.ErrInvalidCredentials)
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.Int64("user_id", user.ID))
	return pair, nil
}

// Refresh rotates the token pair for the refresh token's subject
func (s *identityService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.identity.refresh")
	defer span.End()

	userID, ok := s.tokens.ExtractSubject(refreshToken, token.KindRefresh)
	if !ok {
		return nil, fail(span, domain.ErrTokenInvalid)
	}
	span.SetAttributes(attribute.Int64("user_id", userID))

	exists, err := s.userRepo.ExistsByID(ctx, userID)
	if err != nil {
		return nil, fail(span, err)
	}
	if !exists {
		return nil, fail(span, domain.ErrIdentityNotFound)
	}

	pair, err := s.tokens.IssuePair(userID)
	if err != nil {
		return nil, fail(span, err)
	}
	return pair, nil
}

// ResolveBearer resolves "Bearer <access token>" to a principal
func (s *identityService) ResolveBearer(ctx context.Context, header string) (*token.Principal, error) {
	principal, ok := s.tokens.ResolveBearer(header)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	return principal, nil
}

// GetPublicIdentity returns the public view of a user
func (s *identityService) GetPublicIdentity(ctx context.Context, id int64) (*dto.PublicUser, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.identity.get")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", id))

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	if user == nil {
		return nil, fail(span, domain.ErrIdentityNotFound)
	}
	return user.ToPublic(), nil
}

// SetSavedRecipe adds or removes recipeID. Both directions are idempotent.
func (s *identityService) SetSavedRecipe(ctx context.Context, userID, recipeID int64, add bool) error {
	ctx, span := telemetry.StartSpan(ctx, "service.identity.set_saved_recipe")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("recipe_id", recipeID),
		attribute.Bool("add", add),
	)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fail(span, err)
	}
	if user == nil {
		return fail(span, domain.ErrIdentityNotFound)
	}

	if !add {
		if err := s.userRepo.RemoveSavedRecipe(ctx, userID, recipeID); err != nil {
			return fail(span, err)
		}
		return nil
	}

	if user.HasSavedRecipe(recipeID) {
		return nil
	}

	exists, err := s.catalog.RecipeExists(ctx, recipeID)
	if err != nil {
		return fail(span, err)
	}
	if !exists {
		return fail(span, domain.ErrRecipeNotFound)
	}

	if err := s.userRepo.AddSavedRecipe(ctx, userID, recipeID); err != nil {
		return fail(span, err)
	}
	return nil
}

// RemoveRecipeEverywhere prunes recipeID from every saved list
func (s *identityService) RemoveRecipeEverywhere(ctx context.Context, recipeID int64) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.identity.remove_recipe_everywhere")
	defer span.End()
	span.SetAttributes(attribute.Int64("recipe_id", recipeID))

	n, err := s.userRepo.RemoveRecipeFromAll(ctx, recipeID)
	if err != nil {
		return 0, fail(span, err)
	}
	span.SetAttributes(attribute.Int64("removed", n))
	return n, nil
}

// PromoteAdmin sets the admin flag for email
func (s *identityService) PromoteAdmin(ctx context.Context, email string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.identity.promote_admin")
	defer span.End()

	if email == "" {
		return fail(span, errors.New("email is required"))
	}

	updated, err := s.userRepo.SetAdmin(ctx, email, true)
	if err != nil {
		return fail(span, err)
	}
	if !updated {
		return fail(span, domain.ErrIdentityNotFound)
	}
	return nil
}

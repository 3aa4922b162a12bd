package domain

import "errors"

// Recipe service errors
var (
	ErrRecipeNotFound         = errors.New("recipe not found")
	ErrInvalidRecipe          = errors.New("invalid recipe")
	ErrUnauthenticated        = errors.New("invalid or missing access token")
	ErrForbidden              = errors.New("admin privileges required")
	ErrUserServiceUnavailable = errors.New("user service unavailable")
)

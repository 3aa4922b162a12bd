package domain

import "errors"

var (
	ErrDuplicateEmail           = errors.New("email already registered")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrTokenInvalid             = errors.New("token invalid")
	ErrIdentityNotFound         = errors.New("identity not found")
	ErrRecipeNotFound           = errors.New("recipe not found")
	ErrRecipeCatalogUnavailable = errors.New("recipe catalog unavailable")
)

// Package dto holds the request and response shapes shared by the gazpacho services
package dto

import (
	"regexp"
)

// TokenTypeBearer is the only token type handed out to clients
const TokenTypeBearer = "Bearer"

// MaxPasswordBytes is the bcrypt input limit
const MaxPasswordBytes = 72

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ValidateEmail validates email format
func (r *RegisterRequest) ValidateEmail() (bool, string) {
	if !emailRegex.MatchString(r.Email) {
		return false, "Invalid email format"
	}
	return true, ""
}

// ValidatePassword checks the password fits what bcrypt can hash
func (r *RegisterRequest) ValidatePassword() (bool, string) {
	if len(r.Password) == 0 {
		return false, "Password is required"
	}
	if len(r.Password) > MaxPasswordBytes {
		return false, "Password must not exceed 72 bytes"
	}
	return true, ""
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenResponse is returned by login and refresh
type TokenResponse struct {
	TokenType    string `json:"tokenType"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// NewTokenResponse builds a bearer TokenResponse
func NewTokenResponse(accessToken, refreshToken string) *TokenResponse {
	return &TokenResponse{
		TokenType:    TokenTypeBearer,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}
}

// PublicUser is the redacted view of an identity. It never carries the password hash.
type PublicUser struct {
	ID             int64   `json:"id"`
	Email          string  `json:"email"`
	Admin          bool    `json:"admin"`
	SavedRecipeIDs []int64 `json:"savedRecipeIds"`
}

// MessageResponse carries a human readable confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

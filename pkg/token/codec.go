package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
	"github.com/golang-jwt/jwt/v5"
)

// Codec issues signed tokens and can verify the tokens it issued
type Codec struct {
	*Validator
	now func() time.Time
}

// NewCodec creates a Codec from a validated configuration
func NewCodec(cfg Config) (*Codec, error) {
	v, err := NewValidator(cfg)
	if err != nil {
		return nil, err
	}
	return &Codec{Validator: v, now: time.Now}, nil
}

// IssueAccessToken signs a short-lived access token for the identity
func (c *Codec) IssueAccessToken(id int64) (string, error) {
	return c.issue(id, KindAccess)
}

// IssueRefreshToken signs a long-lived refresh token for the identity
func (c *Codec) IssueRefreshToken(id int64) (string, error) {
	return c.issue(id, KindRefresh)
}

// IssuePair issues a fresh access and refresh token for the identity
func (c *Codec) IssuePair(id int64) (*dto.TokenResponse, error) {
	access, err := c.IssueAccessToken(id)
	if err != nil {
		return nil, err
	}
	refresh, err := c.IssueRefreshToken(id)
	if err != nil {
		return nil, err
	}
	return dto.NewTokenResponse(access, refresh), nil
}

func (c *Codec) issue(id int64, kind Kind) (string, error) {
	secret, ok := c.cfg.secretFor(kind)
	if !ok {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}

	now := c.now()
	claims := Claims{
		Type: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id, 10),
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.ttlFor(kind))),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

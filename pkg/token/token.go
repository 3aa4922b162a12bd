// Package token issues and validates the signed access and refresh tokens
// shared by every gazpacho service.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum HS256 key length in bytes.
const MinSecretLength = 32

var (
	ErrMisconfiguredSecrets = errors.New("token secrets are misconfigured")
	ErrInvalidTTL           = errors.New("token ttl must be positive")
)

func init() {
	// Sub-second TTLs need exp/iat encoded with fractional seconds.
	jwt.TimePrecision = time.Millisecond
}

// Kind distinguishes access tokens from refresh tokens
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Config holds the key material and lifetimes for both token kinds.
// Each kind has its own secret so that one leaked key cannot forge the other kind.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Validate checks secrets and TTLs, failing fast on anything unusable
func (c Config) Validate() error {
	if err := checkSecret("access", c.AccessSecret); err != nil {
		return err
	}
	if err := checkSecret("refresh", c.RefreshSecret); err != nil {
		return err
	}
	if c.AccessSecret == c.RefreshSecret {
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrMisconfiguredSecrets)
	}
	if c.AccessTTL <= 0 {
		return fmt.Errorf("%w: access ttl %s", ErrInvalidTTL, c.AccessTTL)
	}
	if c.RefreshTTL <= 0 {
		return fmt.Errorf("%w: refresh ttl %s", ErrInvalidTTL, c.RefreshTTL)
	}
	return nil
}

func checkSecret(kind, secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: %s secret is required", ErrMisconfiguredSecrets, kind)
	}
	if len(secret) < MinSecretLength {
		return fmt.Errorf("%w: %s secret must be at least %d bytes, got %d",
			ErrMisconfiguredSecrets, kind, MinSecretLength, len(secret))
	}
	return nil
}

func (c Config) secretFor(kind Kind) ([]byte, bool) {
	switch kind {
	case KindAccess:
		return []byte(c.AccessSecret), true
	case KindRefresh:
		return []byte(c.RefreshSecret), true
	default:
		return nil, false
	}
}

func (c Config) ttlFor(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.RefreshTTL
	}
	return c.AccessTTL
}

// Claims is the JWT payload carried by every token
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Principal is the identity behind a successfully validated bearer token
type Principal struct {
	UserID int64
	Kind   Kind
}

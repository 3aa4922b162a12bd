package token

import (
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// BearerPrefix is the exact, case-sensitive scheme prefix of an Authorization header
const BearerPrefix = "Bearer "

// Validator verifies tokens of a given kind. It is safe for concurrent use.
type Validator struct {
	cfg    Config
	parser *jwt.Parser
}

// NewValidator creates a Validator from a validated configuration
func NewValidator(cfg Config) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Validator{
		cfg:    cfg,
		parser: jwt.NewParser(opts...),
	}, nil
}

// Validate reports whether tok is a well-formed, correctly signed, unexpired token of the given kind
func (v *Validator) Validate(tok string, kind Kind) bool {
	_, ok := v.parse(tok, kind)
	return ok
}

// ExtractSubject returns the identity id carried by tok when it validates as kind
func (v *Validator) ExtractSubject(tok string, kind Kind) (int64, bool) {
	claims, ok := v.parse(tok, kind)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ResolveBearer resolves an Authorization header value of the form "Bearer <access token>"
func (v *Validator) ResolveBearer(header string) (*Principal, bool) {
	if !strings.HasPrefix(header, BearerPrefix) {
		return nil, false
	}
	id, ok := v.ExtractSubject(header[len(BearerPrefix):], KindAccess)
	if !ok {
		return nil, false
	}
	return &Principal{UserID: id, Kind: KindAccess}, true
}

func (v *Validator) parse(tok string, kind Kind) (*Claims, bool) {
	secret, ok := v.cfg.secretFor(kind)
	if !ok || tok == "" {
		return nil, false
	}

	// The kind tag is checked on its own, before any signature work.
	unverified := &Claims{}
	if _, _, err := v.parser.ParseUnverified(tok, unverified); err != nil {
		return nil, false
	}
	if unverified.Type != string(kind) {
		return nil, false
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if claims.Type != string(kind) {
		return nil, false
	}
	if _, err := strconv.ParseInt(claims.Subject, 10, 64); err != nil {
		return nil, false
	}
	return claims, true
}

package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "thisisnottheactualsecurekey12345"
	testRefreshSecret = "thisisalsoafakekeybutforrefreshing"
)

func testConfig() Config {
	return Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)
	return codec
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"missing access secret", func(c *Config) { c.AccessSecret = "" }, ErrMisconfiguredSecrets},
		{"missing refresh secret", func(c *Config) { c.RefreshSecret = "" }, ErrMisconfiguredSecrets},
		{"short access secret", func(c *Config) { c.AccessSecret = "tooshort" }, ErrMisconfiguredSecrets},
		{"short refresh secret", func(c *Config) { c.RefreshSecret = strings.Repeat("x", MinSecretLength-1) }, ErrMisconfiguredSecrets},
		{"identical secrets", func(c *Config) { c.RefreshSecret = c.AccessSecret }, ErrMisconfiguredSecrets},
		{"zero access ttl", func(c *Config) { c.AccessTTL = 0 }, ErrInvalidTTL},
		{"negative refresh ttl", func(c *Config) { c.RefreshTTL = -time.Second }, ErrInvalidTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			_, err = NewCodec(cfg)
			assert.Error(t, err)
			_, err = NewValidator(cfg)
			assert.Error(t, err)
		})
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	for _, id := range []int64{1, 42, 1 << 40} {
		access, err := codec.IssueAccessToken(id)
		require.NoError(t, err)
		refresh, err := codec.IssueRefreshToken(id)
		require.NoError(t, err)

		assert.True(t, codec.Validate(access, KindAccess))
		assert.True(t, codec.Validate(refresh, KindRefresh))

		got, ok := codec.ExtractSubject(access, KindAccess)
		assert.True(t, ok)
		assert.Equal(t, id, got)

		got, ok = codec.ExtractSubject(refresh, KindRefresh)
		assert.True(t, ok)
		assert.Equal(t, id, got)
	}
}

func TestCodec_IssuePair(t *testing.T) {
	codec := newTestCodec(t)

	pair, err := codec.IssuePair(7)
	require.NoError(t, err)

	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
}

func TestValidator_CrossKindRejected(t *testing.T) {
	codec := newTestCodec(t)

	access, err := codec.IssueAccessToken(42)
	require.NoError(t, err)
	refresh, err := codec.IssueRefreshToken(42)
	require.NoError(t, err)

	assert.False(t, codec.Validate(access, KindRefresh))
	assert.False(t, codec.Validate(refresh, KindAccess))

	_, ok := codec.ExtractSubject(access, KindRefresh)
	assert.False(t, ok)
	_, ok = codec.ExtractSubject(refresh, KindAccess)
	assert.False(t, ok)
}

func TestValidator_KindTagCheckedWithMatchingSecret(t *testing.T) {
	// A correctly signed token whose type claim lies about its kind
	claims := Claims{
		Type: string(KindRefresh),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	v, err := NewValidator(testConfig())
	require.NoError(t, err)

	assert.False(t, v.Validate(forged, KindAccess))
	assert.False(t, v.Validate(forged, KindRefresh))
}

func TestValidator_TamperEvidence(t *testing.T) {
	codec := newTestCodec(t)

	tok, err := codec.IssueAccessToken(42)
	require.NoError(t, err)
	require.True(t, codec.Validate(tok, KindAccess))

	for i := 0; i < len(tok); i++ {
		replacement := byte('A')
		if tok[i] == 'A' {
			replacement = 'B'
		}
		mutated := tok[:i] + string(replacement) + tok[i+1:]
		assert.False(t, codec.Validate(mutated, KindAccess), "mutation at index %d accepted", i)
	}

	assert.False(t, codec.Validate(tok[:len(tok)-1], KindAccess))
	assert.False(t, codec.Validate(tok+"A", KindAccess))
}

func TestValidator_Malformed(t *testing.T) {
	v, err := NewValidator(testConfig())
	require.NoError(t, err)

	for _, tok := range []string{"", "abc", "a.b.c", "...", "Bearer x"} {
		assert.False(t, v.Validate(tok, KindAccess), tok)
		_, ok := v.ExtractSubject(tok, KindAccess)
		assert.False(t, ok, tok)
	}
	assert.False(t, v.Validate("a.b.c", Kind("other")))
}

func TestValidator_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		Type: string(KindAccess),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	v, err := NewValidator(testConfig())
	require.NoError(t, err)
	assert.False(t, v.Validate(tok, KindAccess))
	assert.False(t, v.Validate(unsigned, KindAccess))
}

func TestValidator_RequiresExpiryAndNumericSubject(t *testing.T) {
	noExp := Claims{Type: string(KindAccess), RegisteredClaims: jwt.RegisteredClaims{Subject: "42"}}
	badSub := Claims{
		Type: string(KindAccess),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-number",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	v, err := NewValidator(testConfig())
	require.NoError(t, err)

	for _, c := range []Claims{noExp, badSub} {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testAccessSecret))
		require.NoError(t, err)
		assert.False(t, v.Validate(tok, KindAccess))
	}
}

func TestValidator_Expiry(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = 100 * time.Millisecond
	codec, err := NewCodec(cfg)
	require.NoError(t, err)

	tok, err := codec.IssueAccessToken(42)
	require.NoError(t, err)
	assert.True(t, codec.Validate(tok, KindAccess))

	time.Sleep(150 * time.Millisecond)
	assert.False(t, codec.Validate(tok, KindAccess))
}

func TestValidator_ExpiredAtIssue(t *testing.T) {
	codec := newTestCodec(t)
	codec.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := codec.IssueAccessToken(42)
	require.NoError(t, err)
	assert.False(t, codec.Validate(tok, KindAccess))
}

func TestValidator_Issuer(t *testing.T) {
	cfg := testConfig()
	cfg.Issuer = "gazpacho"
	codec, err := NewCodec(cfg)
	require.NoError(t, err)

	tok, err := codec.IssueAccessToken(42)
	require.NoError(t, err)
	assert.True(t, codec.Validate(tok, KindAccess))

	other := testConfig()
	other.Issuer = "someone-else"
	v, err := NewValidator(other)
	require.NoError(t, err)
	assert.False(t, v.Validate(tok, KindAccess))
}

func TestValidator_ResolveBearer(t *testing.T) {
	codec := newTestCodec(t)

	access, err := codec.IssueAccessToken(42)
	require.NoError(t, err)
	refresh, err := codec.IssueRefreshToken(42)
	require.NoError(t, err)

	principal, ok := codec.ResolveBearer("Bearer " + access)
	require.True(t, ok)
	assert.Equal(t, int64(42), principal.UserID)
	assert.Equal(t, KindAccess, principal.Kind)

	tests := []struct {
		name   string
		header string
	}{
		{"typo in scheme", "Bearr " + access},
		{"lowercase scheme", "bearer " + access},
		{"double space", "Bearer  " + access},
		{"no space", "Bearer" + access},
		{"missing scheme", access},
		{"refresh token", "Bearer " + refresh},
		{"empty", ""},
		{"scheme only", "Bearer "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := codec.ResolveBearer(tt.header)
			assert.False(t, ok)
			assert.Nil(t, p)
		})
	}
}

func TestValidator_ConcurrentUse(t *testing.T) {
	codec := newTestCodec(t)

	done := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		go func(id int64) {
			tok, err := codec.IssueAccessToken(id)
			if err != nil {
				done <- false
				return
			}
			got, ok := codec.ExtractSubject(tok, KindAccess)
			done <- ok && got == id
		}(int64(i + 1))
	}
	for i := 0; i < 16; i++ {
		assert.True(t, <-done)
	}
}

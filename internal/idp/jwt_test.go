package idp

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludotheque/ludo-api/internal/config"
)

const testKey = "test-signing-key"

func sign(t *testing.T, c claims) string {
	t.Helper()

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testKey))
	require.NoError(t, err)

	return s
}

func validClaims() claims {
	return claims{
		Email: "Alice@Example.org",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://idp.example.org/",
			Audience:  jwt.ClaimStrings{"ludo"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newProvider(t *testing.T) *JWT {
	t.Helper()

	p, err := NewJWT(&config.AuthConfig{
		SigningKey: testKey,
		Issuer:     "https://idp.example.org/",
		Audience:   "ludo",
	})
	require.NoError(t, err)

	return p
}

func TestNewJWT_NoKey(t *testing.T) {
	_, err := NewJWT(&config.AuthConfig{})
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestJWT_Validate(t *testing.T) {
	p := newProvider(t)

	email, err := p.Validate(context.Background(), sign(t, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", email)
}

func TestJWT_ValidateRejects(t *testing.T) {
	p := newProvider(t)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	otherIssuer := validClaims()
	otherIssuer.Issuer = "https://evil.example.org/"

	otherAudience := validClaims()
	otherAudience.Audience = jwt.ClaimStrings{"other"}

	noEmail := validClaims()
	noEmail.Email = ""

	tests := map[string]string{
		"expired":        sign(t, expired),
		"no expiry":      sign(t, noExpiry),
		"other issuer":   sign(t, otherIssuer),
		"other audience": sign(t, otherAudience),
		"no email":       sign(t, noEmail),
		"garbage":        "not-a-jwt",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := p.Validate(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWT_ValidateWrongKey(t *testing.T) {
	p := newProvider(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("other"))
	require.NoError(t, err)

	_, err = p.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

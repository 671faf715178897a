// Package idp validates bearer tokens issued by the external identity provider
// and extracts the email they were issued for.
package idp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ludotheque/ludo-api/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoKey        = errors.New("no token verification key configured")
)

type Provider interface {
	Validate(ctx context.Context, token string) (email string, err error)
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type JWT struct {
	parser *jwt.Parser
	key    any
}

// NewJWT verifies RS256 tokens when a public key file is configured and falls
// back to HS256 with the shared signing key.
func NewJWT(conf *config.AuthConfig) (*JWT, error) {
	var (
		key    any
		method string
	)

	switch {
	case conf.PublicKeyFile != "":
		pem, err := os.ReadFile(conf.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("os.ReadFile -> %w", err)
		}
		pub, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("jwt.ParseRSAPublicKeyFromPEM -> %w", err)
		}
		key, method = pub, jwt.SigningMethodRS256.Alg()
	case conf.SigningKey != "":
		key, method = []byte(conf.SigningKey), jwt.SigningMethodHS256.Alg()
	default:
		return nil, ErrNoKey
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method}),
		jwt.WithExpirationRequired(),
	}
	if conf.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(conf.Issuer))
	}
	if conf.Audience != "" {
		opts = append(opts, jwt.WithAudience(conf.Audience))
	}

	return &JWT{
		parser: jwt.NewParser(opts...),
		key:    key,
	}, nil
}

func (j *JWT) Validate(_ context.Context, token string) (string, error) {
	c := &claims{}
	_, err := j.parser.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return j.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" {
		return "", fmt.Errorf("%w: no email claim", ErrInvalidToken)
	}

	return email, nil
}

// Package authtest mints identity-provider tokens for tests and local tooling.
package authtest

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/careersim/bff/internal/auth"
)

// Secret is the signing secret used by test verifiers.
const Secret = "test-jwt-secret-with-enough-entropy"

// Token describes the claims of a token to mint.
type Token struct {
	Subject   string
	Email     string
	Provider  string
	Confirmed bool
	Audience  string
	ExpiresIn time.Duration
}

// Sign returns an HS256 token for t signed with secret.
func Sign(secret string, t Token) string {
	aud := t.Audience
	if aud == "" {
		aud = auth.DefaultAudience
	}
	exp := t.ExpiresIn
	if exp == 0 {
		exp = time.Hour
	}
	claims := auth.Claims{
		Email: t.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   t.Subject,
			Audience:  jwt.ClaimStrings{aud},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
		},
	}
	claims.AppMetadata.Provider = t.Provider
	if t.Confirmed {
		ts := time.Now().UTC().Format(time.RFC3339)
		claims.EmailConfirmedAt = &ts
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}

// Package auth verifies identity-provider bearer tokens.
package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	svcErr "github.com/careersim/bff/internal/errors"
)

// DefaultAudience is the audience Supabase stamps on user access tokens.
const DefaultAudience = "authenticated"

const signingAlg = "HS256"

// Identity is the verified subject of a token.
type Identity struct {
	ID               string
	Email            string
	Provider         string
	EmailConfirmedAt *string
}

// Anonymous is the identity of a caller without a usable token.
var Anonymous = Identity{}

func (i Identity) IsAnonymous() bool { return i.ID == "" }

// EmailVerified reports whether the provider confirmed the email address.
func (i Identity) EmailVerified() bool { return i.EmailConfirmedAt != nil }

// AppMetadata is the provider-controlled part of the claims.
type AppMetadata struct {
	Provider string `json:"provider"`
}

// Claims mirrors the Supabase access token payload.
type Claims struct {
	Email            string      `json:"email"`
	AppMetadata      AppMetadata `json:"app_metadata"`
	EmailConfirmedAt *string     `json:"email_confirmed_at,omitempty"`
	jwt.RegisteredClaims
}

var errNoSecret = errors.New("token secret is not configured")

// Verifier checks HS256 tokens signed with a pre-shared secret.
type Verifier struct {
	secret   []byte
	audience string
	parser   *jwt.Parser
}

func NewVerifier(secret, audience string) *Verifier {
	if audience == "" {
		audience = DefaultAudience
	}
	return &Verifier{
		secret:   []byte(secret),
		audience: audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingAlg}),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify validates signature, algorithm, audience and expiry and returns the
// token's identity. Every failure is Unauthenticated.
func (v *Verifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Anonymous, svcErr.Unauthenticated("Not authenticated")
	}
	if len(v.secret) == 0 {
		return Anonymous, &svcErr.Error{Kind: svcErr.KindUnauthenticated, Msg: "Could not validate credentials", Err: errNoSecret}
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Anonymous, &svcErr.Error{Kind: svcErr.KindUnauthenticated, Msg: "Could not validate credentials", Err: err}
	}
	if claims.Subject == "" {
		return Anonymous, svcErr.Unauthenticated("Invalid token")
	}

	provider := claims.AppMetadata.Provider
	if provider == "" {
		provider = "email"
	}
	return Identity{
		ID:               claims.Subject,
		Email:            claims.Email,
		Provider:         provider,
		EmailConfirmedAt: claims.EmailConfirmedAt,
	}, nil
}

// VerifyOptional is Verify for endpoints that tolerate anonymous callers.
func (v *Verifier) VerifyOptional(token string) Identity {
	id, err := v.Verify(token)
	if err != nil {
		return Anonymous
	}
	return id
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

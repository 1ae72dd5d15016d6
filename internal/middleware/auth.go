// Package middleware holds the gin middlewares of the HTTP API.
package middleware

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/careersim/bff/internal/auth"
	"github.com/careersim/bff/internal/response"
)

const currentUserKey = "current_user"

// UserResolver turns a verified identity into the current user view.
type UserResolver interface {
	Resolve(ctx context.Context, id auth.Identity) (*auth.CurrentUser, error)
}

// RequireAuth verifies the bearer token and resolves the caller's profile.
// Any failure aborts with 401 (or the resolver's own error class).
func RequireAuth(verifier *auth.Verifier, resolver UserResolver, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := verifier.Verify(auth.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			response.Error(c, log, err)
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), id)
		if err != nil {
			response.Error(c, log, err)
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// OptionalAuth resolves the caller when a valid token is present and
// otherwise continues anonymously.
func OptionalAuth(verifier *auth.Verifier, resolver UserResolver, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := verifier.VerifyOptional(auth.BearerToken(c.GetHeader("Authorization")))
		if !id.IsAnonymous() {
			user, err := resolver.Resolve(c.Request.Context(), id)
			if err != nil {
				if log != nil {
					log.Warn("optional auth: resolve failed", "user_id", id.ID, "err", err)
				}
			} else {
				c.Set(currentUserKey, user)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the caller stored by RequireAuth or OptionalAuth.
func CurrentUser(c *gin.Context) (*auth.CurrentUser, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*auth.CurrentUser)
	return u, ok && u != nil
}

// MustCurrentUser is CurrentUser for routes behind RequireAuth.
func MustCurrentUser(c *gin.Context) *auth.CurrentUser {
	u, ok := CurrentUser(c)
	if !ok {
		panic("middleware: no current user, route is missing RequireAuth")
	}
	return u
}

// Guards bundles the two auth middlewares handed to route registrars.
type Guards struct {
	Required gin.HandlerFunc
	Optional gin.HandlerFunc
}

func NewGuards(verifier *auth.Verifier, resolver UserResolver, log *slog.Logger) Guards {
	return Guards{
		Required: RequireAuth(verifier, resolver, log),
		Optional: OptionalAuth(verifier, resolver, log),
	}
}

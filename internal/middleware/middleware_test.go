package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careersim/bff/internal/auth"
	"github.com/careersim/bff/internal/auth/authtest"
	svcErr "github.com/careersim/bff/internal/errors"
	"github.com/careersim/bff/internal/logger"
	"github.com/careersim/bff/internal/middleware"
)

type fakeResolver struct {
	err   error
	calls int
}

func (f *fakeResolver) Resolve(_ context.Context, id auth.Identity) (*auth.CurrentUser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &auth.CurrentUser{ID: id.ID, Email: id.Email, Username: "neo", AuthProvider: id.Provider}, nil
}

func newEngine(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", mw, func(c *gin.Context) {
		u, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, u)
	})
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestRequireAuth_Valid(t *testing.T) {
	resolver := &fakeResolver{}
	r := newEngine(middleware.RequireAuth(auth.NewVerifier(authtest.Secret, ""), resolver, logger.Discard()))

	rec := do(r, authtest.Sign(authtest.Secret, authtest.Token{Subject: "u1", Email: "neo@matrix.io"}))

	require.Equal(t, http.StatusOK, rec.Code)
	var u auth.CurrentUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "email", u.AuthProvider)
	assert.Equal(t, 1, resolver.calls)
}

func TestRequireAuth_MissingToken(t *testing.T) {
	resolver := &fakeResolver{}
	r := newEngine(middleware.RequireAuth(auth.NewVerifier(authtest.Secret, ""), resolver, logger.Discard()))

	rec := do(r, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "Not authenticated", detail(t, rec))
	assert.Zero(t, resolver.calls)
}

func TestRequireAuth_BadSignature(t *testing.T) {
	resolver := &fakeResolver{}
	r := newEngine(middleware.RequireAuth(auth.NewVerifier(authtest.Secret, ""), resolver, logger.Discard()))

	rec := do(r, authtest.Sign("other-secret", authtest.Token{Subject: "u1"}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", detail(t, rec))
	assert.Zero(t, resolver.calls)
}

func TestRequireAuth_ResolverFailure(t *testing.T) {
	resolver := &fakeResolver{err: svcErr.Internal("profile lookup failed", errors.New("db down"))}
	r := newEngine(middleware.RequireAuth(auth.NewVerifier(authtest.Secret, ""), resolver, logger.Discard()))

	rec := do(r, authtest.Sign(authtest.Secret, authtest.Token{Subject: "u1"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "profile lookup failed", detail(t, rec))
}

func TestOptionalAuth(t *testing.T) {
	resolver := &fakeResolver{}
	r := newEngine(middleware.OptionalAuth(auth.NewVerifier(authtest.Secret, ""), resolver, logger.Discard()))

	rec := do(r, "garbage")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"anonymous":true}`, rec.Body.String())
	assert.Zero(t, resolver.calls)

	rec = do(r, authtest.Sign(authtest.Secret, authtest.Token{Subject: "u9"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"u9"`)

	resolver.err = errors.New("boom")
	rec = do(r, authtest.Sign(authtest.Secret, authtest.Token{Subject: "u9"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"anonymous":true}`, rec.Body.String())
}

func TestCORS_AllowsFrontend(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CORS("https://app.careersim.dev/"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, origin := range []string{"https://app.careersim.dev", "http://localhost:5173"} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

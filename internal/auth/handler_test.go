package auth

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"flightbooker/internal/apperr"
	"flightbooker/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoRoles struct {
	repo Repository
}

func (r repoRoles) RoleOf(ctx context.Context, id string) (Role, error) {
	a, err := r.repo.ByID(ctx, id)
	if err != nil {
		return "", apperr.NotFound("userId", "User with id %s not found.", id)
	}
	return a.Role, nil
}

func newAuthRouter(f *authFixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(f.svc, nil, false).RegisterRoutes(r)

	guard := NewMiddleware(f.sessions, repoRoles{f.repo}, logger.NewWithWriter("test", &bytes.Buffer{}))
	r.GET("/me", guard.RequireAuth(), func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		c.String(http.StatusOK, p.UserID+"/"+string(p.Role))
	})
	r.GET("/admin", guard.Require(Administrator...), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", SessionCookie)
	return nil
}

func TestHandler_LoginThenGuardedRoutes(t *testing.T) {
	f := newAuthFixture(t)
	id := f.register(t, true)
	r := newAuthRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email": "ana@example.com", "password": "Secret1", "rememberMe": true}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 24*60*60, cookie.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id+"/User", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_NoSession(t *testing.T) {
	r := newAuthRouter(newAuthFixture(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "forged"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_LogoutEndsSession(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, true)
	r := newAuthRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email": "ana@example.com", "password": "Secret1"}`)))
	cookie := sessionCookie(t, w)
	assert.Zero(t, cookie.MaxAge)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_RegisterBindingErrors(t *testing.T) {
	r := newAuthRouter(newAuthFixture(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email": "not-an-email"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"isSuccessful":false`)
}

func TestHandler_SocialLoginDisabled(t *testing.T) {
	r := newAuthRouter(newAuthFixture(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

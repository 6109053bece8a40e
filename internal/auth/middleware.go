package auth

import (
	"context"
	"errors"

	"flightbooker/internal/apperr"
	"flightbooker/pkg/logger"
	"flightbooker/pkg/session"

	"github.com/gin-gonic/gin"
)

const SessionCookie = "session_id"

// RoleLookup resolves the current role of a user id.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID string) (Role, error)
}

// Middleware resolves the session cookie into a Principal on every request.
type Middleware struct {
	sessions session.Store
	roles    RoleLookup
	logger   logger.Client
}

var _ Guard = (*Middleware)(nil)

func NewMiddleware(sessions session.Store, roles RoleLookup, l logger.Client) *Middleware {
	return &Middleware{sessions: sessions, roles: roles, logger: l}
}

// RequireAuth answers 401 unless the request carries a live session.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.authenticate(c) {
			c.Next()
		}
	}
}

// RequireRole answers 403 unless the authenticated caller holds one of roles.
// It expects RequireAuth earlier in the chain.
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authorize(c, roles) {
			c.Next()
		}
	}
}

func (m *Middleware) Require(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.authenticate(c) && authorize(c, roles) {
			c.Next()
		}
	}
}

func (m *Middleware) authenticate(c *gin.Context) bool {
	if _, ok := PrincipalFrom(c); ok {
		return true
	}

	sessionID, err := c.Cookie(SessionCookie)
	if err != nil || sessionID == "" {
		abort(c, apperr.Unauthorized("You must be signed in."))
		return false
	}

	sess, err := m.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) && !errors.Is(err, session.ErrSessionExpired) {
			m.logger.Error("session_lookup_failed", logger.Err(err))
		}
		abort(c, apperr.Unauthorized("Your session has expired."))
		return false
	}

	role, err := m.roles.RoleOf(c.Request.Context(), sess.UserID)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			m.logger.Error("role_lookup_failed", logger.Field{Key: "user_id", Value: sess.UserID}, logger.Err(err))
		}
		abort(c, apperr.Unauthorized("You must be signed in."))
		return false
	}

	SetPrincipal(c, Principal{UserID: sess.UserID, Role: role})
	return true
}

func authorize(c *gin.Context, roles []Role) bool {
	p, ok := PrincipalFrom(c)
	if !ok {
		abort(c, apperr.Unauthorized("You must be signed in."))
		return false
	}
	if !p.HasAny(roles) {
		abort(c, apperr.Forbidden("You are not allowed to perform this action."))
		return false
	}
	return true
}

func abort(c *gin.Context, err error) {
	apperr.Write(c, err)
	c.Abort()
}

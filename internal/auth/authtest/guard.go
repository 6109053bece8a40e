// Package authtest provides a header-driven Guard for handler tests.
package authtest

import (
	"net/http"

	"flightbooker/internal/apperr"
	"flightbooker/internal/auth"

	"github.com/gin-gonic/gin"
)

const (
	HeaderUser = "X-Test-User"
	HeaderRole = "X-Test-Role"
)

// Guard authenticates requests from the X-Test-User and X-Test-Role headers.
type Guard struct{}

var _ auth.Guard = Guard{}

func (Guard) Require(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUser)
		if userID == "" {
			apperr.Write(c, apperr.Unauthorized("You must be signed in."))
			c.Abort()
			return
		}
		p := auth.Principal{UserID: userID, Role: auth.Role(c.GetHeader(HeaderRole))}
		if !p.HasAny(roles) {
			apperr.Write(c, apperr.Forbidden("You are not allowed to perform this action."))
			c.Abort()
			return
		}
		auth.SetPrincipal(c, p)
		c.Next()
	}
}

// As decorates req with the given caller.
func As(req *http.Request, userID string, role auth.Role) *http.Request {
	req.Header.Set(HeaderUser, userID)
	req.Header.Set(HeaderRole, string(role))
	return req
}

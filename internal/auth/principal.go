package auth

import (
	"slices"

	"github.com/gin-gonic/gin"
)

type Role string

const (
	RoleAdmin           Role = "Admin"
	RoleUser            Role = "User"
	RoleAirlineOperator Role = "AirlineOperator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleAirlineOperator:
		return true
	}
	return false
}

// Policies group the roles allowed through a guarded endpoint.
var (
	Administrator   = []Role{RoleAdmin}
	Privileged      = []Role{RoleAdmin, RoleAirlineOperator}
	AirlineOperator = []Role{RoleAirlineOperator, RoleAdmin}
	Authenticated   []Role
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) HasAny(roles []Role) bool {
	return len(roles) == 0 || slices.Contains(roles, p.Role)
}

const principalKey = "auth.principal"

func SetPrincipal(c *gin.Context, p Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom returns the caller placed on the context by a Guard.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// Guard builds middleware that requires an authenticated caller holding one of
// roles. An empty roles list admits any authenticated caller.
type Guard interface {
	Require(roles ...Role) gin.HandlerFunc
}

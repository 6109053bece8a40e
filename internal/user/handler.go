package user

import (
	"net/http"

	"flightbooker/internal/apperr"
	"flightbooker/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterRoutes(router gin.IRouter, guard auth.Guard) {
	g := router.Group("/users")
	g.GET("", guard.Require(auth.Administrator...), h.List)
	g.GET("/count", guard.Require(auth.Administrator...), h.Count)
	g.GET("/:id", guard.Require(auth.Authenticated...), h.Get)
	g.PUT("/:id", guard.Require(auth.Administrator...), h.UpdateRole)
	g.DELETE("/:id", guard.Require(auth.Administrator...), h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) Count(c *gin.Context) {
	n, err := h.service.Count(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// Get answers the caller's own profile; admins may read anyone's.
func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if p, _ := auth.PrincipalFrom(c); !p.IsAdmin() && p.UserID != id {
		apperr.Write(c, apperr.Forbidden("You can only view your own profile."))
		return
	}
	u, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	u, err := h.service.UpdateRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		apperr.WriteForm(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusOK, nil)
}

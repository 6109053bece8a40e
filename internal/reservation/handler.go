package reservation

import (
	"net/http"
	"strconv"

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
	g := router.Group("/reservations")
	g.GET("", guard.Require(auth.Administrator...), h.List)
	g.GET("/airline/:airlineId", guard.Require(auth.Privileged...), h.ListForAirline)
	g.GET("/client/:clientId", guard.Require(auth.Authenticated...), h.ListForClient)
	g.GET("/:id", guard.Require(auth.Administrator...), h.Get)
	g.POST("", guard.Require(auth.Authenticated...), h.Create)
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ListForAirline(c *gin.Context) {
	airlineID, err := strconv.ParseInt(c.Param("airlineId"), 10, 64)
	if err != nil {
		apperr.Write(c, apperr.Validation("airlineId", "Invalid airline id."))
		return
	}
	list, err := h.service.ListForAirline(c.Request.Context(), airlineID)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListForClient answers the caller's own reservations; admins may read anyone's.
func (h *Handler) ListForClient(c *gin.Context) {
	clientID := c.Param("clientId")
	if p, _ := auth.PrincipalFrom(c); !p.IsAdmin() && p.UserID != clientID {
		apperr.Write(c, apperr.Forbidden("You can only view your own reservations."))
		return
	}
	list, err := h.service.ListForClient(c.Request.Context(), clientID)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apperr.Write(c, apperr.Validation("reservationId", "Invalid reservation id."))
		return
	}
	res, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Create godoc
// @Summary  Reserve seats on every leg of a route
// @Tags     reservations
// @Accept   json
// @Produce  json
// @Param    request body CreateRequest true "Seat selection"
// @Success  201 {object} apperr.Success
// @Failure  400 {object} apperr.Envelope
// @Failure  409 {object} apperr.Envelope
// @Router   /reservations [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}

	p, _ := auth.PrincipalFrom(c)
	switch {
	case req.ClientID == "":
		req.ClientID = p.UserID
	case req.ClientID != p.UserID && !p.IsAdmin():
		apperr.Write(c, apperr.Forbidden("You can only book seats for yourself."))
		return
	}

	created, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusCreated, map[string]any{
		"reservationId": strconv.FormatInt(created.ID, 10),
		"totalCost":     created.TotalCost,
	})
}

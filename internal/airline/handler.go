package airline

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
	g := router.Group("/airlines")
	g.GET("", guard.Require(auth.Administrator...), h.List)
	g.GET("/operators", guard.Require(auth.Administrator...), h.Operators)
	g.GET("/operators/:userId", guard.Require(auth.AirlineOperator...), h.AirlineForOperator)
	g.GET("/:id", guard.Require(auth.Administrator...), h.Get)
	g.GET("/:id/metrics", guard.Require(auth.AirlineOperator...), h.Metrics)
	g.POST("", guard.Require(auth.Administrator...), h.Create)
	g.PUT("/:id", guard.Require(auth.Administrator...), h.Update)
	g.PUT("/:id/operators", guard.Require(auth.Administrator...), h.SetOperators)
	g.DELETE("/:id", guard.Require(auth.Administrator...), h.Delete)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apperr.Write(c, apperr.Validation("airlineId", "Invalid airline id."))
		return 0, false
	}
	return id, true
}

func (h *Handler) List(c *gin.Context) {
	airlines, err := h.service.List(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, airlines)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) Operators(c *gin.Context) {
	ops, err := h.service.Operators(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, ops)
}

// AirlineForOperator answers the operator's airline, or null when unassigned.
func (h *Handler) AirlineForOperator(c *gin.Context) {
	userID := c.Param("userId")
	if p, _ := auth.PrincipalFrom(c); !p.IsAdmin() && p.UserID != userID {
		apperr.Write(c, apperr.Forbidden("You can only view your own airline."))
		return
	}
	a, err := h.service.AirlineForOperator(c.Request.Context(), userID)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// Metrics godoc
// @Summary  Current-month metrics of an airline
// @Tags     airlines
// @Produce  json
// @Param    id path int true "Airline id"
// @Success  200 {object} Metrics
// @Failure  404 {object} apperr.Envelope
// @Router   /airlines/{id}/metrics [get]
func (h *Handler) Metrics(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.service.Metrics(c.Request.Context(), id)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) Create(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	id, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusCreated, map[string]any{"airlineId": id})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	if err := h.service.Update(c.Request.Context(), id, req); err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusOK, map[string]any{"airlineId": id})
}

type operatorsRequest struct {
	OperatorIDs []string `json:"operatorIds"`
}

func (h *Handler) SetOperators(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req operatorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	if err := h.service.SetOperators(c.Request.Context(), id, req.OperatorIDs); err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusOK, map[string]any{"airlineId": id})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		apperr.Write(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

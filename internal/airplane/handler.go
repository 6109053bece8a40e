package airplane

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
	g := router.Group("/airplanes")
	g.GET("", guard.Require(auth.Privileged...), h.List)
	g.GET("/:id", guard.Require(auth.Privileged...), h.Get)
	g.POST("", guard.Require(auth.Administrator...), h.Create)
	g.PUT("/:id", guard.Require(auth.Administrator...), h.Update)
	g.DELETE("/:id", guard.Require(auth.Administrator...), h.Delete)
	g.GET("/:id/seats", guard.Require(auth.Authenticated...), h.SeatData)
	g.GET("/:id/seat-configuration", guard.Require(auth.Administrator...), h.SeatConfiguration)
	g.PUT("/:id/seat-configuration", guard.Require(auth.Administrator...), h.UpdateSeatConfiguration)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apperr.Write(c, apperr.Validation("airplaneId", "Invalid airplane id."))
		return 0, false
	}
	return id, true
}

func (h *Handler) List(c *gin.Context) {
	airplanes, err := h.service.List(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, airplanes)
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

// Create godoc
// @Summary  Create an airplane with its seat layout
// @Tags     airplanes
// @Accept   json
// @Produce  json
// @Param    request body CreateRequest true "Airplane"
// @Success  201 {object} apperr.Success
// @Failure  400 {object} apperr.Envelope
// @Router   /airplanes [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	id, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusCreated, map[string]any{"airplaneId": id})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	if err := h.service.Update(c.Request.Context(), id, req); err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusOK, map[string]any{"airplaneId": id})
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

func (h *Handler) SeatData(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	data, err := h.service.SeatData(c.Request.Context(), id)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) SeatConfiguration(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	config, err := h.service.SeatConfiguration(c.Request.Context(), id)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, config)
}

type seatConfigurationRequest struct {
	SeatConfiguration []RowSeatClassMapping `json:"seatConfiguration" binding:"required,min=1,dive"`
}

func (h *Handler) UpdateSeatConfiguration(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req seatConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	if err := h.service.UpdateSeatConfiguration(c.Request.Context(), id, req.SeatConfiguration); err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusOK, map[string]any{"airplaneId": id})
}

package airport

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

type airportRequest struct {
	Code    string `json:"airportCode" binding:"required,len=3,alpha"`
	Name    string `json:"name" binding:"required,max=100"`
	City    string `json:"city" binding:"required,max=100"`
	Country string `json:"country" binding:"required,max=100"`
}

func (r airportRequest) toAirport() Airport {
	return Airport{Code: r.Code, Name: r.Name, City: r.City, Country: r.Country}
}

func (h *Handler) RegisterRoutes(router gin.IRouter, guard auth.Guard) {
	g := router.Group("/airports")
	g.GET("", h.List)
	g.GET("/:code", guard.Require(auth.Privileged...), h.Get)
	g.POST("", guard.Require(auth.Administrator...), h.Create)
	g.PUT("/:code", guard.Require(auth.Administrator...), h.Update)
	g.DELETE("/:code", guard.Require(auth.Administrator...), h.Delete)
}

// List godoc
// @Summary  List airports
// @Tags     airports
// @Produce  json
// @Success  200 {array} Airport
// @Router   /airports [get]
func (h *Handler) List(c *gin.Context) {
	airports, err := h.service.List(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, airports)
}

func (h *Handler) Get(c *gin.Context) {
	a, err := h.service.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// Create godoc
// @Summary  Create an airport
// @Tags     airports
// @Accept   json
// @Produce  json
// @Param    request body airportRequest true "Airport"
// @Success  201 {object} apperr.Success
// @Failure  400 {object} apperr.Envelope
// @Router   /airports [post]
func (h *Handler) Create(c *gin.Context) {
	var req airportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), req.toAirport()); err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusCreated, map[string]any{"airportCode": normalize(req.Code)})
}

func (h *Handler) Update(c *gin.Context) {
	var req airportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	if err := h.service.Update(c.Request.Context(), c.Param("code"), req.toAirport()); err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusOK, map[string]any{"airportCode": normalize(req.Code)})
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("code")); err != nil {
		apperr.Write(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

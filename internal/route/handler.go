package route

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
	routes := router.Group("/routes")
	routes.GET("", guard.Require(auth.AirlineOperator...), h.List)
	routes.GET("/search", h.Search)
	routes.GET("/airline/:airlineId", guard.Require(auth.AirlineOperator...), h.ListForAirline)
	routes.GET("/:id", h.Get)
	routes.GET("/:id/booking", guard.Require(auth.Authenticated...), h.BookingData)
	routes.POST("", guard.Require(auth.AirlineOperator...), h.Create)
	routes.DELETE("/:id", guard.Require(auth.AirlineOperator...), h.Delete)
	routes.DELETE("/group/:groupId", guard.Require(auth.AirlineOperator...), h.DeleteGroup)

	flights := router.Group("/flights")
	flights.GET("", guard.Require(auth.AirlineOperator...), h.ListFlights)
	flights.GET("/airline/:airlineId", guard.Require(auth.AirlineOperator...), h.ListFlightsForAirline)
	flights.POST("/:id/delay", guard.Require(auth.AirlineOperator...), h.UpdateDelay)
}

func param(c *gin.Context, name, field string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		apperr.Write(c, apperr.Validation(field, "Invalid %s.", field))
		return 0, false
	}
	return id, true
}

// Search godoc
// @Summary  Search routes with availability and pricing
// @Tags     routes
// @Produce  json
// @Param    departureAirportCode query string true  "Departure airport code"
// @Param    arrivalAirportCode   query string true  "Arrival airport code"
// @Param    departureDate        query string true  "YYYY-MM-DD"
// @Param    isRoundTrip          query bool   false "Round trip"
// @Param    returnDate           query string false "YYYY-MM-DD, required for round trips"
// @Param    seats                query int    false "Seats per leg" default(1)
// @Param    directFlightsOnly    query bool   false "Direct flights only"
// @Param    cabinClass           query int    false "Seat class id"
// @Param    sortBy               query string false "price, departureTime or duration"
// @Param    sortOrder            query string false "asc or desc"
// @Success  200 {object} SearchResponse
// @Failure  400 {object} apperr.Envelope
// @Router   /routes/search [get]
func (h *Handler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	resp, err := h.service.Search(c.Request.Context(), req)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) List(c *gin.Context) {
	routes, err := h.service.List(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, routes)
}

func (h *Handler) ListForAirline(c *gin.Context) {
	airlineID, ok := param(c, "airlineId", "airlineId")
	if !ok {
		return
	}
	routes, err := h.service.ListForAirline(c.Request.Context(), airlineID)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, routes)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := param(c, "id", "routeId")
	if !ok {
		return
	}
	rt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, rt)
}

func (h *Handler) BookingData(c *gin.Context) {
	id, ok := param(c, "id", "routeId")
	if !ok {
		return
	}
	data, err := h.service.BookingData(c.Request.Context(), id)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// Create godoc
// @Summary  Create a route, expanding repeating schedules for one year
// @Tags     routes
// @Accept   json
// @Produce  json
// @Param    request body CreateRequest true "Route"
// @Success  201 {object} apperr.Success
// @Failure  400 {object} apperr.Envelope
// @Router   /routes [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	res, err := h.service.CreateRoute(c.Request.Context(), req)
	if err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusCreated, map[string]any{
		"routeGroupId": res.RouteGroupID,
		"routeIds":     res.RouteIDs,
	})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := param(c, "id", "routeId")
	if !ok {
		return
	}
	if err := h.service.DeleteRoute(c.Request.Context(), id); err != nil {
		apperr.Write(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	groupID, ok := param(c, "groupId", "routeGroupId")
	if !ok {
		return
	}
	if err := h.service.DeleteRouteGroup(c.Request.Context(), groupID); err != nil {
		apperr.Write(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListFlights(c *gin.Context) {
	flights, err := h.service.ListFlights(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, flights)
}

func (h *Handler) ListFlightsForAirline(c *gin.Context) {
	airlineID, ok := param(c, "airlineId", "airlineId")
	if !ok {
		return
	}
	flights, err := h.service.ListFlightsForAirline(c.Request.Context(), airlineID)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, flights)
}

type delayRequest struct {
	Delay *int `json:"delay" binding:"required"`
}

// UpdateDelay godoc
// @Summary  Set the delay of a flight and notify booked passengers
// @Tags     flights
// @Accept   json
// @Produce  json
// @Param    id      path int          true "Flight id"
// @Param    request body delayRequest true "Delay in minutes"
// @Success  200 {object} apperr.Success
// @Failure  400 {object} apperr.Envelope
// @Router   /flights/{id}/delay [post]
func (h *Handler) UpdateDelay(c *gin.Context) {
	id, ok := param(c, "id", "flightId")
	if !ok {
		return
	}
	var req delayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	f, err := h.service.UpdateFlightDelay(c.Request.Context(), id, *req.Delay)
	if err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusOK, map[string]any{
		"flightId":           f.ID,
		"delay":              *req.Delay,
		"effectiveDeparture": f.EffectiveDeparture(),
	})
}

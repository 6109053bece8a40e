package complaint

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
	g := router.Group("/complaints")
	g.GET("", guard.Require(auth.Administrator...), h.List)
	g.GET("/metrics", guard.Require(auth.Administrator...), h.Metrics)
	g.GET("/:id", guard.Require(auth.Administrator...), h.Get)
	g.POST("", guard.Require(auth.Authenticated...), h.Create)
	g.DELETE("/:id", guard.Require(auth.Administrator...), h.Delete)
	g.POST("/respond/:id", guard.Require(auth.Administrator...), h.Respond)
}

func complaintID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apperr.Write(c, apperr.Validation("complaintId", "Invalid complaint id."))
		return 0, false
	}
	return id, true
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	complaint, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// Metrics answers for the admin named by ?id=, defaulting to the caller.
func (h *Handler) Metrics(c *gin.Context) {
	adminID := c.Query("id")
	if adminID == "" {
		p, _ := auth.PrincipalFrom(c)
		adminID = p.UserID
	}
	m, err := h.service.Metrics(c.Request.Context(), adminID)
	if err != nil {
		apperr.WriteForm(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Create godoc
// @Summary  File a complaint
// @Tags     complaints
// @Accept   json
// @Produce  json
// @Param    request body CreateRequest true "Complaint"
// @Success  201 {object} apperr.Success
// @Failure  400 {object} apperr.Envelope
// @Router   /complaints [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}

	p, _ := auth.PrincipalFrom(c)
	switch {
	case req.ComplainantID == "":
		req.ComplainantID = p.UserID
	case req.ComplainantID != p.UserID && !p.IsAdmin():
		apperr.Write(c, apperr.Forbidden("You can only file complaints for yourself."))
		return
	}

	id, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusCreated, map[string]any{"complaintId": strconv.FormatInt(id, 10)})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusOK, nil)
}

func (h *Handler) Respond(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	if req.AdminID == "" {
		p, _ := auth.PrincipalFrom(c)
		req.AdminID = p.UserID
	}
	if err := h.service.Respond(c.Request.Context(), id, req); err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusOK, nil)
}

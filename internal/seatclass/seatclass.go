// Package seatclass exposes the cabin-class lookup table.
package seatclass

import (
	"context"
	"fmt"
	"net/http"

	"flightbooker/internal/apperr"
	"flightbooker/pkg/db"

	"github.com/gin-gonic/gin"
)

// Seeded ids. New classes are added as rows, not constants.
const (
	First          = 1
	Business       = 2
	PremiumEconomy = 3
	Economy        = 4
)

type SeatClass struct {
	ID   int    `json:"seatClassId"`
	Name string `json:"name"`
}

type Repository interface {
	List(ctx context.Context) ([]SeatClass, error)
}

type pgRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &pgRepository{db: q}
}

func (r *pgRepository) List(ctx context.Context) ([]SeatClass, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seat_class_id, name FROM seat_classes ORDER BY seat_class_id`)
	if err != nil {
		return nil, fmt.Errorf("list seat classes: %w", err)
	}
	defer rows.Close()

	classes := []SeatClass{}
	for rows.Next() {
		var sc SeatClass
		if err := rows.Scan(&sc.ID, &sc.Name); err != nil {
			return nil, fmt.Errorf("scan seat class: %w", err)
		}
		classes = append(classes, sc)
	}
	return classes, rows.Err()
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]SeatClass, error) {
	return s.repo.List(ctx)
}

// Names maps every known class id to its name.
func (s *Service) Names(ctx context.Context) (map[int]string, error) {
	classes, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(classes))
	for _, sc := range classes {
		names[sc.ID] = sc.Name
	}
	return names, nil
}

func (s *Service) Exists(ctx context.Context, id int) (bool, error) {
	names, err := s.Names(ctx)
	if err != nil {
		return false, err
	}
	_, ok := names[id]
	return ok, nil
}

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/seat-classes", h.List)
}

// List godoc
// @Summary  List cabin classes
// @Tags     seat-classes
// @Produce  json
// @Success  200 {array} SeatClass
// @Router   /seat-classes [get]
func (h *Handler) List(c *gin.Context) {
	classes, err := h.service.List(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, classes)
}

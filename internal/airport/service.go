package airport

import (
	"context"
	"errors"
	"strings"

	"flightbooker/internal/apperr"
	"flightbooker/pkg/logger"
)

type Service struct {
	repo   Repository
	logger logger.Client
}

func NewService(repo Repository, l logger.Client) *Service {
	return &Service{repo: repo, logger: l}
}

func (s *Service) List(ctx context.Context) ([]Airport, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, code string) (*Airport, error) {
	code = normalize(code)
	a, err := s.repo.Get(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("airportCode", "Airport with code %s not found.", code)
	}
	return a, err
}

func (s *Service) Create(ctx context.Context, a Airport) error {
	a.Code = normalize(a.Code)
	err := s.repo.Create(ctx, a)
	if errors.Is(err, ErrDuplicate) {
		return apperr.Validation("airportCode", "Airport with code %s already exists.", a.Code)
	}
	if err != nil {
		return err
	}
	s.logger.Info("airport_created", logger.Field{Key: "airport_code", Value: a.Code})
	return nil
}

func (s *Service) Update(ctx context.Context, code string, a Airport) error {
	code = normalize(code)
	a.Code = normalize(a.Code)
	err := s.repo.Update(ctx, code, a)
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("airportCode", "Airport with code %s not found.", code)
	case errors.Is(err, ErrDuplicate):
		return apperr.Validation("airportCode", "Airport with code %s already exists.", a.Code)
	}
	return err
}

func (s *Service) Delete(ctx context.Context, code string) error {
	code = normalize(code)
	err := s.repo.Delete(ctx, code)
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("airportCode", "Airport with code %s not found.", code)
	case errors.Is(err, ErrInUse):
		return apperr.State("airportCode", "Airport %s is used by scheduled flights and cannot be deleted.", code)
	}
	if err != nil {
		return err
	}
	s.logger.Info("airport_deleted", logger.Field{Key: "airport_code", Value: code})
	return nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

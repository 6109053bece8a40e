package user

import (
	"context"
	"errors"

	"flightbooker/internal/apperr"
	"flightbooker/internal/auth"
	"flightbooker/pkg/logger"
)

// Invalidator drops cached search results; deleting a user frees their seats.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type RoleRequest struct {
	Role auth.Role `json:"role" binding:"required,oneof=User AirlineOperator Admin"`
}

type Service struct {
	repo     Repository
	searches Invalidator
	logger   logger.Client
}

func NewService(repo Repository, searches Invalidator, l logger.Client) *Service {
	return &Service{repo: repo, searches: searches, logger: l}
}

func notFound(id string) error {
	return apperr.NotFound("userId", "User with id %s not found.", id)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound(id)
	}
	return u, err
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// RoleOf backs the auth middleware.
func (s *Service) RoleOf(ctx context.Context, id string) (auth.Role, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.Role == auth.RoleAdmin {
		return apperr.State("userId", "Cannot delete an administrator user.")
	}

	err = s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return notFound(id)
	}
	if err != nil {
		return err
	}
	s.searches.Invalidate(ctx)
	s.logger.Info("user_deleted", logger.Field{Key: "user_id", Value: id})
	return nil
}

// UpdateRole changes a non-admin's role. Nobody is promoted to Admin here.
func (s *Service) UpdateRole(ctx context.Context, id string, role auth.Role) (*User, error) {
	if !role.Valid() {
		return nil, apperr.Validation("role", "Unknown role %q.", role)
	}
	if role == auth.RoleAdmin {
		return nil, apperr.Validation("role", "Cannot set a user's role to administrator.")
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role == auth.RoleAdmin {
		return nil, apperr.State("role", "Cannot demote an administrator.")
	}
	if u.Role == role {
		return u, nil
	}

	err = s.repo.SetRole(ctx, id, u.Role, role)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.Conflict("role", "The role of user %s changed concurrently.", id)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("user_role_changed",
		logger.Field{Key: "user_id", Value: id},
		logger.Field{Key: "from", Value: string(u.Role)},
		logger.Field{Key: "to", Value: string(role)},
	)
	u.Role = role
	return u, nil
}

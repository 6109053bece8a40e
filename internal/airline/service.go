package airline

import (
	"context"
	"errors"
	"strings"
	"time"

	"flightbooker/internal/apperr"
	"flightbooker/pkg/logger"

	"github.com/jonboulle/clockwork"
)

// Invalidator drops cached search results after inventory changes.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type Request struct {
	Name         string   `json:"name" binding:"required,max=100"`
	PhoneNumber  string   `json:"phoneNumber" binding:"required,max=20"`
	EmailAddress string   `json:"emailAddress" binding:"required,email"`
	Country      string   `json:"country" binding:"required,max=100"`
	OperatorIDs  []string `json:"operatorIds"`
}

type Service struct {
	repo     Repository
	searches Invalidator
	clock    clockwork.Clock
	location *time.Location
	logger   logger.Client
}

func NewService(repo Repository, searches Invalidator, clock clockwork.Clock, loc *time.Location, l logger.Client) *Service {
	return &Service{repo: repo, searches: searches, clock: clock, location: loc, logger: l}
}

func notFound(id int64) error {
	return apperr.NotFound("airlineId", "Airline with id %d not found.", id)
}

func (s *Service) checkOperators(ctx context.Context, ids []string) error {
	missing, err := s.repo.MissingOperators(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return apperr.NotFound("operatorIds", "Airline operator(s) %s not found.", strings.Join(missing, ", "))
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req Request) (int64, error) {
	if err := s.checkOperators(ctx, req.OperatorIDs); err != nil {
		return 0, err
	}
	id, err := s.repo.Create(ctx, Airline{
		Name:         req.Name,
		PhoneNumber:  req.PhoneNumber,
		EmailAddress: req.EmailAddress,
		Country:      req.Country,
	}, req.OperatorIDs)
	if err != nil {
		return 0, err
	}
	s.logger.Info("airline_created", logger.Field{Key: "airline_id", Value: id})
	return id, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Airline, error) {
	a, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound(id)
	}
	return a, err
}

func (s *Service) List(ctx context.Context) ([]Airline, error) {
	return s.repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, id int64, req Request) error {
	err := s.repo.Update(ctx, Airline{
		ID:           id,
		Name:         req.Name,
		PhoneNumber:  req.PhoneNumber,
		EmailAddress: req.EmailAddress,
		Country:      req.Country,
	})
	if errors.Is(err, ErrNotFound) {
		return notFound(id)
	}
	if err != nil {
		return err
	}
	if req.OperatorIDs != nil {
		return s.SetOperators(ctx, id, req.OperatorIDs)
	}
	return nil
}

// Delete removes the airline with its routes. Its operators become unassigned.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return notFound(id)
	}
	if err != nil {
		return err
	}
	s.searches.Invalidate(ctx)
	s.logger.Info("airline_deleted", logger.Field{Key: "airline_id", Value: id})
	return nil
}

func (s *Service) Operators(ctx context.Context) ([]Operator, error) {
	return s.repo.Operators(ctx)
}

// AirlineForOperator returns the operator's airline, or nil when unassigned.
func (s *Service) AirlineForOperator(ctx context.Context, userID string) (*Airline, error) {
	a, err := s.repo.OperatorAirline(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("userId", "User %s is not an airline operator.", userID)
	}
	return a, err
}

func (s *Service) SetOperators(ctx context.Context, airlineID int64, userIDs []string) error {
	if _, err := s.Get(ctx, airlineID); err != nil {
		return err
	}
	if err := s.checkOperators(ctx, userIDs); err != nil {
		return err
	}
	return s.repo.SetOperators(ctx, airlineID, userIDs)
}

// Metrics reports the current calendar month in the service location.
func (s *Service) Metrics(ctx context.Context, airlineID int64) (*Metrics, error) {
	if _, err := s.Get(ctx, airlineID); err != nil {
		return nil, err
	}
	now := s.clock.Now().In(s.location)
	from, to := monthBounds(now)
	return s.repo.Metrics(ctx, airlineID, from, to, now)
}

// monthBounds returns [first day of month, first day of next month) in t's location.
func monthBounds(t time.Time) (time.Time, time.Time) {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 1, 0)
}

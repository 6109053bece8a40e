package airplane

import (
	"context"
	"errors"

	"flightbooker/internal/apperr"
	"flightbooker/pkg/logger"
)

// ClassNames resolves the live seat-class table.
type ClassNames interface {
	Names(ctx context.Context) (map[int]string, error)
}

type CreateRequest struct {
	Brand             string                `json:"brand" binding:"required,max=100"`
	Model             string                `json:"model" binding:"required,max=100"`
	NrRows            int                   `json:"nrRows" binding:"required,min=1,max=200"`
	NrColumns         int                   `json:"nrColumns" binding:"required,min=1,max=26"`
	SeatConfiguration []RowSeatClassMapping `json:"seatConfiguration" binding:"required,min=1,dive"`
}

// UpdateRequest changes an airplane. Dimensions and SeatConfiguration are only
// applied when they differ from the stored layout.
type UpdateRequest struct {
	Brand             string                `json:"brand" binding:"required,max=100"`
	Model             string                `json:"model" binding:"required,max=100"`
	NrRows            int                   `json:"nrRows" binding:"required,min=1,max=200"`
	NrColumns         int                   `json:"nrColumns" binding:"required,min=1,max=26"`
	SeatConfiguration []RowSeatClassMapping `json:"seatConfiguration" binding:"omitempty,dive"`
}

type SeatData struct {
	AirplaneID        int64                 `json:"airplaneId"`
	NrRows            int                   `json:"nrRows"`
	NrColumns         int                   `json:"nrColumns"`
	Seats             []Seat                `json:"seats"`
	SeatConfiguration []RowSeatClassMapping `json:"seatConfiguration"`
}

type Service struct {
	repo    Repository
	classes ClassNames
	logger  logger.Client
}

func NewService(repo Repository, classes ClassNames, l logger.Client) *Service {
	return &Service{repo: repo, classes: classes, logger: l}
}

func notFound(id int64) error {
	return apperr.NotFound("airplaneId", "Airplane with id %d not found.", id)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (int64, error) {
	known, err := s.classes.Names(ctx)
	if err != nil {
		return 0, err
	}
	seats, err := GenerateSeats(req.NrRows, req.NrColumns, req.SeatConfiguration, known)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.Create(ctx, Airplane{
		Brand:     req.Brand,
		Model:     req.Model,
		NrRows:    req.NrRows,
		NrColumns: req.NrColumns,
	}, seats)
	if err != nil {
		return 0, err
	}

	s.logger.Info("airplane_created",
		logger.Field{Key: "airplane_id", Value: id},
		logger.Field{Key: "seats", Value: len(seats)},
	)
	return id, nil
}

func (s *Service) List(ctx context.Context) ([]Airplane, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*Airplane, error) {
	a, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound(id)
	}
	return a, err
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	layoutChanged := req.NrRows != current.NrRows || req.NrColumns != current.NrColumns
	if !layoutChanged && len(req.SeatConfiguration) > 0 {
		seats, err := s.repo.Seats(ctx, id)
		if err != nil {
			return err
		}
		layoutChanged = !SameLayout(seats, req.SeatConfiguration)
	}
	if !layoutChanged {
		err := s.repo.UpdateDetails(ctx, id, req.Brand, req.Model)
		if errors.Is(err, ErrNotFound) {
			return notFound(id)
		}
		return err
	}

	inUse, err := s.repo.InUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return apperr.State("airplaneId", "Airplane %d is used by scheduled flights; its layout cannot change.", id)
	}

	mappings := req.SeatConfiguration
	if len(mappings) == 0 {
		return apperr.Validation("seatConfiguration", "A seat configuration is required when the dimensions change.")
	}
	known, err := s.classes.Names(ctx)
	if err != nil {
		return err
	}
	seats, err := GenerateSeats(req.NrRows, req.NrColumns, mappings, known)
	if err != nil {
		return err
	}

	err = s.repo.ReplaceLayout(ctx, Airplane{
		ID:        id,
		Brand:     req.Brand,
		Model:     req.Model,
		NrRows:    req.NrRows,
		NrColumns: req.NrColumns,
	}, seats)
	switch {
	case errors.Is(err, ErrNotFound):
		return notFound(id)
	case errors.Is(err, ErrInUse):
		return apperr.State("airplaneId", "Airplane %d is used by scheduled flights; its layout cannot change.", id)
	}
	return err
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	inUse, err := s.repo.InUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return apperr.State("airplaneId", "Airplane %d is used by scheduled flights and cannot be deleted.", id)
	}

	err = s.repo.Delete(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return notFound(id)
	case errors.Is(err, ErrInUse):
		return apperr.State("airplaneId", "Airplane %d is used by scheduled flights and cannot be deleted.", id)
	}
	return err
}

func (s *Service) SeatData(ctx context.Context, id int64) (*SeatData, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	seats, err := s.repo.Seats(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SeatData{
		AirplaneID:        a.ID,
		NrRows:            a.NrRows,
		NrColumns:         a.NrColumns,
		Seats:             seats,
		SeatConfiguration: Configuration(seats),
	}, nil
}

func (s *Service) SeatConfiguration(ctx context.Context, id int64) ([]RowSeatClassMapping, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	seats, err := s.repo.Seats(ctx, id)
	if err != nil {
		return nil, err
	}
	return Configuration(seats), nil
}

// UpdateSeatConfiguration reassigns the classes of existing seats. Flights
// already scheduled on the airplane keep the classes they were created with.
func (s *Service) UpdateSeatConfiguration(ctx context.Context, id int64, mappings []RowSeatClassMapping) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	known, err := s.classes.Names(ctx)
	if err != nil {
		return err
	}
	classes, err := rowClasses(a.NrRows, mappings, known)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateSeatClasses(ctx, id, classes); err != nil {
		return err
	}
	s.logger.Info("airplane_seat_configuration_updated", logger.Field{Key: "airplane_id", Value: id})
	return nil
}

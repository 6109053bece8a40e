package reservation

import (
	"context"
	"errors"
	"time"

	"flightbooker/internal/apperr"
	"flightbooker/internal/notification"
	"flightbooker/pkg/db"
	"flightbooker/pkg/idgen"
	"flightbooker/pkg/logger"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "flightbooker/internal/reservation"

// Invalidator drops cached search results after seats change hands.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type BookingNotifier interface {
	BookingConfirmed(n notification.BookingConfirmation)
}

// Created is the outcome of a successful booking.
type Created struct {
	ID        int64           `json:"reservationId,string"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

type Service struct {
	repo      Repository
	ids       idgen.Generator
	searches  Invalidator
	notifier  BookingNotifier
	clock     clockwork.Clock
	location  *time.Location
	logger    logger.Client
	tracer    trace.Tracer
	created   metric.Int64Counter
	conflicts metric.Int64Counter
}

func NewService(repo Repository, ids idgen.Generator, searches Invalidator, notifier BookingNotifier,
	clock clockwork.Clock, loc *time.Location, l logger.Client) *Service {
	meter := otel.Meter(instrumentation)
	return &Service{
		repo:      repo,
		ids:       ids,
		searches:  searches,
		notifier:  notifier,
		clock:     clock,
		location:  loc,
		logger:    l,
		tracer:    otel.Tracer(instrumentation),
		created:   counter(meter, l, "reservations.created", "Reservations committed"),
		conflicts: counter(meter, l, "reservations.seat_conflicts", "Bookings rejected because a seat was taken"),
	}
}

func counter(meter metric.Meter, l logger.Client, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		l.Warn("metric_init_failed", logger.Field{Key: "metric", Value: name}, logger.Err(err))
		return noop.Int64Counter{}
	}
	return c
}

func notFound(id int64) error {
	return apperr.NotFound("reservationId", "Reservation with id %d not found.", id)
}

// Create books every selected seat for the client or nothing at all.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.create",
		trace.WithAttributes(attribute.Int64("route.id", req.RouteID), attribute.Int("reservation.seats", req.seatCount())))
	defer span.End()

	if req.seatCount() == 0 {
		return nil, apperr.Validation("flightSeats", "At least one seat must be selected.")
	}

	client, err := s.repo.Client(ctx, req.ClientID)
	if errors.Is(err, ErrClientNotFound) {
		return nil, apperr.NotFound("clientId", "User with id %s not found.", req.ClientID)
	}
	if err != nil {
		return nil, err
	}
	route, err := s.repo.Route(ctx, req.RouteID)
	if errors.Is(err, ErrRouteNotFound) {
		return nil, apperr.NotFound("routeId", "Route with id %d not found.", req.RouteID)
	}
	if err != nil {
		return nil, err
	}

	id := s.ids.GenerateID()
	total, err := s.repo.Create(ctx, NewReservation{
		ID:        id,
		ClientID:  client.ID,
		RouteID:   route.ID,
		CreatedAt: s.clock.Now(),
		Seats:     req.FlightSeats,
	})
	if err != nil {
		return nil, s.createError(ctx, span, req, err)
	}

	s.created.Add(ctx, 1)
	s.searches.Invalidate(ctx)
	s.logger.Info("reservation_created",
		logger.Field{Key: "reservation_id", Value: id},
		logger.Field{Key: "route_id", Value: route.ID},
		logger.Field{Key: "client_id", Value: client.ID},
		logger.Field{Key: "seats", Value: req.seatCount()},
		logger.Field{Key: "total_cost", Value: total.String()},
	)
	s.confirm(ctx, id, client, route, total)

	return &Created{ID: id, TotalCost: total}, nil
}

func (s *Service) createError(ctx context.Context, span trace.Span, req CreateRequest, err error) error {
	var seatErr *SeatError
	if !errors.As(err, &seatErr) && (db.IsDeadlock(err) || db.IsSerializationFailure(err)) {
		s.conflicts.Add(ctx, 1)
		s.logger.Warn("reservation_lock_conflict", logger.Field{Key: "route_id", Value: req.RouteID}, logger.Err(err))
		return apperr.Conflict("flightSeats", "The selected seats are no longer available.")
	}
	if seatErr == nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.Int64("flight.id", seatErr.FlightID), attribute.Int64("seat.id", seatErr.AirplaneSeatID))
	if errors.Is(err, ErrSeatTaken) {
		s.conflicts.Add(ctx, 1)
		s.logger.Warn("reservation_seat_conflict",
			logger.Field{Key: "route_id", Value: req.RouteID},
			logger.Field{Key: "flight_id", Value: seatErr.FlightID},
			logger.Field{Key: "airplane_seat_id", Value: seatErr.AirplaneSeatID},
		)
		return apperr.Conflict("flightSeats", "Seat %d on flight %d is no longer available.",
			seatErr.AirplaneSeatID, seatErr.FlightID)
	}
	return apperr.NotFound("flightSeats", "No seat with id %d on flight %d of route %d.",
		seatErr.AirplaneSeatID, seatErr.FlightID, req.RouteID)
}

// confirm sends the booking email. The reservation stands even if this fails.
func (s *Service) confirm(ctx context.Context, id int64, client *Client, route *RouteSummary, total decimal.Decimal) {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		s.logger.Error("reservation_confirmation_skipped", logger.Field{Key: "reservation_id", Value: id}, logger.Err(err))
		return
	}

	legs := make([]notification.BookingLeg, len(res.Seats))
	for i, g := range res.Seats {
		legs[i] = notification.BookingLeg{
			DepartureAirportCode: g.DepartureAirportCode,
			ArrivalAirportCode:   g.ArrivalAirportCode,
			DepartureTime:        g.DepartureTime.In(s.location),
			ArrivalTime:          g.ArrivalTime.In(s.location),
			Seats:                g.ReservedSeats,
		}
	}
	s.notifier.BookingConfirmed(notification.BookingConfirmation{
		ToAddress:     client.Email,
		ToName:        client.FirstName + " " + client.LastName,
		ReservationID: id,
		RouteName:     routeName(route.DepartureAirportCode, route.ArrivalAirportCode),
		TotalCost:     total,
		Legs:          legs,
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*Reservation, error) {
	res, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound(id)
	}
	return res, err
}

func (s *Service) List(ctx context.Context) ([]Reservation, error) {
	return s.repo.List(ctx, nil)
}

func (s *Service) ListForAirline(ctx context.Context, airlineID int64) ([]Reservation, error) {
	ok, err := s.repo.AirlineExists(ctx, airlineID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("airlineId", "Airline with id %d not found.", airlineID)
	}
	return s.repo.List(ctx, &airlineID)
}

func (s *Service) ListForClient(ctx context.Context, clientID string) ([]Reservation, error) {
	return s.repo.ListForClient(ctx, clientID)
}

package route

import (
	"context"
	"errors"
	"time"

	"flightbooker/internal/apperr"
	"flightbooker/internal/notification"
	"flightbooker/pkg/logger"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "flightbooker/internal/route"

// DelayNotifier emails a passenger about a changed departure.
type DelayNotifier interface {
	FlightDelayed(n notification.FlightDelay)
}

type Service struct {
	repo      Repository
	searches  *SearchCache
	notifier  DelayNotifier
	clock     clockwork.Clock
	location  *time.Location
	logger    logger.Client
	tracer    trace.Tracer
	generated metric.Int64Counter
}

func NewService(repo Repository, searches *SearchCache, notifier DelayNotifier, clock clockwork.Clock, loc *time.Location, l logger.Client) *Service {
	generated, err := otel.Meter(instrumentation).Int64Counter("routes.generated",
		metric.WithDescription("Routes written by route creation, one per occurrence"))
	if err != nil {
		l.Warn("metric_init_failed", logger.Field{Key: "metric", Value: "routes.generated"}, logger.Err(err))
		generated = noop.Int64Counter{}
	}
	return &Service{
		repo:      repo,
		searches:  searches,
		notifier:  notifier,
		clock:     clock,
		location:  loc,
		logger:    l,
		tracer:    otel.Tracer(instrumentation),
		generated: generated,
	}
}

func routeNotFound(id int64) error {
	return apperr.NotFound("routeId", "Route with id %d not found.", id)
}

func flightNotFound(id int64) error {
	return apperr.NotFound("flightId", "Flight with id %d not found.", id)
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// CreateRoute validates the request, expands it into its occurrences and
// writes the whole graph at once.
func (s *Service) CreateRoute(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "route.create")
	defer span.End()

	if err := validateCreate(ctx, &req, s.repo); err != nil {
		failSpan(span, err)
		return nil, err
	}

	start := req.Flights[0].DepartureTime.In(s.location)
	routes := expand(req, Offsets(start, req.Repeating, req.Frequency))
	span.SetAttributes(
		attribute.Int64("airline.id", req.AirlineID),
		attribute.Int("route.occurrences", len(routes)),
		attribute.Int("route.legs", len(req.Flights)),
	)

	res, err := s.repo.CreateRoutes(ctx, routes)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}

	s.generated.Add(ctx, int64(len(res.RouteIDs)))
	s.searches.Invalidate(ctx)
	s.logger.Info("routes_created",
		logger.Field{Key: "airline_id", Value: req.AirlineID},
		logger.Field{Key: "route_group_id", Value: res.RouteGroupID},
		logger.Field{Key: "routes", Value: len(res.RouteIDs)},
	)
	return res, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Route, error) {
	rt, err := s.repo.GetRoute(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, routeNotFound(id)
	}
	return rt, err
}

func (s *Service) List(ctx context.Context) ([]Route, error) {
	return s.repo.ListRoutes(ctx, nil)
}

func (s *Service) ListForAirline(ctx context.Context, airlineID int64) ([]Route, error) {
	if err := s.requireAirline(ctx, airlineID); err != nil {
		return nil, err
	}
	return s.repo.ListRoutes(ctx, &airlineID)
}

func (s *Service) BookingData(ctx context.Context, id int64) (*BookingData, error) {
	data, err := s.repo.BookingData(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, routeNotFound(id)
	}
	return data, err
}

func (s *Service) ListFlights(ctx context.Context) ([]Flight, error) {
	return s.repo.ListFlights(ctx, nil)
}

func (s *Service) ListFlightsForAirline(ctx context.Context, airlineID int64) ([]Flight, error) {
	if err := s.requireAirline(ctx, airlineID); err != nil {
		return nil, err
	}
	return s.repo.ListFlights(ctx, &airlineID)
}

func (s *Service) requireAirline(ctx context.Context, airlineID int64) error {
	ok, err := s.repo.AirlineExists(ctx, airlineID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("airlineId", "Airline with id %d not found.", airlineID)
	}
	return nil
}

func (s *Service) DeleteRoute(ctx context.Context, id int64) error {
	err := s.repo.DeleteRoute(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return routeNotFound(id)
	}
	if err != nil {
		return err
	}
	s.searches.Invalidate(ctx)
	s.logger.Info("route_deleted", logger.Field{Key: "route_id", Value: id})
	return nil
}

func (s *Service) DeleteRouteGroup(ctx context.Context, groupID int64) error {
	err := s.repo.DeleteRouteGroup(ctx, groupID)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("routeGroupId", "Route group with id %d not found.", groupID)
	}
	if err != nil {
		return err
	}
	s.searches.Invalidate(ctx)
	s.logger.Info("route_group_deleted", logger.Field{Key: "route_group_id", Value: groupID})
	return nil
}

// UpdateFlightDelay replaces the delay of a flight and tells every booked
// passenger the new departure time. A negative delay moves the departure
// earlier.
func (s *Service) UpdateFlightDelay(ctx context.Context, flightID int64, minutes int) (*Flight, error) {
	ctx, span := s.tracer.Start(ctx, "flight.update_delay",
		trace.WithAttributes(attribute.Int64("flight.id", flightID), attribute.Int("flight.delay", minutes)))
	defer span.End()

	f, err := s.repo.SetFlightDelay(ctx, flightID, minutes)
	if errors.Is(err, ErrFlightNotFound) {
		return nil, flightNotFound(flightID)
	}
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	s.searches.Invalidate(ctx)

	passengers, err := s.repo.BookedPassengers(ctx, flightID)
	if err != nil {
		// The delay is stored; only the emails are lost.
		s.logger.Error("delay_passengers_lookup_failed", logger.Field{Key: "flight_id", Value: flightID}, logger.Err(err))
		return f, nil
	}

	departure := f.EffectiveDeparture().In(s.location)
	for _, p := range passengers {
		s.notifier.FlightDelayed(notification.FlightDelay{
			ToAddress:            p.Email,
			ToName:               p.FirstName + " " + p.LastName,
			FlightID:             f.ID,
			DepartureAirportCode: f.DepartureAirportCode,
			ArrivalAirportCode:   f.ArrivalAirportCode,
			DelayMinutes:         minutes,
			NewDepartureTime:     departure,
		})
	}
	s.logger.Info("flight_delay_updated",
		logger.Field{Key: "flight_id", Value: flightID},
		logger.Field{Key: "delay_minutes", Value: minutes},
		logger.Field{Key: "notified", Value: len(passengers)},
	)
	return f, nil
}

// criteria validates the request and resolves its dates to days in the
// service location. Every invalid field is reported at once.
func (s *Service) criteria(ctx context.Context, req SearchRequest) (Criteria, error) {
	cr := Criteria{
		DepartureAirportCode: normalizeCode(req.DepartureAirportCode),
		ArrivalAirportCode:   normalizeCode(req.ArrivalAirportCode),
		IsRoundTrip:          req.IsRoundTrip,
		Seats:                req.Seats,
		DirectOnly:           req.DirectFlightsOnly,
		CabinClass:           req.CabinClass,
	}
	if cr.Seats < 1 {
		cr.Seats = 1
	}

	var errs []*apperr.Error
	day, err := time.ParseInLocation(dateLayout, req.DepartureDate, s.location)
	if err != nil {
		errs = append(errs, apperr.Validation("departureDate", "Departure date must be in the format YYYY-MM-DD."))
	}
	cr.DepartureDay = day

	if req.IsRoundTrip {
		switch ret, err := time.ParseInLocation(dateLayout, req.ReturnDate, s.location); {
		case req.ReturnDate == "":
			errs = append(errs, apperr.Validation("returnDate", "A return date is required for a round trip."))
		case err != nil:
			errs = append(errs, apperr.Validation("returnDate", "Return date must be in the format YYYY-MM-DD."))
		case !day.IsZero() && ret.Before(day):
			errs = append(errs, apperr.Validation("returnDate", "The return date cannot be before the departure date."))
		default:
			cr.ReturnDay = ret
		}
	}

	if req.CabinClass != nil {
		ids, err := s.repo.SeatClassIDs(ctx)
		if err != nil {
			return Criteria{}, err
		}
		known := false
		for _, id := range ids {
			known = known || id == *req.CabinClass
		}
		if !known {
			errs = append(errs, apperr.Validation("cabinClass", "Seat class %d does not exist.", *req.CabinClass))
		}
	}

	if err := apperr.Fields(errs...); err != nil {
		return Criteria{}, err
	}
	return cr, nil
}

// Search answers matching routes for the criteria. Matching results are
// cached per inventory version; sorting runs on every request.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	ctx, span := s.tracer.Start(ctx, "route.search")
	defer span.End()

	cr, err := s.criteria(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("search.from", cr.DepartureAirportCode),
		attribute.String("search.to", cr.ArrivalAirportCode),
		attribute.Int("search.seats", cr.Seats),
	)

	started := s.clock.Now()
	key := s.searches.Key(ctx, cr)
	results, hit := s.searches.Get(ctx, key)
	if hit {
		s.logger.Debug("search_cache_hit", logger.Field{Key: "cache_key", Value: key})
	} else {
		candidates, err := s.repo.SearchCandidates(ctx, cr.DepartureAirportCode, cr.DepartureDay, cr.DepartureDay.AddDate(0, 0, 1))
		if err != nil {
			failSpan(span, err)
			return nil, err
		}
		results = Match(candidates, cr)
		s.searches.Store(key, results)
	}
	span.SetAttributes(attribute.Bool("search.cache_hit", hit), attribute.Int("search.results", len(results)))

	results = s.applySorting(results, req.SortBy, req.SortOrder)
	return &SearchResponse{
		Results: results,
		Metadata: SearchMetadata{
			TotalResults: len(results),
			CacheHit:     hit,
			CacheKey:     key,
			SearchTimeMs: s.clock.Since(started).Milliseconds(),
		},
	}, nil
}

package route

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"flightbooker/pkg/db"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Lookups
	// CreateRoutes writes every route with its prices, flights and seat
	// snapshots in one transaction under a fresh route group id.
	CreateRoutes(ctx context.Context, routes []NewRoute) (*CreateResult, error)
	GetRoute(ctx context.Context, id int64) (*Route, error)
	// ListRoutes lists all routes, or those of one airline when airlineID is set.
	ListRoutes(ctx context.Context, airlineID *int64) ([]Route, error)
	BookingData(ctx context.Context, id int64) (*BookingData, error)
	ListFlights(ctx context.Context, airlineID *int64) ([]Flight, error)
	DeleteRoute(ctx context.Context, id int64) error
	DeleteRouteGroup(ctx context.Context, groupID int64) error
	SetFlightDelay(ctx context.Context, flightID int64, minutes int) (*Flight, error)
	BookedPassengers(ctx context.Context, flightID int64) ([]Passenger, error)
	// SearchCandidates returns routes leaving depCode in [from, to) with their
	// legs, free seat counts and prices.
	SearchCandidates(ctx context.Context, depCode string, from, to time.Time) ([]Candidate, error)
}

type pgRepository struct {
	db db.SQLExecutor
}

func NewRepository(exec db.SQLExecutor) Repository {
	return &pgRepository{db: exec}
}

func (r *pgRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("exists check: %w", err)
	}
	return ok, nil
}

func (r *pgRepository) AirlineExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM airlines WHERE id = $1)`, id)
}

func (r *pgRepository) AirplaneExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM airplanes WHERE id = $1)`, id)
}

func (r *pgRepository) AirportExists(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM airports WHERE code = $1)`, code)
}

func (r *pgRepository) SeatClassIDs(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seat_class_id FROM seat_classes ORDER BY seat_class_id`)
	if err != nil {
		return nil, fmt.Errorf("list seat classes: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seat class: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgRepository) CreateRoutes(ctx context.Context, routes []NewRoute) (*CreateResult, error) {
	res := &CreateResult{RouteIDs: make([]int64, 0, len(routes))}
	err := r.db.WithTransaction(ctx, sql.LevelReadCommitted, func(ctx context.Context, tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT nextval('route_group_id_seq')`).Scan(&res.RouteGroupID); err != nil {
			return fmt.Errorf("next route group id: %w", err)
		}
		for _, nr := range routes {
			id, err := insertRoute(ctx, tx, res.RouteGroupID, nr)
			if err != nil {
				return err
			}
			res.RouteIDs = append(res.RouteIDs, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func insertRoute(ctx context.Context, tx *sql.Tx, groupID int64, nr NewRoute) (int64, error) {
	var freq sql.NullString
	if nr.Frequency != nil {
		freq = sql.NullString{String: string(*nr.Frequency), Valid: true}
	}

	var routeID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO routes (airline_id, departure_airport_code, arrival_airport_code,
			departure_time, arrival_time, is_repeating, frequency, route_group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		nr.AirlineID, nr.DepartureAirportCode, nr.ArrivalAirportCode,
		nr.DepartureTime, nr.ArrivalTime, nr.IsRepeating, freq, groupID,
	).Scan(&routeID)
	if err != nil {
		return 0, fmt.Errorf("insert route: %w", err)
	}

	classIDs := make([]int32, 0, len(nr.Prices))
	prices := make([]string, 0, len(nr.Prices))
	for _, id := range sortedClassIDs(nr.Prices) {
		classIDs = append(classIDs, int32(id))
		prices = append(prices, nr.Prices[id].String())
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO route_seat_classes (route_id, seat_class_id, price)
		SELECT $1, p.seat_class_id, p.price::numeric
		FROM unnest($2::int[], $3::text[]) AS p(seat_class_id, price)`,
		routeID, classIDs, prices,
	); err != nil {
		return 0, fmt.Errorf("insert prices of route %d: %w", routeID, err)
	}

	for i, leg := range nr.Legs {
		var flightID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO flights (route_id, leg_index, airplane_id, departure_airport_code,
				arrival_airport_code, departure_time, arrival_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			routeID, i, leg.AirplaneID, leg.DepartureAirportCode,
			leg.ArrivalAirportCode, leg.DepartureTime, leg.ArrivalTime,
		).Scan(&flightID)
		if err != nil {
			return 0, fmt.Errorf("insert flight %d of route %d: %w", i, routeID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO flight_seats (flight_id, airplane_seat_id, seat_class_id, seat_row, seat_column)
			SELECT $1, id, seat_class_id, seat_row, seat_column
			FROM airplane_seats WHERE airplane_id = $2`,
			flightID, leg.AirplaneID,
		); err != nil {
			return 0, fmt.Errorf("snapshot seats of flight %d: %w", flightID, err)
		}
	}
	return routeID, nil
}

const selectRoute = `
	SELECT r.id, r.airline_id, a.name, r.departure_airport_code, r.arrival_airport_code,
		r.departure_time, r.arrival_time, r.is_repeating, r.frequency, r.route_group_id,
		(SELECT COUNT(*) FROM flights f WHERE f.route_id = r.id),
		EXISTS (SELECT 1 FROM reservations res WHERE res.route_id = r.id)
	FROM routes r JOIN airlines a ON a.id = r.airline_id`

func scanRoute(row interface{ Scan(...any) error }) (Route, error) {
	var (
		rt   Route
		freq sql.NullString
	)
	err := row.Scan(&rt.ID, &rt.AirlineID, &rt.AirlineName, &rt.DepartureAirportCode, &rt.ArrivalAirportCode,
		&rt.DepartureTime, &rt.ArrivalTime, &rt.IsRepeating, &freq, &rt.RouteGroupID,
		&rt.FlightCount, &rt.HasReservations)
	if freq.Valid {
		f := Frequency(freq.String)
		rt.Frequency = &f
	}
	rt.IsTransit = rt.FlightCount > 1
	rt.Prices = []Price{}
	return rt, err
}

func (r *pgRepository) GetRoute(ctx context.Context, id int64) (*Route, error) {
	rt, err := scanRoute(r.db.QueryRowContext(ctx, selectRoute+` WHERE r.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get route %d: %w", id, err)
	}

	prices, err := r.prices(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	rt.Prices = prices[id]

	flights, err := r.flights(ctx, `WHERE f.route_id = $1`, id)
	if err != nil {
		return nil, err
	}
	rt.Flights = flights
	return &rt, nil
}

func (r *pgRepository) ListRoutes(ctx context.Context, airlineID *int64) ([]Route, error) {
	rows, err := r.db.QueryContext(ctx,
		selectRoute+` WHERE ($1::bigint IS NULL OR r.airline_id = $1) ORDER BY r.departure_time, r.id`,
		nullID(airlineID))
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	routes := []Route{}
	var ids []int64
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		routes = append(routes, rt)
		ids = append(ids, rt.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return routes, nil
	}

	prices, err := r.prices(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range routes {
		if p, ok := prices[routes[i].ID]; ok {
			routes[i].Prices = p
		}
	}
	return routes, nil
}

func (r *pgRepository) prices(ctx context.Context, routeIDs []int64) (map[int64][]Price, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rsc.route_id, rsc.seat_class_id, sc.name, rsc.price
		FROM route_seat_classes rsc JOIN seat_classes sc ON sc.seat_class_id = rsc.seat_class_id
		WHERE rsc.route_id = ANY($1)
		ORDER BY rsc.route_id, rsc.seat_class_id`, routeIDs)
	if err != nil {
		return nil, fmt.Errorf("list route prices: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]Price, len(routeIDs))
	for rows.Next() {
		var (
			routeID int64
			p       Price
		)
		if err := rows.Scan(&routeID, &p.SeatClassID, &p.SeatClassName, &p.Price); err != nil {
			return nil, fmt.Errorf("scan route price: %w", err)
		}
		out[routeID] = append(out[routeID], p)
	}
	return out, rows.Err()
}

const selectFlight = `
	SELECT f.id, f.route_id, r.airline_id, f.airplane_id, f.departure_airport_code,
		f.arrival_airport_code, f.departure_time, f.arrival_time, f.delay_minutes
	FROM flights f JOIN routes r ON r.id = f.route_id `

func scanFlight(row interface{ Scan(...any) error }) (Flight, error) {
	var (
		f     Flight
		delay sql.NullInt32
	)
	err := row.Scan(&f.ID, &f.RouteID, &f.AirlineID, &f.AirplaneID, &f.DepartureAirportCode,
		&f.ArrivalAirportCode, &f.DepartureTime, &f.ArrivalTime, &delay)
	if delay.Valid {
		d := int(delay.Int32)
		f.DelayMinutes = &d
	}
	f.Duration = minutesBetween(f.DepartureTime, f.ArrivalTime)
	return f, err
}

func (r *pgRepository) flights(ctx context.Context, where string, args ...any) ([]Flight, error) {
	rows, err := r.db.QueryContext(ctx, selectFlight+where+` ORDER BY f.departure_time, f.route_id, f.leg_index`, args...)
	if err != nil {
		return nil, fmt.Errorf("list flights: %w", err)
	}
	defer rows.Close()

	flights := []Flight{}
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *pgRepository) ListFlights(ctx context.Context, airlineID *int64) ([]Flight, error) {
	return r.flights(ctx, `WHERE ($1::bigint IS NULL OR r.airline_id = $1)`, nullID(airlineID))
}

func (r *pgRepository) BookingData(ctx context.Context, id int64) (*BookingData, error) {
	rt, err := r.GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}

	data := &BookingData{Route: *rt, Legs: make([]BookingLeg, 0, len(rt.Flights))}
	index := make(map[int64]int, len(rt.Flights))
	flightIDs := make([]int64, 0, len(rt.Flights))
	for _, f := range rt.Flights {
		index[f.ID] = len(data.Legs)
		data.Legs = append(data.Legs, BookingLeg{Flight: f, Seats: []BookingSeat{}})
		flightIDs = append(flightIDs, f.ID)
	}
	data.Flights = nil

	rows, err := r.db.QueryContext(ctx, `
		SELECT flight_id, airplane_seat_id, seat_row, seat_column, seat_class_id, reservation_id IS NOT NULL
		FROM flight_seats WHERE flight_id = ANY($1)
		ORDER BY flight_id, seat_row, seat_column`, flightIDs)
	if err != nil {
		return nil, fmt.Errorf("list seats of route %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			flightID int64
			s        BookingSeat
		)
		if err := rows.Scan(&flightID, &s.AirplaneSeatID, &s.Row, &s.Column, &s.SeatClassID, &s.IsReserved); err != nil {
			return nil, fmt.Errorf("scan flight seat: %w", err)
		}
		i := index[flightID]
		data.Legs[i].Seats = append(data.Legs[i].Seats, s)
	}
	return data, rows.Err()
}

func (r *pgRepository) DeleteRoute(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete route %d: %w", id, err)
	}
	return db.ExpectRows(res, ErrNotFound)
}

func (r *pgRepository) DeleteRouteGroup(ctx context.Context, groupID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM routes WHERE route_group_id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("delete route group %d: %w", groupID, err)
	}
	return db.ExpectRows(res, ErrNotFound)
}

func (r *pgRepository) SetFlightDelay(ctx context.Context, flightID int64, minutes int) (*Flight, error) {
	f, err := scanFlight(r.db.QueryRowContext(ctx, `
		UPDATE flights f SET delay_minutes = $2
		FROM routes r
		WHERE f.id = $1 AND r.id = f.route_id
		RETURNING f.id, f.route_id, r.airline_id, f.airplane_id, f.departure_airport_code,
			f.arrival_airport_code, f.departure_time, f.arrival_time, f.delay_minutes`,
		flightID, minutes,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFlightNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set delay of flight %d: %w", flightID, err)
	}
	return &f, nil
}

func (r *pgRepository) BookedPassengers(ctx context.Context, flightID int64) ([]Passenger, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT u.id, u.email, u.first_name, u.last_name
		FROM flight_seats fs
		JOIN reservations res ON res.id = fs.reservation_id
		JOIN users u ON u.id = res.client_id
		WHERE fs.flight_id = $1
		ORDER BY u.id`, flightID)
	if err != nil {
		return nil, fmt.Errorf("list passengers of flight %d: %w", flightID, err)
	}
	defer rows.Close()

	var out []Passenger
	for rows.Next() {
		var p Passenger
		if err := rows.Scan(&p.UserID, &p.Email, &p.FirstName, &p.LastName); err != nil {
			return nil, fmt.Errorf("scan passenger: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgRepository) SearchCandidates(ctx context.Context, depCode string, from, to time.Time) ([]Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.airline_id, a.name, r.departure_airport_code, r.arrival_airport_code,
			r.departure_time, r.arrival_time
		FROM routes r JOIN airlines a ON a.id = r.airline_id
		WHERE r.departure_airport_code = $1 AND r.departure_time >= $2 AND r.departure_time < $3
		ORDER BY r.departure_time, r.id`, depCode, from, to)
	if err != nil {
		return nil, fmt.Errorf("search routes: %w", err)
	}
	defer rows.Close()

	var (
		candidates []Candidate
		routeIDs   []int64
	)
	index := map[int64]int{}
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.RouteID, &c.AirlineID, &c.AirlineName, &c.DepartureAirportCode,
			&c.ArrivalAirportCode, &c.DepartureTime, &c.ArrivalTime); err != nil {
			return nil, fmt.Errorf("scan candidate route: %w", err)
		}
		c.Prices = map[int]decimal.Decimal{}
		index[c.RouteID] = len(candidates)
		candidates = append(candidates, c)
		routeIDs = append(routeIDs, c.RouteID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if err := r.candidateLegs(ctx, routeIDs, candidates, index); err != nil {
		return nil, err
	}

	prices, err := r.prices(ctx, routeIDs)
	if err != nil {
		return nil, err
	}
	for routeID, ps := range prices {
		for _, p := range ps {
			candidates[index[routeID]].Prices[p.SeatClassID] = p.Price
		}
	}
	return candidates, nil
}

func (r *pgRepository) candidateLegs(ctx context.Context, routeIDs []int64, candidates []Candidate, index map[int64]int) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, route_id, airplane_id, departure_airport_code, arrival_airport_code,
			departure_time, arrival_time, delay_minutes
		FROM flights WHERE route_id = ANY($1)
		ORDER BY route_id, leg_index`, routeIDs)
	if err != nil {
		return fmt.Errorf("search flights: %w", err)
	}
	defer rows.Close()

	legAt := map[int64][2]int{}
	var flightIDs []int64
	for rows.Next() {
		var (
			leg     CandidateLeg
			routeID int64
			delay   sql.NullInt32
		)
		if err := rows.Scan(&leg.FlightID, &routeID, &leg.AirplaneID, &leg.DepartureAirportCode,
			&leg.ArrivalAirportCode, &leg.DepartureTime, &leg.ArrivalTime, &delay); err != nil {
			return fmt.Errorf("scan candidate flight: %w", err)
		}
		if delay.Valid {
			d := int(delay.Int32)
			leg.DelayMinutes = &d
		}
		leg.FreeSeats = map[int]int{}
		ci := index[routeID]
		legAt[leg.FlightID] = [2]int{ci, len(candidates[ci].Legs)}
		candidates[ci].Legs = append(candidates[ci].Legs, leg)
		flightIDs = append(flightIDs, leg.FlightID)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(flightIDs) == 0 {
		return nil
	}

	seatRows, err := r.db.QueryContext(ctx, `
		SELECT flight_id, seat_class_id, COUNT(*) FILTER (WHERE reservation_id IS NULL)
		FROM flight_seats WHERE flight_id = ANY($1)
		GROUP BY flight_id, seat_class_id`, flightIDs)
	if err != nil {
		return fmt.Errorf("count free seats: %w", err)
	}
	defer seatRows.Close()

	for seatRows.Next() {
		var flightID int64
		var class, free int
		if err := seatRows.Scan(&flightID, &class, &free); err != nil {
			return fmt.Errorf("scan free seats: %w", err)
		}
		at := legAt[flightID]
		candidates[at[0]].Legs[at[1]].FreeSeats[class] = free
	}
	return seatRows.Err()
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// sortedClassIDs returns the keys of a price map in ascending order.
func sortedClassIDs(prices map[int]decimal.Decimal) []int {
	ids := make([]int, 0, len(prices))
	for id := range prices {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

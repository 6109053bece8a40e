package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flightbooker/pkg/db"

	"github.com/shopspring/decimal"
)

// RouteSummary is what booking needs to know about a route.
type RouteSummary struct {
	ID                   int64
	DepartureAirportCode string
	ArrivalAirportCode   string
}

type Repository interface {
	Client(ctx context.Context, id string) (*Client, error)
	Route(ctx context.Context, id int64) (*RouteSummary, error)
	AirlineExists(ctx context.Context, id int64) (bool, error)
	// Create writes the reservation and claims every selected seat in one
	// transaction. Any failed claim rolls the whole reservation back.
	Create(ctx context.Context, r NewReservation) (decimal.Decimal, error)
	Get(ctx context.Context, id int64) (*Reservation, error)
	// List lists all reservations, or those on one airline's routes.
	List(ctx context.Context, airlineID *int64) ([]Reservation, error)
	ListForClient(ctx context.Context, clientID string) ([]Reservation, error)
}

type pgRepository struct {
	db db.SQLExecutor
}

func NewRepository(exec db.SQLExecutor) Repository {
	return &pgRepository{db: exec}
}

func (r *pgRepository) Client(ctx context.Context, id string) (*Client, error) {
	var c Client
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name FROM users WHERE id = $1`, id,
	).Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}
	return &c, nil
}

func (r *pgRepository) Route(ctx context.Context, id int64) (*RouteSummary, error) {
	var rs RouteSummary
	err := r.db.QueryRowContext(ctx,
		`SELECT id, departure_airport_code, arrival_airport_code FROM routes WHERE id = $1`, id,
	).Scan(&rs.ID, &rs.DepartureAirportCode, &rs.ArrivalAirportCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get route %d: %w", id, err)
	}
	return &rs, nil
}

func (r *pgRepository) AirlineExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM airlines WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check airline %d: %w", id, err)
	}
	return ok, nil
}

func (r *pgRepository) Create(ctx context.Context, nr NewReservation) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithTransaction(ctx, sql.LevelReadCommitted, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reservations (id, client_id, route_id, created_at) VALUES ($1, $2, $3, $4)`,
			nr.ID, nr.ClientID, nr.RouteID, nr.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}

		var claimed []ClaimedSeat
		for _, want := range nr.claimOrder() {
			seat, err := claim(ctx, tx, nr, want.FlightID, want.AirplaneSeatID)
			if err != nil {
				return err
			}
			claimed = append(claimed, seat)
		}

		prices, err := routePrices(ctx, tx, nr.RouteID)
		if err != nil {
			return err
		}
		total = TotalCost(claimed, prices)

		if _, err := tx.ExecContext(ctx,
			`UPDATE reservations SET total_cost = $2 WHERE id = $1`, nr.ID, total,
		); err != nil {
			return fmt.Errorf("store total cost: %w", err)
		}
		return nil
	})
	return total, err
}

// claim takes one seat only if it is still free and its flight belongs to the
// reservation's route. Row locks make concurrent claims on the same seat
// serialize; the loser sees reservation_id set and matches nothing.
func claim(ctx context.Context, tx *sql.Tx, nr NewReservation, flightID, seatID int64) (ClaimedSeat, error) {
	seat := ClaimedSeat{FlightID: flightID, AirplaneSeatID: seatID}
	err := tx.QueryRowContext(ctx, `
		UPDATE flight_seats fs SET reservation_id = $1
		FROM flights f
		WHERE fs.flight_id = $2 AND fs.airplane_seat_id = $3 AND fs.reservation_id IS NULL
			AND f.id = fs.flight_id AND f.route_id = $4
		RETURNING fs.seat_class_id, fs.seat_row, fs.seat_column`,
		nr.ID, flightID, seatID, nr.RouteID,
	).Scan(&seat.SeatClassID, &seat.Row, &seat.Column)
	if err == nil {
		return seat, nil
	}
	if db.IsDeadlock(err) || db.IsSerializationFailure(err) {
		return seat, &SeatError{FlightID: flightID, AirplaneSeatID: seatID, Err: fmt.Errorf("%w: %w", ErrSeatTaken, err)}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return seat, fmt.Errorf("claim flight %d seat %d: %w", flightID, seatID, err)
	}

	var holder sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT fs.reservation_id FROM flight_seats fs JOIN flights f ON f.id = fs.flight_id
		WHERE fs.flight_id = $1 AND fs.airplane_seat_id = $2 AND f.route_id = $3`,
		flightID, seatID, nr.RouteID,
	).Scan(&holder)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return seat, &SeatError{FlightID: flightID, AirplaneSeatID: seatID, Err: ErrSeatNotFound}
	case err != nil:
		return seat, fmt.Errorf("inspect flight %d seat %d: %w", flightID, seatID, err)
	case holder.Valid && holder.Int64 != nr.ID:
		return seat, &SeatError{FlightID: flightID, AirplaneSeatID: seatID, Err: ErrSeatTaken}
	default:
		return seat, &SeatError{FlightID: flightID, AirplaneSeatID: seatID, Err: ErrSeatNotFound}
	}
}

func routePrices(ctx context.Context, tx *sql.Tx, routeID int64) (map[int]decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_class_id, price FROM route_seat_classes WHERE route_id = $1`, routeID)
	if err != nil {
		return nil, fmt.Errorf("route prices: %w", err)
	}
	defer rows.Close()

	prices := map[int]decimal.Decimal{}
	for rows.Next() {
		var (
			class int
			price decimal.Decimal
		)
		if err := rows.Scan(&class, &price); err != nil {
			return nil, fmt.Errorf("scan route price: %w", err)
		}
		prices[class] = price
	}
	return prices, rows.Err()
}

const selectReservation = `
	SELECT res.id, res.client_id, res.route_id, res.created_at, res.total_cost,
		r.departure_airport_code, r.arrival_airport_code, r.departure_time, r.arrival_time
	FROM reservations res JOIN routes r ON r.id = res.route_id `

func (r *pgRepository) Get(ctx context.Context, id int64) (*Reservation, error) {
	list, err := r.list(ctx, `WHERE res.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (r *pgRepository) List(ctx context.Context, airlineID *int64) ([]Reservation, error) {
	if airlineID == nil {
		return r.list(ctx, "")
	}
	return r.list(ctx, `WHERE r.airline_id = $1`, *airlineID)
}

func (r *pgRepository) ListForClient(ctx context.Context, clientID string) ([]Reservation, error) {
	return r.list(ctx, `WHERE res.client_id = $1`, clientID)
}

func (r *pgRepository) list(ctx context.Context, where string, args ...any) ([]Reservation, error) {
	rows, err := r.db.QueryContext(ctx, selectReservation+where+` ORDER BY res.created_at DESC, res.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	list := []Reservation{}
	var ids []int64
	for rows.Next() {
		var (
			res      Reservation
			dep, arr string
		)
		if err := rows.Scan(&res.ID, &res.ClientID, &res.RouteID, &res.ReservationDate, &res.TotalCost,
			&dep, &arr, &res.DepartureTime, &res.ArrivalTime); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res.RouteName = routeName(dep, arr)
		res.Seats = []SeatGroup{}
		list = append(list, res)
		ids = append(ids, res.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}

	seats, err := r.seats(ctx, ids)
	if err != nil {
		return nil, err
	}
	groups := groupSeats(seats)
	for i := range list {
		if g, ok := groups[list[i].ID]; ok {
			list[i].Seats = g
		}
	}
	return list, nil
}

func (r *pgRepository) seats(ctx context.Context, reservationIDs []int64) ([]seatRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fs.reservation_id, f.id, f.airplane_id, f.departure_airport_code, f.arrival_airport_code,
			f.departure_time, f.arrival_time, fs.seat_row, fs.seat_column
		FROM flight_seats fs JOIN flights f ON f.id = fs.flight_id
		WHERE fs.reservation_id = ANY($1)
		ORDER BY fs.reservation_id, f.leg_index, fs.seat_row, fs.seat_column`, reservationIDs)
	if err != nil {
		return nil, fmt.Errorf("list reserved seats: %w", err)
	}
	defer rows.Close()

	var out []seatRow
	for rows.Next() {
		var s seatRow
		if err := rows.Scan(&s.ReservationID, &s.FlightID, &s.AirplaneID, &s.DepartureAirportCode,
			&s.ArrivalAirportCode, &s.DepartureTime, &s.ArrivalTime, &s.Row, &s.Column); err != nil {
			return nil, fmt.Errorf("scan reserved seat: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

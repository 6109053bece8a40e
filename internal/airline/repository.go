package airline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flightbooker/pkg/db"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("airline not found")

type Airline struct {
	ID           int64      `json:"airlineId"`
	Name         string     `json:"name"`
	PhoneNumber  string     `json:"phoneNumber"`
	EmailAddress string     `json:"emailAddress"`
	Country      string     `json:"country"`
	Operators    []Operator `json:"operators"`
}

type Operator struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	AirlineID *int64 `json:"airlineId"`
}

type UpcomingFlight struct {
	FlightID             int64     `json:"flightId"`
	RouteID              int64     `json:"routeId"`
	DepartureAirportCode string    `json:"departureAirportCode"`
	ArrivalAirportCode   string    `json:"arrivalAirportCode"`
	DepartureTime        time.Time `json:"departureTime"`
	ArrivalTime          time.Time `json:"arrivalTime"`
	DelayMinutes         *int      `json:"delay"`
}

type Metrics struct {
	AirlineID       int64            `json:"airlineId"`
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
	Flights         int              `json:"flightsThisMonth"`
	Reservations    int              `json:"reservationsThisMonth"`
	Revenue         decimal.Decimal  `json:"revenueThisMonth"`
	UpcomingFlights []UpcomingFlight `json:"upcomingFlights"`
}

type Repository interface {
	Create(ctx context.Context, a Airline, operatorIDs []string) (int64, error)
	Get(ctx context.Context, id int64) (*Airline, error)
	List(ctx context.Context) ([]Airline, error)
	Update(ctx context.Context, a Airline) error
	Delete(ctx context.Context, id int64) error
	Operators(ctx context.Context) ([]Operator, error)
	// MissingOperators returns the ids that are not airline operators.
	MissingOperators(ctx context.Context, userIDs []string) ([]string, error)
	// OperatorAirline returns ErrNotFound when userID is not an operator and a nil
	// airline when the operator is unassigned.
	OperatorAirline(ctx context.Context, userID string) (*Airline, error)
	SetOperators(ctx context.Context, airlineID int64, userIDs []string) error
	Metrics(ctx context.Context, airlineID int64, from, to, now time.Time) (*Metrics, error)
}

type pgRepository struct {
	db db.SQLExecutor
}

func NewRepository(exec db.SQLExecutor) Repository {
	return &pgRepository{db: exec}
}

func (r *pgRepository) Create(ctx context.Context, a Airline, operatorIDs []string) (int64, error) {
	var id int64
	err := r.db.WithTransaction(ctx, sql.LevelReadCommitted, func(ctx context.Context, tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO airlines (name, phone_number, email_address, country)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			a.Name, a.PhoneNumber, a.EmailAddress, a.Country,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert airline: %w", err)
		}
		if len(operatorIDs) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE airline_operators SET airline_id = $1 WHERE user_id = ANY($2)`, id, operatorIDs,
		); err != nil {
			return fmt.Errorf("assign operators: %w", err)
		}
		return nil
	})
	return id, err
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Airline, error) {
	var a Airline
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, phone_number, email_address, country FROM airlines WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.PhoneNumber, &a.EmailAddress, &a.Country)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get airline %d: %w", id, err)
	}

	ops, err := r.operators(ctx, `WHERE ao.airline_id = $1`, id)
	if err != nil {
		return nil, err
	}
	a.Operators = ops
	return &a, nil
}

func (r *pgRepository) List(ctx context.Context) ([]Airline, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, phone_number, email_address, country FROM airlines ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list airlines: %w", err)
	}
	defer rows.Close()

	airlines := []Airline{}
	index := map[int64]int{}
	for rows.Next() {
		var a Airline
		if err := rows.Scan(&a.ID, &a.Name, &a.PhoneNumber, &a.EmailAddress, &a.Country); err != nil {
			return nil, fmt.Errorf("scan airline: %w", err)
		}
		a.Operators = []Operator{}
		index[a.ID] = len(airlines)
		airlines = append(airlines, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ops, err := r.operators(ctx, `WHERE ao.airline_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		if i, ok := index[*op.AirlineID]; ok {
			airlines[i].Operators = append(airlines[i].Operators, op)
		}
	}
	return airlines, nil
}

func (r *pgRepository) Update(ctx context.Context, a Airline) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE airlines SET name = $2, phone_number = $3, email_address = $4, country = $5
		WHERE id = $1`,
		a.ID, a.Name, a.PhoneNumber, a.EmailAddress, a.Country,
	)
	if err != nil {
		return fmt.Errorf("update airline %d: %w", a.ID, err)
	}
	return db.ExpectRows(res, ErrNotFound)
}

func (r *pgRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM airlines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete airline %d: %w", id, err)
	}
	return db.ExpectRows(res, ErrNotFound)
}

func (r *pgRepository) Operators(ctx context.Context) ([]Operator, error) {
	return r.operators(ctx, "")
}

func (r *pgRepository) operators(ctx context.Context, where string, args ...any) ([]Operator, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.first_name, u.last_name, u.email, u.username, ao.airline_id
		FROM airline_operators ao JOIN users u ON u.id = ao.user_id `+where+`
		ORDER BY u.last_name, u.first_name`, args...)
	if err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	defer rows.Close()

	ops := []Operator{}
	for rows.Next() {
		var (
			op        Operator
			airlineID sql.NullInt64
		)
		if err := rows.Scan(&op.UserID, &op.FirstName, &op.LastName, &op.Email, &op.Username, &airlineID); err != nil {
			return nil, fmt.Errorf("scan operator: %w", err)
		}
		if airlineID.Valid {
			op.AirlineID = &airlineID.Int64
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (r *pgRepository) MissingOperators(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM unnest($1::text[]) AS id
		WHERE NOT EXISTS (SELECT 1 FROM airline_operators ao WHERE ao.user_id = id)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("check operators: %w", err)
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}

func (r *pgRepository) OperatorAirline(ctx context.Context, userID string) (*Airline, error) {
	var airlineID sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT airline_id FROM airline_operators WHERE user_id = $1`, userID,
	).Scan(&airlineID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get operator %s: %w", userID, err)
	}
	if !airlineID.Valid {
		return nil, nil
	}
	return r.Get(ctx, airlineID.Int64)
}

func (r *pgRepository) SetOperators(ctx context.Context, airlineID int64, userIDs []string) error {
	return r.db.WithTransaction(ctx, sql.LevelReadCommitted, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE airline_operators SET airline_id = NULL WHERE airline_id = $1`, airlineID,
		); err != nil {
			return fmt.Errorf("unassign operators: %w", err)
		}
		if len(userIDs) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE airline_operators SET airline_id = $1 WHERE user_id = ANY($2)`, airlineID, userIDs,
		); err != nil {
			return fmt.Errorf("assign operators: %w", err)
		}
		return nil
	})
}

func (r *pgRepository) Metrics(ctx context.Context, airlineID int64, from, to, now time.Time) (*Metrics, error) {
	m := &Metrics{AirlineID: airlineID, From: from, To: to, UpcomingFlights: []UpcomingFlight{}}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM flights f JOIN routes r ON r.id = f.route_id
		WHERE r.airline_id = $1 AND f.departure_time >= $2 AND f.departure_time < $3`,
		airlineID, from, to,
	).Scan(&m.Flights)
	if err != nil {
		return nil, fmt.Errorf("count flights: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(res.total_cost), 0)
		FROM reservations res JOIN routes r ON r.id = res.route_id
		WHERE r.airline_id = $1 AND r.departure_time >= $2 AND r.departure_time < $3`,
		airlineID, from, to,
	).Scan(&m.Reservations, &m.Revenue)
	if err != nil {
		return nil, fmt.Errorf("sum reservations: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT f.id, f.route_id, f.departure_airport_code, f.arrival_airport_code,
		       f.departure_time, f.arrival_time, f.delay_minutes
		FROM flights f JOIN routes r ON r.id = f.route_id
		WHERE r.airline_id = $1 AND f.departure_time >= $2 AND f.departure_time < $3
		ORDER BY f.departure_time, f.id`,
		airlineID, now, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list upcoming flights: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			f     UpcomingFlight
			delay sql.NullInt32
		)
		if err := rows.Scan(&f.FlightID, &f.RouteID, &f.DepartureAirportCode, &f.ArrivalAirportCode,
			&f.DepartureTime, &f.ArrivalTime, &delay); err != nil {
			return nil, fmt.Errorf("scan upcoming flight: %w", err)
		}
		if delay.Valid {
			minutes := int(delay.Int32)
			f.DelayMinutes = &minutes
		}
		m.UpcomingFlights = append(m.UpcomingFlights, f)
	}
	return m, rows.Err()
}

package airplane

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flightbooker/pkg/db"
)

var (
	ErrNotFound = errors.New("airplane not found")
	ErrInUse    = errors.New("airplane is used by flights")
)

type Airplane struct {
	ID            int64  `json:"airplaneId"`
	Brand         string `json:"brand"`
	Model         string `json:"model"`
	NrRows        int    `json:"nrRows"`
	NrColumns     int    `json:"nrColumns"`
	TotalCapacity int    `json:"totalCapacity"`
}

type Repository interface {
	Create(ctx context.Context, a Airplane, seats []Seat) (int64, error)
	List(ctx context.Context) ([]Airplane, error)
	Get(ctx context.Context, id int64) (*Airplane, error)
	UpdateDetails(ctx context.Context, id int64, brand, model string) error
	ReplaceLayout(ctx context.Context, a Airplane, seats []Seat) error
	InUse(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	Seats(ctx context.Context, id int64) ([]Seat, error)
	// UpdateSeatClasses sets the class of every seat in a row. rowClass is indexed by row number.
	UpdateSeatClasses(ctx context.Context, id int64, rowClass []int) error
}

type pgRepository struct {
	db db.SQLExecutor
}

func NewRepository(exec db.SQLExecutor) Repository {
	return &pgRepository{db: exec}
}

const selectAirplane = `SELECT id, brand, model, nr_rows, nr_columns FROM airplanes`

func scanAirplane(row interface{ Scan(...any) error }) (Airplane, error) {
	var a Airplane
	err := row.Scan(&a.ID, &a.Brand, &a.Model, &a.NrRows, &a.NrColumns)
	a.TotalCapacity = a.NrRows * a.NrColumns
	return a, err
}

func (r *pgRepository) Create(ctx context.Context, a Airplane, seats []Seat) (int64, error) {
	var id int64
	err := r.db.WithTransaction(ctx, sql.LevelReadCommitted, func(ctx context.Context, tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO airplanes (brand, model, nr_rows, nr_columns) VALUES ($1, $2, $3, $4) RETURNING id`,
			a.Brand, a.Model, a.NrRows, a.NrColumns,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert airplane: %w", err)
		}
		return insertSeats(ctx, tx, id, seats)
	})
	return id, err
}

func insertSeats(ctx context.Context, q db.Querier, airplaneID int64, seats []Seat) error {
	rows := make([]int32, len(seats))
	cols := make([]string, len(seats))
	classes := make([]int32, len(seats))
	for i, s := range seats {
		rows[i] = int32(s.Row)
		cols[i] = s.Column
		classes[i] = int32(s.SeatClassID)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO airplane_seats (airplane_id, seat_row, seat_column, seat_class_id)
		SELECT $1, s.seat_row, s.seat_column, s.seat_class_id
		FROM unnest($2::int[], $3::text[], $4::int[]) AS s(seat_row, seat_column, seat_class_id)`,
		airplaneID, rows, cols, classes,
	)
	if err != nil {
		return fmt.Errorf("insert seats for airplane %d: %w", airplaneID, err)
	}
	return nil
}

func (r *pgRepository) List(ctx context.Context) ([]Airplane, error) {
	rows, err := r.db.QueryContext(ctx, selectAirplane+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list airplanes: %w", err)
	}
	defer rows.Close()

	airplanes := []Airplane{}
	for rows.Next() {
		a, err := scanAirplane(rows)
		if err != nil {
			return nil, fmt.Errorf("scan airplane: %w", err)
		}
		airplanes = append(airplanes, a)
	}
	return airplanes, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Airplane, error) {
	a, err := scanAirplane(r.db.QueryRowContext(ctx, selectAirplane+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get airplane %d: %w", id, err)
	}
	return &a, nil
}

func (r *pgRepository) UpdateDetails(ctx context.Context, id int64, brand, model string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE airplanes SET brand = $2, model = $3 WHERE id = $1`, id, brand, model)
	if err != nil {
		return fmt.Errorf("update airplane %d: %w", id, err)
	}
	return db.ExpectRows(res, ErrNotFound)
}

func (r *pgRepository) ReplaceLayout(ctx context.Context, a Airplane, seats []Seat) error {
	return r.db.WithTransaction(ctx, sql.LevelReadCommitted, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE airplanes SET brand = $2, model = $3, nr_rows = $4, nr_columns = $5 WHERE id = $1`,
			a.ID, a.Brand, a.Model, a.NrRows, a.NrColumns,
		)
		if err != nil {
			return fmt.Errorf("update airplane %d: %w", a.ID, err)
		}
		if err := db.ExpectRows(res, ErrNotFound); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM airplane_seats WHERE airplane_id = $1`, a.ID); err != nil {
			if db.IsForeignKeyViolation(err) {
				return ErrInUse
			}
			return fmt.Errorf("delete seats of airplane %d: %w", a.ID, err)
		}
		return insertSeats(ctx, tx, a.ID, seats)
	})
}

func (r *pgRepository) InUse(ctx context.Context, id int64) (bool, error) {
	var used bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM flights WHERE airplane_id = $1)`, id).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("check airplane %d usage: %w", id, err)
	}
	return used, nil
}

func (r *pgRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM airplanes WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return fmt.Errorf("delete airplane %d: %w", id, err)
	}
	return db.ExpectRows(res, ErrNotFound)
}

func (r *pgRepository) Seats(ctx context.Context, id int64) ([]Seat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, airplane_id, seat_row, seat_column, seat_class_id
		FROM airplane_seats WHERE airplane_id = $1
		ORDER BY seat_row, seat_column`, id)
	if err != nil {
		return nil, fmt.Errorf("list seats of airplane %d: %w", id, err)
	}
	defer rows.Close()

	seats := []Seat{}
	for rows.Next() {
		var s Seat
		if err := rows.Scan(&s.ID, &s.AirplaneID, &s.Row, &s.Column, &s.SeatClassID); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func (r *pgRepository) UpdateSeatClasses(ctx context.Context, id int64, rowClass []int) error {
	rowNumbers := make([]int32, 0, len(rowClass))
	classes := make([]int32, 0, len(rowClass))
	for row := 1; row < len(rowClass); row++ {
		rowNumbers = append(rowNumbers, int32(row))
		classes = append(classes, int32(rowClass[row]))
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE airplane_seats AS s SET seat_class_id = c.seat_class_id
		FROM unnest($2::int[], $3::int[]) AS c(seat_row, seat_class_id)
		WHERE s.airplane_id = $1 AND s.seat_row = c.seat_row`,
		id, rowNumbers, classes,
	)
	if err != nil {
		return fmt.Errorf("update seat classes of airplane %d: %w", id, err)
	}
	return nil
}

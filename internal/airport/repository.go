package airport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flightbooker/pkg/db"
)

var (
	ErrNotFound  = errors.New("airport not found")
	ErrDuplicate = errors.New("airport code already exists")
	ErrInUse     = errors.New("airport is referenced by routes or flights")
)

type Airport struct {
	Code    string `json:"airportCode"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type Repository interface {
	List(ctx context.Context) ([]Airport, error)
	Get(ctx context.Context, code string) (*Airport, error)
	Create(ctx context.Context, a Airport) error
	Update(ctx context.Context, code string, a Airport) error
	Delete(ctx context.Context, code string) error
}

type pgRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &pgRepository{db: q}
}

func (r *pgRepository) List(ctx context.Context) ([]Airport, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, name, city, country FROM airports ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list airports: %w", err)
	}
	defer rows.Close()

	airports := []Airport{}
	for rows.Next() {
		var a Airport
		if err := rows.Scan(&a.Code, &a.Name, &a.City, &a.Country); err != nil {
			return nil, fmt.Errorf("scan airport: %w", err)
		}
		airports = append(airports, a)
	}
	return airports, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, code string) (*Airport, error) {
	var a Airport
	err := r.db.QueryRowContext(ctx,
		`SELECT code, name, city, country FROM airports WHERE code = $1`, code,
	).Scan(&a.Code, &a.Name, &a.City, &a.Country)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get airport %s: %w", code, err)
	}
	return &a, nil
}

func (r *pgRepository) Create(ctx context.Context, a Airport) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO airports (code, name, city, country) VALUES ($1, $2, $3, $4)`,
		a.Code, a.Name, a.City, a.Country,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create airport %s: %w", a.Code, err)
	}
	return nil
}

// Update rewrites an airport. Changing the code cascades through every
// referencing route and flight.
func (r *pgRepository) Update(ctx context.Context, code string, a Airport) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE airports SET code = $2, name = $3, city = $4, country = $5 WHERE code = $1`,
		code, a.Code, a.Name, a.City, a.Country,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("update airport %s: %w", code, err)
	}
	return db.ExpectRows(res, ErrNotFound)
}

func (r *pgRepository) Delete(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM airports WHERE code = $1`, code)
	if db.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return fmt.Errorf("delete airport %s: %w", code, err)
	}
	return db.ExpectRows(res, ErrNotFound)
}

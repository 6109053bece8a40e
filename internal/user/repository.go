package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flightbooker/internal/auth"
	"flightbooker/pkg/db"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	PhoneNumber    string    `json:"phoneNumber"`
	Role           auth.Role `json:"role"`
	EmailConfirmed bool      `json:"emailConfirmed"`
}

type Repository interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id string) (*User, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
	// SetRole moves a user from one role to another and keeps the
	// airline_operators table in step.
	SetRole(ctx context.Context, id string, from, to auth.Role) error
}

type pgRepository struct {
	db db.SQLExecutor
}

func NewRepository(exec db.SQLExecutor) Repository {
	return &pgRepository{db: exec}
}

const selectUser = `
	SELECT id, first_name, last_name, email, username, phone_number, role, email_confirmed
	FROM users `

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username, &u.PhoneNumber, &u.Role, &u.EmailConfirmed)
	return u, err
}

func (r *pgRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+`ORDER BY last_name, first_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUser+`WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

func (r *pgRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *pgRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return db.ExpectRows(res, ErrNotFound)
}

func (r *pgRepository) SetRole(ctx context.Context, id string, from, to auth.Role) error {
	return r.db.WithTransaction(ctx, sql.LevelReadCommitted, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE users SET role = $2 WHERE id = $1 AND role = $3`, id, to, from)
		if err != nil {
			return fmt.Errorf("update role of %s: %w", id, err)
		}
		if err := db.ExpectRows(res, ErrNotFound); err != nil {
			return err
		}

		switch {
		case from == auth.RoleAirlineOperator && to != auth.RoleAirlineOperator:
			_, err = tx.ExecContext(ctx, `DELETE FROM airline_operators WHERE user_id = $1`, id)
		case to == auth.RoleAirlineOperator && from != auth.RoleAirlineOperator:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO airline_operators (user_id, airline_id) VALUES ($1, NULL) ON CONFLICT (user_id) DO NOTHING`, id)
		}
		if err != nil {
			return fmt.Errorf("sync airline operator %s: %w", id, err)
		}
		return nil
	})
}

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flightbooker/pkg/db"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrDuplicateUser   = errors.New("username already taken")
)

// Account is a user row as the sign-in flows see it.
type Account struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	Username       string
	PhoneNumber    string
	PasswordHash   string
	Role           Role
	EmailConfirmed bool
}

type Repository interface {
	Create(ctx context.Context, a Account) error
	ByID(ctx context.Context, id string) (*Account, error)
	ByEmail(ctx context.Context, email string) (*Account, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	ConfirmEmail(ctx context.Context, id string) error
}

type pgRepository struct {
	db db.SQLExecutor
}

func NewRepository(exec db.SQLExecutor) Repository {
	return &pgRepository{db: exec}
}

func (r *pgRepository) Create(ctx context.Context, a Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, email, username, phone_number, password_hash, role, email_confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.FirstName, a.LastName, a.Email, a.Username, a.PhoneNumber, a.PasswordHash, a.Role, a.EmailConfirmed)
	if db.IsUniqueViolation(err) {
		if db.ConstraintName(err) == "users_username_key" {
			return ErrDuplicateUser
		}
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const selectAccount = `
	SELECT id, first_name, last_name, email, username, phone_number, password_hash, role, email_confirmed
	FROM users `

func (r *pgRepository) get(ctx context.Context, where string, arg any) (*Account, error) {
	var a Account
	err := r.db.QueryRowContext(ctx, selectAccount+where, arg).Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Username, &a.PhoneNumber, &a.PasswordHash, &a.Role, &a.EmailConfirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

func (r *pgRepository) ByID(ctx context.Context, id string) (*Account, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// ByEmail matches case-insensitively.
func (r *pgRepository) ByEmail(ctx context.Context, email string) (*Account, error) {
	return r.get(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (r *pgRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&taken); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return taken, nil
}

func (r *pgRepository) ConfirmEmail(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET email_confirmed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("confirm email of %s: %w", id, err)
	}
	return db.ExpectRows(res, ErrAccountNotFound)
}

package complaint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flightbooker/pkg/db"
)

var (
	ErrNotFound     = errors.New("complaint not found")
	ErrUserNotFound = errors.New("user not found")
)

type Complaint struct {
	ID                int64      `json:"id,string"`
	Description       string     `json:"description"`
	UserID            string     `json:"userId"`
	AssignedAdminName *string    `json:"assignedAdminName"`
	IsResolved        bool       `json:"isResolved"`
	DateIssued        time.Time  `json:"dateIssued"`
	DateResolved      *time.Time `json:"dateResolved"`
	Response          *string    `json:"response,omitempty"`
}

type Metrics struct {
	UnresolvedComplaints        int         `json:"unresolvedComplaints"`
	ComplaintsAssignedThisMonth int         `json:"complaintsAssignedThisMonth"`
	ComplaintsIssuedThisWeek    int         `json:"complaintsIssuedThisWeek"`
	RecentComplaints            []Complaint `json:"recentComplaints"`
}

// Contact is the addressee of a complaint email.
type Contact struct {
	Email     string
	FirstName string
	LastName  string
}

type Resolution struct {
	ComplaintID int64
	AdminID     string
	Response    string
	ResolvedAt  time.Time
}

// Resolved is what the complainant is told about a resolution.
type Resolved struct {
	Complainant Contact
	Description string
}

type Repository interface {
	UserExists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, c Complaint) error
	Get(ctx context.Context, id int64) (*Complaint, error)
	// List returns complaints that were not removed, newest first.
	List(ctx context.Context) ([]Complaint, error)
	Remove(ctx context.Context, id int64) error
	Resolve(ctx context.Context, r Resolution) (*Resolved, error)
	// Metrics counts assignments to adminID issued after monthAgo and
	// complaints issued after weekAgo, plus the open backlog.
	Metrics(ctx context.Context, adminID string, monthAgo, weekAgo time.Time, recent int) (*Metrics, error)
}

type pgRepository struct {
	db db.SQLExecutor
}

func NewRepository(exec db.SQLExecutor) Repository {
	return &pgRepository{db: exec}
}

func (r *pgRepository) UserExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user %s: %w", id, err)
	}
	return exists, nil
}

func (r *pgRepository) Create(ctx context.Context, c Complaint) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO complaints (id, complainant_id, description, date_issued) VALUES ($1, $2, $3, $4)`,
		c.ID, c.UserID, c.Description, c.DateIssued)
	if db.IsForeignKeyViolation(err) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}
	return nil
}

const selectComplaint = `
	SELECT c.id, c.description, c.complainant_id, a.first_name || ' ' || a.last_name,
		c.is_resolved, c.date_issued, c.date_resolved, c.response
	FROM complaints c LEFT JOIN users a ON a.id = c.assigned_admin_id `

func scanComplaint(row interface{ Scan(...any) error }) (Complaint, error) {
	var (
		c        Complaint
		admin    sql.NullString
		resolved sql.NullTime
		response sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Description, &c.UserID, &admin, &c.IsResolved, &c.DateIssued, &resolved, &response); err != nil {
		return c, err
	}
	if admin.Valid {
		c.AssignedAdminName = &admin.String
	}
	if resolved.Valid {
		c.DateResolved = &resolved.Time
	}
	if response.Valid {
		c.Response = &response.String
	}
	return c, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Complaint, error) {
	c, err := scanComplaint(r.db.QueryRowContext(ctx, selectComplaint+`WHERE c.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get complaint %d: %w", id, err)
	}
	return &c, nil
}

func (r *pgRepository) List(ctx context.Context) ([]Complaint, error) {
	return r.list(ctx, selectComplaint+`WHERE NOT c.is_removed ORDER BY c.date_issued DESC`)
}

func (r *pgRepository) list(ctx context.Context, query string, args ...any) ([]Complaint, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	list := []Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *pgRepository) Remove(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE complaints SET is_removed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("remove complaint %d: %w", id, err)
	}
	return db.ExpectRows(res, ErrNotFound)
}

func (r *pgRepository) Resolve(ctx context.Context, res Resolution) (*Resolved, error) {
	var out Resolved
	err := r.db.QueryRowContext(ctx, `
		UPDATE complaints c
		SET assigned_admin_id = $2, response = $3, is_resolved = TRUE, date_resolved = $4
		FROM users u
		WHERE c.id = $1 AND u.id = c.complainant_id
		RETURNING c.description, u.email, u.first_name, u.last_name`,
		res.ComplaintID, res.AdminID, res.Response, res.ResolvedAt,
	).Scan(&out.Description, &out.Complainant.Email, &out.Complainant.FirstName, &out.Complainant.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if db.IsForeignKeyViolation(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve complaint %d: %w", res.ComplaintID, err)
	}
	return &out, nil
}

func (r *pgRepository) Metrics(ctx context.Context, adminID string, monthAgo, weekAgo time.Time, recent int) (*Metrics, error) {
	var m Metrics
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE assigned_admin_id = $1 AND date_issued > $2),
			COUNT(*) FILTER (WHERE date_issued > $3),
			COUNT(*) FILTER (WHERE NOT is_resolved)
		FROM complaints WHERE NOT is_removed`,
		adminID, monthAgo, weekAgo,
	).Scan(&m.ComplaintsAssignedThisMonth, &m.ComplaintsIssuedThisWeek, &m.UnresolvedComplaints)
	if err != nil {
		return nil, fmt.Errorf("complaint metrics: %w", err)
	}

	m.RecentComplaints, err = r.list(ctx,
		selectComplaint+`WHERE NOT c.is_removed ORDER BY c.date_issued DESC LIMIT $1`, recent)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

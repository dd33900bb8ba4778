package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/dmehra2102/watchstore/internal/user/domain"
	"github.com/dmehra2102/watchstore/pkg/apperr"
	"github.com/dmehra2102/watchstore/pkg/pagination"
	"github.com/dmehra2102/watchstore/pkg/pgutil"
)

const userColumns = `id, email, first_name, last_name, phone, role, is_active, created_at`

const searchClause = ` WHERE ($1 = '' OR first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if pgutil.IsNoRows(err) {
		return domain.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return domain.User{}, errors.Wrap(err, "get user")
	}
	return u, nil
}

// UpdateProfile writes the self-service profile fields of u and returns the
// stored row.
func (r *Repository) UpdateProfile(ctx context.Context, u domain.User) (domain.User, error) {
	out, err := scanUser(r.pool.QueryRow(ctx, `UPDATE users
		SET first_name = $2, last_name = $3, phone = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, u.ID, u.FirstName, u.LastName, u.Phone))
	if pgutil.IsNoRows(err) {
		return domain.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return domain.User{}, errors.Wrap(err, "update user profile")
	}
	return out, nil
}

// List returns users newest first. A non-empty search matches first name,
// last name or email case-insensitively.
func (r *Repository) List(ctx context.Context, search string, page pagination.Request) ([]domain.User, int64, error) {
	pattern := "%" + pgutil.EscapeLike(search) + "%"

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`+searchClause, search, pattern).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}

	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users`+searchClause+`
		ORDER BY created_at DESC, id LIMIT $3 OFFSET $4`, search, pattern, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, errors.Wrap(err, "list users")
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "scan user")
		}
		users = append(users, u)
	}
	return users, total, errors.Wrap(rows.Err(), "iterate users")
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.IsActive, &u.CreatedAt)
	return u, err
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"calldesk-platform/internal/users"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserRepo persists accounts in user_details.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u users.User) error {
	const q = `
INSERT INTO user_details (id, name, phone_number, password_hash, role, credit, signup_time)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(ctx, q,
		u.ID,
		u.Name,
		u.PhoneNumber,
		u.PasswordHash,
		u.Role,
		u.Credit,
		u.SignupTime,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation on phone_number
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return users.ErrPhoneTaken
		}
		return err
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	const q = `
SELECT id, name, phone_number, password_hash, role, credit, signup_time, last_login
FROM user_details
WHERE id = $1
`
	return r.scanUser(r.db.QueryRowContext(ctx, q, id))
}

func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (users.User, error) {
	const q = `
SELECT id, name, phone_number, password_hash, role, credit, signup_time, last_login
FROM user_details
WHERE phone_number = $1
`
	return r.scanUser(r.db.QueryRowContext(ctx, q, phone))
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE user_details SET last_login = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UserRepo) scanUser(row *sql.Row) (users.User, error) {
	var u users.User
	var lastLogin sql.NullTime
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.PhoneNumber,
		&u.PasswordHash,
		&u.Role,
		&u.Credit,
		&u.SignupTime,
		&lastLogin,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}
		return users.User{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, nil
}

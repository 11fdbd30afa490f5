package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"calldesk-platform/internal/credits"
)

// CreditRepo operates on the credit column of user_details and the charge
// marker columns of call_details.
type CreditRepo struct {
	db *sql.DB
}

func NewCreditRepo(db *sql.DB) *CreditRepo { return &CreditRepo{db: db} }

func (r *CreditRepo) GetBalance(ctx context.Context, userID string) (int64, error) {
	const q = `SELECT credit FROM user_details WHERE id = $1`
	var balance int64
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, credits.ErrUserNotFound
		}
		return 0, err
	}
	return balance, nil
}

func (r *CreditRepo) SetBalance(ctx context.Context, userID string, balance int64) error {
	const q = `UPDATE user_details SET credit = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, userID, balance)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return credits.ErrUserNotFound
	}
	return nil
}

// DecrementBalance subtracts in a single statement so concurrent deductions
// never lose an update.
func (r *CreditRepo) DecrementBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	const q = `UPDATE user_details SET credit = credit - $2 WHERE id = $1 RETURNING credit`
	var balance int64
	if err := r.db.QueryRowContext(ctx, q, userID, amount).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, credits.ErrUserNotFound
		}
		return 0, err
	}
	return balance, nil
}

func (r *CreditRepo) SumCreditsConsumed(ctx context.Context, userID string) (int64, error) {
	const q = `
SELECT COALESCE(SUM(credits_consumed), 0)
FROM call_details
WHERE user_id = $1 AND credits_consumed IS NOT NULL
`
	var total int64
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *CreditRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	const q = `SELECT id FROM user_details ORDER BY signup_time`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkCreditsApplied stamps the charge on the call row. The WHERE clause is
// the compare-and-set: only the first caller sees an affected row.
func (r *CreditRepo) MarkCreditsApplied(ctx context.Context, callID string, amount int64, at time.Time) (bool, error) {
	const q = `
UPDATE call_details
SET credits_consumed = $2, credits_applied_at = $3
WHERE id = $1 AND credits_applied_at IS NULL
`
	res, err := r.db.ExecContext(ctx, q, callID, amount, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

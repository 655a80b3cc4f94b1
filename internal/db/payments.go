// internal/db/payments.go
package db

import (
	"context"
	"database/sql"
	"time"
)

type PaymentCharge struct {
	ID             int64          `json:"id"`
	LeagueID       int64          `json:"league_id"`
	UserID         int64          `json:"user_id"`
	Amount         int64          `json:"amount"`
	Currency       string         `json:"currency"`
	Status         string         `json:"status"`
	IdempotencyKey sql.NullString `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

const chargeColumns = `id, league_id, user_id, amount, currency, status, idempotency_key, created_at, updated_at`

func scanCharge(row *sql.Row) (PaymentCharge, error) {
	var c PaymentCharge
	err := row.Scan(
		&c.ID, &c.LeagueID, &c.UserID, &c.Amount, &c.Currency, &c.Status,
		&c.IdempotencyKey, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

type CreateChargeParams struct {
	LeagueID       int64
	UserID         int64
	Amount         int64
	Currency       string
	Status         string
	IdempotencyKey sql.NullString
}

func (q *Queries) CreateCharge(ctx context.Context, arg CreateChargeParams) (PaymentCharge, error) {
	const stmt = `INSERT INTO payment_charges (league_id, user_id, amount, currency, status, idempotency_key)
VALUES (?, ?, ?, ?, ?, ?)`
	result, err := q.db.ExecContext(ctx, stmt,
		arg.LeagueID, arg.UserID, arg.Amount, arg.Currency, arg.Status, arg.IdempotencyKey,
	)
	if err != nil {
		return PaymentCharge{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return PaymentCharge{}, err
	}
	const query = `SELECT ` + chargeColumns + ` FROM payment_charges WHERE id = ?`
	return scanCharge(q.db.QueryRowContext(ctx, query, id))
}

type GetChargeParams struct {
	ID       int64
	LeagueID int64
}

func (q *Queries) GetCharge(ctx context.Context, arg GetChargeParams) (PaymentCharge, error) {
	const query = `SELECT ` + chargeColumns + ` FROM payment_charges WHERE id = ? AND league_id = ?`
	return scanCharge(q.db.QueryRowContext(ctx, query, arg.ID, arg.LeagueID))
}

type GetChargeByIdempotencyKeyParams struct {
	LeagueID       int64
	IdempotencyKey string
}

func (q *Queries) GetChargeByIdempotencyKey(ctx context.Context, arg GetChargeByIdempotencyKeyParams) (PaymentCharge, error) {
	const query = `SELECT ` + chargeColumns + ` FROM payment_charges WHERE league_id = ? AND idempotency_key = ?`
	return scanCharge(q.db.QueryRowContext(ctx, query, arg.LeagueID, arg.IdempotencyKey))
}

type ListChargesByLeagueParams struct {
	LeagueID int64
	AfterID  int64
	Limit    int64
}

func (q *Queries) ListChargesByLeague(ctx context.Context, arg ListChargesByLeagueParams) ([]PaymentCharge, error) {
	const query = `SELECT ` + chargeColumns + `
FROM payment_charges
WHERE league_id = ? AND id > ?
ORDER BY id
LIMIT ?`
	rows, err := q.db.QueryContext(ctx, query, arg.LeagueID, arg.AfterID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []PaymentCharge
	for rows.Next() {
		var c PaymentCharge
		if err := rows.Scan(
			&c.ID, &c.LeagueID, &c.UserID, &c.Amount, &c.Currency, &c.Status,
			&c.IdempotencyKey, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

type UpdateChargeStatusParams struct {
	ID       int64
	LeagueID int64
	Status   string
}

func (q *Queries) UpdateChargeStatus(ctx context.Context, arg UpdateChargeStatusParams) error {
	const stmt = `UPDATE payment_charges SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND league_id = ?`
	_, err := q.db.ExecContext(ctx, stmt, arg.Status, arg.ID, arg.LeagueID)
	return err
}

type PaymentRefund struct {
	ID        int64     `json:"id"`
	LeagueID  int64     `json:"league_id"`
	ChargeID  int64     `json:"charge_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRefundParams struct {
	LeagueID int64
	ChargeID int64
	Amount   int64
	Status   string
}

func (q *Queries) CreateRefund(ctx context.Context, arg CreateRefundParams) (PaymentRefund, error) {
	const stmt = `INSERT INTO payment_refunds (league_id, charge_id, amount, status) VALUES (?, ?, ?, ?)`
	result, err := q.db.ExecContext(ctx, stmt, arg.LeagueID, arg.ChargeID, arg.Amount, arg.Status)
	if err != nil {
		return PaymentRefund{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return PaymentRefund{}, err
	}
	const query = `SELECT id, league_id, charge_id, amount, status, created_at FROM payment_refunds WHERE id = ?`
	var r PaymentRefund
	err = q.db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.LeagueID, &r.ChargeID, &r.Amount, &r.Status, &r.CreatedAt)
	return r, err
}

// SumRefundsByCharge returns the total amount already refunded against the
// charge; zero when no refunds exist.
func (q *Queries) SumRefundsByCharge(ctx context.Context, chargeID int64) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM payment_refunds WHERE charge_id = ?`
	var total int64
	err := q.db.QueryRowContext(ctx, query, chargeID).Scan(&total)
	return total, err
}

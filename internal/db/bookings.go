// internal/db/bookings.go
package db

import (
	"context"
	"database/sql"
	"time"
)

// Booking status values. The engine only ever writes BookingStatusConfirmed;
// the other states are applied by later workflow (cancellation, check-in,
// the no-show sweep).
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
	BookingStatusNoShow    = "no_show"
)

type Booking struct {
	ID             int64          `json:"id"`
	LeagueID       int64          `json:"league_id"`
	FacilityID     int64          `json:"facility_id"`
	UserID         int64          `json:"user_id"`
	StartAt        time.Time      `json:"start_at"`
	EndAt          time.Time      `json:"end_at"`
	Status         string         `json:"status"`
	IdempotencyKey sql.NullString `json:"-"`
	QRCode         string         `json:"qr_code"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

const bookingColumns = `id, league_id, facility_id, user_id, start_at, end_at, status, idempotency_key, qr_code, created_at, updated_at`

func scanBooking(row *sql.Row) (Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.LeagueID, &b.FacilityID, &b.UserID,
		&b.StartAt, &b.EndAt, &b.Status, &b.IdempotencyKey, &b.QRCode,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

type CreateBookingParams struct {
	LeagueID       int64
	FacilityID     int64
	UserID         int64
	StartAt        time.Time
	EndAt          time.Time
	Status         string
	IdempotencyKey sql.NullString
	QRCode         string
}

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	const stmt = `INSERT INTO bookings (league_id, facility_id, user_id, start_at, end_at, status, idempotency_key, qr_code)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := q.db.ExecContext(ctx, stmt,
		arg.LeagueID, arg.FacilityID, arg.UserID,
		arg.StartAt, arg.EndAt, arg.Status, arg.IdempotencyKey, arg.QRCode,
	)
	if err != nil {
		return Booking{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Booking{}, err
	}
	return q.GetBookingByID(ctx, id)
}

func (q *Queries) GetBookingByID(ctx context.Context, id int64) (Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	return scanBooking(q.db.QueryRowContext(ctx, query, id))
}

type GetBookingParams struct {
	ID       int64
	LeagueID int64
}

func (q *Queries) GetBooking(ctx context.Context, arg GetBookingParams) (Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? AND league_id = ?`
	return scanBooking(q.db.QueryRowContext(ctx, query, arg.ID, arg.LeagueID))
}

type GetBookingByIdempotencyKeyParams struct {
	LeagueID       int64
	IdempotencyKey string
}

func (q *Queries) GetBookingByIdempotencyKey(ctx context.Context, arg GetBookingByIdempotencyKeyParams) (Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE league_id = ? AND idempotency_key = ?`
	return scanBooking(q.db.QueryRowContext(ctx, query, arg.LeagueID, arg.IdempotencyKey))
}

type CountConfirmedOverlapsParams struct {
	FacilityID int64
	StartAt    time.Time
	EndAt      time.Time
}

// CountConfirmedOverlaps counts confirmed bookings on the facility whose
// half-open window [start_at, end_at) intersects [StartAt, EndAt). Touching
// boundaries do not overlap.
func (q *Queries) CountConfirmedOverlaps(ctx context.Context, arg CountConfirmedOverlapsParams) (int64, error) {
	const query = `SELECT COUNT(*) FROM bookings
WHERE facility_id = ? AND status = 'confirmed' AND start_at < ? AND end_at > ?`
	var count int64
	err := q.db.QueryRowContext(ctx, query, arg.FacilityID, arg.EndAt, arg.StartAt).Scan(&count)
	return count, err
}

type ListBookingsByLeagueParams struct {
	LeagueID int64
	AfterID  int64
	Limit    int64
}

func (q *Queries) ListBookingsByLeague(ctx context.Context, arg ListBookingsByLeagueParams) ([]Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings
WHERE league_id = ? AND id > ?
ORDER BY id
LIMIT ?`
	rows, err := q.db.QueryContext(ctx, query, arg.LeagueID, arg.AfterID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]Booking, 0)
	for rows.Next() {
		var b Booking
		if err := rows.Scan(
			&b.ID, &b.LeagueID, &b.FacilityID, &b.UserID,
			&b.StartAt, &b.EndAt, &b.Status, &b.IdempotencyKey, &b.QRCode,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

type TransitionBookingStatusParams struct {
	ID         int64
	LeagueID   int64
	FromStatus string
	Status     string
}

// TransitionBookingStatus performs a guarded status update and reports the
// number of rows changed. Zero rows means the booking was not in FromStatus.
func (q *Queries) TransitionBookingStatus(ctx context.Context, arg TransitionBookingStatusParams) (int64, error) {
	const stmt = `UPDATE bookings
SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND league_id = ? AND status = ?`
	result, err := q.db.ExecContext(ctx, stmt, arg.Status, arg.ID, arg.LeagueID, arg.FromStatus)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExpireUncheckedBookings marks confirmed bookings whose window ended before
// the cutoff as no-shows and returns how many were updated.
func (q *Queries) ExpireUncheckedBookings(ctx context.Context, cutoff time.Time) (int64, error) {
	const stmt = `UPDATE bookings
SET status = 'no_show', updated_at = CURRENT_TIMESTAMP
WHERE status = 'confirmed' AND end_at < ?`
	result, err := q.db.ExecContext(ctx, stmt, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

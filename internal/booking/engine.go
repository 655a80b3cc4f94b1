// internal/booking/engine.go
//
// Package booking implements the reservation engine. Every write runs in a
// single immediate transaction, so the overlap check and the insert are
// serialized against concurrent writers; the partial unique indexes on the
// bookings table act as a backstop should the check ever be bypassed.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leaguehq/leaguehq/internal/db"
)

type Engine struct {
	store *db.DB
}

func NewEngine(store *db.DB) *Engine {
	return &Engine{store: store}
}

type CreateParams struct {
	LeagueID   int64
	FacilityID int64
	UserID     int64
	StartAt    time.Time
	EndAt      time.Time

	// IdempotencyKey, when non-empty, makes the create replayable: a
	// second call with the same (league, key) returns the original
	// booking without writing a second row.
	IdempotencyKey string
}

type CreateResult struct {
	Booking db.Booking

	// Replay is true when the result was served from an earlier create
	// with the same idempotency key.
	Replay bool
}

// Create reserves the half-open window [StartAt, EndAt) on the facility and
// returns the confirmed booking with its check-in code. It fails with
// ErrInvalidWindow before touching the store, ErrSlotConflict when a
// confirmed booking already intersects the window, and ErrStoreUnavailable
// when the store cannot serve the transaction.
func (e *Engine) Create(ctx context.Context, arg CreateParams) (CreateResult, error) {
	if err := validateWindow(arg.StartAt, arg.EndAt); err != nil {
		return CreateResult{}, err
	}
	startAt := arg.StartAt.UTC().Truncate(time.Second)
	endAt := arg.EndAt.UTC().Truncate(time.Second)

	key := sql.NullString{}
	if arg.IdempotencyKey != "" {
		key = sql.NullString{String: arg.IdempotencyKey, Valid: true}
	}

	var result CreateResult
	err := e.store.RunInTx(ctx, func(tx *db.DB) error {
		if key.Valid {
			existing, err := tx.Queries.GetBookingByIdempotencyKey(ctx, db.GetBookingByIdempotencyKeyParams{
				LeagueID:       arg.LeagueID,
				IdempotencyKey: key.String,
			})
			if err == nil {
				result = CreateResult{Booking: existing, Replay: true}
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}

		count, err := tx.Queries.FacilityExists(ctx, db.FacilityExistsParams{
			ID:       arg.FacilityID,
			LeagueID: arg.LeagueID,
		})
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrFacilityNotFound
		}

		overlaps, err := tx.Queries.CountConfirmedOverlaps(ctx, db.CountConfirmedOverlapsParams{
			FacilityID: arg.FacilityID,
			StartAt:    startAt,
			EndAt:      endAt,
		})
		if err != nil {
			return err
		}
		if overlaps > 0 {
			return ErrSlotConflict
		}

		created, err := tx.Queries.CreateBooking(ctx, db.CreateBookingParams{
			LeagueID:       arg.LeagueID,
			FacilityID:     arg.FacilityID,
			UserID:         arg.UserID,
			StartAt:        startAt,
			EndAt:          endAt,
			Status:         db.BookingStatusConfirmed,
			IdempotencyKey: key,
			QRCode:         uuid.NewString(),
		})
		if err != nil {
			return err
		}
		result = CreateResult{Booking: created}
		return nil
	})
	if err != nil {
		return CreateResult{}, e.classifyCreateErr(ctx, arg.LeagueID, key, err, &result)
	}
	return result, nil
}

// classifyCreateErr maps store errors from a failed create to engine errors.
// A unique violation on the idempotency index means another transaction won
// the race for this key; the winner's row is read back and served as a
// replay, clearing the error.
func (e *Engine) classifyCreateErr(ctx context.Context, leagueID int64, key sql.NullString, err error, result *CreateResult) error {
	switch {
	case errors.Is(err, ErrSlotConflict),
		errors.Is(err, ErrFacilityNotFound):
		return err
	case key.Valid && db.IsUniqueViolation(err, "idempotency_key"):
		existing, readErr := e.store.Queries.GetBookingByIdempotencyKey(ctx, db.GetBookingByIdempotencyKeyParams{
			LeagueID:       leagueID,
			IdempotencyKey: key.String,
		})
		if readErr != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, readErr)
		}
		*result = CreateResult{Booking: existing, Replay: true}
		return nil
	case db.IsUniqueViolation(err, ""):
		return ErrSlotConflict
	case db.IsBusy(err):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}

func validateWindow(startAt, endAt time.Time) error {
	if startAt.IsZero() || endAt.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidWindow)
	}
	if !endAt.After(startAt) {
		return fmt.Errorf("%w: end must be after start", ErrInvalidWindow)
	}
	return nil
}

type CancelParams struct {
	LeagueID  int64
	BookingID int64
}

// Cancel moves a confirmed booking to cancelled and returns it. The window
// it held becomes bookable again as soon as the transaction commits.
func (e *Engine) Cancel(ctx context.Context, arg CancelParams) (db.Booking, error) {
	return e.transition(ctx, arg.LeagueID, arg.BookingID, db.BookingStatusCancelled, "")
}

type CheckInParams struct {
	LeagueID  int64
	BookingID int64
	Code      string
}

// CheckIn completes a confirmed booking when the presented code matches the
// one issued at creation.
func (e *Engine) CheckIn(ctx context.Context, arg CheckInParams) (db.Booking, error) {
	return e.transition(ctx, arg.LeagueID, arg.BookingID, db.BookingStatusCompleted, arg.Code)
}

func (e *Engine) transition(ctx context.Context, leagueID, bookingID int64, toStatus, code string) (db.Booking, error) {
	var updated db.Booking
	err := e.store.RunInTx(ctx, func(tx *db.DB) error {
		current, err := tx.Queries.GetBooking(ctx, db.GetBookingParams{ID: bookingID, LeagueID: leagueID})
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if current.Status != db.BookingStatusConfirmed {
			return ErrNotConfirmed
		}
		if toStatus == db.BookingStatusCompleted && current.QRCode != code {
			return ErrCodeMismatch
		}

		rows, err := tx.Queries.TransitionBookingStatus(ctx, db.TransitionBookingStatusParams{
			ID:         bookingID,
			LeagueID:   leagueID,
			FromStatus: db.BookingStatusConfirmed,
			Status:     toStatus,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotConfirmed
		}

		updated, err = tx.Queries.GetBooking(ctx, db.GetBookingParams{ID: bookingID, LeagueID: leagueID})
		return err
	})
	if err != nil {
		if db.IsBusy(err) {
			return db.Booking{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return db.Booking{}, err
	}
	return updated, nil
}

// ExpireNoShows marks confirmed bookings whose window ended before now as
// no-shows and returns how many were marked. The scheduler runs this
// periodically.
func (e *Engine) ExpireNoShows(ctx context.Context, now time.Time) (int64, error) {
	marked, err := e.store.Queries.ExpireUncheckedBookings(ctx, now.UTC().Truncate(time.Second))
	if err != nil {
		if db.IsBusy(err) {
			return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return 0, err
	}
	return marked, nil
}

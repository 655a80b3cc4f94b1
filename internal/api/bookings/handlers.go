// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leaguehq/leaguehq/internal/api/apiutil"
	"github.com/leaguehq/leaguehq/internal/api/authz"
	"github.com/leaguehq/leaguehq/internal/api/problem"
	"github.com/leaguehq/leaguehq/internal/booking"
	appdb "github.com/leaguehq/leaguehq/internal/db"
	"github.com/leaguehq/leaguehq/internal/email"
	"github.com/leaguehq/leaguehq/internal/events"
	"github.com/leaguehq/leaguehq/internal/request"
)

var (
	queries     *appdb.Queries
	engine      *booking.Engine
	publisher   *events.Publisher
	emailClient email.EmailSender
	queriesOnce sync.Once
)

const bookingQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, eng *booking.Engine, pub *events.Publisher, sender email.EmailSender) {
	if database == nil || eng == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
		engine = eng
		publisher = pub
		emailClient = sender
	})
}

type createBookingRequest struct {
	FacilityID int64     `json:"facility_id"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
}

type checkInRequest struct {
	QRCode string `json:"qr_code"`
}

type listResponse struct {
	Data       []appdb.Booking `json:"data"`
	NextCursor *int64          `json:"next_cursor"`
}

// POST /api/v1/leagues/{leagueId}/bookings
func HandleBookingCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Booking engine not initialized")
		problem.Write(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}
	user := authz.UserFromContext(r.Context())

	var req createBookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.FacilityID <= 0 {
		problem.Write(w, r, http.StatusBadRequest, "facility_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	result, err := engine.Create(ctx, booking.CreateParams{
		LeagueID:       leagueID,
		FacilityID:     req.FacilityID,
		UserID:         user.ID,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		IdempotencyKey: request.IdempotencyKey(r),
	})
	if err != nil {
		writeBookingError(w, r, err)
		return
	}

	if result.Replay {
		w.Header().Set("Idempotent-Replay", "true")
		_ = apiutil.WriteJSON(w, http.StatusOK, result.Booking)
		return
	}

	logger.Info().
		Int64("booking_id", result.Booking.ID).
		Int64("facility_id", result.Booking.FacilityID).
		Int64("league_id", leagueID).
		Msg("Booking confirmed")

	notifyBookingConfirmed(r.Context(), result.Booking)

	_ = apiutil.WriteJSON(w, http.StatusCreated, result.Booking)
}

// GET /api/v1/leagues/{leagueId}/bookings
func HandleBookingList(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}

	afterID, limit := request.Cursor(r)

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	items, err := queries.ListBookingsByLeague(ctx, appdb.ListBookingsByLeagueParams{
		LeagueID: leagueID,
		AfterID:  afterID,
		Limit:    limit,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("league_id", leagueID).Msg("Failed to list bookings")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to list bookings")
		return
	}

	resp := listResponse{Data: items}
	if int64(len(items)) == limit && len(items) > 0 {
		last := items[len(items)-1].ID
		resp.NextCursor = &last
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, resp)
}

// GET /api/v1/leagues/{leagueId}/bookings/{bookingId}
func HandleBookingGet(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}
	bookingID, ok := request.PathID(r, "bookingId")
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid booking id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	found, err := queries.GetBooking(ctx, appdb.GetBookingParams{ID: bookingID, LeagueID: leagueID})
	if errors.Is(err, sql.ErrNoRows) {
		problem.Write(w, r, http.StatusNotFound, "Booking not found")
		return
	}
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to load booking")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to load booking")
		return
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, found)
}

// DELETE /api/v1/leagues/{leagueId}/bookings/{bookingId}
func HandleBookingCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}
	bookingID, ok := request.PathID(r, "bookingId")
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid booking id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	cancelled, err := engine.Cancel(ctx, booking.CancelParams{LeagueID: leagueID, BookingID: bookingID})
	if err != nil {
		writeBookingError(w, r, err)
		return
	}

	logger.Info().Int64("booking_id", bookingID).Int64("league_id", leagueID).Msg("Booking cancelled")

	notifyBookingCancelled(r.Context(), cancelled)

	_ = apiutil.WriteJSON(w, http.StatusOK, cancelled)
}

// POST /api/v1/leagues/{leagueId}/bookings/{bookingId}/checkin
func HandleBookingCheckIn(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}
	bookingID, ok := request.PathID(r, "bookingId")
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid booking id")
		return
	}

	var req checkInRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.QRCode == "" {
		problem.Write(w, r, http.StatusBadRequest, "qr_code is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	completed, err := engine.CheckIn(ctx, booking.CheckInParams{
		LeagueID:  leagueID,
		BookingID: bookingID,
		Code:      req.QRCode,
	})
	if err != nil {
		writeBookingError(w, r, err)
		return
	}

	log.Ctx(r.Context()).Info().Int64("booking_id", bookingID).Msg("Booking checked in")
	_ = apiutil.WriteJSON(w, http.StatusOK, completed)
}

func writeBookingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidWindow):
		problem.Write(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrSlotConflict):
		problem.Write(w, r, http.StatusConflict, "Time slot is unavailable")
	case errors.Is(err, booking.ErrFacilityNotFound):
		problem.Write(w, r, http.StatusNotFound, "Facility not found")
	case errors.Is(err, booking.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, "Booking not found")
	case errors.Is(err, booking.ErrNotConfirmed):
		problem.Write(w, r, http.StatusConflict, "Booking is not confirmed")
	case errors.Is(err, booking.ErrCodeMismatch):
		problem.Write(w, r, http.StatusForbidden, "Check-in code does not match")
	case errors.Is(err, booking.ErrStoreUnavailable):
		w.Header().Set("Retry-After", "1")
		problem.Write(w, r, http.StatusServiceUnavailable, "Booking store is temporarily unavailable")
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("Booking operation failed")
		problem.Write(w, r, http.StatusInternalServerError, "Booking operation failed")
	}
}

func notifyBookingConfirmed(ctx context.Context, b appdb.Booking) {
	logger := log.Ctx(ctx)

	if publisher != nil {
		event := bookingEvent(b)
		go func() {
			pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = publisher.Publish(pubCtx, events.QueueBookingConfirmed, event)
		}()
	}

	if emailClient != nil && queries != nil {
		date, timeRange := email.FormatDateTimeRange(b.StartAt, b.EndAt)
		details := email.BookingDetails{Date: date, TimeRange: timeRange, CheckInCode: b.QRCode}
		if facility, err := queries.GetFacility(ctx, appdb.GetFacilityParams{ID: b.FacilityID, LeagueID: b.LeagueID}); err == nil {
			details.FacilityName = facility.Name
		}
		if league := authz.LeagueFromContext(ctx); league != nil {
			details.LeagueName = league.Name
		}
		email.SendBookingEmail(ctx, queries, emailClient, b.UserID, email.BuildBookingConfirmation(details), logger)
	}
}

func notifyBookingCancelled(ctx context.Context, b appdb.Booking) {
	logger := log.Ctx(ctx)

	if publisher != nil {
		event := bookingEvent(b)
		go func() {
			pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = publisher.Publish(pubCtx, events.QueueBookingCancelled, event)
		}()
	}

	if emailClient != nil && queries != nil {
		date, timeRange := email.FormatDateTimeRange(b.StartAt, b.EndAt)
		details := email.BookingDetails{Date: date, TimeRange: timeRange}
		if facility, err := queries.GetFacility(ctx, appdb.GetFacilityParams{ID: b.FacilityID, LeagueID: b.LeagueID}); err == nil {
			details.FacilityName = facility.Name
		}
		email.SendBookingEmail(ctx, queries, emailClient, b.UserID, email.BuildBookingCancellation(details), logger)
	}
}

func bookingEvent(b appdb.Booking) events.BookingEvent {
	return events.BookingEvent{
		BookingID:  b.ID,
		LeagueID:   b.LeagueID,
		FacilityID: b.FacilityID,
		UserID:     b.UserID,
		StartAt:    b.StartAt,
		EndAt:      b.EndAt,
		Status:     b.Status,
		OccurredAt: time.Now().UTC(),
	}
}

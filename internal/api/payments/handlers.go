// internal/api/payments/handlers.go
package payments

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leaguehq/leaguehq/internal/api/apiutil"
	"github.com/leaguehq/leaguehq/internal/api/authz"
	"github.com/leaguehq/leaguehq/internal/api/problem"
	appdb "github.com/leaguehq/leaguehq/internal/db"
	"github.com/leaguehq/leaguehq/internal/request"
)

var (
	queries     *appdb.Queries
	store       *appdb.DB
	queriesOnce sync.Once
)

const (
	paymentQueryTimeout = 5 * time.Second
	defaultCurrency     = "usd"

	ChargeStatusSucceeded = "succeeded"
	ChargeStatusRefunded  = "refunded"
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
		store = database
	})
}

type createChargeRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createRefundRequest struct {
	Amount int64 `json:"amount"`
}

type listResponse struct {
	Data       []appdb.PaymentCharge `json:"data"`
	NextCursor *int64                `json:"next_cursor"`
}

// POST /api/v1/leagues/{leagueId}/payments/charges
//
// Charges carry the same idempotent-create contract as bookings: an
// Idempotency-Key replay returns the original charge with a 200 and never
// writes a second row.
func HandleChargeCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}
	user := authz.UserFromContext(r.Context())

	var req createChargeRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount <= 0 {
		problem.Write(w, r, http.StatusBadRequest, "amount must be positive")
		return
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if len(currency) != 3 {
		problem.Write(w, r, http.StatusBadRequest, "currency must be a 3-letter code")
		return
	}

	key := sql.NullString{}
	if k := request.IdempotencyKey(r); k != "" {
		key = sql.NullString{String: k, Valid: true}
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentQueryTimeout)
	defer cancel()

	var charge appdb.PaymentCharge
	var replay bool
	err := store.RunInTx(ctx, func(tx *appdb.DB) error {
		if key.Valid {
			existing, err := tx.Queries.GetChargeByIdempotencyKey(ctx, appdb.GetChargeByIdempotencyKeyParams{
				LeagueID:       leagueID,
				IdempotencyKey: key.String,
			})
			if err == nil {
				charge = existing
				replay = true
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}

		created, err := tx.Queries.CreateCharge(ctx, appdb.CreateChargeParams{
			LeagueID:       leagueID,
			UserID:         user.ID,
			Amount:         req.Amount,
			Currency:       currency,
			Status:         ChargeStatusSucceeded,
			IdempotencyKey: key,
		})
		if err != nil {
			return err
		}
		charge = created
		return nil
	})
	if err != nil {
		// A write-time unique violation on the idempotency index means a
		// concurrent request won the insert race for this key; its row is
		// read back and served as a replay.
		if key.Valid && appdb.IsUniqueViolation(err, "idempotency_key") {
			existing, readErr := queries.GetChargeByIdempotencyKey(ctx, appdb.GetChargeByIdempotencyKeyParams{
				LeagueID:       leagueID,
				IdempotencyKey: key.String,
			})
			if readErr == nil {
				charge = existing
				replay = true
				err = nil
			} else {
				err = readErr
			}
		}
	}
	if err != nil {
		if appdb.IsBusy(err) {
			w.Header().Set("Retry-After", "1")
			problem.Write(w, r, http.StatusServiceUnavailable, "Payment store is temporarily unavailable")
			return
		}
		logger.Error().Err(err).Int64("league_id", leagueID).Msg("Failed to create charge")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to create charge")
		return
	}

	if replay {
		w.Header().Set("Idempotent-Replay", "true")
		_ = apiutil.WriteJSON(w, http.StatusOK, charge)
		return
	}

	logger.Info().Int64("charge_id", charge.ID).Int64("amount", charge.Amount).Msg("Charge recorded")
	_ = apiutil.WriteJSON(w, http.StatusCreated, charge)
}

// GET /api/v1/leagues/{leagueId}/payments/charges
func HandleChargeList(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}

	afterID, limit := request.Cursor(r)

	ctx, cancel := context.WithTimeout(r.Context(), paymentQueryTimeout)
	defer cancel()

	items, err := queries.ListChargesByLeague(ctx, appdb.ListChargesByLeagueParams{
		LeagueID: leagueID,
		AfterID:  afterID,
		Limit:    limit,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("league_id", leagueID).Msg("Failed to list charges")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to list charges")
		return
	}

	resp := listResponse{Data: items}
	if int64(len(items)) == limit && len(items) > 0 {
		last := items[len(items)-1].ID
		resp.NextCursor = &last
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, resp)
}

// POST /api/v1/leagues/{leagueId}/payments/charges/{chargeId}/refunds
func HandleRefundCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}
	chargeID, ok := request.PathID(r, "chargeId")
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid charge id")
		return
	}

	var req createRefundRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentQueryTimeout)
	defer cancel()

	var refund appdb.PaymentRefund
	err := store.RunInTx(ctx, func(tx *appdb.DB) error {
		charge, err := tx.Queries.GetCharge(ctx, appdb.GetChargeParams{ID: chargeID, LeagueID: leagueID})
		if err != nil {
			return err
		}

		// Refunds are bounded by the balance left on the charge, not the
		// original amount; the transaction serializes concurrent refunds.
		refunded, err := tx.Queries.SumRefundsByCharge(ctx, chargeID)
		if err != nil {
			return err
		}
		remaining := charge.Amount - refunded

		amount := req.Amount
		if amount == 0 {
			amount = remaining
		}
		if amount < 0 {
			return apiutil.FieldError{Field: "amount", Reason: "must be positive"}
		}
		if amount == 0 || amount > remaining {
			return apiutil.FieldError{Field: "amount", Reason: "exceeds the refundable balance"}
		}

		refund, err = tx.Queries.CreateRefund(ctx, appdb.CreateRefundParams{
			LeagueID: leagueID,
			ChargeID: chargeID,
			Amount:   amount,
			Status:   ChargeStatusSucceeded,
		})
		if err != nil {
			return err
		}
		if amount == remaining {
			return tx.Queries.UpdateChargeStatus(ctx, appdb.UpdateChargeStatusParams{
				ID:       chargeID,
				LeagueID: leagueID,
				Status:   ChargeStatusRefunded,
			})
		}
		return nil
	})
	if err != nil {
		var fieldErr apiutil.FieldError
		switch {
		case errors.Is(err, sql.ErrNoRows):
			problem.Write(w, r, http.StatusNotFound, "Charge not found")
		case errors.As(err, &fieldErr):
			problem.Write(w, r, http.StatusBadRequest, fieldErr.Error())
		default:
			logger.Error().Err(err).Int64("charge_id", chargeID).Msg("Failed to create refund")
			problem.Write(w, r, http.StatusInternalServerError, "Failed to create refund")
		}
		return
	}

	logger.Info().Int64("refund_id", refund.ID).Int64("charge_id", chargeID).Msg("Refund recorded")
	_ = apiutil.WriteJSON(w, http.StatusCreated, refund)
}

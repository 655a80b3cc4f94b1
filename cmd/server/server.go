// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/leaguehq/leaguehq/internal/api"
	"github.com/leaguehq/leaguehq/internal/api/apiutil"
	"github.com/leaguehq/leaguehq/internal/api/bookings"
	"github.com/leaguehq/leaguehq/internal/api/facilities"
	"github.com/leaguehq/leaguehq/internal/api/leagues"
	"github.com/leaguehq/leaguehq/internal/api/payments"
	"github.com/leaguehq/leaguehq/internal/booking"
	"github.com/leaguehq/leaguehq/internal/config"
	"github.com/leaguehq/leaguehq/internal/db"
	"github.com/leaguehq/leaguehq/internal/email"
	"github.com/leaguehq/leaguehq/internal/events"
	"github.com/leaguehq/leaguehq/internal/ratelimit"
)

func newServer(
	cfg *config.Config,
	database *db.DB,
	engine *booking.Engine,
	publisher *events.Publisher,
	emailClient email.EmailSender,
	limiter *ratelimit.Limiter,
) *http.Server {
	bookings.InitHandlers(database, engine, publisher, emailClient)
	facilities.InitHandlers(database)
	leagues.InitHandlers(database)
	payments.InitHandlers(database)

	router := http.NewServeMux()
	registerRoutes(router, cfg)

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLeagueScope(database.Queries),
		api.WithIdentity,
		api.WithRateLimit(limiter, cfg.RateLimit.TrustProxy),
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_ = apiutil.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"name":   cfg.App.Name,
		})
	})

	// League routes
	mux.HandleFunc("POST /api/v1/leagues", leagues.HandleLeagueCreate)
	mux.HandleFunc("GET /api/v1/leagues", leagues.HandleLeagueList)
	mux.HandleFunc("GET /api/v1/leagues/{leagueId}", leagues.HandleLeagueGet)
	mux.HandleFunc("POST /api/v1/leagues/{leagueId}/teams", leagues.HandleTeamCreate)
	mux.HandleFunc("GET /api/v1/leagues/{leagueId}/teams", leagues.HandleTeamList)
	mux.HandleFunc("POST /api/v1/leagues/{leagueId}/players", leagues.HandlePlayerCreate)
	mux.HandleFunc("GET /api/v1/leagues/{leagueId}/players", leagues.HandlePlayerList)

	// Facility routes; listings are cacheable reads
	facilityList := http.HandlerFunc(facilities.HandleFacilityList)
	if cfg.Cache.Enabled {
		ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = 30 * time.Second
		}
		store := cache.New(ttl, 2*ttl)
		mux.Handle("GET /api/v1/leagues/{leagueId}/facilities", api.WithResponseCache(store, ttl)(facilityList))
	} else {
		mux.Handle("GET /api/v1/leagues/{leagueId}/facilities", facilityList)
	}
	mux.HandleFunc("POST /api/v1/leagues/{leagueId}/facilities", facilities.HandleFacilityCreate)
	mux.HandleFunc("GET /api/v1/leagues/{leagueId}/facilities/{facilityId}", facilities.HandleFacilityGet)

	// Booking routes
	mux.HandleFunc("POST /api/v1/leagues/{leagueId}/bookings", bookings.HandleBookingCreate)
	mux.HandleFunc("GET /api/v1/leagues/{leagueId}/bookings", bookings.HandleBookingList)
	mux.HandleFunc("GET /api/v1/leagues/{leagueId}/bookings/{bookingId}", bookings.HandleBookingGet)
	mux.HandleFunc("DELETE /api/v1/leagues/{leagueId}/bookings/{bookingId}", bookings.HandleBookingCancel)
	mux.HandleFunc("POST /api/v1/leagues/{leagueId}/bookings/{bookingId}/checkin", bookings.HandleBookingCheckIn)

	// Payment routes
	mux.HandleFunc("POST /api/v1/leagues/{leagueId}/payments/charges", payments.HandleChargeCreate)
	mux.HandleFunc("GET /api/v1/leagues/{leagueId}/payments/charges", payments.HandleChargeList)
	mux.HandleFunc("POST /api/v1/leagues/{leagueId}/payments/charges/{chargeId}/refunds", payments.HandleRefundCreate)
}

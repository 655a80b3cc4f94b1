// internal/api/middleware.go
package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/leaguehq/leaguehq/internal/api/apiutil"
	"github.com/leaguehq/leaguehq/internal/api/authz"
	"github.com/leaguehq/leaguehq/internal/api/problem"
	"github.com/leaguehq/leaguehq/internal/db"
	"github.com/leaguehq/leaguehq/internal/ratelimit"
	"github.com/leaguehq/leaguehq/internal/request"
)

type Middleware func(http.Handler) http.Handler

func ChainMiddleware(h http.Handler, middleware ...Middleware) http.Handler {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}

func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create response wrapper to capture status code
		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.status).
			Dur("duration", time.Since(start)).
			Str("request_id", r.Context().Value("request_id").(string)).
			Msg("Request completed")
	})
}

func WithRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger := log.Ctx(r.Context())
				// Log the full stack trace
				stack := debug.Stack()
				logger.Error().
					Interface("error", err).
					Str("stack", string(stack)).
					Msg("Panic recovered")

				problem.Write(w, r, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		// Create a logger with the request ID
		logger := log.With().Str("request_id", requestID).Logger()

		// Add both the request ID and logger to context
		ctx := context.WithValue(r.Context(), "request_id", requestID)
		ctx = logger.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithIdentity picks up the identity the upstream gateway attached via the
// X-User-Id header. Requests without one proceed unauthenticated; handlers
// that need a user reject them.
func WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			log.Ctx(r.Context()).Warn().Str("x_user_id", raw).Msg("Malformed identity header")
			problem.Write(w, r, http.StatusBadRequest, "Malformed X-User-Id header")
			return
		}

		ctx := authz.ContextWithUser(r.Context(), &authz.AuthUser{ID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithLeagueScope resolves the tenant named by the X-League-Id header and
// adds it to context. Handlers compare the scoped league against the league
// in the request path; a mismatch is a 403.
func WithLeagueScope(queries *db.Queries) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/health" || !strings.HasPrefix(path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			logger := log.Ctx(r.Context())

			raw := strings.TrimSpace(r.Header.Get("X-League-Id"))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			leagueID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || leagueID <= 0 {
				logger.Warn().Str("x_league_id", raw).Msg("Malformed league header")
				problem.Write(w, r, http.StatusBadRequest, "Malformed X-League-Id header")
				return
			}

			// Timeout only applies to this lookup
			queryCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			league, err := queries.GetLeague(queryCtx, leagueID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					logger.Warn().Int64("league_id", leagueID).Msg("League not found")
					problem.Write(w, r, http.StatusNotFound, "League not found")
					return
				}
				logger.Error().Err(err).Int64("league_id", leagueID).Msg("Failed to look up league")
				problem.Write(w, r, http.StatusInternalServerError, "Failed to resolve league")
				return
			}

			ctx := authz.ContextWithLeague(r.Context(), &authz.League{ID: league.ID, Name: league.Name})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithRateLimit rejects clients that exceed their token bucket with a 429.
func WithRateLimit(limiter *ratelimit.Limiter, trustProxy bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := ratelimit.GetClientIP(r, trustProxy)
			if !limiter.Allow(ip) {
				log.Ctx(r.Context()).Warn().Str("ip", ip).Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", "1")
				problem.Write(w, r, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithResponseCache serves repeated GETs from an in-memory cache. The
// league authorization check runs before the cache lookup, so a hit is
// only ever served to a request the wrapped handler would have admitted.
// Only successful JSON responses are cached; everything else passes
// through. Apply it to read-only listings, never to booking state.
func WithResponseCache(store *cache.Cache, ttl time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			leagueID, ok := request.LeagueID(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if !apiutil.RequireLeagueAccess(w, r, leagueID) {
				return
			}

			key := strconv.FormatInt(leagueID, 10) + "|" + r.URL.RequestURI()
			if cached, found := store.Get(key); found {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(cached.([]byte))
				return
			}

			recorder := &cachingResponseWriter{responseWriter: responseWriter{ResponseWriter: w}}
			next.ServeHTTP(recorder, r)
			if recorder.status == http.StatusOK {
				store.Set(key, recorder.body, ttl)
			}
		})
	}
}

// responseWriter wrapper to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type cachingResponseWriter struct {
	responseWriter
	body []byte
}

func (cw *cachingResponseWriter) Write(p []byte) (int, error) {
	if cw.status == 0 {
		cw.status = http.StatusOK
	}
	if cw.status == http.StatusOK {
		cw.body = append(cw.body, p...)
	}
	return cw.responseWriter.ResponseWriter.Write(p)
}

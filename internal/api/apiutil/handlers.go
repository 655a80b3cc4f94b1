// internal/api/apiutil/handlers.go
package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/leaguehq/leaguehq/internal/api/authz"
	"github.com/leaguehq/leaguehq/internal/api/problem"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// RequireLeagueAccess authorizes the request against the league in the path
// and writes the problem response itself when access is denied. It reports
// whether the handler may proceed.
func RequireLeagueAccess(w http.ResponseWriter, r *http.Request, leagueID int64) bool {
	logger := log.Ctx(r.Context())
	user := authz.UserFromContext(r.Context())
	if err := authz.RequireLeagueAccess(r.Context(), leagueID); err != nil {
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			logEvent := logger.Warn().Int64("league_id", leagueID)
			if user != nil {
				logEvent = logEvent.Int64("user_id", user.ID)
			}
			logEvent.Msg("League access denied: unauthenticated")
			problem.Write(w, r, http.StatusUnauthorized, "Authentication required")
		case errors.Is(err, authz.ErrForbidden):
			logEvent := logger.Warn().Int64("league_id", leagueID)
			if user != nil {
				logEvent = logEvent.Int64("user_id", user.ID)
			}
			logEvent.Msg("League access denied: forbidden")
			problem.Write(w, r, http.StatusForbidden, "League scope does not match request")
		default:
			logEvent := logger.Error().Int64("league_id", leagueID).Err(err)
			if user != nil {
				logEvent = logEvent.Int64("user_id", user.ID)
			}
			logEvent.Msg("League access denied: error")
			problem.Write(w, r, http.StatusInternalServerError, "Failed to authorize request")
		}
		return false
	}
	return true
}

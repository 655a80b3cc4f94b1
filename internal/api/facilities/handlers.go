// internal/api/facilities/handlers.go
package facilities

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog/log"

	"github.com/leaguehq/leaguehq/internal/api/apiutil"
	"github.com/leaguehq/leaguehq/internal/api/problem"
	appdb "github.com/leaguehq/leaguehq/internal/db"
	"github.com/leaguehq/leaguehq/internal/request"
)

var (
	queries     *appdb.Queries
	queriesOnce sync.Once
)

const (
	facilityQueryTimeout = 5 * time.Second
	defaultPhoneRegion   = "US"
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
	})
}

type createFacilityRequest struct {
	Name         string `json:"name"`
	Location     string `json:"location"`
	ContactPhone string `json:"contact_phone"`
}

type listResponse struct {
	Data       []appdb.Facility `json:"data"`
	NextCursor *int64           `json:"next_cursor"`
}

// POST /api/v1/leagues/{leagueId}/facilities
func HandleFacilityCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}

	var req createFacilityRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		problem.Write(w, r, http.StatusBadRequest, "name is required")
		return
	}

	phone, err := normalizePhone(req.ContactPhone)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, "contact_phone is not a valid phone number")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilityQueryTimeout)
	defer cancel()

	created, err := queries.CreateFacility(ctx, appdb.CreateFacilityParams{
		LeagueID:     leagueID,
		Name:         req.Name,
		Location:     nullString(req.Location),
		ContactPhone: phone,
	})
	if err != nil {
		logger.Error().Err(err).Int64("league_id", leagueID).Msg("Failed to create facility")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to create facility")
		return
	}

	logger.Info().Int64("facility_id", created.ID).Int64("league_id", leagueID).Msg("Facility created")
	_ = apiutil.WriteJSON(w, http.StatusCreated, created)
}

// GET /api/v1/leagues/{leagueId}/facilities
func HandleFacilityList(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}

	afterID, limit := request.Cursor(r)

	ctx, cancel := context.WithTimeout(r.Context(), facilityQueryTimeout)
	defer cancel()

	items, err := queries.ListFacilitiesByLeague(ctx, appdb.ListFacilitiesByLeagueParams{
		LeagueID: leagueID,
		AfterID:  afterID,
		Limit:    limit,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("league_id", leagueID).Msg("Failed to list facilities")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to list facilities")
		return
	}

	resp := listResponse{Data: items}
	if int64(len(items)) == limit && len(items) > 0 {
		last := items[len(items)-1].ID
		resp.NextCursor = &last
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, resp)
}

// GET /api/v1/leagues/{leagueId}/facilities/{facilityId}
func HandleFacilityGet(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}
	facilityID, ok := request.PathID(r, "facilityId")
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid facility id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilityQueryTimeout)
	defer cancel()

	found, err := queries.GetFacility(ctx, appdb.GetFacilityParams{ID: facilityID, LeagueID: leagueID})
	if errors.Is(err, sql.ErrNoRows) {
		problem.Write(w, r, http.StatusNotFound, "Facility not found")
		return
	}
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to load facility")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to load facility")
		return
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, found)
}

// normalizePhone validates and formats an optional phone number as E.164.
func normalizePhone(raw string) (sql.NullString, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sql.NullString{}, nil
	}

	parsed, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil {
		return sql.NullString{}, err
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return sql.NullString{}, errors.New("invalid phone number")
	}
	return sql.NullString{
		String: phonenumbers.Format(parsed, phonenumbers.E164),
		Valid:  true,
	}, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

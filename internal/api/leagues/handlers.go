// internal/api/leagues/handlers.go
package leagues

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
	queriesOnce sync.Once
)

const leagueQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
	})
}

type createLeagueRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createTeamRequest struct {
	Name string `json:"name"`
}

type createPlayerRequest struct {
	UserID   int64  `json:"user_id"`
	TeamID   int64  `json:"team_id"`
	Position string `json:"position"`
}

type page[T any] struct {
	Data       []T    `json:"data"`
	NextCursor *int64 `json:"next_cursor"`
}

func requireUser(w http.ResponseWriter, r *http.Request) bool {
	if authz.UserFromContext(r.Context()) == nil {
		problem.Write(w, r, http.StatusUnauthorized, "Authentication required")
		return false
	}
	return true
}

// POST /api/v1/leagues
func HandleLeagueCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if !requireUser(w, r) {
		return
	}

	var req createLeagueRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		problem.Write(w, r, http.StatusBadRequest, "name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), leagueQueryTimeout)
	defer cancel()

	desc := strings.TrimSpace(req.Description)
	created, err := queries.CreateLeague(ctx, appdb.CreateLeagueParams{
		Name:        req.Name,
		Description: sql.NullString{String: desc, Valid: desc != ""},
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create league")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to create league")
		return
	}

	logger.Info().Int64("league_id", created.ID).Msg("League created")
	_ = apiutil.WriteJSON(w, http.StatusCreated, created)
}

// GET /api/v1/leagues
func HandleLeagueList(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}

	afterID, limit := request.Cursor(r)

	ctx, cancel := context.WithTimeout(r.Context(), leagueQueryTimeout)
	defer cancel()

	items, err := queries.ListLeagues(ctx, appdb.ListLeaguesParams{AfterID: afterID, Limit: limit})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list leagues")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to list leagues")
		return
	}

	resp := page[appdb.League]{Data: items}
	if int64(len(items)) == limit && len(items) > 0 {
		last := items[len(items)-1].ID
		resp.NextCursor = &last
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, resp)
}

// GET /api/v1/leagues/{leagueId}
func HandleLeagueGet(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), leagueQueryTimeout)
	defer cancel()

	found, err := queries.GetLeague(ctx, leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		problem.Write(w, r, http.StatusNotFound, "League not found")
		return
	}
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("league_id", leagueID).Msg("Failed to load league")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to load league")
		return
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, found)
}

// POST /api/v1/leagues/{leagueId}/teams
func HandleTeamCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}

	var req createTeamRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		problem.Write(w, r, http.StatusBadRequest, "name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), leagueQueryTimeout)
	defer cancel()

	created, err := queries.CreateTeam(ctx, appdb.CreateTeamParams{LeagueID: leagueID, Name: req.Name})
	if err != nil {
		logger.Error().Err(err).Int64("league_id", leagueID).Msg("Failed to create team")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to create team")
		return
	}

	logger.Info().Int64("team_id", created.ID).Int64("league_id", leagueID).Msg("Team created")
	_ = apiutil.WriteJSON(w, http.StatusCreated, created)
}

// GET /api/v1/leagues/{leagueId}/teams
func HandleTeamList(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}

	afterID, limit := request.Cursor(r)

	ctx, cancel := context.WithTimeout(r.Context(), leagueQueryTimeout)
	defer cancel()

	items, err := queries.ListTeamsByLeague(ctx, appdb.ListTeamsByLeagueParams{
		LeagueID: leagueID,
		AfterID:  afterID,
		Limit:    limit,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("league_id", leagueID).Msg("Failed to list teams")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to list teams")
		return
	}

	resp := page[appdb.Team]{Data: items}
	if int64(len(items)) == limit && len(items) > 0 {
		last := items[len(items)-1].ID
		resp.NextCursor = &last
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, resp)
}

// POST /api/v1/leagues/{leagueId}/players
func HandlePlayerCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}

	var req createPlayerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID <= 0 {
		problem.Write(w, r, http.StatusBadRequest, "user_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), leagueQueryTimeout)
	defer cancel()

	position := strings.TrimSpace(req.Position)
	created, err := queries.CreatePlayer(ctx, appdb.CreatePlayerParams{
		LeagueID: leagueID,
		TeamID:   sql.NullInt64{Int64: req.TeamID, Valid: req.TeamID > 0},
		UserID:   req.UserID,
		Position: sql.NullString{String: position, Valid: position != ""},
	})
	if err != nil {
		logger.Error().Err(err).Int64("league_id", leagueID).Msg("Failed to create player")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to create player")
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusCreated, created)
}

// GET /api/v1/leagues/{leagueId}/players
func HandlePlayerList(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := request.LeagueID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, "Invalid league id")
		return
	}
	if !apiutil.RequireLeagueAccess(w, r, leagueID) {
		return
	}

	afterID, limit := request.Cursor(r)

	ctx, cancel := context.WithTimeout(r.Context(), leagueQueryTimeout)
	defer cancel()

	items, err := queries.ListPlayersByLeague(ctx, appdb.ListPlayersByLeagueParams{
		LeagueID: leagueID,
		AfterID:  afterID,
		Limit:    limit,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("league_id", leagueID).Msg("Failed to list players")
		problem.Write(w, r, http.StatusInternalServerError, "Failed to list players")
		return
	}

	resp := page[appdb.Player]{Data: items}
	if int64(len(items)) == limit && len(items) > 0 {
		last := items[len(items)-1].ID
		resp.NextCursor = &last
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, resp)
}

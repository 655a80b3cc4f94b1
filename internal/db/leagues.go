// internal/db/leagues.go
package db

import (
	"context"
	"database/sql"
	"time"
)

type League struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description NullString `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateLeagueParams struct {
	Name        string
	Description sql.NullString
}

func (q *Queries) CreateLeague(ctx context.Context, arg CreateLeagueParams) (League, error) {
	const stmt = `INSERT INTO leagues (name, description) VALUES (?, ?)`
	result, err := q.db.ExecContext(ctx, stmt, arg.Name, arg.Description)
	if err != nil {
		return League{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return League{}, err
	}
	return q.GetLeague(ctx, id)
}

func (q *Queries) GetLeague(ctx context.Context, id int64) (League, error) {
	const query = `SELECT id, name, description, created_at, updated_at FROM leagues WHERE id = ?`
	var l League
	err := q.db.QueryRowContext(ctx, query, id).Scan(&l.ID, &l.Name, &l.Description, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

type ListLeaguesParams struct {
	AfterID int64
	Limit   int64
}

func (q *Queries) ListLeagues(ctx context.Context, arg ListLeaguesParams) ([]League, error) {
	const query = `SELECT id, name, description, created_at, updated_at FROM leagues
WHERE id > ? ORDER BY id LIMIT ?`
	rows, err := q.db.QueryContext(ctx, query, arg.AfterID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leagues := make([]League, 0)
	for rows.Next() {
		var l League
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		leagues = append(leagues, l)
	}
	return leagues, rows.Err()
}

type Team struct {
	ID        int64     `json:"id"`
	LeagueID  int64     `json:"league_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateTeamParams struct {
	LeagueID int64
	Name     string
}

func (q *Queries) CreateTeam(ctx context.Context, arg CreateTeamParams) (Team, error) {
	const stmt = `INSERT INTO teams (league_id, name) VALUES (?, ?)`
	result, err := q.db.ExecContext(ctx, stmt, arg.LeagueID, arg.Name)
	if err != nil {
		return Team{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Team{}, err
	}
	const query = `SELECT id, league_id, name, created_at, updated_at FROM teams WHERE id = ?`
	var t Team
	err = q.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.LeagueID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

type ListTeamsByLeagueParams struct {
	LeagueID int64
	AfterID  int64
	Limit    int64
}

func (q *Queries) ListTeamsByLeague(ctx context.Context, arg ListTeamsByLeagueParams) ([]Team, error) {
	const query = `SELECT id, league_id, name, created_at, updated_at FROM teams
WHERE league_id = ? AND id > ? ORDER BY id LIMIT ?`
	rows, err := q.db.QueryContext(ctx, query, arg.LeagueID, arg.AfterID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]Team, 0)
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.LeagueID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

type Player struct {
	ID        int64      `json:"id"`
	LeagueID  int64      `json:"league_id"`
	TeamID    NullInt64  `json:"team_id"`
	UserID    int64      `json:"user_id"`
	Position  NullString `json:"position"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type ListPlayersByLeagueParams struct {
	LeagueID int64
	AfterID  int64
	Limit    int64
}

func (q *Queries) ListPlayersByLeague(ctx context.Context, arg ListPlayersByLeagueParams) ([]Player, error) {
	const query = `SELECT id, league_id, team_id, user_id, position, created_at, updated_at FROM players
WHERE league_id = ? AND id > ? ORDER BY id LIMIT ?`
	rows, err := q.db.QueryContext(ctx, query, arg.LeagueID, arg.AfterID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]Player, 0)
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.LeagueID, &p.TeamID, &p.UserID, &p.Position, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

type CreatePlayerParams struct {
	LeagueID int64
	TeamID   sql.NullInt64
	UserID   int64
	Position sql.NullString
}

func (q *Queries) CreatePlayer(ctx context.Context, arg CreatePlayerParams) (Player, error) {
	const stmt = `INSERT INTO players (league_id, team_id, user_id, position) VALUES (?, ?, ?, ?)`
	result, err := q.db.ExecContext(ctx, stmt, arg.LeagueID, arg.TeamID, arg.UserID, arg.Position)
	if err != nil {
		return Player{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Player{}, err
	}
	const query = `SELECT id, league_id, team_id, user_id, position, created_at, updated_at FROM players WHERE id = ?`
	var p Player
	err = q.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.LeagueID, &p.TeamID, &p.UserID, &p.Position, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

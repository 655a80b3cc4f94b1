// internal/db/facilities.go
package db

import (
	"context"
	"database/sql"
	"time"
)

type Facility struct {
	ID           int64      `json:"id"`
	LeagueID     int64      `json:"league_id"`
	Name         string     `json:"name"`
	Location     NullString `json:"location"`
	ContactPhone NullString `json:"contact_phone"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

const facilityColumns = `id, league_id, name, location, contact_phone, created_at, updated_at`

type CreateFacilityParams struct {
	LeagueID     int64
	Name         string
	Location     sql.NullString
	ContactPhone sql.NullString
}

func (q *Queries) CreateFacility(ctx context.Context, arg CreateFacilityParams) (Facility, error) {
	const stmt = `INSERT INTO facilities (league_id, name, location, contact_phone) VALUES (?, ?, ?, ?)`
	result, err := q.db.ExecContext(ctx, stmt, arg.LeagueID, arg.Name, arg.Location, arg.ContactPhone)
	if err != nil {
		return Facility{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Facility{}, err
	}
	const query = `SELECT ` + facilityColumns + ` FROM facilities WHERE id = ?`
	var f Facility
	err = q.db.QueryRowContext(ctx, query, id).Scan(
		&f.ID, &f.LeagueID, &f.Name, &f.Location, &f.ContactPhone, &f.CreatedAt, &f.UpdatedAt,
	)
	return f, err
}

type GetFacilityParams struct {
	ID       int64
	LeagueID int64
}

func (q *Queries) GetFacility(ctx context.Context, arg GetFacilityParams) (Facility, error) {
	const query = `SELECT ` + facilityColumns + ` FROM facilities WHERE id = ? AND league_id = ?`
	var f Facility
	err := q.db.QueryRowContext(ctx, query, arg.ID, arg.LeagueID).Scan(
		&f.ID, &f.LeagueID, &f.Name, &f.Location, &f.ContactPhone, &f.CreatedAt, &f.UpdatedAt,
	)
	return f, err
}

type FacilityExistsParams struct {
	ID       int64
	LeagueID int64
}

func (q *Queries) FacilityExists(ctx context.Context, arg FacilityExistsParams) (int64, error) {
	const query = `SELECT COUNT(*) FROM facilities WHERE id = ? AND league_id = ?`
	var count int64
	err := q.db.QueryRowContext(ctx, query, arg.ID, arg.LeagueID).Scan(&count)
	return count, err
}

type ListFacilitiesByLeagueParams struct {
	LeagueID int64
	AfterID  int64
	Limit    int64
}

func (q *Queries) ListFacilitiesByLeague(ctx context.Context, arg ListFacilitiesByLeagueParams) ([]Facility, error) {
	const query = `SELECT ` + facilityColumns + ` FROM facilities
WHERE league_id = ? AND id > ? ORDER BY id LIMIT ?`
	rows, err := q.db.QueryContext(ctx, query, arg.LeagueID, arg.AfterID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	facilities := make([]Facility, 0)
	for rows.Next() {
		var f Facility
		if err := rows.Scan(
			&f.ID, &f.LeagueID, &f.Name, &f.Location, &f.ContactPhone, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, err
		}
		facilities = append(facilities, f)
	}
	return facilities, rows.Err()
}

package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/leaguehq/leaguehq/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedLeague inserts a league and returns its id.
func SeedLeague(t *testing.T, database *db.DB, name string) int64 {
	t.Helper()

	league, err := database.Queries.CreateLeague(context.Background(), db.CreateLeagueParams{Name: name})
	if err != nil {
		t.Fatalf("seed league: %v", err)
	}
	return league.ID
}

// SeedFacility inserts a facility in the league and returns its id.
func SeedFacility(t *testing.T, database *db.DB, leagueID int64, name string) int64 {
	t.Helper()

	facility, err := database.Queries.CreateFacility(context.Background(), db.CreateFacilityParams{
		LeagueID: leagueID,
		Name:     name,
	})
	if err != nil {
		t.Fatalf("seed facility: %v", err)
	}
	return facility.ID
}

// SeedUser inserts a user and returns its id.
func SeedUser(t *testing.T, database *db.DB, name, email string) int64 {
	t.Helper()

	user, err := database.Queries.CreateUser(context.Background(), db.CreateUserParams{
		Name:  name,
		Email: sql.NullString{String: email, Valid: email != ""},
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

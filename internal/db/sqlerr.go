// internal/db/sqlerr.go
package db

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// IsUniqueViolation reports whether err is a SQLite unique constraint
// violation, optionally narrowed to a violation whose message names the
// given column.
func IsUniqueViolation(err error, column string) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code != sqlite3.ErrConstraint || se.ExtendedCode != sqlite3.ErrConstraintUnique {
		return false
	}
	if column == "" {
		return true
	}
	return strings.Contains(se.Error(), column)
}

// IsBusy reports whether err is a SQLite lock contention error, which
// surfaces when the busy timeout expires while another writer holds the
// database.
func IsBusy(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}

// internal/request/request.go
package request

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// ParseID parses a positive int64 from a raw path or query value.
func ParseID(value string) (int64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

// LeagueID parses the league id from the request path.
func LeagueID(r *http.Request) (int64, bool) {
	return ParseID(r.PathValue("leagueId"))
}

// PathID parses the named id from the request path.
func PathID(r *http.Request, name string) (int64, bool) {
	return ParseID(r.PathValue(name))
}

// Cursor parses the pagination cursor and limit from the query string. The
// cursor is the id of the last row on the previous page; zero means the
// first page. Limits are clamped to [1, 100].
func Cursor(r *http.Request) (afterID int64, limit int64) {
	if id, ok := ParseID(r.URL.Query().Get("cursor")); ok {
		afterID = id
	}

	limit = defaultPageSize
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return afterID, limit
}

// IdempotencyKey returns the trimmed Idempotency-Key header value.
func IdempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Idempotency-Key"))
}

// internal/db/null.go
package db

import (
	"bytes"
	"database/sql"
	"encoding/json"
)

var jsonNull = []byte("null")

// NullString is a sql.NullString that marshals as the plain string, or as
// JSON null when the column is NULL.
type NullString struct {
	sql.NullString
}

func (s NullString) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return jsonNull, nil
	}
	return json.Marshal(s.String)
}

func (s *NullString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		*s = NullString{}
		return nil
	}
	if err := json.Unmarshal(data, &s.String); err != nil {
		return err
	}
	s.Valid = true
	return nil
}

// NullInt64 is the integer counterpart of NullString.
type NullInt64 struct {
	sql.NullInt64
}

func (n NullInt64) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return json.Marshal(n.Int64)
}

func (n *NullInt64) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		*n = NullInt64{}
		return nil
	}
	if err := json.Unmarshal(data, &n.Int64); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

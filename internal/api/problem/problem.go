// internal/api/problem/problem.go
//
// Package problem writes application/problem+json error responses
// (RFC 7807). Every non-2xx API response goes through here so that clients
// see one error shape.
package problem

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

type Details struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Write sends a problem response with the canonical title for the status.
func Write(w http.ResponseWriter, r *http.Request, status int, detail string) {
	WriteDetails(w, r, Details{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

func WriteDetails(w http.ResponseWriter, r *http.Request, d Details) {
	if d.Type == "" {
		d.Type = "about:blank"
	}
	if d.Title == "" {
		d.Title = http.StatusText(d.Status)
	}
	if d.Instance == "" && r != nil {
		d.Instance = r.URL.Path
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(d); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode problem response")
		http.Error(w, d.Title, d.Status)
		return
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(d.Status)
	_, _ = w.Write(buf.Bytes())
}

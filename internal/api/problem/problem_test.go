// internal/api/problem/problem_test.go
package problem

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWrite(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/leagues/1/bookings", nil)
	w := httptest.NewRecorder()

	Write(w, r, http.StatusConflict, "Time slot is unavailable")

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	if got := w.Header().Get("Content-Type"); got != "application/problem+json" {
		t.Errorf("content type = %q", got)
	}

	var d Details
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Title != "Conflict" || d.Status != http.StatusConflict {
		t.Errorf("details = %+v", d)
	}
	if d.Detail != "Time slot is unavailable" {
		t.Errorf("detail = %q", d.Detail)
	}
	if d.Instance != "/api/v1/leagues/1/bookings" {
		t.Errorf("instance = %q", d.Instance)
	}
	if d.Type != "about:blank" {
		t.Errorf("type = %q", d.Type)
	}
}

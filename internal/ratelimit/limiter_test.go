package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAllowEnforcesBurst(t *testing.T) {
	l := New(&Config{RequestsPerSecond: 1, Burst: 3})
	defer l.Close()

	for i := 0; i < 3; i++ {
		if !l.Allow("203.0.113.5") {
			t.Fatalf("request %d denied within burst", i+1)
		}
	}
	if l.Allow("203.0.113.5") {
		t.Error("request beyond burst was allowed")
	}

	// A different client has its own bucket.
	if !l.Allow("203.0.113.9") {
		t.Error("fresh client was denied")
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:54321"
	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")

	if got := GetClientIP(r, false); got != "192.0.2.10" {
		t.Errorf("untrusted proxy ip = %q, want 192.0.2.10", got)
	}
	if got := GetClientIP(r, true); got != "198.51.100.7" {
		t.Errorf("trusted proxy ip = %q, want 198.51.100.7", got)
	}
}

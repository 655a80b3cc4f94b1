// internal/api/payments/handlers_test.go
package payments

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/leaguehq/leaguehq/internal/api/authz"
	appdb "github.com/leaguehq/leaguehq/internal/db"
	"github.com/leaguehq/leaguehq/internal/testutil"
)

func setupPaymentTest(t *testing.T) (*appdb.DB, int64) {
	t.Helper()

	database := testutil.NewTestDB(t)
	leagueID := testutil.SeedLeague(t, database, "Metro League")
	testutil.SeedUser(t, database, "Dana", "dana@example.com")

	queries = nil
	store = nil
	queriesOnce = sync.Once{}
	InitHandlers(database)

	t.Cleanup(func() {
		queries = nil
		store = nil
		queriesOnce = sync.Once{}
	})

	return database, leagueID
}

func scopedRequest(method, path, body string, leagueID int64) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	ctx := authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: 1})
	ctx = authz.ContextWithLeague(ctx, &authz.League{ID: leagueID, Name: "Metro League"})
	req = req.WithContext(ctx)
	req.SetPathValue("leagueId", fmt.Sprintf("%d", leagueID))
	return req
}

func createCharge(t *testing.T, leagueID int64, body, idempotencyKey string) (*httptest.ResponseRecorder, appdb.PaymentCharge) {
	t.Helper()

	req := scopedRequest(http.MethodPost, fmt.Sprintf("/api/v1/leagues/%d/payments/charges", leagueID), body, leagueID)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	w := httptest.NewRecorder()
	HandleChargeCreate(w, req)

	var charge appdb.PaymentCharge
	if w.Code == http.StatusCreated || w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &charge); err != nil {
			t.Fatalf("decode charge: %v", err)
		}
	}
	return w, charge
}

func TestHandleChargeCreate(t *testing.T) {
	_, leagueID := setupPaymentTest(t)

	w, charge := createCharge(t, leagueID, `{"amount": 2500}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if charge.Amount != 2500 || charge.Currency != "usd" || charge.Status != ChargeStatusSucceeded {
		t.Errorf("charge = %+v", charge)
	}
}

func TestHandleChargeCreate_Validation(t *testing.T) {
	_, leagueID := setupPaymentTest(t)

	cases := []struct {
		name string
		body string
	}{
		{"zero amount", `{"amount": 0}`},
		{"negative amount", `{"amount": -5}`},
		{"bad currency", `{"amount": 100, "currency": "dollars"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := createCharge(t, leagueID, tc.body, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleChargeCreate_IdempotentReplay(t *testing.T) {
	_, leagueID := setupPaymentTest(t)

	first, charge := createCharge(t, leagueID, `{"amount": 2500}`, "charge-key-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d", first.Code)
	}

	second, replayed := createCharge(t, leagueID, `{"amount": 2500}`, "charge-key-1")
	if second.Code != http.StatusOK {
		t.Errorf("replay status = %d, want 200", second.Code)
	}
	if second.Header().Get("Idempotent-Replay") != "true" {
		t.Error("replay header missing")
	}
	if replayed.ID != charge.ID {
		t.Errorf("replay id = %d, want %d", replayed.ID, charge.ID)
	}
}

func TestHandleRefundCreate(t *testing.T) {
	_, leagueID := setupPaymentTest(t)

	w, charge := createCharge(t, leagueID, `{"amount": 2500}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("charge status = %d", w.Code)
	}

	path := fmt.Sprintf("/api/v1/leagues/%d/payments/charges/%d/refunds", leagueID, charge.ID)

	// Over-refund is rejected.
	req := scopedRequest(http.MethodPost, path, `{"amount": 9999}`, leagueID)
	req.SetPathValue("chargeId", fmt.Sprintf("%d", charge.ID))
	overW := httptest.NewRecorder()
	HandleRefundCreate(overW, req)
	if overW.Code != http.StatusBadRequest {
		t.Errorf("over-refund status = %d, want 400", overW.Code)
	}

	// Empty amount refunds the full charge.
	req = scopedRequest(http.MethodPost, path, `{}`, leagueID)
	req.SetPathValue("chargeId", fmt.Sprintf("%d", charge.ID))
	okW := httptest.NewRecorder()
	HandleRefundCreate(okW, req)
	if okW.Code != http.StatusCreated {
		t.Fatalf("refund status = %d, body = %s", okW.Code, okW.Body.String())
	}
	var refund appdb.PaymentRefund
	if err := json.Unmarshal(okW.Body.Bytes(), &refund); err != nil {
		t.Fatalf("decode refund: %v", err)
	}
	if refund.Amount != 2500 || refund.ChargeID != charge.ID {
		t.Errorf("refund = %+v", refund)
	}
}

func TestHandleRefundCreate_CumulativeLimit(t *testing.T) {
	database, leagueID := setupPaymentTest(t)

	w, charge := createCharge(t, leagueID, `{"amount": 5000}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("charge status = %d", w.Code)
	}

	path := fmt.Sprintf("/api/v1/leagues/%d/payments/charges/%d/refunds", leagueID, charge.ID)
	refund := func(body string) *httptest.ResponseRecorder {
		req := scopedRequest(http.MethodPost, path, body, leagueID)
		req.SetPathValue("chargeId", fmt.Sprintf("%d", charge.ID))
		w := httptest.NewRecorder()
		HandleRefundCreate(w, req)
		return w
	}

	if w := refund(`{"amount": 2000}`); w.Code != http.StatusCreated {
		t.Fatalf("partial refund status = %d, body = %s", w.Code, w.Body.String())
	}

	// A second refund may only cover what is left on the charge.
	if w := refund(`{"amount": 5000}`); w.Code != http.StatusBadRequest {
		t.Errorf("over-balance refund status = %d, want 400", w.Code)
	}

	// An empty amount refunds the remaining balance, not the original
	// charge amount.
	okW := refund(`{}`)
	if okW.Code != http.StatusCreated {
		t.Fatalf("remainder refund status = %d, body = %s", okW.Code, okW.Body.String())
	}
	var remainder appdb.PaymentRefund
	if err := json.Unmarshal(okW.Body.Bytes(), &remainder); err != nil {
		t.Fatalf("decode refund: %v", err)
	}
	if remainder.Amount != 3000 {
		t.Errorf("remainder refund amount = %d, want 3000", remainder.Amount)
	}

	// The charge is exhausted: every further refund is rejected.
	if w := refund(`{"amount": 1}`); w.Code != http.StatusBadRequest {
		t.Errorf("refund after exhaustion status = %d, want 400", w.Code)
	}
	if w := refund(`{}`); w.Code != http.StatusBadRequest {
		t.Errorf("repeated full refund status = %d, want 400", w.Code)
	}

	got, err := database.Queries.GetCharge(context.Background(), appdb.GetChargeParams{ID: charge.ID, LeagueID: leagueID})
	if err != nil {
		t.Fatalf("get charge: %v", err)
	}
	if got.Status != ChargeStatusRefunded {
		t.Errorf("charge status = %q, want %q", got.Status, ChargeStatusRefunded)
	}
}

func TestHandleRefundCreate_UnknownCharge(t *testing.T) {
	_, leagueID := setupPaymentTest(t)

	path := fmt.Sprintf("/api/v1/leagues/%d/payments/charges/4242/refunds", leagueID)
	req := scopedRequest(http.MethodPost, path, `{}`, leagueID)
	req.SetPathValue("chargeId", "4242")
	w := httptest.NewRecorder()
	HandleRefundCreate(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/robertventures/investor-desk-engine/api"
	"github.com/robertventures/investor-desk-engine/engine"
	"github.com/robertventures/investor-desk-engine/engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *engine.Service) {
	t.Helper()
	mem := store.NewTxMemory()
	svc := engine.NewService(mem, engine.Params{
		MonthlyRate:       engine.MustDecimal("0.01"),
		NoticePeriod:      90 * 24 * time.Hour,
		MinimumInvestment: engine.MustDecimal("1000"),
		AmountStep:        engine.MustDecimal("10"),
	}, nil, nil, nil)

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(svc, mem)))
	t.Cleanup(srv.Close)
	return srv, svc
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func createAccount(t *testing.T, base string) string {
	t.Helper()
	resp := post(t, base+"/api/accounts", api.CreateAccountRequest{
		ID:   "acct-1",
		Type: "individual",
		Name: "Test Investor",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create account: status %d", resp.StatusCode)
	}
	return decode[api.AccountDTO](t, resp).ID
}

func createInvestment(t *testing.T, base, owner string) api.InvestmentDTO {
	t.Helper()
	resp := post(t, base+"/api/investments", api.CreateInvestmentRequest{
		OwnerID:          owner,
		Amount:           "10000",
		LockupPeriod:     "one_year",
		PaymentFrequency: "compounding",
		AccountType:      "individual",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create investment: status %d", resp.StatusCode)
	}
	return decode[api.InvestmentDTO](t, resp)
}

// =============================================================================
// LIFECYCLE ENDPOINTS
// =============================================================================

func TestAPI_CreateAndActivateInvestment(t *testing.T) {
	srv, svc := newTestServer(t)
	svc.SetClockOverride(time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC))

	owner := createAccount(t, srv.URL)
	inv := createInvestment(t, srv.URL, owner)
	if inv.Status != "draft" {
		t.Fatalf("expected draft, got %s", inv.Status)
	}

	resp := post(t, srv.URL+"/api/investments/"+inv.ID+"/submit", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = post(t, srv.URL+"/api/investments/"+inv.ID+"/transition", api.TransitionRequest{
		Target: "active", ActorID: "admin-1", ActorRole: "admin",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate: status %d", resp.StatusCode)
	}
	active := decode[api.InvestmentDTO](t, resp)
	if active.Status != "active" {
		t.Fatalf("expected active, got %s", active.Status)
	}
	if active.ConfirmedAt == "" || active.LockupEndDate == "" {
		t.Error("activation must stamp confirmed_at and lockup_end_date")
	}
}

func TestAPI_CreateInvestment_ValidationError(t *testing.T) {
	srv, _ := newTestServer(t)
	owner := createAccount(t, srv.URL)

	resp := post(t, srv.URL+"/api/investments", api.CreateInvestmentRequest{
		OwnerID: owner, Amount: "500", LockupPeriod: "one_year",
		PaymentFrequency: "compounding", AccountType: "individual",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAPI_InvalidTransition_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	owner := createAccount(t, srv.URL)
	inv := createInvestment(t, srv.URL, owner)

	// draft cannot go straight to withdrawn
	resp := post(t, srv.URL+"/api/investments/"+inv.ID+"/transition", api.TransitionRequest{
		Target: "withdrawn", ActorID: "admin-1", ActorRole: "admin",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAPI_UnknownInvestment_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/investments/ghost")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// =============================================================================
// VALUATION & RECONCILIATION ENDPOINTS
// =============================================================================

func TestAPI_ValuationAndReconcile(t *testing.T) {
	srv, svc := newTestServer(t)
	svc.SetClockOverride(time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC))

	owner := createAccount(t, srv.URL)
	inv := createInvestment(t, srv.URL, owner)
	post(t, srv.URL+"/api/investments/"+inv.ID+"/submit", nil).Body.Close()
	post(t, srv.URL+"/api/investments/"+inv.ID+"/transition", api.TransitionRequest{
		Target: "active", ActorID: "admin-1", ActorRole: "admin",
	}).Body.Close()

	// Valuation at an explicit asOf three months out.
	resp, err := http.Get(srv.URL + "/api/investments/" + inv.ID + "/valuation?asOf=2025-04-15")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valuation: status %d", resp.StatusCode)
	}
	val := decode[api.ValuationDTO](t, resp)
	if val.CurrentValue != "10303.01" {
		t.Errorf("expected 10303.01, got %s", val.CurrentValue)
	}
	if val.ElapsedMonths != 3 {
		t.Errorf("expected 3 elapsed months, got %d", val.ElapsedMonths)
	}

	// Reconcile under the advanced clock.
	svc.SetClockOverride(time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC))
	reconcileResp := post(t, srv.URL+"/api/investments/"+inv.ID+"/reconcile", nil)
	if reconcileResp.StatusCode != http.StatusOK {
		t.Fatalf("reconcile: status %d", reconcileResp.StatusCode)
	}
	entries := decode[[]api.LedgerEntryDTO](t, reconcileResp)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	// Ledger shows opening entry plus accruals.
	ledgerResp, err := http.Get(srv.URL + "/api/investments/" + inv.ID + "/ledger")
	if err != nil {
		t.Fatal(err)
	}
	ledger := decode[[]api.LedgerEntryDTO](t, ledgerResp)
	if len(ledger) != 4 {
		t.Fatalf("expected 4 ledger entries, got %d", len(ledger))
	}
	if ledger[0].Type != "investment" {
		t.Errorf("expected opening entry first, got %s", ledger[0].Type)
	}
}

// =============================================================================
// ADMIN CLOCK ENDPOINT
// =============================================================================

func TestAPI_ClockOverride(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/api/admin/clock", api.ClockRequest{OverrideAt: "2030-06-01T00:00:00Z"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set clock: status %d", resp.StatusCode)
	}
	clock := decode[api.ClockDTO](t, resp)
	if !clock.Overridden {
		t.Error("expected overridden clock")
	}
	if clock.Now != "2030-06-01T00:00:00Z" {
		t.Errorf("expected frozen now, got %s", clock.Now)
	}

	resp = post(t, srv.URL+"/api/admin/clock", api.ClockRequest{})
	clock = decode[api.ClockDTO](t, resp)
	if clock.Overridden {
		t.Error("expected override cleared")
	}
}

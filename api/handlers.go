/*
handlers.go - HTTP API handlers for the investment engine

PURPOSE:
  Exposes the lifecycle and valuation engine via REST. Handles HTTP
  request/response and JSON serialization, then delegates every decision
  to the engine service. No business rule lives in this file.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                       List owning accounts
    POST   /api/accounts                       Create owning account
    GET    /api/accounts/{id}                  Get account

  Investments:
    GET    /api/investments                    List investments
    POST   /api/investments                    Create draft investment
    GET    /api/investments/{id}               Get investment
    POST   /api/investments/{id}/submit        Submit draft for review
    POST   /api/investments/{id}/transition    Apply a status transition
    GET    /api/investments/{id}/valuation     Evaluate (asOf query param)
    POST   /api/investments/{id}/reconcile     Bring ledger up to date
    GET    /api/investments/{id}/ledger        Activity history
    POST   /api/investments/{id}/withdrawal    Quote a withdrawal (starts notice)
    POST   /api/investments/{id}/terminate     Admin immediate withdrawal

  Withdrawals:
    POST   /api/withdrawals/{id}/finalize      Settle at settlement time

  Payouts:
    GET    /api/payouts/pending                Entries awaiting approval
    POST   /api/payouts/{id}/approve           Approve (idempotent)
    POST   /api/payouts/{id}/reject            Reject with reason
    POST   /api/payouts/approve-batch          Per-item batch approval

  Admin:
    GET    /api/admin/clock                    Effective clock
    POST   /api/admin/clock                    Set/clear time-machine override

ERROR HANDLING:
  Engine errors map to HTTP status via the engine's error taxonomy:
  - 400: validation and business-rule violations (IsClientError)
  - 403: actor not authorized
  - 404: missing records (IsNotFound)
  - 409: duplicate accrual detected by the store
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/robertventures/investor-desk-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *engine.Service
	Store   engine.TxStore
}

// NewHandler creates a new handler around the engine service.
func NewHandler(svc *engine.Service, store engine.TxStore) *Handler {
	return &Handler{Service: svc, Store: store}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list accounts", err)
		return
	}
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = accountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	switch engine.AccountType(req.Type) {
	case engine.AccountIndividual, engine.AccountJoint, engine.AccountEntity, engine.AccountIRA:
	default:
		writeError(w, http.StatusBadRequest, "unknown account type", nil)
		return
	}

	account := engine.Account{
		ID:        engine.AccountID(req.ID),
		Type:      engine.AccountType(req.Type),
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: h.Service.Clock().Now(),
	}
	if err := h.Store.SaveAccount(r.Context(), account); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save account", err)
		return
	}
	writeJSON(w, http.StatusCreated, accountDTO(account))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.Store.Account(r.Context(), engine.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountDTO(account))
}

// =============================================================================
// INVESTMENT HANDLERS
// =============================================================================

func (h *Handler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	investments, err := h.Store.ListInvestments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list investments", err)
		return
	}
	dtos := make([]InvestmentDTO, len(investments))
	for i, inv := range investments {
		dtos[i] = investmentDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req CreateInvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err)
		return
	}

	inv, err := h.Service.CreateInvestment(r.Context(), engine.Investment{
		OwnerID:          engine.AccountID(req.OwnerID),
		Amount:           amount,
		LockupPeriod:     engine.LockupPeriod(req.LockupPeriod),
		PaymentFrequency: engine.PaymentFrequency(req.PaymentFrequency),
		AccountType:      engine.AccountType(req.AccountType),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, investmentDTO(inv))
}

func (h *Handler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Store.Investment(r.Context(), engine.InvestmentID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, investmentDTO(inv))
}

func (h *Handler) SubmitInvestment(w http.ResponseWriter, r *http.Request) {
	id := engine.InvestmentID(chi.URLParam(r, "id"))
	inv, err := h.Service.SubmitInvestment(r.Context(), id, actorFromHeader(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, investmentDTO(inv))
}

func (h *Handler) TransitionInvestment(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	opts := engine.TransitionOptions{OverrideLockup: req.OverrideLockup}
	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount", err)
			return
		}
		opts.Amount = &amount
	}

	inv, err := h.Service.Transition(r.Context(),
		engine.InvestmentID(chi.URLParam(r, "id")),
		engine.Status(req.Target),
		engine.Actor{ID: req.ActorID, Role: req.ActorRole},
		opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, investmentDTO(inv))
}

func (h *Handler) GetValuation(w http.ResponseWriter, r *http.Request) {
	id := engine.InvestmentID(chi.URLParam(r, "id"))

	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}

	val, err := h.Service.Evaluate(r.Context(), id, asOf)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	effective := asOf
	if effective.IsZero() {
		effective = h.Service.Clock().Now()
	}
	writeJSON(w, http.StatusOK, valuationDTO(id, effective, val))
}

func (h *Handler) ReconcileInvestment(w http.ResponseWriter, r *http.Request) {
	id := engine.InvestmentID(chi.URLParam(r, "id"))

	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}

	entries, err := h.Service.Reconcile(r.Context(), id, asOf)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryDTOs(entries))
}

func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.Ledger(r.Context(), engine.InvestmentID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryDTOs(entries))
}

// =============================================================================
// WITHDRAWAL HANDLERS
// =============================================================================

func (h *Handler) QuoteWithdrawal(w http.ResponseWriter, r *http.Request) {
	req, err := h.Service.QuoteWithdrawal(r.Context(),
		engine.InvestmentID(chi.URLParam(r, "id")), actorFromHeader(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, withdrawalDTO(req))
}

func (h *Handler) FinalizeWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	var settlement time.Time
	if req.SettlementTime != "" {
		t, err := time.Parse(time.RFC3339, req.SettlementTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid settlement_time", err)
			return
		}
		settlement = t
	}

	payout, err := h.Service.FinalizeWithdrawal(r.Context(),
		engine.WithdrawalID(chi.URLParam(r, "id")),
		settlement,
		engine.Actor{ID: req.ActorID, Role: req.ActorRole},
		req.OverrideLockup)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payoutDTO(payout))
}

func (h *Handler) TerminateInvestment(w http.ResponseWriter, r *http.Request) {
	var req TerminateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	payout, err := h.Service.Terminate(r.Context(),
		engine.InvestmentID(chi.URLParam(r, "id")),
		engine.Actor{ID: req.ActorID, Role: req.ActorRole},
		req.OverrideLockup)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payoutDTO(payout))
}

// =============================================================================
// PAYOUT APPROVAL HANDLERS
// =============================================================================

func (h *Handler) ListPendingPayouts(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.PendingEntries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list pending payouts", err)
		return
	}
	writeJSON(w, http.StatusOK, entryDTOs(entries))
}

func (h *Handler) ApprovePayout(w http.ResponseWriter, r *http.Request) {
	var req ApprovePayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	entry, err := h.Service.ApprovePayout(r.Context(),
		engine.EntryID(chi.URLParam(r, "id")),
		engine.Actor{ID: req.ActorID, Role: req.ActorRole})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryDTO(entry))
}

func (h *Handler) RejectPayout(w http.ResponseWriter, r *http.Request) {
	var req RejectPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	entry, err := h.Service.RejectPayout(r.Context(),
		engine.EntryID(chi.URLParam(r, "id")),
		engine.Actor{ID: req.ActorID, Role: req.ActorRole},
		req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryDTO(entry))
}

func (h *Handler) ApprovePayoutBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	ids := make([]engine.EntryID, len(req.EntryIDs))
	for i, id := range req.EntryIDs {
		ids[i] = engine.EntryID(id)
	}

	results := h.Service.ApprovePayouts(r.Context(), ids,
		engine.Actor{ID: req.ActorID, Role: req.ActorRole})

	dtos := make([]BatchApproveResult, len(results))
	for i, res := range results {
		dto := BatchApproveResult{EntryID: string(res.EntryID)}
		if res.Err != nil {
			dto.Error = res.Err.Error()
		} else {
			dto.Status = string(res.Entry.Status)
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN CLOCK (time machine)
// =============================================================================

func (h *Handler) GetClock(w http.ResponseWriter, r *http.Request) {
	clock := h.Service.Clock()
	writeJSON(w, http.StatusOK, ClockDTO{
		Now:        formatTime(clock.Now()),
		Overridden: clock.Overridden(),
	})
}

func (h *Handler) SetClock(w http.ResponseWriter, r *http.Request) {
	var req ClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	if req.OverrideAt == "" {
		h.Service.ClearClockOverride()
	} else {
		t, err := time.Parse(time.RFC3339, req.OverrideAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid override_at", err)
			return
		}
		h.Service.SetClockOverride(t)
	}
	h.GetClock(w, r)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseAsOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("asOf")
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Also accept bare dates for convenience.
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid asOf", err)
			return time.Time{}, false
		}
	}
	return t, true
}

func actorFromHeader(r *http.Request) engine.Actor {
	actor := engine.Actor{
		ID:   r.Header.Get("X-Actor-ID"),
		Role: r.Header.Get("X-Actor-Role"),
	}
	if actor.ID == "" {
		actor = engine.SystemActor
	}
	return actor
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not authorized", err)
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, engine.ErrDuplicateAccrual):
		writeError(w, http.StatusConflict, "duplicate accrual", err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, "request rejected", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract: legacy field
  shapes are translated here, at the boundary, never inside the engine.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  All amounts cross the wire as decimal strings ("10303.01"), never as
  JSON numbers - float64 round-tripping is how valuation bugs are born.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/robertventures/investor-desk-engine/engine"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AccountDTO represents an owning account in API responses.
type AccountDTO struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateAccountRequest is the request to create an owning account.
type CreateAccountRequest struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// InvestmentDTO represents an investment in API responses.
type InvestmentDTO struct {
	ID               string `json:"id"`
	OwnerID          string `json:"owner_id"`
	Amount           string `json:"amount"`
	Status           string `json:"status"`
	LockupPeriod     string `json:"lockup_period"`
	PaymentFrequency string `json:"payment_frequency"`
	AccountType      string `json:"account_type"`
	CreatedAt        string `json:"created_at,omitempty"`
	SubmittedAt      string `json:"submitted_at,omitempty"`
	ConfirmedAt      string `json:"confirmed_at,omitempty"`
	LockupEndDate    string `json:"lockup_end_date,omitempty"`
	PayoutDueBy      string `json:"payout_due_by,omitempty"`
	LastAccrualIndex int    `json:"last_accrual_index"`
}

// CreateInvestmentRequest is the request to create a draft investment.
type CreateInvestmentRequest struct {
	OwnerID          string `json:"owner_id"`
	Amount           string `json:"amount"`
	LockupPeriod     string `json:"lockup_period"`
	PaymentFrequency string `json:"payment_frequency"`
	AccountType      string `json:"account_type"`
}

// TransitionRequest asks for a status transition.
type TransitionRequest struct {
	Target         string `json:"target"`
	ActorID        string `json:"actor_id"`
	ActorRole      string `json:"actor_role"`
	OverrideLockup bool   `json:"override_lockup,omitempty"`
	Amount         string `json:"amount,omitempty"` // attempted amount change, rejected when locked
}

// ValuationDTO is the result of evaluating an investment.
type ValuationDTO struct {
	InvestmentID  string `json:"investment_id"`
	AsOf          string `json:"as_of"`
	Principal     string `json:"principal"`
	TotalEarnings string `json:"total_earnings"`
	CurrentValue  string `json:"current_value"`
	ElapsedMonths int    `json:"elapsed_months"`
	NextAccrualAt string `json:"next_accrual_at,omitempty"`
}

// LedgerEntryDTO represents one activity record.
type LedgerEntryDTO struct {
	ID           string `json:"id"`
	InvestmentID string `json:"investment_id"`
	Type         string `json:"type"`
	Amount       string `json:"amount"`
	PeriodIndex  *int   `json:"period_index,omitempty"`
	Status       string `json:"status"`
	Note         string `json:"note,omitempty"`
	OccurredAt   string `json:"occurred_at"`
	RecordedAt   string `json:"recorded_at"`
}

// WithdrawalDTO represents a withdrawal request.
type WithdrawalDTO struct {
	ID             string `json:"id"`
	InvestmentID   string `json:"investment_id"`
	RequestedAt    string `json:"requested_at"`
	QuotedAmount   string `json:"quoted_amount"`
	QuotedEarnings string `json:"quoted_earnings"`
	FinalAmount    string `json:"final_amount,omitempty"`
	FinalEarnings  string `json:"final_earnings,omitempty"`
	Status         string `json:"status"`
	PayoutDueBy    string `json:"payout_due_by"`
	SettledAt      string `json:"settled_at,omitempty"`
}

// FinalPayoutDTO is the settlement result.
type FinalPayoutDTO struct {
	InvestmentID string `json:"investment_id"`
	Amount       string `json:"amount"`
	Earnings     string `json:"earnings"`
	SettledAt    string `json:"settled_at"`
}

// FinalizeRequest settles a withdrawal.
type FinalizeRequest struct {
	SettlementTime string `json:"settlement_time,omitempty"` // RFC3339, empty = now
	ActorID        string `json:"actor_id"`
	ActorRole      string `json:"actor_role"`
	OverrideLockup bool   `json:"override_lockup,omitempty"`
}

// TerminateRequest is an admin-initiated immediate withdrawal.
type TerminateRequest struct {
	ActorID        string `json:"actor_id"`
	ActorRole      string `json:"actor_role"`
	OverrideLockup bool   `json:"override_lockup,omitempty"`
}

// RejectPayoutRequest rejects a pending payout entry.
type RejectPayoutRequest struct {
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
	Reason    string `json:"reason"`
}

// ApprovePayoutRequest approves a pending payout entry.
type ApprovePayoutRequest struct {
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
}

// BatchApproveRequest approves several payout entries independently.
type BatchApproveRequest struct {
	EntryIDs  []string `json:"entry_ids"`
	ActorID   string   `json:"actor_id"`
	ActorRole string   `json:"actor_role"`
}

// BatchApproveResult is the per-item outcome of a batch approval.
type BatchApproveResult struct {
	EntryID string `json:"entry_id"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ClockRequest sets or clears the admin time-machine override.
type ClockRequest struct {
	OverrideAt string `json:"override_at,omitempty"` // RFC3339, empty = clear
}

// ClockDTO reports the effective clock.
type ClockDTO struct {
	Now        string `json:"now"`
	Overridden bool   `json:"overridden"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func accountDTO(a engine.Account) AccountDTO {
	return AccountDTO{
		ID:        string(a.ID),
		Type:      string(a.Type),
		Name:      a.Name,
		Email:     a.Email,
		CreatedAt: formatTime(a.CreatedAt),
	}
}

func investmentDTO(inv engine.Investment) InvestmentDTO {
	dto := InvestmentDTO{
		ID:               string(inv.ID),
		OwnerID:          string(inv.OwnerID),
		Amount:           inv.Amount.String(),
		Status:           string(inv.Status),
		LockupPeriod:     string(inv.LockupPeriod),
		PaymentFrequency: string(inv.PaymentFrequency),
		AccountType:      string(inv.AccountType),
		CreatedAt:        formatTime(inv.CreatedAt),
		SubmittedAt:      formatTime(inv.SubmittedAt),
		ConfirmedAt:      formatTime(inv.ConfirmedAt),
		LockupEndDate:    formatTime(inv.LockupEndDate),
		LastAccrualIndex: inv.LastAccrualIndex,
	}
	if inv.PayoutDueBy != nil {
		dto.PayoutDueBy = formatTime(*inv.PayoutDueBy)
	}
	return dto
}

func valuationDTO(id engine.InvestmentID, asOf time.Time, v engine.Valuation) ValuationDTO {
	return ValuationDTO{
		InvestmentID:  string(id),
		AsOf:          formatTime(asOf),
		Principal:     v.Principal.String(),
		TotalEarnings: v.TotalEarnings.String(),
		CurrentValue:  v.CurrentValue.String(),
		ElapsedMonths: v.ElapsedMonths,
		NextAccrualAt: formatTime(v.NextAccrualAt),
	}
}

func entryDTO(e engine.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:           string(e.ID),
		InvestmentID: string(e.InvestmentID),
		Type:         string(e.Type),
		Amount:       e.Amount.String(),
		PeriodIndex:  e.PeriodIndex,
		Status:       string(e.Status),
		Note:         e.Note,
		OccurredAt:   formatTime(e.OccurredAt),
		RecordedAt:   formatTime(e.RecordedAt),
	}
}

func entryDTOs(entries []engine.LedgerEntry) []LedgerEntryDTO {
	out := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = entryDTO(e)
	}
	return out
}

func withdrawalDTO(w engine.WithdrawalRequest) WithdrawalDTO {
	dto := WithdrawalDTO{
		ID:             string(w.ID),
		InvestmentID:   string(w.InvestmentID),
		RequestedAt:    formatTime(w.RequestedAt),
		QuotedAmount:   w.QuotedAmount.String(),
		QuotedEarnings: w.QuotedEarnings.String(),
		Status:         string(w.Status),
		PayoutDueBy:    formatTime(w.PayoutDueBy),
	}
	if w.SettledAt != nil {
		dto.FinalAmount = w.FinalAmount.String()
		dto.FinalEarnings = w.FinalEarnings.String()
		dto.SettledAt = formatTime(*w.SettledAt)
	}
	return dto
}

func payoutDTO(p engine.FinalPayout) FinalPayoutDTO {
	return FinalPayoutDTO{
		InvestmentID: string(p.InvestmentID),
		Amount:       p.Amount.String(),
		Earnings:     p.Earnings.String(),
		SettledAt:    formatTime(p.SettledAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

/*
Package engine implements the investment lifecycle and valuation engine.

PURPOSE:
  This package contains the core decision logic for an investment's life:
  the status state machine, point-in-time valuation under two payout
  regimes, ledger reconciliation of monthly accruals, withdrawal quoting
  and settlement, and the payout approval workflow.

KEY CONCEPTS IN THIS FILE (types.go):
  - Investment: The principal record with status, lockup, and payout terms
  - LedgerEntry: An immutable activity record keyed by (investment, period, type)
  - WithdrawalRequest: A quote frozen at request time, finalized at settlement
  - Account: The owning account (the engine only ever reads its type)

DESIGN PRINCIPLES:
  1. Immutability: Amounts never change once an investment is active
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Closed enums: Statuses are typed constants with explicit transition tables
  4. Reproducibility: Every computation takes an explicit as-of instant

SEE ALSO:
  - lifecycle.go: Status transition rules
  - valuation.go: Principal + earnings calculation
  - reconcile.go: Accrual ledger derivation
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY HELPERS - Single-currency fixed-point amounts
// =============================================================================

// Cents is the display precision for all monetary results.
const Cents = 2

// MustDecimal parses a decimal literal, returning zero on failure.
// Intended for constants and test fixtures only.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RoundCents rounds a monetary amount to cents, half away from zero.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(Cents)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type InvestmentID string
type AccountID string
type EntryID string
type WithdrawalID string

// Actor identifies who is performing an operation. Authorization decisions
// (may this actor override lockup, approve payouts) are delegated to the
// Authorizer collaborator; the engine only records and forwards the actor.
type Actor struct {
	ID   string
	Role string // "investor", "admin", "system"
}

var SystemActor = Actor{ID: "system", Role: "system"}

// =============================================================================
// INVESTMENT - The principal record
// =============================================================================

type Status string

const (
	StatusDraft            Status = "draft"
	StatusPending          Status = "pending"
	StatusActive           Status = "active"
	StatusRejected         Status = "rejected"
	StatusWithdrawalNotice Status = "withdrawal_notice"
	StatusWithdrawn        Status = "withdrawn"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusWithdrawn
}

// Accruing reports whether the investment earns in this status.
func (s Status) Accruing() bool {
	return s == StatusActive || s == StatusWithdrawalNotice
}

type LockupPeriod string

const (
	LockupOneYear   LockupPeriod = "one_year"
	LockupThreeYear LockupPeriod = "three_year"
)

type PaymentFrequency string

const (
	// FrequencyMonthly pays each period's earnings out to the investor.
	// Principal is retained unchanged; distributed earnings leave the account.
	FrequencyMonthly PaymentFrequency = "monthly"

	// FrequencyCompounding retains each period's earnings, which then
	// themselves earn in subsequent periods.
	FrequencyCompounding PaymentFrequency = "compounding"
)

type AccountType string

const (
	AccountIndividual AccountType = "individual"
	AccountJoint      AccountType = "joint"
	AccountEntity     AccountType = "entity"
	AccountIRA        AccountType = "ira" // IRA accounts cannot take monthly distributions
)

// Investment is the canonical record governed by the engine.
//
// INVARIANTS:
//   - Amount is immutable once Status == active (tax/audit compliance)
//   - LockupEndDate is derived once at confirmation and thereafter fixed
//   - LastAccrualIndex never decreases and never skips a period
type Investment struct {
	ID      InvestmentID
	OwnerID AccountID

	// Principal. Minimum 1000, multiple of 10. Frozen once active.
	Amount decimal.Decimal

	Status           Status
	LockupPeriod     LockupPeriod
	PaymentFrequency PaymentFrequency
	AccountType      AccountType

	CreatedAt   time.Time
	SubmittedAt time.Time
	// ConfirmedAt is the accrual anchor: elapsed months are counted from here.
	ConfirmedAt   time.Time
	LockupEndDate time.Time

	// PayoutDueBy is stamped when the investment enters withdrawal_notice
	// (now + configured notice period).
	PayoutDueBy *time.Time

	// LastAccrualIndex counts monthly periods already reconciled into the ledger.
	LastAccrualIndex int
}

// =============================================================================
// LEDGER ENTRY - Immutable activity record
// =============================================================================

type EntryType string

const (
	EntryInvestment   EntryType = "investment"   // Opening entry, the principal
	EntryDistribution EntryType = "distribution" // Monthly earnings paid out
	EntryContribution EntryType = "contribution" // Monthly earnings retained and compounded
	EntryWithdrawal   EntryType = "withdrawal"   // Final payout at settlement
)

type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntrySubmitted EntryStatus = "submitted"
	EntryApproved  EntryStatus = "approved"
	EntryRejected  EntryStatus = "rejected"
	EntryReceived  EntryStatus = "received"
)

// TerminalEntry reports whether an entry status admits no further changes.
func (s EntryStatus) TerminalEntry() bool {
	return s == EntryRejected || s == EntryReceived
}

// LedgerEntry is one immutable record of a financial event.
//
// The reconciliation key is (InvestmentID, PeriodIndex, Type): at most one
// entry may exist per key. This uniqueness is the mechanism that prevents
// double-accrual under retries or concurrent reconciliation.
type LedgerEntry struct {
	ID           EntryID
	InvestmentID InvestmentID
	Type         EntryType
	Amount       decimal.Decimal

	// PeriodIndex is the 1-based accrual period this entry represents.
	// Nil for non-accrual entries (opening investment, withdrawal).
	PeriodIndex *int

	Status EntryStatus

	// Note carries a human-entered annotation, e.g. a rejection reason.
	Note string

	OccurredAt time.Time // accrual/logical date
	RecordedAt time.Time // wall-clock creation time
}

// Key returns the reconciliation key for duplicate detection.
func (e LedgerEntry) Key() EntryKey {
	k := EntryKey{InvestmentID: e.InvestmentID, Type: e.Type}
	if e.PeriodIndex != nil {
		k.PeriodIndex = *e.PeriodIndex
		k.HasPeriod = true
	}
	return k
}

type EntryKey struct {
	InvestmentID InvestmentID
	Type         EntryType
	PeriodIndex  int
	HasPeriod    bool
}

// =============================================================================
// WITHDRAWAL REQUEST - Quote frozen at request, finalized at settlement
// =============================================================================

type WithdrawalStatus string

const (
	WithdrawalRequested WithdrawalStatus = "requested"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
)

type WithdrawalRequest struct {
	ID           WithdrawalID
	InvestmentID InvestmentID
	RequestedAt  time.Time

	// Frozen at request time.
	QuotedAmount   decimal.Decimal
	QuotedEarnings decimal.Decimal

	// Frozen at settlement time.
	FinalAmount   decimal.Decimal
	FinalEarnings decimal.Decimal

	Status      WithdrawalStatus
	PayoutDueBy time.Time // notice-period deadline
	SettledAt   *time.Time
}

// FinalPayout is the settlement result of a finalized withdrawal.
type FinalPayout struct {
	InvestmentID InvestmentID
	Amount       decimal.Decimal
	Earnings     decimal.Decimal
	SettledAt    time.Time
}

// =============================================================================
// ACCOUNT - Owning account (weak reference, engine never mutates it)
// =============================================================================

type Account struct {
	ID        AccountID
	Type      AccountType
	Name      string
	Email     string
	CreatedAt time.Time
}

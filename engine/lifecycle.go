/*
lifecycle.go - Investment status state machine

PURPOSE:
  Validates and applies status transitions. The allowed-transition table
  is closed and exhaustive: invalid states are unrepresentable rather
  than merely unchecked at runtime.

TRANSITION GRAPH (directed, no cycles):

  draft ──▶ pending ──▶ active ──▶ withdrawal_notice ──▶ withdrawn
                │
                └─────▶ rejected

  rejected and withdrawn are terminal. Transitioning to the current
  status is always a no-op success (retry tolerance).

PRECONDITIONS:
  -> active:            amount unchanged from submission, account type
                        matches the owning account
  -> withdrawal_notice: stamps PayoutDueBy = now + notice period
  -> withdrawn:         now >= LockupEndDate, or overrideLockup by an
                        authorized actor

SIDE EFFECTS:
  -> active: ConfirmedAt = now, LockupEndDate = now + lockup period.
     ConfirmedAt is the anchor every later valuation counts from.
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// transitions is the closed allowed-target table. A status absent from a
// slice is unreachable from that source.
var transitions = map[Status][]Status{
	StatusDraft:            {StatusPending},
	StatusPending:          {StatusActive, StatusRejected},
	StatusActive:           {StatusWithdrawalNotice},
	StatusWithdrawalNotice: {StatusWithdrawn},
	StatusRejected:         {},
	StatusWithdrawn:        {},
}

// CanTransition reports whether target is reachable from current.
// The current status itself is always implicitly allowed (no-op).
func CanTransition(current, target Status) bool {
	if current == target {
		return true
	}
	for _, s := range transitions[current] {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionOptions carries the optional inputs a transition may need.
type TransitionOptions struct {
	// OverrideLockup permits moving to withdrawn before LockupEndDate.
	// The caller must have authorized the actor before setting this.
	OverrideLockup bool

	// Amount, when set, is an attempted principal change bundled with the
	// transition. Rejected with ErrAmountLocked whenever it differs from
	// the recorded principal of an investment at or past activation.
	Amount *decimal.Decimal

	// OwnerAccountType is the owning account's type, looked up by the
	// caller. Checked on activation.
	OwnerAccountType AccountType
}

// LifecycleStateMachine applies status transitions. Configuration (notice
// period, lockup lengths) is injected, never hard-coded.
type LifecycleStateMachine struct {
	NoticePeriod time.Duration
	LockupMonths map[LockupPeriod]int
}

// Transition validates and applies a move to target as of now. It returns
// the updated investment; the input is never mutated.
func (m LifecycleStateMachine) Transition(inv Investment, target Status, actor Actor, opts TransitionOptions, now time.Time) (Investment, error) {
	if !CanTransition(inv.Status, target) {
		return inv, &TransitionError{InvestmentID: inv.ID, From: inv.Status, To: target}
	}

	// Amount immutability: once at or past activation, the principal can
	// never change through a transition. Checked before the no-op
	// short-circuit so a retried activation with a different amount fails.
	if opts.Amount != nil && !opts.Amount.Equal(inv.Amount) {
		if inv.Status.Accruing() || inv.Status == StatusWithdrawn || target == StatusActive {
			return inv, ErrAmountLocked
		}
	}

	if inv.Status == target {
		return inv, nil // retry tolerance
	}

	out := inv
	switch target {
	case StatusPending:
		out.SubmittedAt = now

	case StatusActive:
		if opts.OwnerAccountType != "" && opts.OwnerAccountType != inv.AccountType {
			return inv, ErrAccountTypeMismatch
		}
		out.ConfirmedAt = now
		out.LockupEndDate = now.AddDate(0, m.LockupMonths[inv.LockupPeriod], 0)

	case StatusWithdrawalNotice:
		due := now.Add(m.NoticePeriod)
		out.PayoutDueBy = &due

	case StatusWithdrawn:
		if now.Before(inv.LockupEndDate) && !opts.OverrideLockup {
			return inv, &LockupError{
				InvestmentID: inv.ID,
				LockupEnd:    inv.LockupEndDate.Format("2006-01-02"),
			}
		}
	}

	out.Status = target
	return out, nil
}

// ValidateNew checks the business constraints on a draft investment before
// it may be submitted: principal minimum and step, and the IRA restriction
// on monthly distributions.
func ValidateNew(inv Investment, minimum, step decimal.Decimal) error {
	if inv.Amount.LessThan(minimum) {
		return &ValidationError{Field: "amount", Message: "below minimum investment of " + minimum.String()}
	}
	if !inv.Amount.Mod(step).IsZero() {
		return &ValidationError{Field: "amount", Message: "must be a multiple of " + step.String()}
	}
	if inv.AccountType == AccountIRA && inv.PaymentFrequency == FrequencyMonthly {
		return &ValidationError{Field: "payment_frequency", Message: "ira accounts cannot take monthly distributions"}
	}
	switch inv.LockupPeriod {
	case LockupOneYear, LockupThreeYear:
	default:
		return &ValidationError{Field: "lockup_period", Message: "unknown lockup period"}
	}
	switch inv.PaymentFrequency {
	case FrequencyMonthly, FrequencyCompounding:
	default:
		return &ValidationError{Field: "payment_frequency", Message: "unknown payment frequency"}
	}
	return nil
}

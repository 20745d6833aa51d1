/*
errors.go - Centralized error types for the engine

PURPOSE:
  All business-rule violations are returned as typed errors so callers
  (the excluded UI/API layer) can render specific messages. Nothing in
  the engine panics on business errors.

ERROR CATEGORIES:
  1. Lifecycle errors - Invalid transitions, locked amounts, lockup rules
  2. Ledger errors    - Entry state violations, duplicate accruals
  3. Validation       - Amount minimum/step, account-type restrictions
  4. Not-found        - Missing investments, entries, withdrawals

USAGE:
  if errors.Is(err, engine.ErrLockupNotExpired) {
      // offer the override path to an authorized admin
  }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned when the target status is not
	// reachable from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAmountLocked is returned on any attempt to change the principal
	// of an active investment.
	ErrAmountLocked = errors.New("amount locked: investment is active")

	// ErrAccountTypeMismatch is returned when activation is attempted and
	// the investment's account type differs from the owning account's.
	ErrAccountTypeMismatch = errors.New("account type mismatch")

	// ErrLockupNotExpired is returned when termination is attempted inside
	// the lockup period without an authorized override.
	ErrLockupNotExpired = errors.New("lockup period not expired")

	// ErrInvalidEntryState is returned when an entry status change is not
	// allowed from its current status (e.g. rejecting an approved payout).
	ErrInvalidEntryState = errors.New("invalid ledger entry state")

	// ErrDuplicateAccrual is reported when the persistence layer detects a
	// second entry for an existing (investment, period, type) key. The
	// reconciler treats this as non-fatal idempotency, not a failure.
	ErrDuplicateAccrual = errors.New("duplicate accrual entry")

	// ErrValidation covers principal and account-type validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthorized is returned when the acting actor may not perform
	// the requested override or approval.
	ErrNotAuthorized = errors.New("actor not authorized")

	ErrInvestmentNotFound = errors.New("investment not found")
	ErrEntryNotFound      = errors.New("ledger entry not found")
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
	ErrAccountNotFound    = errors.New("account not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError reports a disallowed status transition.
type TransitionError struct {
	InvestmentID InvestmentID
	From, To     Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition investment %s from %s to %s", e.InvestmentID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError reports a specific field violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// EntryStateError reports an entry status change attempted from a status
// that does not permit it.
type EntryStateError struct {
	EntryID EntryID
	Status  EntryStatus
	Op      string // "approve", "reject", "settle"
}

func (e *EntryStateError) Error() string {
	return fmt.Sprintf("cannot %s entry %s in status %s", e.Op, e.EntryID, e.Status)
}

func (e *EntryStateError) Unwrap() error { return ErrInvalidEntryState }

// LockupError reports a termination attempted before lockup end.
type LockupError struct {
	InvestmentID InvestmentID
	LockupEnd    string
}

func (e *LockupError) Error() string {
	return fmt.Sprintf("investment %s is locked until %s", e.InvestmentID, e.LockupEnd)
}

func (e *LockupError) Unwrap() error { return ErrLockupNotExpired }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is a business-rule violation the
// caller can act on (maps to HTTP 4xx at the API boundary).
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrAmountLocked) ||
		errors.Is(err, ErrAccountTypeMismatch) ||
		errors.Is(err, ErrLockupNotExpired) ||
		errors.Is(err, ErrInvalidEntryState) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotAuthorized)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInvestmentNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrWithdrawalNotFound) ||
		errors.Is(err, ErrAccountNotFound)
}

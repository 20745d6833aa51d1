/*
store.go - Persistence interfaces for the engine

PURPOSE:
  Defines the read/write contract the engine assumes of its persistence
  collaborator. The engine never performs I/O itself; the Service loads
  state, runs pure logic, and persists results through these interfaces.

KEY INTERFACES:
  Store:            Investments, accounts, withdrawals, ledger entries
  TxStore:          Store plus an atomic transaction boundary
  AccountDirectory: Owning-account type lookup for activation checks

THE CORE CORRECTNESS MECHANISM:
  AppendEntries must refuse a second entry for an existing
  (investment_id, period_index, type) key, reporting ErrDuplicateAccrual.
  This uniqueness constraint - not retries, not hope - is what makes
  accrual exactly-once under concurrent reconciliation.

LEDGER ENTRY MUTABILITY:
  Entries are append-only in amount and identity. Only Status (and the
  rejection Note) may change, and never once an entry has reached a
  terminal status (rejected, received).

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite with a unique index on the key
  - engine/store:  In-memory implementation for tests and development
*/
package engine

import "context"

// Store handles persistence of all engine records.
type Store interface {
	// --- Accounts (owning side; engine only reads the type) ---

	SaveAccount(ctx context.Context, a Account) error
	Account(ctx context.Context, id AccountID) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)

	// --- Investments ---

	SaveInvestment(ctx context.Context, inv Investment) error
	Investment(ctx context.Context, id InvestmentID) (Investment, error)
	ListInvestments(ctx context.Context) ([]Investment, error)
	// ListInvestmentsByStatus returns investments in any of the given statuses.
	ListInvestmentsByStatus(ctx context.Context, statuses ...Status) ([]Investment, error)

	// --- Ledger entries ---

	// AppendEntries persists entries atomically. A colliding
	// (investment_id, period_index, type) key fails the whole batch with
	// ErrDuplicateAccrual; no partial writes.
	AppendEntries(ctx context.Context, entries []LedgerEntry) error
	Entries(ctx context.Context, id InvestmentID) ([]LedgerEntry, error)
	Entry(ctx context.Context, id EntryID) (LedgerEntry, error)
	PendingEntries(ctx context.Context) ([]LedgerEntry, error)
	// UpdateEntry persists a status/note change. Implementations must
	// refuse updates to entries already in a terminal status.
	UpdateEntry(ctx context.Context, e LedgerEntry) error
	// NextOpeningSequence issues the next number for INV-<n> opening IDs.
	NextOpeningSequence(ctx context.Context) (int64, error)

	// --- Withdrawal requests ---

	SaveWithdrawal(ctx context.Context, w WithdrawalRequest) error
	Withdrawal(ctx context.Context, id WithdrawalID) (WithdrawalRequest, error)
	WithdrawalForInvestment(ctx context.Context, id InvestmentID) (WithdrawalRequest, error)
}

// TxStore wraps Store with an atomic transaction boundary. Reconciliation
// uses this for its "compute entries, persist, commit" contract: the new
// entries and the advanced LastAccrualIndex land together or not at all.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// AccountDirectory resolves the owning account's type. Activation checks
// the investment's account type against this.
type AccountDirectory interface {
	AccountType(ctx context.Context, id AccountID) (AccountType, error)
}

// Authorizer answers whether an actor may perform privileged operations.
// Deployments embedding the engine behind their own auth can use AllowAll.
type Authorizer interface {
	CanOverrideLockup(actor Actor) bool
	CanApprovePayout(actor Actor) bool
}

// AllowAll authorizes every actor. The default for embedded use.
type AllowAll struct{}

func (AllowAll) CanOverrideLockup(Actor) bool { return true }
func (AllowAll) CanApprovePayout(Actor) bool  { return true }

// AdminOnly authorizes only actors with the admin or system role.
type AdminOnly struct{}

func (AdminOnly) CanOverrideLockup(a Actor) bool { return a.Role == "admin" || a.Role == "system" }
func (AdminOnly) CanApprovePayout(a Actor) bool  { return a.Role == "admin" || a.Role == "system" }

// Notifier receives fire-and-forget status change events. Failures in a
// notifier must never roll back engine state; the Service dispatches these
// on a separate goroutine and ignores the outcome.
type Notifier interface {
	InvestmentStatusChanged(inv Investment, from, to Status)
	PayoutSettled(entry LedgerEntry)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) InvestmentStatusChanged(Investment, Status, Status) {}
func (NopNotifier) PayoutSettled(LedgerEntry)                          {}

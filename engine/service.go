/*
service.go - Engine façade: serialization, persistence, collaborators

PURPOSE:
  Service is what the excluded UI/API layer talks to. It wires the pure
  components (state machine, valuation, reconciler, quote calculator,
  approval gate) to their collaborators: the persistence store, the
  owning-account directory, the authorization check, the notification
  dispatcher, and the admin-settable clock.

CONCURRENCY MODEL:
  The engine is logically single-threaded per investment. Every mutating
  operation takes a per-investment mutex, so two concurrent
  reconciliations can never both decide "period 5 is next". Bulk
  approval processes items independently and returns per-item results;
  one failure never rolls back unrelated investments.

TIME:
  An administrator may freeze the service clock at an override instant
  (the "time machine"). The override lives here, at the boundary - it is
  resolved once per operation and passed into the pure components as an
  explicit value, never read ambiently.

NOTIFICATIONS:
  Status changes are dispatched fire-and-forget on their own goroutine.
  A failing notifier can never roll back a committed state change.
*/
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Params holds the injected business constants.
type Params struct {
	MonthlyRate              decimal.Decimal
	NoticePeriod             time.Duration
	LockupMonths             map[LockupPeriod]int
	MinimumInvestment        decimal.Decimal
	AmountStep               decimal.Decimal
	AutoApproveDistributions bool
}

// DefaultLockups is the standard lockup table.
func DefaultLockups() map[LockupPeriod]int {
	return map[LockupPeriod]int{
		LockupOneYear:   12,
		LockupThreeYear: 36,
	}
}

// Service exposes the engine operations over a persistence store.
type Service struct {
	store    TxStore
	accounts AccountDirectory
	auth     Authorizer
	notify   Notifier

	params     Params
	valuation  ValuationEngine
	machine    LifecycleStateMachine
	reconciler LedgerReconciler
	quotes     WithdrawalQuoteCalculator
	gate       PayoutApprovalGate

	clockMu  sync.RWMutex
	override *time.Time

	lockMu sync.Mutex
	locks  map[InvestmentID]*sync.Mutex
}

// NewService builds a Service. Nil collaborators fall back to defaults:
// account types are read from the store, every actor is authorized, and
// notifications are discarded.
func NewService(store TxStore, params Params, accounts AccountDirectory, auth Authorizer, notify Notifier) *Service {
	if params.LockupMonths == nil {
		params.LockupMonths = DefaultLockups()
	}
	if accounts == nil {
		accounts = &storeDirectory{store: store}
	}
	if auth == nil {
		auth = AllowAll{}
	}
	if notify == nil {
		notify = NopNotifier{}
	}

	valuation := ValuationEngine{MonthlyRate: params.MonthlyRate}
	return &Service{
		store:    store,
		accounts: accounts,
		auth:     auth,
		notify:   notify,
		params:   params,
		valuation: valuation,
		machine: LifecycleStateMachine{
			NoticePeriod: params.NoticePeriod,
			LockupMonths: params.LockupMonths,
		},
		reconciler: LedgerReconciler{
			Valuation:   valuation,
			AutoApprove: params.AutoApproveDistributions,
		},
		quotes: WithdrawalQuoteCalculator{
			Valuation:    valuation,
			NoticePeriod: params.NoticePeriod,
		},
		locks: make(map[InvestmentID]*sync.Mutex),
	}
}

// =============================================================================
// CLOCK - Admin time machine
// =============================================================================

// SetClockOverride freezes the service clock at the given instant.
func (s *Service) SetClockOverride(t time.Time) {
	u := t.UTC()
	s.clockMu.Lock()
	s.override = &u
	s.clockMu.Unlock()
}

// ClearClockOverride returns the service to real wall-clock time.
func (s *Service) ClearClockOverride() {
	s.clockMu.Lock()
	s.override = nil
	s.clockMu.Unlock()
}

// Clock returns the current clock value (real or frozen).
func (s *Service) Clock() Clock {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	if s.override != nil {
		return ClockAt(*s.override)
	}
	return NewClock()
}

// resolve returns asOf if set, otherwise the service clock's now.
func (s *Service) resolve(asOf time.Time) time.Time {
	if asOf.IsZero() {
		return s.Clock().Now()
	}
	return asOf.UTC()
}

// =============================================================================
// PER-INVESTMENT SERIALIZATION
// =============================================================================

// lock acquires the mutex for one investment and returns its release func.
func (s *Service) lock(id InvestmentID) func() {
	s.lockMu.Lock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	s.lockMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// =============================================================================
// INVESTMENT CREATION & LIFECYCLE
// =============================================================================

// CreateInvestment validates and stores a new draft investment.
func (s *Service) CreateInvestment(ctx context.Context, inv Investment) (Investment, error) {
	if inv.ID == "" {
		inv.ID = InvestmentID(uuid.NewString())
	}
	inv.Status = StatusDraft
	inv.CreatedAt = s.Clock().Now()
	inv.LastAccrualIndex = 0

	if _, err := s.accounts.AccountType(ctx, inv.OwnerID); err != nil {
		return Investment{}, err
	}
	if err := ValidateNew(inv, s.params.MinimumInvestment, s.params.AmountStep); err != nil {
		return Investment{}, err
	}
	if err := s.store.SaveInvestment(ctx, inv); err != nil {
		return Investment{}, err
	}
	return inv, nil
}

// SubmitInvestment moves a draft to pending review.
func (s *Service) SubmitInvestment(ctx context.Context, id InvestmentID, actor Actor) (Investment, error) {
	return s.Transition(ctx, id, StatusPending, actor, TransitionOptions{})
}

// Transition validates and applies a status transition, persisting the
// result. Activation additionally writes the opening INV-<n> ledger entry
// in the same transaction.
func (s *Service) Transition(ctx context.Context, id InvestmentID, target Status, actor Actor, opts TransitionOptions) (Investment, error) {
	defer s.lock(id)()

	inv, err := s.store.Investment(ctx, id)
	if err != nil {
		return Investment{}, err
	}

	if opts.OverrideLockup && !s.auth.CanOverrideLockup(actor) {
		return inv, ErrNotAuthorized
	}
	if target == StatusActive && opts.OwnerAccountType == "" {
		ownerType, err := s.accounts.AccountType(ctx, inv.OwnerID)
		if err != nil {
			return inv, err
		}
		opts.OwnerAccountType = ownerType
	}

	now := s.Clock().Now()
	from := inv.Status
	updated, err := s.machine.Transition(inv, target, actor, opts, now)
	if err != nil {
		return inv, err
	}
	if updated.Status == from {
		return updated, nil // no-op retry
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveInvestment(ctx, updated); err != nil {
			return err
		}
		if target == StatusActive {
			seq, err := tx.NextOpeningSequence(ctx)
			if err != nil {
				return err
			}
			if _, err := NewLedger(tx).Append(ctx, []LedgerEntry{OpeningEntry(updated, seq, now)}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return inv, err
	}

	s.dispatchStatusChange(updated, from, updated.Status)
	return updated, nil
}

// =============================================================================
// VALUATION & RECONCILIATION
// =============================================================================

// Evaluate returns the investment's valuation. A zero asOf means "now"
// according to the service clock (which honors the admin override).
func (s *Service) Evaluate(ctx context.Context, id InvestmentID, asOf time.Time) (Valuation, error) {
	inv, err := s.store.Investment(ctx, id)
	if err != nil {
		return Valuation{}, err
	}
	return s.valuation.Evaluate(inv, s.resolve(asOf)), nil
}

// Reconcile brings the investment's ledger up to date with elapsed time,
// returning the entries created by this call. Safe to call repeatedly.
func (s *Service) Reconcile(ctx context.Context, id InvestmentID, asOf time.Time) ([]LedgerEntry, error) {
	defer s.lock(id)()

	inv, err := s.store.Investment(ctx, id)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.Entries(ctx, id)
	if err != nil {
		return nil, err
	}

	newEntries, updated, err := s.reconciler.Reconcile(inv, existing, s.resolve(asOf))
	if err != nil {
		return nil, err
	}
	if len(newEntries) == 0 && updated.LastAccrualIndex == inv.LastAccrualIndex {
		return nil, nil
	}

	var written []LedgerEntry
	err = s.store.WithTx(ctx, func(tx Store) error {
		var err error
		written, err = NewLedger(tx).Append(ctx, newEntries)
		if err != nil {
			return err
		}
		return tx.SaveInvestment(ctx, updated)
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}

// Ledger returns the investment's full activity history in logical order.
func (s *Service) Ledger(ctx context.Context, id InvestmentID) ([]LedgerEntry, error) {
	if _, err := s.store.Investment(ctx, id); err != nil {
		return nil, err
	}
	return NewLedger(s.store).History(ctx, id)
}

// =============================================================================
// WITHDRAWALS
// =============================================================================

// QuoteWithdrawal starts the withdrawal flow: values the investment at now,
// freezes the quote, and moves the investment into withdrawal_notice.
func (s *Service) QuoteWithdrawal(ctx context.Context, id InvestmentID, actor Actor) (WithdrawalRequest, error) {
	defer s.lock(id)()

	inv, err := s.store.Investment(ctx, id)
	if err != nil {
		return WithdrawalRequest{}, err
	}

	now := s.Clock().Now()
	req := s.quotes.Quote(inv, now)

	from := inv.Status
	updated, err := s.machine.Transition(inv, StatusWithdrawalNotice, actor, TransitionOptions{}, now)
	if err != nil {
		return WithdrawalRequest{}, err
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveInvestment(ctx, updated); err != nil {
			return err
		}
		return tx.SaveWithdrawal(ctx, req)
	})
	if err != nil {
		return WithdrawalRequest{}, err
	}

	s.dispatchStatusChange(updated, from, updated.Status)
	return req, nil
}

// FinalizeWithdrawal settles a withdrawal at settlementTime (zero = now),
// freezes the final amounts, moves the investment to withdrawn, and records
// the withdrawal ledger entry. overrideLockup is required if settlement
// falls inside the lockup window.
func (s *Service) FinalizeWithdrawal(ctx context.Context, withdrawalID WithdrawalID, settlementTime time.Time, actor Actor, overrideLockup bool) (FinalPayout, error) {
	req, err := s.store.Withdrawal(ctx, withdrawalID)
	if err != nil {
		return FinalPayout{}, err
	}

	defer s.lock(req.InvestmentID)()

	// Re-read under the lock: an interleaved call may have settled it.
	req, err = s.store.Withdrawal(ctx, withdrawalID)
	if err != nil {
		return FinalPayout{}, err
	}

	inv, err := s.store.Investment(ctx, req.InvestmentID)
	if err != nil {
		return FinalPayout{}, err
	}
	if overrideLockup && !s.auth.CanOverrideLockup(actor) {
		return FinalPayout{}, ErrNotAuthorized
	}

	settlement := s.resolve(settlementTime)
	finalized, payout, err := s.quotes.Finalize(inv, req, settlement)
	if err != nil {
		return FinalPayout{}, err
	}
	if req.SettledAt != nil {
		// Retry of a settled withdrawal: the frozen payout is already in
		// hand and its ledger entry already written.
		return payout, nil
	}

	from := inv.Status
	updated, err := s.machine.Transition(inv, StatusWithdrawn, actor, TransitionOptions{OverrideLockup: overrideLockup}, settlement)
	if err != nil {
		return FinalPayout{}, err
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveWithdrawal(ctx, finalized); err != nil {
			return err
		}
		if err := tx.SaveInvestment(ctx, updated); err != nil {
			return err
		}
		_, err := NewLedger(tx).Append(ctx, []LedgerEntry{WithdrawalEntry(updated, payout.Amount, settlement)})
		return err
	})
	if err != nil {
		return FinalPayout{}, err
	}

	s.dispatchStatusChange(updated, from, updated.Status)
	return payout, nil
}

// Terminate is an admin-initiated immediate withdrawal: quote and finalize
// collapsed into one call at the same instant, bypassing the notice period.
// Inside the lockup window it requires an authorized override.
func (s *Service) Terminate(ctx context.Context, id InvestmentID, actor Actor, overrideLockup bool) (FinalPayout, error) {
	defer s.lock(id)()

	inv, err := s.store.Investment(ctx, id)
	if err != nil {
		return FinalPayout{}, err
	}
	if overrideLockup && !s.auth.CanOverrideLockup(actor) {
		return FinalPayout{}, ErrNotAuthorized
	}

	if inv.Status == StatusWithdrawn {
		// Retry of a completed termination: return the frozen payout
		// instead of quoting the withdrawn investment anew.
		settled, err := s.store.WithdrawalForInvestment(ctx, id)
		if err != nil {
			return FinalPayout{}, err
		}
		_, payout, err := s.quotes.Finalize(inv, settled, s.Clock().Now())
		return payout, err
	}

	now := s.Clock().Now()
	req := s.quotes.Quote(inv, now)
	req.PayoutDueBy = now // immediate: no notice period

	finalized, payout, err := s.quotes.Finalize(inv, req, now)
	if err != nil {
		return FinalPayout{}, err
	}

	from := inv.Status
	updated := inv
	if updated.Status == StatusActive {
		updated, err = s.machine.Transition(updated, StatusWithdrawalNotice, actor, TransitionOptions{}, now)
		if err != nil {
			return FinalPayout{}, err
		}
	}
	updated, err = s.machine.Transition(updated, StatusWithdrawn, actor, TransitionOptions{OverrideLockup: overrideLockup}, now)
	if err != nil {
		return FinalPayout{}, err
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveWithdrawal(ctx, finalized); err != nil {
			return err
		}
		if err := tx.SaveInvestment(ctx, updated); err != nil {
			return err
		}
		_, err := NewLedger(tx).Append(ctx, []LedgerEntry{WithdrawalEntry(updated, payout.Amount, now)})
		return err
	})
	if err != nil {
		return FinalPayout{}, err
	}

	s.dispatchStatusChange(updated, from, updated.Status)
	return payout, nil
}

// =============================================================================
// PAYOUT APPROVAL
// =============================================================================

// ApprovePayout approves a pending payout entry. Idempotent: approving an
// already approved or received entry succeeds without change.
func (s *Service) ApprovePayout(ctx context.Context, id EntryID, actor Actor) (LedgerEntry, error) {
	if !s.auth.CanApprovePayout(actor) {
		return LedgerEntry{}, ErrNotAuthorized
	}

	entry, err := s.store.Entry(ctx, id)
	if err != nil {
		return LedgerEntry{}, err
	}

	defer s.lock(entry.InvestmentID)()

	// Re-read under the lock: an interleaved approval may have settled it.
	entry, err = s.store.Entry(ctx, id)
	if err != nil {
		return LedgerEntry{}, err
	}

	updated, err := s.gate.Approve(entry, s.Clock().Now())
	if err != nil {
		return entry, err
	}
	if updated.Status == entry.Status {
		return updated, nil
	}
	if err := s.store.UpdateEntry(ctx, updated); err != nil {
		return entry, err
	}
	s.dispatchPayoutSettled(updated)
	return updated, nil
}

// RejectPayout rejects a pending payout entry with a reason. Rejecting an
// entry past pending fails with InvalidEntryState.
func (s *Service) RejectPayout(ctx context.Context, id EntryID, actor Actor, reason string) (LedgerEntry, error) {
	if !s.auth.CanApprovePayout(actor) {
		return LedgerEntry{}, ErrNotAuthorized
	}

	entry, err := s.store.Entry(ctx, id)
	if err != nil {
		return LedgerEntry{}, err
	}

	defer s.lock(entry.InvestmentID)()

	entry, err = s.store.Entry(ctx, id)
	if err != nil {
		return LedgerEntry{}, err
	}

	updated, err := s.gate.Reject(entry, reason, s.Clock().Now())
	if err != nil {
		return entry, err
	}
	return updated, s.store.UpdateEntry(ctx, updated)
}

// PayoutResult is the per-item outcome of a bulk approval.
type PayoutResult struct {
	EntryID EntryID
	Entry   LedgerEntry
	Err     error
}

// ApprovePayouts approves a batch of entries, each independently. One
// failing item never affects the others; callers inspect per-item results.
func (s *Service) ApprovePayouts(ctx context.Context, ids []EntryID, actor Actor) []PayoutResult {
	results := make([]PayoutResult, 0, len(ids))
	for _, id := range ids {
		entry, err := s.ApprovePayout(ctx, id, actor)
		results = append(results, PayoutResult{EntryID: id, Entry: entry, Err: err})
	}
	return results
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) dispatchStatusChange(inv Investment, from, to Status) {
	if from == to {
		return
	}
	// Fire-and-forget: notifier failures never affect committed state.
	go func() {
		defer func() { _ = recover() }()
		s.notify.InvestmentStatusChanged(inv, from, to)
	}()
}

func (s *Service) dispatchPayoutSettled(entry LedgerEntry) {
	go func() {
		defer func() { _ = recover() }()
		s.notify.PayoutSettled(entry)
	}()
}

// storeDirectory resolves account types from the engine's own store.
type storeDirectory struct {
	store Store
}

func (d *storeDirectory) AccountType(ctx context.Context, id AccountID) (AccountType, error) {
	a, err := d.store.Account(ctx, id)
	if err != nil {
		return "", fmt.Errorf("owner %s: %w", id, err)
	}
	return a.Type, nil
}

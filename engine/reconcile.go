/*
reconcile.go - Ledger reconciliation of elapsed accrual periods

PURPOSE:
  Derives the append-only ledger entries an investment is owed: one
  distribution (monthly) or contribution (compounding) entry per whole
  month elapsed since confirmation, plus the opening investment entry
  at activation and the withdrawal entry at settlement.

CRITICAL INVARIANTS:
  1. EXACTLY-ONCE: At most one entry per (investment, period, type).
     Entries already present are skipped, never duplicated.
  2. IDEMPOTENT: Reconciling twice at the same asOf produces zero new
     entries the second time.
  3. ALL-OR-NOTHING: LastAccrualIndex advances only together with the
     entries of a call; persistence wraps both in one transaction.
  4. NO GAPS: Periods are filled in order from LastAccrualIndex+1.

WHY DERIVED, NOT RECORDED AD HOC:
  The ledger is the audit trail. Deriving it from (ConfirmedAt, asOf)
  and the rate means any historical state can be reproduced and checked,
  and a crashed or retried run converges to the same ledger.

SEE ALSO:
  - valuation.go: Per-period earnings amounts
  - approval.go: Decides pending vs auto-approved for new entries
*/
package engine

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerReconciler creates the ledger entries implied by elapsed time and
// lifecycle events.
type LedgerReconciler struct {
	Valuation ValuationEngine
	Gate      PayoutApprovalGate

	// AutoApprove is the global flag consulted by the approval gate for
	// monthly distribution entries.
	AutoApprove bool
}

// Reconcile computes the accrual entries newly due as of asOf and returns
// them together with the investment carrying the advanced LastAccrualIndex.
//
// Entries whose (periodIndex, type) key already exists in the provided
// ledger are omitted: a detected duplicate is absorbed, not an error.
// Investments outside active/withdrawal_notice are a no-op.
func (r LedgerReconciler) Reconcile(inv Investment, ledger []LedgerEntry, asOf time.Time) ([]LedgerEntry, Investment, error) {
	if !inv.Status.Accruing() {
		return nil, inv, nil
	}

	elapsed := MonthsBetween(inv.ConfirmedAt, asOf)
	if elapsed <= inv.LastAccrualIndex {
		return nil, inv, nil
	}

	entryType := EntryContribution
	if inv.PaymentFrequency == FrequencyMonthly {
		entryType = EntryDistribution
	}

	seen := make(map[EntryKey]bool, len(ledger))
	for _, e := range ledger {
		seen[e.Key()] = true
	}

	var out []LedgerEntry
	for k := inv.LastAccrualIndex + 1; k <= elapsed; k++ {
		period := k
		key := EntryKey{InvestmentID: inv.ID, Type: entryType, PeriodIndex: period, HasPeriod: true}
		if seen[key] {
			continue // already reconciled by an earlier run
		}

		entry := LedgerEntry{
			ID:           EntryID(uuid.NewString()),
			InvestmentID: inv.ID,
			Type:         entryType,
			Amount:       r.Valuation.PeriodEarnings(inv, k),
			PeriodIndex:  &period,
			Status:       EntryPending,
			OccurredAt:   AddMonthsClipped(inv.ConfirmedAt, k),
			RecordedAt:   asOf,
		}
		if r.Gate.ShouldAutoApprove(entry, r.AutoApprove) {
			entry.Status = EntryApproved
		}
		out = append(out, entry)
	}

	updated := inv
	updated.LastAccrualIndex = elapsed
	return out, updated, nil
}

// OpeningEntry builds the ledger entry recording the principal at
// activation. Its ID takes the human-readable form INV-<n> from a
// store-issued sequence.
func OpeningEntry(inv Investment, seq int64, now time.Time) LedgerEntry {
	return LedgerEntry{
		ID:           EntryID(openingID(seq)),
		InvestmentID: inv.ID,
		Type:         EntryInvestment,
		Amount:       inv.Amount,
		Status:       EntryReceived,
		OccurredAt:   inv.ConfirmedAt,
		RecordedAt:   now,
	}
}

// WithdrawalEntry builds the ledger entry recording the final payout at
// settlement.
func WithdrawalEntry(inv Investment, amount decimal.Decimal, settledAt time.Time) LedgerEntry {
	return LedgerEntry{
		ID:           EntryID(uuid.NewString()),
		InvestmentID: inv.ID,
		Type:         EntryWithdrawal,
		Amount:       amount,
		Status:       EntryApproved,
		OccurredAt:   settledAt,
		RecordedAt:   settledAt,
	}
}

func openingID(seq int64) string {
	return "INV-" + strconv.FormatInt(seq, 10)
}

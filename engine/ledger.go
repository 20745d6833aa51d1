/*
ledger.go - Ledger façade over the Store

PURPOSE:
  Thin layer between the reconciler and persistence. Its one piece of
  logic is duplicate absorption: a DuplicateAccrual reported by the
  store is expected idempotency under races and retries, so the façade
  drops the colliding entry and keeps the rest instead of failing the
  whole reconciliation.

SEE ALSO:
  - store.go: The uniqueness contract the store implements
  - reconcile.go: Produces the entries written here
*/
package engine

import (
	"context"
	"errors"
	"sort"
)

// Ledger provides ledger reads and duplicate-absorbing writes.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Append writes entries, absorbing duplicate-key collisions. It returns the
// entries actually written. A batch that collides is retried entry by entry
// so one raced period does not discard the others.
func (l *Ledger) Append(ctx context.Context, entries []LedgerEntry) ([]LedgerEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	err := l.store.AppendEntries(ctx, entries)
	if err == nil {
		return entries, nil
	}
	if !errors.Is(err, ErrDuplicateAccrual) {
		return nil, err
	}

	var written []LedgerEntry
	for _, e := range entries {
		if err := l.store.AppendEntries(ctx, []LedgerEntry{e}); err != nil {
			if errors.Is(err, ErrDuplicateAccrual) {
				continue
			}
			return written, err
		}
		written = append(written, e)
	}
	return written, nil
}

// History returns all entries for an investment in logical order.
func (l *Ledger) History(ctx context.Context, id InvestmentID) ([]LedgerEntry, error) {
	entries, err := l.store.Entries(ctx, id)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].OccurredAt.Before(entries[j].OccurredAt)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

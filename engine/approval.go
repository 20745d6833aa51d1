package engine

import "time"

// =============================================================================
// PAYOUT APPROVAL GATE - Manual vs automatic settlement of accrual entries
// =============================================================================

// PayoutApprovalGate decides whether a scheduled payout entry settles
// automatically or waits for an admin, and applies admin approve/reject
// decisions with at-most-once semantics.
type PayoutApprovalGate struct{}

// ShouldAutoApprove reports whether a newly created accrual entry may skip
// manual review. Contribution entries always auto-settle: retained earnings
// never leave the account, so there is no payment to gate. Distribution
// entries move real money and follow the global flag.
func (PayoutApprovalGate) ShouldAutoApprove(entry LedgerEntry, globalAutoApprove bool) bool {
	switch entry.Type {
	case EntryContribution:
		return true
	case EntryDistribution:
		return globalAutoApprove
	default:
		return false
	}
}

// Approve marks a pending entry approved. Approving an entry that is
// already approved or received is a no-op success, so duplicate admin
// clicks and retried requests are harmless.
func (PayoutApprovalGate) Approve(entry LedgerEntry, now time.Time) (LedgerEntry, error) {
	switch entry.Status {
	case EntryApproved, EntryReceived:
		return entry, nil // idempotent
	case EntryPending, EntrySubmitted:
		entry.Status = EntryApproved
		return entry, nil
	default:
		return entry, &EntryStateError{EntryID: entry.ID, Status: entry.Status, Op: "approve"}
	}
}

// Reject marks a pending entry rejected. Rejecting anything other than a
// pending entry fails: an approved payout may already be in flight.
func (PayoutApprovalGate) Reject(entry LedgerEntry, reason string, now time.Time) (LedgerEntry, error) {
	switch entry.Status {
	case EntryPending, EntrySubmitted:
		entry.Status = EntryRejected
		entry.Note = reason
		return entry, nil
	default:
		return entry, &EntryStateError{EntryID: entry.ID, Status: entry.Status, Op: "reject"}
	}
}

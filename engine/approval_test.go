package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/robertventures/investor-desk-engine/engine"
)

func pendingDistribution() engine.LedgerEntry {
	one := 1
	return engine.LedgerEntry{
		ID:           "entry-1",
		InvestmentID: "inv-1",
		Type:         engine.EntryDistribution,
		Amount:       engine.MustDecimal("100"),
		PeriodIndex:  &one,
		Status:       engine.EntryPending,
	}
}

// =============================================================================
// AUTO-APPROVAL DECISION
// =============================================================================

func TestShouldAutoApprove(t *testing.T) {
	gate := engine.PayoutApprovalGate{}

	cases := []struct {
		entryType engine.EntryType
		global    bool
		want      bool
	}{
		// Contributions never move money out, so they always auto-settle.
		{engine.EntryContribution, false, true},
		{engine.EntryContribution, true, true},
		// Distributions follow the global flag.
		{engine.EntryDistribution, false, false},
		{engine.EntryDistribution, true, true},
		// Everything else waits for explicit handling.
		{engine.EntryInvestment, true, false},
		{engine.EntryWithdrawal, true, false},
	}

	for _, tc := range cases {
		e := pendingDistribution()
		e.Type = tc.entryType
		if got := gate.ShouldAutoApprove(e, tc.global); got != tc.want {
			t.Errorf("%s (global=%v): expected %v, got %v", tc.entryType, tc.global, tc.want, got)
		}
	}
}

// =============================================================================
// APPROVE
// =============================================================================

func TestApprove_Pending_BecomesApproved(t *testing.T) {
	gate := engine.PayoutApprovalGate{}
	now := time.Now()

	out, err := gate.Approve(pendingDistribution(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != engine.EntryApproved {
		t.Errorf("expected approved, got %s", out.Status)
	}
}

func TestApprove_AlreadyApproved_Idempotent(t *testing.T) {
	// GIVEN: An entry already approved
	// WHEN: An admin approves it again (double click, retried request)
	// THEN: Success without change

	gate := engine.PayoutApprovalGate{}
	e := pendingDistribution()
	e.Status = engine.EntryApproved

	out, err := gate.Approve(e, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != engine.EntryApproved {
		t.Errorf("expected approved, got %s", out.Status)
	}
}

func TestApprove_Rejected_Fails(t *testing.T) {
	gate := engine.PayoutApprovalGate{}
	e := pendingDistribution()
	e.Status = engine.EntryRejected

	_, err := gate.Approve(e, time.Now())
	if !errors.Is(err, engine.ErrInvalidEntryState) {
		t.Fatalf("expected ErrInvalidEntryState, got %v", err)
	}
}

// =============================================================================
// REJECT
// =============================================================================

func TestReject_Pending_StoresReason(t *testing.T) {
	gate := engine.PayoutApprovalGate{}

	out, err := gate.Reject(pendingDistribution(), "suspicious amount", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != engine.EntryRejected {
		t.Errorf("expected rejected, got %s", out.Status)
	}
	if out.Note != "suspicious amount" {
		t.Errorf("expected reason on note, got %q", out.Note)
	}
}

func TestReject_Approved_Fails(t *testing.T) {
	// An approved payout may already be in flight: rejection is too late.
	gate := engine.PayoutApprovalGate{}
	e := pendingDistribution()
	e.Status = engine.EntryApproved

	_, err := gate.Reject(e, "too late", time.Now())
	if !errors.Is(err, engine.ErrInvalidEntryState) {
		t.Fatalf("expected ErrInvalidEntryState, got %v", err)
	}

	var se *engine.EntryStateError
	if !errors.As(err, &se) {
		t.Fatal("expected a *EntryStateError")
	}
	if se.Op != "reject" {
		t.Errorf("expected op reject, got %s", se.Op)
	}
}

func TestReject_Received_Fails(t *testing.T) {
	gate := engine.PayoutApprovalGate{}
	e := pendingDistribution()
	e.Status = engine.EntryReceived

	if _, err := gate.Reject(e, "", time.Now()); !errors.Is(err, engine.ErrInvalidEntryState) {
		t.Fatalf("expected ErrInvalidEntryState, got %v", err)
	}
}

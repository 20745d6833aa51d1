package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robertventures/investor-desk-engine/engine"
)

func testReconciler(autoApprove bool) engine.LedgerReconciler {
	return engine.LedgerReconciler{
		Valuation:   onePercent(),
		AutoApprove: autoApprove,
	}
}

// =============================================================================
// ACCRUAL DERIVATION
// =============================================================================

func TestReconcile_Monthly_CreatesDistributionPerPeriod(t *testing.T) {
	// GIVEN: 10,000 monthly investment confirmed Jan 15, never reconciled
	// WHEN: Reconciling as of Apr 20 (three whole periods elapsed)
	// THEN: Three pending distribution entries of 100.00 each

	inv := activeInvestment("10000", engine.FrequencyMonthly, date(2025, time.January, 15))
	entries, updated, err := testReconciler(false).Reconcile(inv, nil, date(2025, time.April, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Type != engine.EntryDistribution {
			t.Errorf("entry %d: expected distribution, got %s", i, e.Type)
		}
		if e.Status != engine.EntryPending {
			t.Errorf("entry %d: expected pending, got %s", i, e.Status)
		}
		if !e.Amount.Equal(engine.MustDecimal("100")) {
			t.Errorf("entry %d: expected 100, got %s", i, e.Amount)
		}
		if e.PeriodIndex == nil || *e.PeriodIndex != i+1 {
			t.Errorf("entry %d: wrong period index %v", i, e.PeriodIndex)
		}
		// The accrual's logical date is the period completion day.
		if want := date(2025, time.January, 15).AddDate(0, i+1, 0); !e.OccurredAt.Equal(want) {
			t.Errorf("entry %d: expected OccurredAt %v, got %v", i, want, e.OccurredAt)
		}
	}

	if updated.LastAccrualIndex != 3 {
		t.Errorf("expected LastAccrualIndex 3, got %d", updated.LastAccrualIndex)
	}
}

func TestReconcile_MonthEndAnchor_ClipsOccurredAt(t *testing.T) {
	// GIVEN: An investment confirmed Jan 31
	// WHEN: Reconciling as of Apr 30 (three whole clipped periods)
	// THEN: Accruals date Feb 28, Mar 31, Apr 30, never Mar 2/3

	inv := activeInvestment("10000", engine.FrequencyMonthly, date(2025, time.January, 31))
	entries, _, err := testReconciler(false).Reconcile(inv, nil, date(2025, time.April, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	want := []time.Time{
		date(2025, time.February, 28),
		date(2025, time.March, 31),
		date(2025, time.April, 30),
	}
	for i, e := range entries {
		if !e.OccurredAt.Equal(want[i]) {
			t.Errorf("entry %d: expected OccurredAt %v, got %v", i, want[i], e.OccurredAt)
		}
	}
}

func TestReconcile_Compounding_ContributionsAutoApprove(t *testing.T) {
	// Contribution entries retain earnings in the account, so they settle
	// without review regardless of the global flag.
	inv := activeInvestment("10000", engine.FrequencyCompounding, date(2025, time.January, 15))
	entries, _, err := testReconciler(false).Reconcile(inv, nil, date(2025, time.March, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Type != engine.EntryContribution {
			t.Errorf("entry %d: expected contribution, got %s", i, e.Type)
		}
		if e.Status != engine.EntryApproved {
			t.Errorf("entry %d: expected approved, got %s", i, e.Status)
		}
	}
	// Compounding cents: 100.00 then 101.00
	if !entries[0].Amount.Equal(engine.MustDecimal("100")) || !entries[1].Amount.Equal(engine.MustDecimal("101")) {
		t.Errorf("expected 100 and 101, got %s and %s", entries[0].Amount, entries[1].Amount)
	}
}

func TestReconcile_Monthly_GlobalAutoApprove(t *testing.T) {
	inv := activeInvestment("10000", engine.FrequencyMonthly, date(2025, time.January, 15))
	entries, _, err := testReconciler(true).Reconcile(inv, nil, date(2025, time.February, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != engine.EntryApproved {
		t.Fatalf("expected one auto-approved distribution, got %+v", entries)
	}
}

// =============================================================================
// IDEMPOTENCE & EXACTLY-ONCE
// =============================================================================

func TestReconcile_SecondRun_NoNewEntries(t *testing.T) {
	// GIVEN: A reconciliation already ran as of Apr 20
	// WHEN: Running again at the same instant with the advanced index
	// THEN: Zero new entries

	inv := activeInvestment("10000", engine.FrequencyMonthly, date(2025, time.January, 15))
	r := testReconciler(false)

	first, updated, err := r.Reconcile(inv, nil, date(2025, time.April, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, again, err := r.Reconcile(updated, first, date(2025, time.April, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no entries on second run, got %d", len(second))
	}
	if again.LastAccrualIndex != updated.LastAccrualIndex {
		t.Error("second run must not move LastAccrualIndex")
	}
}

func TestReconcile_Incremental_FillsOnlyNewPeriods(t *testing.T) {
	inv := activeInvestment("10000", engine.FrequencyMonthly, date(2025, time.January, 15))
	r := testReconciler(false)

	first, updated, _ := r.Reconcile(inv, nil, date(2025, time.February, 20))
	if len(first) != 1 {
		t.Fatalf("expected 1 entry after one month, got %d", len(first))
	}

	second, updated2, _ := r.Reconcile(updated, first, date(2025, time.May, 20))
	if len(second) != 3 {
		t.Fatalf("expected 3 entries for the next three months, got %d", len(second))
	}
	if *second[0].PeriodIndex != 2 {
		t.Errorf("expected periods to continue at 2, got %d", *second[0].PeriodIndex)
	}
	if updated2.LastAccrualIndex != 4 {
		t.Errorf("expected LastAccrualIndex 4, got %d", updated2.LastAccrualIndex)
	}
}

func TestReconcile_ExistingKeyInLedger_Skipped(t *testing.T) {
	// A period already present in the ledger (written by a concurrent run
	// before this investment snapshot was read) is silently skipped.
	inv := activeInvestment("10000", engine.FrequencyMonthly, date(2025, time.January, 15))

	one := 1
	existing := []engine.LedgerEntry{{
		ID:           "pre-existing",
		InvestmentID: inv.ID,
		Type:         engine.EntryDistribution,
		Amount:       engine.MustDecimal("100"),
		PeriodIndex:  &one,
		Status:       engine.EntryPending,
	}}

	entries, updated, err := testReconciler(false).Reconcile(inv, existing, date(2025, time.March, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only period 2 to be created, got %d entries", len(entries))
	}
	if *entries[0].PeriodIndex != 2 {
		t.Errorf("expected period 2, got %d", *entries[0].PeriodIndex)
	}
	if updated.LastAccrualIndex != 2 {
		t.Errorf("expected LastAccrualIndex 2, got %d", updated.LastAccrualIndex)
	}
}

func TestReconcile_NonAccruingStatus_NoOp(t *testing.T) {
	for _, status := range []engine.Status{
		engine.StatusDraft, engine.StatusPending, engine.StatusRejected, engine.StatusWithdrawn,
	} {
		inv := activeInvestment("10000", engine.FrequencyMonthly, date(2025, time.January, 15))
		inv.Status = status

		entries, updated, err := testReconciler(false).Reconcile(inv, nil, date(2026, time.January, 15))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", status, err)
		}
		if len(entries) != 0 || updated.LastAccrualIndex != 0 {
			t.Errorf("%s: expected no-op, got %d entries, index %d", status, len(entries), updated.LastAccrualIndex)
		}
	}
}

// =============================================================================
// LIFECYCLE ENTRIES
// =============================================================================

func TestOpeningEntry(t *testing.T) {
	inv := activeInvestment("10000", engine.FrequencyCompounding, date(2025, time.January, 15))
	e := engine.OpeningEntry(inv, 7, date(2025, time.January, 15))

	if e.ID != "INV-7" {
		t.Errorf("expected ID INV-7, got %s", e.ID)
	}
	if e.Type != engine.EntryInvestment {
		t.Errorf("expected investment entry, got %s", e.Type)
	}
	if e.Status != engine.EntryReceived {
		t.Errorf("expected received, got %s", e.Status)
	}
	if !e.Amount.Equal(inv.Amount) {
		t.Errorf("expected amount %s, got %s", inv.Amount, e.Amount)
	}
	if e.PeriodIndex != nil {
		t.Error("opening entry must not carry a period index")
	}
}

func TestWithdrawalEntry(t *testing.T) {
	inv := activeInvestment("10000", engine.FrequencyCompounding, date(2025, time.January, 15))
	settled := date(2026, time.February, 1)
	e := engine.WithdrawalEntry(inv, decimal.RequireFromString("11268.25"), settled)

	if e.Type != engine.EntryWithdrawal {
		t.Errorf("expected withdrawal entry, got %s", e.Type)
	}
	if e.Status != engine.EntryApproved {
		t.Errorf("expected approved, got %s", e.Status)
	}
	if !e.OccurredAt.Equal(settled) {
		t.Errorf("expected OccurredAt %v, got %v", settled, e.OccurredAt)
	}
}

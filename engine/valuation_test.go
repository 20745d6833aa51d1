package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robertventures/investor-desk-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func onePercent() engine.ValuationEngine {
	return engine.ValuationEngine{MonthlyRate: engine.MustDecimal("0.01")}
}

func activeInvestment(amount string, freq engine.PaymentFrequency, confirmedAt time.Time) engine.Investment {
	return engine.Investment{
		ID:               "inv-1",
		OwnerID:          "acct-1",
		Amount:           engine.MustDecimal(amount),
		Status:           engine.StatusActive,
		LockupPeriod:     engine.LockupOneYear,
		PaymentFrequency: freq,
		AccountType:      engine.AccountIndividual,
		ConfirmedAt:      confirmedAt,
		LockupEndDate:    confirmedAt.AddDate(1, 0, 0),
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustEqual(t *testing.T, got decimal.Decimal, want string, label string) {
	t.Helper()
	if !got.Equal(engine.MustDecimal(want)) {
		t.Errorf("%s: expected %s, got %s", label, want, got)
	}
}

// =============================================================================
// COMPOUNDING REGIME
// =============================================================================

func TestEvaluate_Compounding_ThreeMonths(t *testing.T) {
	// GIVEN: 10,000 compounding at 1%/month, confirmed Jan 15
	// WHEN: Valued three whole months later
	// THEN: Value = 10000 x 1.01^3 = 10303.01, earnings 303.01

	inv := activeInvestment("10000", engine.FrequencyCompounding, date(2025, time.January, 15))
	val := onePercent().Evaluate(inv, date(2025, time.April, 15))

	mustEqual(t, val.CurrentValue, "10303.01", "current value")
	mustEqual(t, val.TotalEarnings, "303.01", "total earnings")
	if val.ElapsedMonths != 3 {
		t.Errorf("expected 3 elapsed months, got %d", val.ElapsedMonths)
	}
}

func TestEvaluate_Compounding_MidPeriod_NoPartialAccrual(t *testing.T) {
	// GIVEN: Investment confirmed Jan 15
	// WHEN: Valued Feb 14 (one day short of a whole month)
	// THEN: Zero periods elapsed, value stays at principal

	inv := activeInvestment("10000", engine.FrequencyCompounding, date(2025, time.January, 15))
	val := onePercent().Evaluate(inv, date(2025, time.February, 14))

	mustEqual(t, val.CurrentValue, "10000", "current value")
	mustEqual(t, val.TotalEarnings, "0", "total earnings")
	if val.ElapsedMonths != 0 {
		t.Errorf("expected 0 elapsed months, got %d", val.ElapsedMonths)
	}
}

func TestEvaluate_Compounding_Monotonic(t *testing.T) {
	// Value as of a later instant is never smaller.
	inv := activeInvestment("25000", engine.FrequencyCompounding, date(2025, time.January, 1))
	v := onePercent()

	prev := decimal.Zero
	for m := 0; m <= 24; m++ {
		val := v.Evaluate(inv, date(2025, time.January, 1).AddDate(0, m, 0))
		if val.CurrentValue.LessThan(prev) {
			t.Fatalf("value decreased at month %d: %s < %s", m, val.CurrentValue, prev)
		}
		prev = val.CurrentValue
	}
}

// =============================================================================
// MONTHLY DISTRIBUTION REGIME
// =============================================================================

func TestEvaluate_Monthly_ValueStaysAtPrincipal(t *testing.T) {
	// GIVEN: 10,000 with monthly distributions at 1%/month
	// WHEN: Valued three months after confirmation
	// THEN: Earnings are simple interest (300.00), value stays 10000

	inv := activeInvestment("10000", engine.FrequencyMonthly, date(2025, time.January, 15))
	val := onePercent().Evaluate(inv, date(2025, time.April, 15))

	mustEqual(t, val.CurrentValue, "10000", "current value")
	mustEqual(t, val.TotalEarnings, "300", "total earnings")
}

func TestEvaluate_NonAccruingStatus_ZeroEarnings(t *testing.T) {
	for _, status := range []engine.Status{
		engine.StatusDraft, engine.StatusPending, engine.StatusRejected, engine.StatusWithdrawn,
	} {
		inv := activeInvestment("10000", engine.FrequencyCompounding, date(2025, time.January, 15))
		inv.Status = status

		val := onePercent().Evaluate(inv, date(2026, time.January, 15))
		mustEqual(t, val.TotalEarnings, "0", string(status)+" earnings")
		mustEqual(t, val.CurrentValue, "10000", string(status)+" value")
	}
}

func TestEvaluate_NextAccrualAt(t *testing.T) {
	inv := activeInvestment("10000", engine.FrequencyCompounding, date(2025, time.January, 15))
	val := onePercent().Evaluate(inv, date(2025, time.March, 20))

	// Two periods elapsed (Feb 15, Mar 15); the next completes Apr 15.
	want := date(2025, time.April, 15)
	if !val.NextAccrualAt.Equal(want) {
		t.Errorf("expected next accrual %v, got %v", want, val.NextAccrualAt)
	}
}

func TestEvaluate_NextAccrualAt_MonthEndAnchor(t *testing.T) {
	// A Jan 31 anchor completes its first period Feb 28, not Mar 2/3. The
	// reported accrual date must match when the period actually completes.
	inv := activeInvestment("10000", engine.FrequencyCompounding, date(2025, time.January, 31))
	val := onePercent().Evaluate(inv, date(2025, time.February, 10))

	want := date(2025, time.February, 28)
	if !val.NextAccrualAt.Equal(want) {
		t.Errorf("expected next accrual %v, got %v", want, val.NextAccrualAt)
	}
}

func TestAddMonthsClipped(t *testing.T) {
	cases := []struct {
		name   string
		from   time.Time
		months int
		want   time.Time
	}{
		{"plain mid-month", date(2025, time.January, 15), 1, date(2025, time.February, 15)},
		{"jan 31 to feb 28", date(2025, time.January, 31), 1, date(2025, time.February, 28)},
		{"jan 31 to leap feb 29", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"jan 31 to mar 31", date(2025, time.January, 31), 2, date(2025, time.March, 31)},
		{"jan 31 to apr 30", date(2025, time.January, 31), 3, date(2025, time.April, 30)},
		{"year rollover", date(2025, time.October, 31), 4, date(2026, time.February, 28)},
		{"zero months", date(2025, time.January, 31), 0, date(2025, time.January, 31)},
	}
	for _, tc := range cases {
		got := engine.AddMonthsClipped(tc.from, tc.months)
		if !got.Equal(tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

// =============================================================================
// PER-PERIOD EARNINGS
// =============================================================================

func TestPeriodEarnings_Compounding_SumsToTotal(t *testing.T) {
	// The per-period cents must telescope: summing every period's earnings
	// reproduces the total earnings of the valuation exactly.
	inv := activeInvestment("10000", engine.FrequencyCompounding, date(2025, time.January, 1))
	v := onePercent()

	sum := decimal.Zero
	for k := 1; k <= 12; k++ {
		sum = sum.Add(v.PeriodEarnings(inv, k))
	}

	val := v.Evaluate(inv, date(2026, time.January, 1))
	if !sum.Equal(val.TotalEarnings) {
		t.Errorf("period earnings sum %s != total earnings %s", sum, val.TotalEarnings)
	}
}

func TestPeriodEarnings_Compounding_Grows(t *testing.T) {
	inv := activeInvestment("10000", engine.FrequencyCompounding, date(2025, time.January, 1))
	v := onePercent()

	mustEqual(t, v.PeriodEarnings(inv, 1), "100", "period 1")
	mustEqual(t, v.PeriodEarnings(inv, 2), "101", "period 2")
	mustEqual(t, v.PeriodEarnings(inv, 3), "102.01", "period 3")
}

func TestPeriodEarnings_Monthly_Constant(t *testing.T) {
	inv := activeInvestment("10000", engine.FrequencyMonthly, date(2025, time.January, 1))
	v := onePercent()

	for k := 1; k <= 6; k++ {
		mustEqual(t, v.PeriodEarnings(inv, k), "100", "period earnings")
	}
}

// =============================================================================
// CALENDAR MONTH ARITHMETIC
// =============================================================================

func TestMonthsBetween(t *testing.T) {
	cases := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"same instant", date(2025, time.January, 15), date(2025, time.January, 15), 0},
		{"one day short", date(2025, time.January, 15), date(2025, time.February, 14), 0},
		{"exactly one month", date(2025, time.January, 15), date(2025, time.February, 15), 1},
		{"one month and change", date(2025, time.January, 15), date(2025, time.February, 20), 1},
		{"to before from", date(2025, time.March, 1), date(2025, time.January, 1), 0},
		{"full year", date(2025, time.January, 15), date(2026, time.January, 15), 12},

		// Month-end clipping: a Jan 31 anchor completes its first period on
		// the last day of February.
		{"jan 31 to feb 28", date(2025, time.January, 31), date(2025, time.February, 28), 1},
		{"jan 31 to mar 30", date(2025, time.January, 31), date(2025, time.March, 30), 1},
		{"jan 31 to mar 31", date(2025, time.January, 31), date(2025, time.March, 31), 2},
		{"jan 31 to feb 29 leap", date(2024, time.January, 31), date(2024, time.February, 29), 1},
	}

	for _, tc := range cases {
		if got := engine.MonthsBetween(tc.from, tc.to); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

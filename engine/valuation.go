/*
valuation.go - Point-in-time investment valuation

PURPOSE:
  Computes an investment's worth (principal + accrued earnings) at any
  instant, past or simulated. This is a pure function of its inputs:
  no clock reads, no I/O. Reproducibility is what makes the admin
  "time machine" override and deterministic testing possible.

THE TWO PAYOUT REGIMES:
  monthly:      Each period's earnings are distributed to the investor.
                CurrentValue == Principal always; TotalEarnings reports
                the cumulative distributed amount (simple interest,
                every month is earned on the original principal).

  compounding:  Earnings are retained and themselves earn.
                CurrentValue = Principal x (1 + rate)^elapsedMonths.

ACCRUAL PERIODS:
  One period = one whole calendar month elapsed since ConfirmedAt,
  anchored on the confirmation day-of-month (with month-end clipping:
  an investment confirmed Jan 31 completes its first period Feb 28/29).

SEE ALSO:
  - reconcile.go: Turns newly elapsed periods into ledger entries
  - withdrawal.go: Quotes and settles against this valuation
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Valuation is the result of evaluating an investment at an instant.
type Valuation struct {
	Principal     decimal.Decimal
	TotalEarnings decimal.Decimal
	CurrentValue  decimal.Decimal

	// ElapsedMonths is the number of whole accrual periods completed.
	ElapsedMonths int

	// NextAccrualAt is when the next period completes and a new ledger
	// entry becomes due. Zero for non-accruing statuses.
	NextAccrualAt time.Time
}

// ValuationEngine computes valuations at a fixed monthly rate. The rate is
// injected configuration (annual rate / 12), identical for both payout
// regimes.
type ValuationEngine struct {
	MonthlyRate decimal.Decimal
}

// Evaluate computes the investment's valuation as of the given instant.
//
// Statuses outside {active, withdrawal_notice} have zero earnings and
// CurrentValue == Principal: nothing accrues before confirmation or after
// settlement.
func (v ValuationEngine) Evaluate(inv Investment, asOf time.Time) Valuation {
	principal := inv.Amount

	if !inv.Status.Accruing() {
		return Valuation{
			Principal:     principal,
			TotalEarnings: decimal.Zero,
			CurrentValue:  principal,
		}
	}

	elapsed := MonthsBetween(inv.ConfirmedAt, asOf)

	var earnings, value decimal.Decimal
	switch inv.PaymentFrequency {
	case FrequencyMonthly:
		// Distributed earnings leave the account: value stays at principal.
		earnings = RoundCents(principal.Mul(v.MonthlyRate).Mul(decimal.NewFromInt(int64(elapsed))))
		value = principal
	case FrequencyCompounding:
		value = v.CompoundedValue(principal, elapsed)
		earnings = value.Sub(principal)
	default:
		value = principal
		earnings = decimal.Zero
	}

	return Valuation{
		Principal:     principal,
		TotalEarnings: earnings,
		CurrentValue:  value,
		ElapsedMonths: elapsed,
		NextAccrualAt: AddMonthsClipped(inv.ConfirmedAt, elapsed+1),
	}
}

// CompoundedValue returns principal x (1 + rate)^periods, rounded to cents.
func (v ValuationEngine) CompoundedValue(principal decimal.Decimal, periods int) decimal.Decimal {
	if periods <= 0 {
		return principal
	}
	growth := decimal.NewFromInt(1).Add(v.MonthlyRate).Pow(decimal.NewFromInt(int64(periods)))
	return RoundCents(principal.Mul(growth))
}

// PeriodEarnings returns the incremental earnings for a single accrual
// period (1-based index k). For monthly payouts every period earns on the
// original principal; for compounding it is the delta between consecutive
// compounded values, so the per-period cents always sum to the total.
func (v ValuationEngine) PeriodEarnings(inv Investment, k int) decimal.Decimal {
	switch inv.PaymentFrequency {
	case FrequencyMonthly:
		return RoundCents(inv.Amount.Mul(v.MonthlyRate))
	case FrequencyCompounding:
		return v.CompoundedValue(inv.Amount, k).Sub(v.CompoundedValue(inv.Amount, k-1))
	default:
		return decimal.Zero
	}
}

// =============================================================================
// CALENDAR MONTH ARITHMETIC
// =============================================================================

// MonthsBetween returns the number of whole calendar months elapsed between
// from and to, anchored on from's day-of-month. Clipped at 0 when to is
// before from. Month-end anchors clip to the last day of shorter months.
func MonthsBetween(from, to time.Time) int {
	from, to = from.UTC(), to.UTC()
	if to.Before(from) {
		return 0
	}

	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())

	anchor := from.Day()
	if last := lastDayOfMonth(to.Year(), to.Month()); anchor > last {
		anchor = last
	}
	if to.Day() < anchor {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// AddMonthsClipped advances from by whole calendar months, keeping from's
// day-of-month anchor and clipping to the last day of shorter months. This
// is the inverse of MonthsBetween: a Jan 31 anchor completes its first
// period Feb 28/29, not Mar 2.
func AddMonthsClipped(from time.Time, months int) time.Time {
	from = from.UTC()
	first := time.Date(from.Year(), from.Month()+time.Month(months), 1,
		from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), time.UTC)

	day := from.Day()
	if last := lastDayOfMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), time.UTC)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

/*
withdrawal.go - Withdrawal quoting and settlement

PURPOSE:
  A withdrawal happens in two instants: the quote, frozen when the
  investor gives notice, and the final payout, frozen at settlement
  after the notice period. Both are straight valuations; the quote is
  an estimate, the settlement value is what actually pays out.

TERMINATION:
  An admin-initiated termination is Quote + Finalize collapsed into a
  single call at one instant, bypassing the notice period. Inside the
  lockup window it additionally requires an authorized override.
*/
package engine

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalQuoteCalculator computes quoted and final withdrawal values.
type WithdrawalQuoteCalculator struct {
	Valuation    ValuationEngine
	NoticePeriod time.Duration
}

// Quote values the investment at now and freezes the result into a new
// WithdrawalRequest. PayoutDueBy is stamped now + notice period.
func (w WithdrawalQuoteCalculator) Quote(inv Investment, now time.Time) WithdrawalRequest {
	val := w.Valuation.Evaluate(inv, now)
	return WithdrawalRequest{
		ID:             WithdrawalID(uuid.NewString()),
		InvestmentID:   inv.ID,
		RequestedAt:    now,
		QuotedAmount:   val.CurrentValue,
		QuotedEarnings: val.TotalEarnings,
		Status:         WithdrawalRequested,
		PayoutDueBy:    now.Add(w.NoticePeriod),
	}
}

// Finalize values the investment at settlementTime and freezes the final
// amounts onto the request. The caller drives the withdrawn transition and
// the withdrawal ledger entry from the returned payout.
func (w WithdrawalQuoteCalculator) Finalize(inv Investment, req WithdrawalRequest, settlementTime time.Time) (WithdrawalRequest, FinalPayout, error) {
	if req.Status == WithdrawalRejected {
		return req, FinalPayout{}, &EntryStateError{EntryID: EntryID(req.ID), Status: EntryStatus(req.Status), Op: "settle"}
	}
	if req.SettledAt != nil {
		// Already settled: return the frozen result, do not revalue.
		return req, FinalPayout{
			InvestmentID: req.InvestmentID,
			Amount:       req.FinalAmount,
			Earnings:     req.FinalEarnings,
			SettledAt:    *req.SettledAt,
		}, nil
	}

	val := w.Valuation.Evaluate(inv, settlementTime)
	settled := settlementTime
	req.FinalAmount = val.CurrentValue
	req.FinalEarnings = val.TotalEarnings
	req.Status = WithdrawalApproved
	req.SettledAt = &settled

	return req, FinalPayout{
		InvestmentID: inv.ID,
		Amount:       val.CurrentValue,
		Earnings:     val.TotalEarnings,
		SettledAt:    settlementTime,
	}, nil
}

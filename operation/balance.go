/*
balance.go - Payment balance calculation from posted operation history

PURPOSE:
  Computes how much of a source payment is still available for refund,
  transfer, or merge. This is the central calculation that answers
  "how much can this payment still give back?"

KEY INSIGHT:
  Only POSTED operations consume balance. Requested, approved, and rejected
  operations are invisible here: a request that was never executed must not
  reduce what the next request can draw on.

BALANCE COMPONENTS:
  Refunded:    Sum of posted refunds referencing this payment
  Transferred: Sum of posted transfers referencing this payment
  Merged:      Sum of posted merges referencing this payment, or referencing
               the payment's deal as a merge SOURCE

AVAILABILITY CALCULATION:
  Refundable   = max(0, payment amount - Refunded)
  Transferable = max(0, payment amount - Refunded - Transferred - Merged)

  The asymmetry is deliberate: refunds draw on a pool only other refunds
  consume, while transfer/merge capacity is reduced by all three categories.

EXAMPLE:
  Payment of 1000 with one posted refund of 400:
    Refundable   = 600
    Transferable = 600
  Add a posted transfer of 200:
    Refundable   = 600 (unchanged)
    Transferable = 400

SEE ALSO:
  - validate.go: Uses these balances to gate new requests
  - service.go: Recomputes balances immediately before validating a request
*/
package operation

import "github.com/shopspring/decimal"

// =============================================================================
// BALANCES - Derived totals for one source payment
// =============================================================================

// Balances holds the running totals a payment has given up to posted
// operations, plus the payment amount they were computed against.
type Balances struct {
	PaymentID     PaymentID
	PaymentAmount decimal.Decimal

	Refunded    decimal.Decimal
	Transferred decimal.Decimal
	Merged      decimal.Decimal
}

// Refundable returns the amount still available for refund requests.
// Clamped at zero so malformed (over-allocated) histories never surface a
// negative balance.
func (b Balances) Refundable() decimal.Decimal {
	return clampZero(b.PaymentAmount.Sub(b.Refunded))
}

// Transferable returns the amount still available for transfer and merge
// requests. Reduced by all three categories, unlike Refundable.
func (b Balances) Transferable() decimal.Decimal {
	return clampZero(b.PaymentAmount.Sub(b.Refunded).Sub(b.Transferred).Sub(b.Merged))
}

// Relevant returns the balance that gates a request of the given type.
func (b Balances) Relevant(t Type) decimal.Decimal {
	if t == TypeRefund {
		return b.Refundable()
	}
	return b.Transferable()
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// CALCULATION
// =============================================================================

// CalculateBalances derives the posted totals for a payment from its deal's
// operation history. Pure function of its inputs: no side effects, safe to
// call repeatedly, order of history does not matter.
func CalculateBalances(payment PaymentContext, history []Operation) Balances {
	b := Balances{
		PaymentID:     payment.ID,
		PaymentAmount: payment.Amount,
		Refunded:      decimal.Zero,
		Transferred:   decimal.Zero,
		Merged:        decimal.Zero,
	}

	for i := range history {
		op := &history[i]
		if op.Status != StatusPosted {
			continue
		}

		amount := op.EffectiveAmount()

		switch op.Type {
		case TypeRefund:
			if op.ReferencesPayment(payment.ID) {
				b.Refunded = b.Refunded.Add(amount)
			}
		case TypeTransfer:
			if op.ReferencesPayment(payment.ID) {
				b.Transferred = b.Transferred.Add(amount)
			}
		case TypeMerge:
			// A merge consumes this payment when it references the payment
			// directly, or when it drained the whole deal the payment
			// belongs to (deal reference with role SOURCE).
			if op.ReferencesPayment(payment.ID) || op.ReferencesSourceDeal(payment.Deal.ID) {
				b.Merged = b.Merged.Add(amount)
			}
		}
	}

	return b
}

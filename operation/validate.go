/*
validate.go - Eligibility rules for new operation requests

PURPOSE:
  Decides whether a proposed operation request is submittable BEFORE any
  state is mutated. Mirrors what the request form enforces: every rule maps
  to a distinct violation code the UI turns into a field-level message.

CONTRACT:
  The validator never returns an error and never panics. It returns a
  structured Result; a request is submittable only when every applicable
  rule holds.

RULES:
  All types:
    reasonRequired              reason non-empty after trimming
    paymentUnresolved           source payment id set and lookup succeeded
    noBalance                   relevant balance > 0
    partialAmountInvalid        partial mode: amount parsable and > 0
    partialAmountExceedsBalance partial mode: amount <= relevant balance

  TRANSFER:
    transferClientRequired      target client selected
    transferClientMismatch      target client differs from source client

  MERGE:
    mergeTargetRequired         a target deal or property selected
    mergeTargetAmbiguous        not both deal and property
    mergeSameDeal               target deal differs from source deal
    mergeClientMismatch         target deal belongs to the same client
    mergeTargetInactive         target deal not closed/cancelled/lost/
                                inactive/sold (case-insensitive)

SEE ALSO:
  - balance.go: Produces the Balances consulted by the balance rules
  - service.go: Runs the validator with fresh balances before persisting
*/
package operation

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REQUEST INPUT - What the caller proposes
// =============================================================================

type AmountMode string

const (
	AmountFull    AmountMode = "full"
	AmountPartial AmountMode = "partial"
)

// RequestInput is the proposed operation as submitted by the caller.
// PartialAmount is kept as the raw string so the validator owns parsing.
type RequestInput struct {
	Type            Type
	Reason          string
	SourcePaymentID PaymentID

	Mode          AmountMode
	PartialAmount string

	TargetClientID   *ClientID
	TargetDealID     *DealID
	TargetPropertyID *PropertyID

	RequestedBy string
}

// =============================================================================
// RESULT
// =============================================================================

// Violation is one failed rule with a stable code and a user-facing message.
type Violation struct {
	Code    string
	Message string
}

// Result is the validator's verdict. Submittable is true only when
// Violations is empty.
type Result struct {
	Submittable bool
	Violations  []Violation
}

func (r *Result) fail(code, message string) {
	r.Submittable = false
	r.Violations = append(r.Violations, Violation{Code: code, Message: message})
}

// Has reports whether the result contains a violation with the given code.
func (r Result) Has(code string) bool {
	for _, v := range r.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate applies every eligibility rule for the proposed request.
// payment is nil when the source payment lookup failed or has not resolved;
// target is nil when no target deal was selected or its lookup failed.
func Validate(in RequestInput, payment *PaymentContext, balances Balances, target *DealInfo) Result {
	result := Result{Submittable: true}

	if strings.TrimSpace(in.Reason) == "" {
		result.fail("reasonRequired", "a reason is required")
	}

	if in.SourcePaymentID == "" || payment == nil {
		result.fail("paymentUnresolved", "source payment could not be resolved")
	}

	// Balance rules only make sense against a resolved payment.
	if payment != nil {
		relevant := balances.Relevant(in.Type)

		if !relevant.IsPositive() {
			result.fail("noBalance", "no remaining balance on the source payment")
		}

		if in.Mode == AmountPartial {
			amount, err := decimal.NewFromString(strings.TrimSpace(in.PartialAmount))
			switch {
			case err != nil || !amount.IsPositive():
				result.fail("partialAmountInvalid", "partial amount must be a positive number")
			case amount.GreaterThan(relevant):
				result.fail("partialAmountExceedsBalance", "partial amount exceeds the available balance")
			}
		}
	}

	switch in.Type {
	case TypeTransfer:
		validateTransfer(in, payment, &result)
	case TypeMerge:
		validateMerge(in, payment, target, &result)
	}

	return result
}

func validateTransfer(in RequestInput, payment *PaymentContext, result *Result) {
	if in.TargetClientID == nil || *in.TargetClientID == "" {
		result.fail("transferClientRequired", "a target client is required for a transfer")
		return
	}
	if payment != nil && *in.TargetClientID == payment.Deal.ClientID {
		result.fail("transferClientMismatch", "target client must differ from the payment's client")
	}
}

func validateMerge(in RequestInput, payment *PaymentContext, target *DealInfo, result *Result) {
	hasDeal := in.TargetDealID != nil && *in.TargetDealID != ""
	hasProperty := in.TargetPropertyID != nil && *in.TargetPropertyID != ""

	switch {
	case !hasDeal && !hasProperty:
		result.fail("mergeTargetRequired", "a target deal or property is required for a merge")
		return
	case hasDeal && hasProperty:
		result.fail("mergeTargetAmbiguous", "select either a target deal or a target property, not both")
		return
	}

	if !hasDeal {
		return // property targets carry no further deal rules
	}

	if payment != nil && *in.TargetDealID == payment.Deal.ID {
		result.fail("mergeSameDeal", "target deal must differ from the source deal")
	}

	if target == nil {
		result.fail("mergeTargetUnresolved", "target deal could not be resolved")
		return
	}

	if payment != nil && target.ClientID != payment.Deal.ClientID {
		result.fail("mergeClientMismatch", "target deal must belong to the same client")
	}

	if inactiveDealStatuses[strings.ToLower(target.Status)] {
		result.fail("mergeTargetInactive", "target deal is not active")
	}
}

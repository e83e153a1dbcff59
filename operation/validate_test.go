package operation_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/propflow/finance-engine/operation"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func balancesFor(pc operation.PaymentContext, history ...operation.Operation) operation.Balances {
	return operation.CalculateBalances(pc, history)
}

func refundInput(reason string) operation.RequestInput {
	return operation.RequestInput{
		Type:            operation.TypeRefund,
		Reason:          reason,
		SourcePaymentID: "P1",
		Mode:            operation.AmountFull,
	}
}

func clientID(s string) *operation.ClientID {
	c := operation.ClientID(s)
	return &c
}

func dealID(s string) *operation.DealID {
	d := operation.DealID(s)
	return &d
}

func propertyID(s string) *operation.PropertyID {
	p := operation.PropertyID(s)
	return &p
}

// =============================================================================
// COMMON RULES
// =============================================================================

func TestValidate_HappyPathRefund(t *testing.T) {
	pc := payment("P1", 1000, "D1", "C1")

	result := operation.Validate(refundInput("tenant overpaid"), &pc, balancesFor(pc), nil)

	assert.True(t, result.Submittable)
	assert.Empty(t, result.Violations)
}

func TestValidate_ReasonRequired(t *testing.T) {
	pc := payment("P1", 1000, "D1", "C1")

	result := operation.Validate(refundInput("   "), &pc, balancesFor(pc), nil)

	assert.False(t, result.Submittable)
	assert.True(t, result.Has("reasonRequired"))
}

func TestValidate_PaymentUnresolved(t *testing.T) {
	// GIVEN: The payment lookup failed (nil context)
	result := operation.Validate(refundInput("valid reason"), nil, operation.Balances{}, nil)

	assert.False(t, result.Submittable)
	assert.True(t, result.Has("paymentUnresolved"))
}

func TestValidate_NoBalance(t *testing.T) {
	// GIVEN: The payment is fully refunded already
	pc := payment("P1", 1000, "D1", "C1")
	history := postedOp(operation.TypeRefund, 1000, paymentRef("P1"))

	result := operation.Validate(refundInput("refund again"), &pc, balancesFor(pc, history), nil)

	assert.False(t, result.Submittable)
	assert.True(t, result.Has("noBalance"))
}

// =============================================================================
// PARTIAL AMOUNT RULES
// =============================================================================

func TestValidate_PartialAmount(t *testing.T) {
	pc := payment("P1", 1000, "D1", "C1")

	tests := []struct {
		name        string
		partial     string
		submittable bool
		code        string
	}{
		{"valid partial", "250.50", true, ""},
		{"exactly the balance", "1000", true, ""},
		{"not a number", "abc", false, "partialAmountInvalid"},
		{"empty", "", false, "partialAmountInvalid"},
		{"zero", "0", false, "partialAmountInvalid"},
		{"negative", "-5", false, "partialAmountInvalid"},
		{"exceeds balance", "1000.01", false, "partialAmountExceedsBalance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := refundInput("partial refund")
			in.Mode = operation.AmountPartial
			in.PartialAmount = tt.partial

			result := operation.Validate(in, &pc, balancesFor(pc), nil)

			assert.Equal(t, tt.submittable, result.Submittable)
			if tt.code != "" {
				assert.True(t, result.Has(tt.code), "expected violation %s", tt.code)
			}
		})
	}
}

func TestValidate_PartialAmountAgainstReducedBalance(t *testing.T) {
	// GIVEN: Payment of 1000 with 400 already refunded
	// WHEN: Requesting a partial refund of 700
	// THEN: Rejected, only 600 is refundable

	pc := payment("P1", 1000, "D1", "C1")
	history := postedOp(operation.TypeRefund, 400, paymentRef("P1"))

	in := refundInput("partial refund")
	in.Mode = operation.AmountPartial
	in.PartialAmount = "700"

	result := operation.Validate(in, &pc, balancesFor(pc, history), nil)

	assert.False(t, result.Submittable)
	assert.True(t, result.Has("partialAmountExceedsBalance"))
}

// =============================================================================
// TRANSFER RULES
// =============================================================================

func TestValidate_TransferClientRequired(t *testing.T) {
	pc := payment("P1", 1000, "D1", "C1")
	in := operation.RequestInput{
		Type:            operation.TypeTransfer,
		Reason:          "move to other client",
		SourcePaymentID: "P1",
		Mode:            operation.AmountFull,
	}

	result := operation.Validate(in, &pc, balancesFor(pc), nil)

	assert.False(t, result.Submittable)
	assert.True(t, result.Has("transferClientRequired"))
}

func TestValidate_TransferClientMismatch(t *testing.T) {
	// GIVEN: A transfer targeting the payment's own client
	pc := payment("P1", 1000, "D1", "C1")
	in := operation.RequestInput{
		Type:            operation.TypeTransfer,
		Reason:          "move to other client",
		SourcePaymentID: "P1",
		Mode:            operation.AmountFull,
		TargetClientID:  clientID("C1"),
	}

	result := operation.Validate(in, &pc, balancesFor(pc), nil)

	assert.False(t, result.Submittable)
	assert.True(t, result.Has("transferClientMismatch"))
}

func TestValidate_TransferToDifferentClient(t *testing.T) {
	pc := payment("P1", 1000, "D1", "C1")
	in := operation.RequestInput{
		Type:            operation.TypeTransfer,
		Reason:          "move to other client",
		SourcePaymentID: "P1",
		Mode:            operation.AmountFull,
		TargetClientID:  clientID("C2"),
	}

	result := operation.Validate(in, &pc, balancesFor(pc), nil)

	assert.True(t, result.Submittable)
}

// =============================================================================
// MERGE RULES
// =============================================================================

func mergeInput(target *operation.DealID, property *operation.PropertyID) operation.RequestInput {
	return operation.RequestInput{
		Type:             operation.TypeMerge,
		Reason:           "consolidate deals",
		SourcePaymentID:  "P1",
		Mode:             operation.AmountFull,
		TargetDealID:     target,
		TargetPropertyID: property,
	}
}

func TestValidate_MergeTargetRequired(t *testing.T) {
	pc := payment("P1", 1000, "D1", "C1")

	result := operation.Validate(mergeInput(nil, nil), &pc, balancesFor(pc), nil)

	assert.False(t, result.Submittable)
	assert.True(t, result.Has("mergeTargetRequired"))
}

func TestValidate_MergeTargetAmbiguous(t *testing.T) {
	// GIVEN: Both a target deal and a target property
	pc := payment("P1", 1000, "D1", "C1")

	result := operation.Validate(mergeInput(dealID("D2"), propertyID("PR1")), &pc, balancesFor(pc), nil)

	assert.False(t, result.Submittable)
	assert.True(t, result.Has("mergeTargetAmbiguous"))
}

func TestValidate_MergeSameDeal(t *testing.T) {
	pc := payment("P1", 1000, "D1", "C1")
	target := &operation.DealInfo{ID: "D1", ClientID: "C1", Status: "active"}

	result := operation.Validate(mergeInput(dealID("D1"), nil), &pc, balancesFor(pc), target)

	assert.False(t, result.Submittable)
	assert.True(t, result.Has("mergeSameDeal"))
}

func TestValidate_MergeClientMismatch(t *testing.T) {
	// GIVEN: A target deal owned by a different client
	pc := payment("P1", 1000, "D1", "C1")
	target := &operation.DealInfo{ID: "D2", ClientID: "C2", Status: "active"}

	result := operation.Validate(mergeInput(dealID("D2"), nil), &pc, balancesFor(pc), target)

	assert.False(t, result.Submittable)
	assert.True(t, result.Has("mergeClientMismatch"))
}

func TestValidate_MergeTargetInactive(t *testing.T) {
	pc := payment("P1", 1000, "D1", "C1")

	for _, status := range []string{"closed", "Cancelled", "LOST", "inactive", "Sold"} {
		t.Run(status, func(t *testing.T) {
			target := &operation.DealInfo{ID: "D2", ClientID: "C1", Status: status}

			result := operation.Validate(mergeInput(dealID("D2"), nil), &pc, balancesFor(pc), target)

			assert.False(t, result.Submittable)
			assert.True(t, result.Has("mergeTargetInactive"))
		})
	}
}

func TestValidate_MergeIntoActiveDealSameClient(t *testing.T) {
	pc := payment("P1", 1000, "D1", "C1")
	target := &operation.DealInfo{ID: "D2", ClientID: "C1", Status: "active"}

	result := operation.Validate(mergeInput(dealID("D2"), nil), &pc, balancesFor(pc), target)

	assert.True(t, result.Submittable)
}

func TestValidate_MergeIntoProperty(t *testing.T) {
	// GIVEN: A property target; the deal-specific rules do not apply
	pc := payment("P1", 1000, "D1", "C1")

	result := operation.Validate(mergeInput(nil, propertyID("PR1")), &pc, balancesFor(pc), nil)

	assert.True(t, result.Submittable)
}

func TestValidate_ViolationsAccumulate(t *testing.T) {
	// GIVEN: A request breaking several rules at once
	// THEN: All of them are reported, not just the first

	result := operation.Validate(operation.RequestInput{
		Type:   operation.TypeTransfer,
		Reason: "",
		Mode:   operation.AmountFull,
	}, nil, operation.Balances{}, nil)

	assert.False(t, result.Submittable)
	assert.True(t, result.Has("reasonRequired"))
	assert.True(t, result.Has("paymentUnresolved"))
	assert.True(t, result.Has("transferClientRequired"))
}

func TestValidate_RelevantBalancePerType(t *testing.T) {
	// GIVEN: A payment whose transferable pool is exhausted by a merge,
	//        while the refund pool is untouched
	pc := payment("P1", 1000, "D1", "C1")
	history := postedOp(operation.TypeMerge, 1000, sourceDealRef("D1"))
	b := balancesFor(pc, history)

	assert.True(t, decimal.NewFromInt(1000).Equal(b.Refundable()))
	assert.True(t, b.Transferable().IsZero())

	// Refund still submittable
	refund := operation.Validate(refundInput("refund"), &pc, b, nil)
	assert.True(t, refund.Submittable)

	// Transfer is not
	transfer := operation.Validate(operation.RequestInput{
		Type:            operation.TypeTransfer,
		Reason:          "transfer",
		SourcePaymentID: "P1",
		Mode:            operation.AmountFull,
		TargetClientID:  clientID("C2"),
	}, &pc, b, nil)
	assert.False(t, transfer.Submittable)
	assert.True(t, transfer.Has("noBalance"))
}

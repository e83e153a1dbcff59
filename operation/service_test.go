package operation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propflow/finance-engine/operation"
	"github.com/propflow/finance-engine/operation/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fakeIssuer counts voucher creations and can be told to fail.
type fakeIssuer struct {
	mu      sync.Mutex
	created int
	fail    bool
}

func (f *fakeIssuer) CreateVoucher(_ context.Context, amount decimal.Decimal, voucherType string, sourceOperationID operation.OperationID) (operation.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return operation.Voucher{}, errors.New("ledger unavailable")
	}

	f.created++
	return operation.Voucher{
		ID:            fmt.Sprintf("v-%d", f.created),
		VoucherNumber: fmt.Sprintf("JV-2026-%06d", f.created),
		Type:          voucherType,
		Amount:        amount,
		Status:        "issued",
	}, nil
}

func (f *fakeIssuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

func newTestService(t *testing.T) (*operation.Service, *store.Memory, *fakeIssuer) {
	t.Helper()

	mem := store.NewMemory()
	dir := store.NewDirectory()
	issuer := &fakeIssuer{}

	dir.PutPayment(payment("P1", 1000, "D1", "C1"))
	dir.PutDeal(operation.DealInfo{ID: "D1", ClientID: "C1", Status: "active", DealCode: "DL-001", Title: "Unit 4B lease"})
	dir.PutDeal(operation.DealInfo{ID: "D2", ClientID: "C1", Status: "active", DealCode: "DL-002", Title: "Unit 7A lease"})
	dir.PutDeal(operation.DealInfo{ID: "D3", ClientID: "C1", Status: "closed", DealCode: "DL-003", Title: "Old lease"})

	return operation.NewService(mem, dir, issuer), mem, issuer
}

func requestRefund(t *testing.T, svc *operation.Service) *operation.Operation {
	t.Helper()

	op, err := svc.Request(context.Background(), operation.RequestInput{
		Type:            operation.TypeRefund,
		Reason:          "tenant overpaid",
		SourcePaymentID: "P1",
		Mode:            operation.AmountFull,
		RequestedBy:     "clerk",
	})
	require.NoError(t, err)
	return op
}

// =============================================================================
// REQUEST
// =============================================================================

func TestService_Request_FullAmount(t *testing.T) {
	svc, _, _ := newTestService(t)

	op := requestRefund(t, svc)

	assert.Equal(t, operation.StatusRequested, op.Status)
	assert.Equal(t, "clerk", op.RequestedBy)
	require.NotNil(t, op.Amount)
	assert.True(t, decimal.NewFromInt(1000).Equal(*op.Amount))
	assert.Nil(t, op.PartialAmount)
	assert.Nil(t, op.VoucherID)
	assert.Empty(t, op.References, "references are attached at POSTED time only")
	assert.Equal(t, operation.DealID("D1"), op.DealID)
}

func TestService_Request_PartialAmount(t *testing.T) {
	svc, _, _ := newTestService(t)

	op, err := svc.Request(context.Background(), operation.RequestInput{
		Type:            operation.TypeRefund,
		Reason:          "partial refund",
		SourcePaymentID: "P1",
		Mode:            operation.AmountPartial,
		PartialAmount:   "250.75",
		RequestedBy:     "clerk",
	})
	require.NoError(t, err)

	assert.Nil(t, op.Amount)
	require.NotNil(t, op.PartialAmount)
	assert.True(t, decimal.RequireFromString("250.75").Equal(*op.PartialAmount))
}

func TestService_Request_ValidationFailure(t *testing.T) {
	svc, mem, _ := newTestService(t)

	_, err := svc.Request(context.Background(), operation.RequestInput{
		Type:            operation.TypeRefund,
		Reason:          "",
		SourcePaymentID: "P1",
		Mode:            operation.AmountFull,
	})

	require.Error(t, err)
	var validationErr *operation.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.True(t, operation.IsClientError(err))

	// Nothing persisted
	ops, _ := mem.ListOperations(context.Background(), operation.ListFilter{})
	assert.Empty(t, ops)
}

func TestService_Request_UnknownPayment(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Request(context.Background(), operation.RequestInput{
		Type:            operation.TypeRefund,
		Reason:          "refund",
		SourcePaymentID: "P-unknown",
		Mode:            operation.AmountFull,
	})

	require.Error(t, err)
	assert.True(t, operation.IsNotFound(err))
}

func TestService_Request_UnknownTargetDeal(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Request(context.Background(), operation.RequestInput{
		Type:            operation.TypeMerge,
		Reason:          "merge",
		SourcePaymentID: "P1",
		Mode:            operation.AmountFull,
		TargetDealID:    dealID("D-unknown"),
	})

	require.Error(t, err)
	assert.True(t, operation.IsNotFound(err))
}

func TestService_Request_MergeIntoClosedDeal(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Request(context.Background(), operation.RequestInput{
		Type:            operation.TypeMerge,
		Reason:          "merge",
		SourcePaymentID: "P1",
		Mode:            operation.AmountFull,
		TargetDealID:    dealID("D3"), // closed
	})

	var validationErr *operation.ValidationError
	require.ErrorAs(t, err, &validationErr)

	found := false
	for _, v := range validationErr.Violations {
		if v.Code == "mergeTargetInactive" {
			found = true
		}
	}
	assert.True(t, found, "expected mergeTargetInactive violation")
}

func TestService_Request_ConsumesFreshBalance(t *testing.T) {
	// GIVEN: A posted refund of the full payment amount
	// WHEN: Requesting another refund
	// THEN: Rejected with noBalance; balances are recomputed per request

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	op := requestRefund(t, svc)
	_, err := svc.Approve(ctx, op.ID, "manager")
	require.NoError(t, err)
	_, err = svc.Execute(ctx, op.ID, "manager")
	require.NoError(t, err)

	_, err = svc.Request(ctx, operation.RequestInput{
		Type:            operation.TypeRefund,
		Reason:          "second refund",
		SourcePaymentID: "P1",
		Mode:            operation.AmountFull,
	})

	var validationErr *operation.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

// =============================================================================
// APPROVE / REJECT
// =============================================================================

func TestService_Approve(t *testing.T) {
	svc, _, _ := newTestService(t)

	op := requestRefund(t, svc)
	approved, err := svc.Approve(context.Background(), op.ID, "manager")

	require.NoError(t, err)
	assert.Equal(t, operation.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "manager", *approved.ApprovedBy)
}

func TestService_Reject(t *testing.T) {
	svc, _, _ := newTestService(t)

	op := requestRefund(t, svc)
	rejected, err := svc.Reject(context.Background(), op.ID, "manager")

	require.NoError(t, err)
	assert.Equal(t, operation.StatusRejected, rejected.Status)
}

func TestService_Approve_TerminalStates(t *testing.T) {
	// GIVEN: A rejected operation
	// THEN: No further transition is permitted

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	op := requestRefund(t, svc)
	_, err := svc.Reject(ctx, op.ID, "manager")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, op.ID, "manager")
	var stateErr *operation.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, operation.StatusRejected, stateErr.Current)

	_, err = svc.Execute(ctx, op.ID, "manager")
	assert.ErrorAs(t, err, &stateErr)
}

func TestService_Approve_UnknownOperation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Approve(context.Background(), "op-unknown", "manager")
	assert.True(t, operation.IsNotFound(err))
}

// =============================================================================
// EXECUTE
// =============================================================================

func TestService_Execute(t *testing.T) {
	svc, _, issuer := newTestService(t)
	ctx := context.Background()

	op := requestRefund(t, svc)
	_, err := svc.Approve(ctx, op.ID, "manager")
	require.NoError(t, err)

	posted, err := svc.Execute(ctx, op.ID, "manager")
	require.NoError(t, err)

	assert.Equal(t, operation.StatusPosted, posted.Status)
	require.NotNil(t, posted.VoucherID)
	require.NotNil(t, posted.PostedBy)
	assert.Equal(t, "manager", *posted.PostedBy)
	assert.Equal(t, 1, issuer.count())

	// Payment and deal references attached at posting
	assert.True(t, posted.ReferencesPayment("P1"))
	assert.True(t, posted.ReferencesSourceDeal("D1"))
}

func TestService_Execute_FromRequested(t *testing.T) {
	// GIVEN: An operation still in REQUESTED
	// WHEN: Execute is called
	// THEN: InvalidStateError, status unchanged, no voucher created

	svc, _, issuer := newTestService(t)
	ctx := context.Background()

	op := requestRefund(t, svc)

	_, err := svc.Execute(ctx, op.ID, "manager")

	var stateErr *operation.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, operation.StatusRequested, stateErr.Current)
	assert.Equal(t, 0, issuer.count())

	current, err := svc.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusRequested, current.Status)
}

func TestService_Execute_VoucherFailureKeepsApproved(t *testing.T) {
	// GIVEN: The voucher collaborator is down
	// WHEN: Execute is called on an approved operation
	// THEN: Retryable DependencyError, operation stays APPROVED

	svc, _, issuer := newTestService(t)
	ctx := context.Background()

	op := requestRefund(t, svc)
	_, err := svc.Approve(ctx, op.ID, "manager")
	require.NoError(t, err)

	issuer.fail = true
	_, err = svc.Execute(ctx, op.ID, "manager")

	var depErr *operation.DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.True(t, operation.IsRetryable(err))

	current, err := svc.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusApproved, current.Status)
	assert.Nil(t, current.VoucherID)

	// Recovers once the collaborator is back
	issuer.fail = false
	posted, err := svc.Execute(ctx, op.ID, "manager")
	require.NoError(t, err)
	assert.Equal(t, operation.StatusPosted, posted.Status)
}

func TestService_Execute_ConcurrentCallsCreateOneVoucher(t *testing.T) {
	// GIVEN: One approved operation
	// WHEN: Two goroutines execute it concurrently
	// THEN: Exactly one voucher, one POSTED result, one InvalidStateError

	svc, _, issuer := newTestService(t)
	ctx := context.Background()

	op := requestRefund(t, svc)
	_, err := svc.Approve(ctx, op.ID, "manager")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Execute(ctx, op.ID, "manager")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, stateErrors int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var stateErr *operation.InvalidStateError
		if errors.As(err, &stateErr) {
			stateErrors++
		}
	}

	assert.Equal(t, 1, successes, "exactly one execute must win")
	assert.Equal(t, 1, stateErrors, "the loser must observe InvalidStateError")
	assert.Equal(t, 1, issuer.count(), "exactly one voucher created")

	current, err := svc.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusPosted, current.Status)
}

// =============================================================================
// QUERIES
// =============================================================================

func TestService_ListAndByDeal(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	op1 := requestRefund(t, svc)
	_, err := svc.Reject(ctx, op1.ID, "manager")
	require.NoError(t, err)

	op2, err := svc.Request(ctx, operation.RequestInput{
		Type:            operation.TypeTransfer,
		Reason:          "move funds",
		SourcePaymentID: "P1",
		Mode:            operation.AmountFull,
		TargetClientID:  clientID("C2"),
	})
	require.NoError(t, err)

	rejected, err := svc.List(ctx, operation.ListFilter{Status: operation.StatusRejected})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, op1.ID, rejected[0].ID)

	transfers, err := svc.List(ctx, operation.ListFilter{Type: operation.TypeTransfer})
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, op2.ID, transfers[0].ID)

	history, err := svc.ByDeal(ctx, "D1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestService_PaymentBalances(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	op := requestRefund(t, svc)
	_, err := svc.Approve(ctx, op.ID, "manager")
	require.NoError(t, err)
	_, err = svc.Execute(ctx, op.ID, "manager")
	require.NoError(t, err)

	b, err := svc.PaymentBalances(ctx, "P1")
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(1000).Equal(b.Refunded))
	assert.True(t, b.Refundable().IsZero())
}

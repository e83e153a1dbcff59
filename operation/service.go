/*
service.go - Operation lifecycle orchestration

PURPOSE:
  Handles the full lifecycle of finance operations:
  1. Request: Validate eligibility and create the operation (REQUESTED)
  2. Approve/Reject: Approver decision on a requested operation
  3. Execute: Create the accounting voucher and post the operation

LIFECYCLE:

  Request  ──▶ REQUESTED ──▶ APPROVED ──▶ POSTED  (voucher created)
                   │
                   └────────▶ REJECTED

  POSTED and REJECTED are terminal. No transition ever runs backwards.

EXECUTE ATOMICITY:
  Execute is the only step with an external side effect (voucher creation).
  The order is: check status under the per-operation lock, create the
  voucher, then conditionally write POSTED. If the voucher call fails the
  operation stays APPROVED and the caller gets a retryable DependencyError.

CONCURRENCY:
  Transitions are serialized per operation id with a keyed mutex, and the
  store performs a conditional check-then-write on the expected status.
  Two concurrent Execute calls on the same id produce exactly one voucher:
  one caller posts, the other observes POSTED and gets InvalidStateError.

BALANCE FRESHNESS:
  Request recomputes balances from the store immediately before validating.
  There is still a read-then-decide window between validation and insert;
  see DESIGN.md for why that race is documented rather than closed here.

EXAMPLE:
  svc := operation.NewService(store, directory, vouchers)
  op, err := svc.Request(ctx, input)
  op, err = svc.Approve(ctx, op.ID, "fin-manager")
  op, err = svc.Execute(ctx, op.ID, "fin-manager")

SEE ALSO:
  - validate.go: The rules Request enforces
  - store.go: The interfaces this service drives
*/
package operation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service orchestrates the operation lifecycle against a Store, a Directory
// for payment/deal lookups, and a VoucherIssuer for execute.
type Service struct {
	store    Store
	dir      Directory
	vouchers VoucherIssuer

	mu    sync.Mutex
	locks map[OperationID]*sync.Mutex
}

func NewService(store Store, dir Directory, vouchers VoucherIssuer) *Service {
	return &Service{
		store:    store,
		dir:      dir,
		vouchers: vouchers,
		locks:    make(map[OperationID]*sync.Mutex),
	}
}

// lockOperation serializes transitions per operation id.
func (s *Service) lockOperation(id OperationID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a single operation.
func (s *Service) Get(ctx context.Context, id OperationID) (*Operation, error) {
	op, err := s.store.GetOperation(ctx, id)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, &NotFoundError{Kind: "operation", ID: string(id)}
	}
	return op, nil
}

// List returns operations matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Operation, error) {
	return s.store.ListOperations(ctx, filter)
}

// ByDeal returns the full operation history of a deal, oldest first.
func (s *Service) ByDeal(ctx context.Context, dealID DealID) ([]Operation, error) {
	return s.store.ListByDeal(ctx, dealID)
}

// PaymentBalances resolves the payment and computes its posted totals from
// the owning deal's operation history.
func (s *Service) PaymentBalances(ctx context.Context, id PaymentID) (Balances, error) {
	payment, err := s.dir.GetPayment(ctx, id)
	if err != nil {
		return Balances{}, err
	}

	history, err := s.store.ListByDeal(ctx, payment.Deal.ID)
	if err != nil {
		return Balances{}, err
	}

	return CalculateBalances(*payment, history), nil
}

// =============================================================================
// REQUEST
// =============================================================================

// Request validates the proposed operation against fresh balances and, when
// submittable, persists it in REQUESTED.
//
// Error contract:
//   - unknown payment or target deal    -> NotFoundError
//   - failed lookup (directory error)   -> ValidationError (unresolved rule)
//   - any rule violation                -> ValidationError
func (s *Service) Request(ctx context.Context, in RequestInput) (*Operation, error) {
	payment, balances, err := s.resolvePayment(ctx, in.SourcePaymentID)
	if err != nil {
		return nil, err
	}

	target, err := s.resolveTarget(ctx, in.TargetDealID)
	if err != nil {
		return nil, err
	}

	result := Validate(in, payment, balances, target)
	if !result.Submittable {
		return nil, &ValidationError{Violations: result.Violations}
	}

	now := time.Now().UTC()
	op := Operation{
		ID:               OperationID(uuid.NewString()),
		Type:             in.Type,
		Status:           StatusRequested,
		Reason:           strings.TrimSpace(in.Reason),
		DealID:           payment.Deal.ID,
		PaymentID:        payment.ID,
		TargetClientID:   in.TargetClientID,
		TargetDealID:     in.TargetDealID,
		TargetPropertyID: in.TargetPropertyID,
		RequestedBy:      in.RequestedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if in.Mode == AmountPartial {
		// Already validated as parsable and within balance.
		partial, _ := decimal.NewFromString(strings.TrimSpace(in.PartialAmount))
		op.PartialAmount = &partial
	} else {
		full := payment.Amount
		op.Amount = &full
	}

	if err := s.store.SaveOperation(ctx, op); err != nil {
		return nil, err
	}
	return &op, nil
}

// resolvePayment fetches the payment and recomputes balances immediately
// before validation, so a stale balance is never used to gate a request.
func (s *Service) resolvePayment(ctx context.Context, id PaymentID) (*PaymentContext, Balances, error) {
	if id == "" {
		return nil, Balances{}, nil
	}

	payment, err := s.dir.GetPayment(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, Balances{}, err
		}
		// Lookup failure surfaces as a validation failure, not a crash.
		return nil, Balances{}, nil
	}

	history, err := s.store.ListByDeal(ctx, payment.Deal.ID)
	if err != nil {
		return nil, Balances{}, nil
	}

	return payment, CalculateBalances(*payment, history), nil
}

func (s *Service) resolveTarget(ctx context.Context, dealID *DealID) (*DealInfo, error) {
	if dealID == nil || *dealID == "" {
		return nil, nil
	}

	target, err := s.dir.GetDeal(ctx, *dealID)
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, nil // unresolved target fails validation instead
	}
	return target, nil
}

// =============================================================================
// APPROVE / REJECT
// =============================================================================

// Approve moves a REQUESTED operation to APPROVED, recording the approver.
func (s *Service) Approve(ctx context.Context, id OperationID, approver string) (*Operation, error) {
	return s.decide(ctx, id, StatusApproved, approver)
}

// Reject moves a REQUESTED operation to REJECTED.
func (s *Service) Reject(ctx context.Context, id OperationID, approver string) (*Operation, error) {
	return s.decide(ctx, id, StatusRejected, approver)
}

func (s *Service) decide(ctx context.Context, id OperationID, to Status, actor string) (*Operation, error) {
	unlock := s.lockOperation(id)
	defer unlock()

	op, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if op.Status != StatusRequested {
		return nil, &InvalidStateError{OperationID: id, Current: op.Status, Attempted: to}
	}

	updated, err := s.store.TransitionStatus(ctx, id, StatusRequested, to, StatusUpdate{Actor: actor})
	if err != nil {
		return nil, s.mapConflict(ctx, id, to, err)
	}
	return updated, nil
}

// =============================================================================
// EXECUTE
// =============================================================================

// Execute posts an APPROVED operation: creates the accounting voucher,
// attaches it together with the payment/deal references, and transitions to
// POSTED. A voucher failure leaves the operation APPROVED.
func (s *Service) Execute(ctx context.Context, id OperationID, actor string) (*Operation, error) {
	unlock := s.lockOperation(id)
	defer unlock()

	op, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if op.Status != StatusApproved {
		return nil, &InvalidStateError{OperationID: id, Current: op.Status, Attempted: StatusPosted}
	}

	voucher, err := s.vouchers.CreateVoucher(ctx, op.EffectiveAmount(), voucherTypeFor(op.Type), id)
	if err != nil {
		return nil, &DependencyError{OperationID: id, Cause: err}
	}

	updated, err := s.store.TransitionStatus(ctx, id, StatusApproved, StatusPosted, StatusUpdate{
		Actor:      actor,
		VoucherID:  &voucher.ID,
		References: postingReferences(op),
	})
	if err != nil {
		return nil, s.mapConflict(ctx, id, StatusPosted, err)
	}
	return updated, nil
}

// postingReferences derives the ledger references attached at POSTED time.
// The source payment and its deal are always referenced; a merge into a
// deal additionally references the target.
func postingReferences(op *Operation) []Reference {
	refs := []Reference{
		{RefType: RefPayment, RefID: string(op.PaymentID), Role: RoleSource},
		{RefType: RefDeal, RefID: string(op.DealID), Role: RoleSource},
	}
	if op.Type == TypeMerge && op.TargetDealID != nil {
		refs = append(refs, Reference{RefType: RefDeal, RefID: string(*op.TargetDealID), Role: RoleTarget})
	}
	return refs
}

func voucherTypeFor(t Type) string {
	return strings.ToLower(string(t))
}

// mapConflict converts a lost conditional write into the InvalidStateError
// the caller would have seen had it arrived second.
func (s *Service) mapConflict(ctx context.Context, id OperationID, attempted Status, err error) error {
	if !errors.Is(err, ErrConcurrentModification) {
		return err
	}
	current, getErr := s.store.GetOperation(ctx, id)
	if getErr != nil || current == nil {
		return err
	}
	return &InvalidStateError{OperationID: id, Current: current.Status, Attempted: attempted}
}

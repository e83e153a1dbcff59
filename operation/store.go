/*
store.go - Persistence and collaborator interfaces for the operation engine

PURPOSE:
  Defines the interfaces between the lifecycle service and the outside
  world: operation persistence, payment/deal lookups, and voucher issuance.
  Different implementations can use SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACES:
  Store:         Operation persistence with conditional status transitions
  Directory:     Read-only payment and deal lookups
  VoucherIssuer: Accounting-side voucher creation on execute

CONDITIONAL TRANSITIONS:
  TransitionStatus is a check-then-write: the store applies the update only
  if the operation is still in the expected status, and reports
  ErrConcurrentModification otherwise. This is what makes two concurrent
  execute calls resolve to exactly one POSTED outcome.

STATUS HISTORY:
  Operations are never deleted. Rejected and posted operations stay in the
  store because balance calculation reads the full history of a deal.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - operation/store/memory.go: In-memory for testing

SEE ALSO:
  - service.go: The only consumer of these interfaces
  - balance.go: Reads histories loaded through ListByDeal
*/
package operation

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Operation persistence
// =============================================================================

// ListFilter narrows ListOperations. Zero values mean "no constraint".
type ListFilter struct {
	Status Status
	Type   Type
	Limit  int
}

// StatusUpdate carries the fields a transition writes alongside the status.
type StatusUpdate struct {
	Actor      string
	VoucherID  *string
	References []Reference
}

// Store handles persistence of operations.
// Operations are inserted once (REQUESTED) and then mutated only through
// TransitionStatus. No deletes, ever.
type Store interface {
	// SaveOperation inserts a new operation.
	SaveOperation(ctx context.Context, op Operation) error

	// GetOperation returns the operation or nil when the id is unknown.
	GetOperation(ctx context.Context, id OperationID) (*Operation, error)

	// ListOperations returns operations matching the filter, newest first.
	ListOperations(ctx context.Context, filter ListFilter) ([]Operation, error)

	// ListByDeal returns every operation for a deal, oldest first.
	// This is the history the balance calculator consumes.
	ListByDeal(ctx context.Context, dealID DealID) ([]Operation, error)

	// TransitionStatus moves an operation from `from` to `to`, applying the
	// update, only if it is still in `from`. Returns the updated operation.
	// Returns ErrConcurrentModification when the status no longer matches,
	// and a NotFoundError when the id is unknown.
	TransitionStatus(ctx context.Context, id OperationID, from, to Status, update StatusUpdate) (*Operation, error)
}

// =============================================================================
// DIRECTORY - Read-only payment and deal lookups
// =============================================================================

// Directory resolves the external entities a request references.
// Implementations return a NotFoundError for unknown ids; any other error
// means the lookup itself failed.
type Directory interface {
	GetPayment(ctx context.Context, id PaymentID) (*PaymentContext, error)
	GetDeal(ctx context.Context, id DealID) (*DealInfo, error)
}

// =============================================================================
// VOUCHER ISSUER - Accounting collaborator
// =============================================================================

// Voucher is the accounting artifact produced when an operation posts.
// Owned by the accounting subsystem; this is the engine's view of it.
type Voucher struct {
	ID            string
	VoucherNumber string
	Type          string
	Amount        decimal.Decimal
	Status        string
}

// VoucherIssuer creates vouchers during execute. A failure here must leave
// the operation APPROVED, so issuers should be side-effect free on error.
type VoucherIssuer interface {
	CreateVoucher(ctx context.Context, amount decimal.Decimal, voucherType string, sourceOperationID OperationID) (Voucher, error)
}

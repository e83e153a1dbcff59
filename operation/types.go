/*
Package operation provides the core finance operation engine.

PURPOSE:
  This package contains the domain types and algorithms for the finance
  "operation" workflow: refund, transfer, and merge requests raised against a
  source payment, moving through an approval lifecycle and producing
  accounting vouchers when executed.

KEY CONCEPTS IN THIS FILE (types.go):
  - Operation: A requested financial adjustment with status and audit trail
  - Reference: A link from a posted operation to the payment/deal it affects
  - PaymentContext: Read-only snapshot of the source payment
  - DealInfo: Read-only snapshot of a deal (used for merge/transfer targets)

DESIGN PRINCIPLES:
  1. Monotonic lifecycle: REQUESTED -> APPROVED -> POSTED, never backwards
  2. Precision: Uses decimal.Decimal to avoid floating-point errors on money
  3. Type Safety: Strong typing for IDs prevents mixing payment/deal/op IDs
  4. Auditability: Every transition records who performed it and when

USAGE:
  op := operation.Operation{
      Type:   operation.TypeRefund,
      Status: operation.StatusRequested,
      Reason: "tenant overpaid rent",
      Amount: &amount,
  }
  effective := op.EffectiveAmount()

SEE ALSO:
  - balance.go: Balance calculation from posted operation history
  - validate.go: Eligibility rules for new requests
  - service.go: Lifecycle orchestration (request/approve/reject/execute)
*/
package operation

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OperationID string
type PaymentID string
type DealID string
type ClientID string
type PropertyID string

// =============================================================================
// OPERATION TYPE & STATUS
// =============================================================================

type Type string

const (
	TypeRefund   Type = "REFUND"
	TypeTransfer Type = "TRANSFER"
	TypeMerge    Type = "MERGE"
)

func (t Type) Valid() bool {
	switch t {
	case TypeRefund, TypeTransfer, TypeMerge:
		return true
	}
	return false
}

type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusApproved  Status = "APPROVED"
	StatusPosted    Status = "POSTED"
	StatusRejected  Status = "REJECTED"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusPosted || s == StatusRejected
}

// CanTransitionTo encodes the lifecycle:
// REQUESTED -> APPROVED | REJECTED, APPROVED -> POSTED.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusRequested:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusPosted
	}
	return false
}

// =============================================================================
// REFERENCE - Link from a posted operation to the entities it affects
// =============================================================================

type RefType string

const (
	RefPayment RefType = "payment"
	RefDeal    RefType = "deal"
)

type RefRole string

const (
	RoleSource RefRole = "SOURCE"
	RoleTarget RefRole = "TARGET"
)

// Reference ties a posted operation to a payment or deal. Balances are
// recomputed from these, so they are appended at POSTED time only.
type Reference struct {
	RefType RefType
	RefID   string
	Role    RefRole
}

// =============================================================================
// OPERATION - A requested financial adjustment
// =============================================================================

// Operation is a refund, transfer, or merge request against a source payment.
// Exactly one of Amount/PartialAmount is authoritative: PartialAmount is set
// when the caller requested a partial adjustment, Amount for the full payment.
type Operation struct {
	ID     OperationID
	Type   Type
	Status Status
	Reason string

	Amount        *decimal.Decimal
	PartialAmount *decimal.Decimal

	DealID    DealID
	PaymentID PaymentID

	// Targets; populated depending on Type.
	TargetClientID   *ClientID   // TRANSFER
	TargetDealID     *DealID     // MERGE (mutually exclusive with TargetPropertyID)
	TargetPropertyID *PropertyID // MERGE

	// Set only when Status == POSTED.
	VoucherID  *string
	References []Reference

	// Audit trail
	RequestedBy string
	ApprovedBy  *string
	PostedBy    *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveAmount resolves the amount an operation actually moves:
// PartialAmount when present, otherwise Amount, otherwise zero.
func (o *Operation) EffectiveAmount() decimal.Decimal {
	if o.PartialAmount != nil {
		return *o.PartialAmount
	}
	if o.Amount != nil {
		return *o.Amount
	}
	return decimal.Zero
}

// ReferencesPayment reports whether the operation carries a payment reference
// for the given payment id.
func (o *Operation) ReferencesPayment(id PaymentID) bool {
	for _, ref := range o.References {
		if ref.RefType == RefPayment && ref.RefID == string(id) {
			return true
		}
	}
	return false
}

// ReferencesSourceDeal reports whether the operation carries a SOURCE deal
// reference for the given deal id.
func (o *Operation) ReferencesSourceDeal(id DealID) bool {
	for _, ref := range o.References {
		if ref.RefType == RefDeal && ref.Role == RoleSource && ref.RefID == string(id) {
			return true
		}
	}
	return false
}

// =============================================================================
// PAYMENT & DEAL SNAPSHOTS - Read-only collaborator data
// =============================================================================

// PaymentContext is an immutable snapshot of the source payment. It is
// fetched, never written, by this package.
type PaymentContext struct {
	ID     PaymentID
	Amount decimal.Decimal
	Deal   DealContext
}

// DealContext carries the deal sub-references the validator needs.
type DealContext struct {
	ID         DealID
	ClientID   ClientID
	PropertyID PropertyID
	UnitID     string
}

// DealInfo is the lookup result for a merge/transfer target deal.
type DealInfo struct {
	ID       DealID
	ClientID ClientID
	Status   string
	DealCode string
	Title    string
}

// inactiveDealStatuses are statuses a merge target must not be in.
// Matched case-insensitively.
var inactiveDealStatuses = map[string]bool{
	"closed":    true,
	"cancelled": true,
	"lost":      true,
	"inactive":  true,
	"sold":      true,
}

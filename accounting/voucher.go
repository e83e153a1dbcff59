/*
Package accounting owns the ledger-side artifacts of the finance engine:
vouchers issued when operations post, and the chart of accounts they are
ultimately booked against.

PURPOSE:
  The operation engine treats voucher creation as an external collaborator
  call. This package is that collaborator: Issuer implements
  operation.VoucherIssuer, persisting vouchers with sequential numbering.

VOUCHER NUMBERING:
  JV-<year>-<sequence>, e.g. JV-2026-000042. The sequence is per-store and
  monotonic; numbering gaps are acceptable, duplicates are not.

SEE ALSO:
  - chart.go: Chart of accounts types and invariants
  - operation/service.go: Calls CreateVoucher during execute
*/
package accounting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propflow/finance-engine/operation"
)

// =============================================================================
// VOUCHER - Ledger artifact produced when an operation posts
// =============================================================================

const VoucherStatusIssued = "issued"

type Voucher struct {
	ID                string
	VoucherNumber     string
	Type              string
	Amount            decimal.Decimal
	Status            string
	SourceOperationID string
	CreatedAt         time.Time
}

// VoucherStore persists vouchers. Append-only: vouchers are ledger
// artifacts and are never updated or deleted.
type VoucherStore interface {
	SaveVoucher(ctx context.Context, v Voucher) error
	GetVoucher(ctx context.Context, id string) (*Voucher, error)
	CountVouchers(ctx context.Context) (int64, error)
}

// =============================================================================
// ISSUER - operation.VoucherIssuer implementation
// =============================================================================

// Issuer creates and persists vouchers with sequential numbers.
type Issuer struct {
	store VoucherStore
	mu    sync.Mutex // serializes number allocation
}

func NewIssuer(store VoucherStore) *Issuer {
	return &Issuer{store: store}
}

// CreateVoucher issues a voucher for an operation about to post. On error
// nothing is persisted, so a failed execute leaves no orphan voucher.
func (i *Issuer) CreateVoucher(ctx context.Context, amount decimal.Decimal, voucherType string, sourceOperationID operation.OperationID) (operation.Voucher, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	seq, err := i.store.CountVouchers(ctx)
	if err != nil {
		return operation.Voucher{}, fmt.Errorf("failed to allocate voucher number: %w", err)
	}

	now := time.Now().UTC()
	v := Voucher{
		ID:                uuid.NewString(),
		VoucherNumber:     fmt.Sprintf("JV-%d-%06d", now.Year(), seq+1),
		Type:              voucherType,
		Amount:            amount,
		Status:            VoucherStatusIssued,
		SourceOperationID: string(sourceOperationID),
		CreatedAt:         now,
	}

	if err := i.store.SaveVoucher(ctx, v); err != nil {
		return operation.Voucher{}, fmt.Errorf("failed to persist voucher: %w", err)
	}

	return operation.Voucher{
		ID:            v.ID,
		VoucherNumber: v.VoucherNumber,
		Type:          v.Type,
		Amount:        v.Amount,
		Status:        v.Status,
	}, nil
}

// Get resolves a voucher by id for display.
func (i *Issuer) Get(ctx context.Context, id string) (*Voucher, error) {
	return i.store.GetVoucher(ctx, id)
}

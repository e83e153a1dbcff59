// Package store provides in-memory implementations of the operation
// engine's interfaces, for tests and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/propflow/finance-engine/operation"
)

// =============================================================================
// MEMORY STORE - In-memory operation.Store (for testing/dev)
// =============================================================================

type Memory struct {
	mu  sync.RWMutex
	ops map[operation.OperationID]operation.Operation
}

func NewMemory() *Memory {
	return &Memory{ops: make(map[operation.OperationID]operation.Operation)}
}

func (m *Memory) SaveOperation(_ context.Context, op operation.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op.ID] = op
	return nil
}

func (m *Memory) GetOperation(_ context.Context, id operation.OperationID) (*operation.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	op, ok := m.ops[id]
	if !ok {
		return nil, nil
	}
	cp := op
	return &cp, nil
}

func (m *Memory) ListOperations(_ context.Context, filter operation.ListFilter) ([]operation.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []operation.Operation
	for _, op := range m.ops {
		if filter.Status != "" && op.Status != filter.Status {
			continue
		}
		if filter.Type != "" && op.Type != filter.Type {
			continue
		}
		result = append(result, op)
	}

	// Newest first, matching the SQLite store's ordering.
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *Memory) ListByDeal(_ context.Context, dealID operation.DealID) ([]operation.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []operation.Operation
	for _, op := range m.ops {
		if op.DealID == dealID {
			result = append(result, op)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) TransitionStatus(_ context.Context, id operation.OperationID, from, to operation.Status, update operation.StatusUpdate) (*operation.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	op, ok := m.ops[id]
	if !ok {
		return nil, &operation.NotFoundError{Kind: "operation", ID: string(id)}
	}
	if op.Status != from {
		return nil, operation.ErrConcurrentModification
	}

	op.Status = to
	applyUpdate(&op, to, update)
	m.ops[id] = op

	cp := op
	return &cp, nil
}

func applyUpdate(op *operation.Operation, to operation.Status, update operation.StatusUpdate) {
	switch to {
	case operation.StatusApproved:
		actor := update.Actor
		op.ApprovedBy = &actor
	case operation.StatusPosted:
		actor := update.Actor
		op.PostedBy = &actor
		op.VoucherID = update.VoucherID
		op.References = append(op.References, update.References...)
	}
}

// =============================================================================
// MEMORY DIRECTORY - Fixture payments and deals
// =============================================================================

type Directory struct {
	mu       sync.RWMutex
	payments map[operation.PaymentID]operation.PaymentContext
	deals    map[operation.DealID]operation.DealInfo
}

func NewDirectory() *Directory {
	return &Directory{
		payments: make(map[operation.PaymentID]operation.PaymentContext),
		deals:    make(map[operation.DealID]operation.DealInfo),
	}
}

func (d *Directory) PutPayment(p operation.PaymentContext) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payments[p.ID] = p
}

func (d *Directory) PutDeal(deal operation.DealInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deals[deal.ID] = deal
}

func (d *Directory) GetPayment(_ context.Context, id operation.PaymentID) (*operation.PaymentContext, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.payments[id]
	if !ok {
		return nil, &operation.NotFoundError{Kind: "payment", ID: string(id)}
	}
	cp := p
	return &cp, nil
}

func (d *Directory) GetDeal(_ context.Context, id operation.DealID) (*operation.DealInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	deal, ok := d.deals[id]
	if !ok {
		return nil, &operation.NotFoundError{Kind: "deal", ID: string(id)}
	}
	cp := deal
	return &cp, nil
}

/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements all persistence interfaces used by the finance engine with
  SQLite. In production, the same patterns apply to PostgreSQL - only minor
  SQL dialect differences.

INTERFACES IMPLEMENTED:
  operation.Store:         Operation persistence + conditional transitions
  operation.Directory:     Payment and deal lookups
  accounting.VoucherStore: Voucher persistence and numbering

KEY TABLES:
  operations:           Operation records with full audit trail
  operation_references: Payment/deal references attached at POSTED time
  payments:             Source payment snapshots (read-side reference data)
  deals:                Deal records (client, status, display fields)
  vouchers:             Accounting vouchers issued on execute
  accounts:             Chart of accounts (seed data)

CONDITIONAL TRANSITIONS:
  TransitionStatus uses UPDATE ... WHERE id = ? AND status = ? and checks
  the affected row count. Zero rows means either an unknown id or a lost
  race; the two are distinguished with a follow-up read.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/finance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - operation/store.go: Interface definitions
  - operation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/propflow/finance-engine/accounting"
	"github.com/propflow/finance-engine/operation"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes writers; SQLite allows a single writer
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Operations (lifecycle records; never deleted)
	CREATE TABLE IF NOT EXISTS operations (
		id TEXT PRIMARY KEY,
		op_type TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL,
		amount TEXT,
		partial_amount TEXT,
		deal_id TEXT NOT NULL,
		payment_id TEXT NOT NULL,
		target_client_id TEXT,
		target_deal_id TEXT,
		target_property_id TEXT,
		voucher_id TEXT,
		requested_by TEXT NOT NULL,
		approved_by TEXT,
		posted_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: balance calculation loads a deal's full history
	CREATE INDEX IF NOT EXISTS idx_operations_deal
		ON operations(deal_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_operations_status
		ON operations(status);
	CREATE INDEX IF NOT EXISTS idx_operations_type
		ON operations(op_type);

	-- References attached when an operation posts
	CREATE TABLE IF NOT EXISTS operation_references (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation_id TEXT NOT NULL,
		ref_type TEXT NOT NULL,
		ref_id TEXT NOT NULL,
		role TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_references_operation
		ON operation_references(operation_id);
	CREATE INDEX IF NOT EXISTS idx_references_ref
		ON operation_references(ref_type, ref_id);

	-- Source payment snapshots
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		deal_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		property_id TEXT,
		unit_id TEXT
	);

	-- Deals
	CREATE TABLE IF NOT EXISTS deals (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		status TEXT NOT NULL,
		deal_code TEXT,
		title TEXT
	);

	-- Vouchers (append-only ledger artifacts)
	CREATE TABLE IF NOT EXISTS vouchers (
		id TEXT PRIMARY KEY,
		voucher_number TEXT NOT NULL UNIQUE,
		voucher_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		source_operation_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Chart of accounts (seed data)
	CREATE TABLE IF NOT EXISTS accounts (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		account_type TEXT NOT NULL,
		parent_code TEXT,
		is_postable INTEGER NOT NULL DEFAULT 0,
		cash_flow_category TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// OPERATIONS - operation.Store
// =============================================================================

func (s *Store) SaveOperation(ctx context.Context, op operation.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations (
			id, op_type, status, reason, amount, partial_amount,
			deal_id, payment_id, target_client_id, target_deal_id, target_property_id,
			voucher_id, requested_by, approved_by, posted_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(op.ID), string(op.Type), string(op.Status), op.Reason,
		decimalPtrToString(op.Amount), decimalPtrToString(op.PartialAmount),
		string(op.DealID), string(op.PaymentID),
		clientIDPtr(op.TargetClientID), dealIDPtr(op.TargetDealID), propertyIDPtr(op.TargetPropertyID),
		op.VoucherID, op.RequestedBy, op.ApprovedBy, op.PostedBy,
		op.CreatedAt.UTC().Format(time.RFC3339Nano),
		op.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save operation: %w", err)
	}
	return nil
}

func (s *Store) GetOperation(ctx context.Context, id operation.OperationID) (*operation.Operation, error) {
	row := s.db.QueryRowContext(ctx, selectOperation+` WHERE id = ?`, string(id))

	op, err := scanOperation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	if err := s.loadReferences(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

func (s *Store) ListOperations(ctx context.Context, filter operation.ListFilter) ([]operation.Operation, error) {
	query := selectOperation + ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		query += ` AND op_type = ?`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	return s.queryOperations(ctx, query, args...)
}

func (s *Store) ListByDeal(ctx context.Context, dealID operation.DealID) ([]operation.Operation, error) {
	return s.queryOperations(ctx,
		selectOperation+` WHERE deal_id = ? ORDER BY created_at ASC`, string(dealID))
}

func (s *Store) TransitionStatus(ctx context.Context, id operation.OperationID, from, to operation.Status, update operation.StatusUpdate) (*operation.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)

	var res sql.Result
	switch to {
	case operation.StatusApproved:
		res, err = tx.ExecContext(ctx, `
			UPDATE operations SET status = ?, approved_by = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(to), update.Actor, now, string(id), string(from))
	case operation.StatusPosted:
		res, err = tx.ExecContext(ctx, `
			UPDATE operations SET status = ?, posted_by = ?, voucher_id = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(to), update.Actor, update.VoucherID, now, string(id), string(from))
	default:
		res, err = tx.ExecContext(ctx, `
			UPDATE operations SET status = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(to), now, string(id), string(from))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to transition operation: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Distinguish a lost race from an unknown id.
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM operations WHERE id = ?`, string(id)).Scan(&exists); err != nil {
			return nil, err
		}
		if exists == 0 {
			return nil, &operation.NotFoundError{Kind: "operation", ID: string(id)}
		}
		return nil, operation.ErrConcurrentModification
	}

	for _, ref := range update.References {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO operation_references (operation_id, ref_type, ref_id, role)
			VALUES (?, ?, ?, ?)`,
			string(id), string(ref.RefType), ref.RefID, string(ref.Role)); err != nil {
			return nil, fmt.Errorf("failed to append reference: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	return s.GetOperation(ctx, id)
}

// =============================================================================
// OPERATION SCANNING
// =============================================================================

const selectOperation = `
	SELECT id, op_type, status, reason, amount, partial_amount,
	       deal_id, payment_id, target_client_id, target_deal_id, target_property_id,
	       voucher_id, requested_by, approved_by, posted_by, created_at, updated_at
	FROM operations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperation(row rowScanner) (*operation.Operation, error) {
	var (
		op                              operation.Operation
		idStr, opType, status           string
		dealID, paymentID               string
		amount, partial                 sql.NullString
		targetClient, targetDeal        sql.NullString
		targetProperty                  sql.NullString
		voucherID, approvedBy, postedBy sql.NullString
		createdAt, updatedAt            string
	)

	err := row.Scan(&idStr, &opType, &status, &op.Reason, &amount, &partial,
		&dealID, &paymentID, &targetClient, &targetDeal, &targetProperty,
		&voucherID, &op.RequestedBy, &approvedBy, &postedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	op.ID = operation.OperationID(idStr)
	op.Type = operation.Type(opType)
	op.Status = operation.Status(status)
	op.DealID = operation.DealID(dealID)
	op.PaymentID = operation.PaymentID(paymentID)

	if amount.Valid {
		d, err := decimal.NewFromString(amount.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount for operation %s: %w", idStr, err)
		}
		op.Amount = &d
	}
	if partial.Valid {
		d, err := decimal.NewFromString(partial.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt partial amount for operation %s: %w", idStr, err)
		}
		op.PartialAmount = &d
	}

	if targetClient.Valid {
		c := operation.ClientID(targetClient.String)
		op.TargetClientID = &c
	}
	if targetDeal.Valid {
		d := operation.DealID(targetDeal.String)
		op.TargetDealID = &d
	}
	if targetProperty.Valid {
		p := operation.PropertyID(targetProperty.String)
		op.TargetPropertyID = &p
	}
	if voucherID.Valid {
		op.VoucherID = &voucherID.String
	}
	if approvedBy.Valid {
		op.ApprovedBy = &approvedBy.String
	}
	if postedBy.Valid {
		op.PostedBy = &postedBy.String
	}

	op.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	op.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &op, nil
}

func (s *Store) queryOperations(ctx context.Context, query string, args ...any) ([]operation.Operation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var ops []operation.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range ops {
		if err := s.loadReferences(ctx, &ops[i]); err != nil {
			return nil, err
		}
	}
	return ops, nil
}

func (s *Store) loadReferences(ctx context.Context, op *operation.Operation) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref_type, ref_id, role FROM operation_references
		WHERE operation_id = ? ORDER BY id`, string(op.ID))
	if err != nil {
		return fmt.Errorf("failed to load references: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var refType, refID, role string
		if err := rows.Scan(&refType, &refID, &role); err != nil {
			return err
		}
		op.References = append(op.References, operation.Reference{
			RefType: operation.RefType(refType),
			RefID:   refID,
			Role:    operation.RefRole(role),
		})
	}
	return rows.Err()
}

// =============================================================================
// PAYMENTS & DEALS - operation.Directory
// =============================================================================

func (s *Store) SavePayment(ctx context.Context, p operation.PaymentContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO payments (id, amount, deal_id, client_id, property_id, unit_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(p.ID), p.Amount.String(), string(p.Deal.ID), string(p.Deal.ClientID),
		string(p.Deal.PropertyID), p.Deal.UnitID)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, id operation.PaymentID) (*operation.PaymentContext, error) {
	var (
		amount, dealID, clientID string
		propertyID, unitID       sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT amount, deal_id, client_id, property_id, unit_id
		FROM payments WHERE id = ?`, string(id)).
		Scan(&amount, &dealID, &clientID, &propertyID, &unitID)
	if err == sql.ErrNoRows {
		return nil, &operation.NotFoundError{Kind: "payment", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount for payment %s: %w", id, err)
	}

	return &operation.PaymentContext{
		ID:     id,
		Amount: d,
		Deal: operation.DealContext{
			ID:         operation.DealID(dealID),
			ClientID:   operation.ClientID(clientID),
			PropertyID: operation.PropertyID(propertyID.String),
			UnitID:     unitID.String,
		},
	}, nil
}

func (s *Store) SaveDeal(ctx context.Context, d operation.DealInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO deals (id, client_id, status, deal_code, title)
		VALUES (?, ?, ?, ?, ?)`,
		string(d.ID), string(d.ClientID), d.Status, d.DealCode, d.Title)
	if err != nil {
		return fmt.Errorf("failed to save deal: %w", err)
	}
	return nil
}

func (s *Store) GetDeal(ctx context.Context, id operation.DealID) (*operation.DealInfo, error) {
	var (
		clientID, status string
		dealCode, title  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT client_id, status, deal_code, title FROM deals WHERE id = ?`, string(id)).
		Scan(&clientID, &status, &dealCode, &title)
	if err == sql.ErrNoRows {
		return nil, &operation.NotFoundError{Kind: "deal", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	return &operation.DealInfo{
		ID:       id,
		ClientID: operation.ClientID(clientID),
		Status:   status,
		DealCode: dealCode.String,
		Title:    title.String,
	}, nil
}

// =============================================================================
// VOUCHERS - accounting.VoucherStore
// =============================================================================

func (s *Store) SaveVoucher(ctx context.Context, v accounting.Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vouchers (id, voucher_number, voucher_type, amount, status, source_operation_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.VoucherNumber, v.Type, v.Amount.String(), v.Status,
		v.SourceOperationID, v.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save voucher: %w", err)
	}
	return nil
}

func (s *Store) GetVoucher(ctx context.Context, id string) (*accounting.Voucher, error) {
	var (
		v         accounting.Voucher
		amount    string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, voucher_number, voucher_type, amount, status, source_operation_id, created_at
		FROM vouchers WHERE id = ?`, id).
		Scan(&v.ID, &v.VoucherNumber, &v.Type, &amount, &v.Status, &v.SourceOperationID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}

	v.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount for voucher %s: %w", id, err)
	}
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &v, nil
}

func (s *Store) CountVouchers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM vouchers`).Scan(&count)
	return count, err
}

// =============================================================================
// CHART OF ACCOUNTS
// =============================================================================

// SaveAccounts replaces the stored chart with the given one, atomically.
// Callers are expected to have run accounting.ValidateChart first.
func (s *Store) SaveAccounts(ctx context.Context, accounts []accounting.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("failed to clear accounts: %w", err)
	}

	for _, a := range accounts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (code, name, account_type, parent_code, is_postable, cash_flow_category)
			VALUES (?, ?, ?, ?, ?, ?)`,
			a.Code, a.Name, string(a.Type), a.ParentCode, boolToInt(a.IsPostable),
			string(a.CashFlowCategory)); err != nil {
			return fmt.Errorf("failed to save account %s: %w", a.Code, err)
		}
	}

	return tx.Commit()
}

func (s *Store) ListAccounts(ctx context.Context) ([]accounting.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, account_type, parent_code, is_postable, cash_flow_category
		FROM accounts ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []accounting.Account
	for rows.Next() {
		var (
			a          accounting.Account
			acctType   string
			parentCode sql.NullString
			postable   int
			cashFlow   sql.NullString
		)
		if err := rows.Scan(&a.Code, &a.Name, &acctType, &parentCode, &postable, &cashFlow); err != nil {
			return nil, err
		}
		a.Type = accounting.AccountType(acctType)
		a.ParentCode = parentCode.String
		a.IsPostable = postable != 0
		a.CashFlowCategory = accounting.CashFlowCategory(cashFlow.String)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func decimalPtrToString(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func clientIDPtr(id *operation.ClientID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}

func dealIDPtr(id *operation.DealID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}

func propertyIDPtr(id *operation.PropertyID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

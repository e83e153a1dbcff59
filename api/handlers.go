/*
handlers.go - HTTP API handlers for the finance operation engine

PURPOSE:
  Exposes the operation workflow via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Operations:
    GET    /api/operations                 List operations (status/type/limit)
    POST   /api/operations                 Request a new operation
    GET    /api/operations/{id}            Get one operation
    POST   /api/operations/{id}/approve    Approve a requested operation
    POST   /api/operations/{id}/reject     Reject a requested operation
    POST   /api/operations/{id}/execute    Execute an approved operation

  Deals & payments:
    GET    /api/deals/{id}/operations      Operation history for a deal
    GET    /api/payments/{id}/balance      Refundable/transferable balances

  Accounting:
    GET    /api/accounts                   Chart of accounts

ACTOR IDENTITY:
  The acting username is taken from the X-User header. Authentication
  itself is handled upstream by the platform gateway; this service only
  records who acted.

ERROR HANDLING:
  Errors are returned in the {success:false, message, errors} envelope:
  - 400: Validation failures (each violated rule listed in errors)
  - 404: Unknown payment/deal/operation
  - 409: Transition not permitted from the current status
  - 502: Voucher/ledger dependency failure (retryable)
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/propflow/finance-engine/accounting"
	"github.com/propflow/finance-engine/operation"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// AccountStore is the slice of storage the accounts endpoint needs.
type AccountStore interface {
	ListAccounts(ctx context.Context) ([]accounting.Account, error)
}

// VoucherReader resolves vouchers for display.
type VoucherReader interface {
	Get(ctx context.Context, id string) (*accounting.Voucher, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *operation.Service
	Dir      operation.Directory
	Vouchers VoucherReader
	Accounts AccountStore
}

func NewHandler(svc *operation.Service, dir operation.Directory, vouchers VoucherReader, accounts AccountStore) *Handler {
	return &Handler{Service: svc, Dir: dir, Vouchers: vouchers, Accounts: accounts}
}

// actor extracts the acting username. The platform gateway authenticates;
// we only record identity.
func actor(r *http.Request) string {
	if u := r.Header.Get("X-User"); u != "" {
		return u
	}
	return "system"
}

// =============================================================================
// OPERATION HANDLERS
// =============================================================================

// ListOperations returns operations matching the optional filters.
// GET /api/operations?status=&operationType=&limit=
func (h *Handler) ListOperations(w http.ResponseWriter, r *http.Request) {
	filter := operation.ListFilter{
		Status: operation.Status(r.URL.Query().Get("status")),
		Type:   operation.Type(r.URL.Query().Get("operationType")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	ops, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, h.toOperationDTOs(r.Context(), ops))
}

// GetOperation returns a single operation.
// GET /api/operations/{id}
func (h *Handler) GetOperation(w http.ResponseWriter, r *http.Request) {
	id := operation.OperationID(chi.URLParam(r, "id"))

	op, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, h.toOperationDTO(r.Context(), op))
}

// RequestOperation creates a new operation in REQUESTED.
// POST /api/operations
func (h *Handler) RequestOperation(w http.ResponseWriter, r *http.Request) {
	var req RequestOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	opType := operation.Type(req.OperationType)
	if !opType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid operation type", req.OperationType)
		return
	}

	mode := operation.AmountMode(req.AmountMode)
	if mode == "" {
		mode = operation.AmountFull
	}

	in := operation.RequestInput{
		Type:            opType,
		Reason:          req.Reason,
		SourcePaymentID: operation.PaymentID(req.SourcePaymentID),
		Mode:            mode,
		PartialAmount:   req.PartialAmount,
		RequestedBy:     actor(r),
	}
	if req.TargetClientID != nil {
		c := operation.ClientID(*req.TargetClientID)
		in.TargetClientID = &c
	}
	if req.TargetDealID != nil {
		d := operation.DealID(*req.TargetDealID)
		in.TargetDealID = &d
	}
	if req.TargetPropertyID != nil {
		p := operation.PropertyID(*req.TargetPropertyID)
		in.TargetPropertyID = &p
	}

	op, err := h.Service.Request(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, h.toOperationDTO(r.Context(), op))
}

// ApproveOperation approves a requested operation.
// POST /api/operations/{id}/approve
func (h *Handler) ApproveOperation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Approve)
}

// RejectOperation rejects a requested operation.
// POST /api/operations/{id}/reject
func (h *Handler) RejectOperation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Reject)
}

// ExecuteOperation posts an approved operation and issues its voucher.
// POST /api/operations/{id}/execute
func (h *Handler) ExecuteOperation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Execute)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, operation.OperationID, string) (*operation.Operation, error)) {

	id := operation.OperationID(chi.URLParam(r, "id"))

	op, err := fn(r.Context(), id, actor(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, h.toOperationDTO(r.Context(), op))
}

// =============================================================================
// DEAL & PAYMENT HANDLERS
// =============================================================================

// OperationsByDeal returns the full operation history of a deal.
// GET /api/deals/{id}/operations
func (h *Handler) OperationsByDeal(w http.ResponseWriter, r *http.Request) {
	dealID := operation.DealID(chi.URLParam(r, "id"))

	ops, err := h.Service.ByDeal(r.Context(), dealID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, h.toOperationDTOs(r.Context(), ops))
}

// PaymentBalance returns the refundable/transferable balances of a payment.
// GET /api/payments/{id}/balance
func (h *Handler) PaymentBalance(w http.ResponseWriter, r *http.Request) {
	paymentID := operation.PaymentID(chi.URLParam(r, "id"))

	balances, err := h.Service.PaymentBalances(r.Context(), paymentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toBalanceDTO(balances))
}

// =============================================================================
// ACCOUNTING HANDLERS
// =============================================================================

// ListAccounts returns the seeded chart of accounts.
// GET /api/accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Accounts.ListAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list accounts", err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, toAccountDTOs(accounts))
}

// =============================================================================
// DTO RESOLUTION
// =============================================================================

func (h *Handler) toOperationDTO(ctx context.Context, op *operation.Operation) OperationDTO {
	dto := OperationDTO{
		ID:            string(op.ID),
		OperationType: string(op.Type),
		Status:        string(op.Status),
		Reason:        op.Reason,
		CreatedAt:     formatTime(op.CreatedAt),
		RequestedBy:   UserDTO{Username: op.RequestedBy},
		ApprovedBy:    userPtr(op.ApprovedBy),
		PostedBy:      userPtr(op.PostedBy),
		References:    toReferenceDTOs(op.References),
	}

	if op.Amount != nil {
		s := op.Amount.String()
		dto.Amount = &s
	}
	if op.PartialAmount != nil {
		s := op.PartialAmount.String()
		dto.PartialAmount = &s
	}

	// Display resolution is best-effort: a missing deal or voucher record
	// must not fail the whole response.
	if deal, err := h.Dir.GetDeal(ctx, op.DealID); err == nil && deal != nil {
		dto.Deal = &DealDTO{DealCode: deal.DealCode, Title: deal.Title}
	}
	if op.VoucherID != nil {
		if v, err := h.Vouchers.Get(ctx, *op.VoucherID); err == nil {
			dto.Voucher = toVoucherDTO(v)
		}
	}

	return dto
}

func (h *Handler) toOperationDTOs(ctx context.Context, ops []operation.Operation) []OperationDTO {
	dtos := make([]OperationDTO, len(ops))
	for i := range ops {
		dtos[i] = h.toOperationDTO(ctx, &ops[i])
	}
	return dtos
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string, errs ...string) {
	writeJSON(w, status, Envelope{Success: false, Message: message, Errors: errs})
}

// writeServiceError maps domain errors to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *operation.ValidationError
	if errors.As(err, &validationErr) {
		msgs := make([]string, len(validationErr.Violations))
		for i, v := range validationErr.Violations {
			msgs[i] = v.Code + ": " + v.Message
		}
		writeError(w, http.StatusBadRequest, "operation is not submittable", msgs...)
		return
	}

	switch {
	case operation.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, operation.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, operation.ErrDependency):
		writeError(w, http.StatusBadGateway, "downstream ledger failure, safe to retry", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

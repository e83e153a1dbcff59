/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

ENVELOPE:
  Every response is wrapped in {success, data} / {success, message, errors}
  to stay consistent with the rest of the platform's API.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/propflow/finance-engine/accounting"
	"github.com/propflow/finance-engine/operation"
)

// =============================================================================
// RESPONSE ENVELOPE
// =============================================================================

// Envelope is the standard response wrapper.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// RequestOperationRequest is the payload to create a new operation.
type RequestOperationRequest struct {
	OperationType    string  `json:"operationType"`
	Reason           string  `json:"reason"`
	SourcePaymentID  string  `json:"sourcePaymentId"`
	AmountMode       string  `json:"amountMode"` // "full" | "partial"
	PartialAmount    string  `json:"partialAmount,omitempty"`
	TargetClientID   *string `json:"targetClientId,omitempty"`
	TargetDealID     *string `json:"targetDealId,omitempty"`
	TargetPropertyID *string `json:"targetPropertyId,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// UserDTO carries the actor identity fields the UI displays.
type UserDTO struct {
	Username string `json:"username"`
}

// VoucherDTO is the resolved voucher attached to a posted operation.
type VoucherDTO struct {
	ID            string `json:"id"`
	VoucherNumber string `json:"voucherNumber"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
}

// DealDTO is the display view of the operation's deal.
type DealDTO struct {
	DealCode string `json:"dealCode"`
	Title    string `json:"title"`
}

// ReferenceDTO is one payment/deal reference of a posted operation.
type ReferenceDTO struct {
	RefType string `json:"refType"`
	RefID   string `json:"refId"`
	Role    string `json:"role"`
}

// OperationDTO is the full operation representation returned to clients.
type OperationDTO struct {
	ID            string         `json:"id"`
	OperationType string         `json:"operationType"`
	Status        string         `json:"status"`
	Reason        string         `json:"reason"`
	Amount        *string        `json:"amount,omitempty"`
	PartialAmount *string        `json:"partialAmount,omitempty"`
	CreatedAt     string         `json:"createdAt"`
	RequestedBy   UserDTO        `json:"requestedBy"`
	ApprovedBy    *UserDTO       `json:"approvedBy,omitempty"`
	PostedBy      *UserDTO       `json:"postedBy,omitempty"`
	Voucher       *VoucherDTO    `json:"voucher,omitempty"`
	Deal          *DealDTO       `json:"deal,omitempty"`
	References    []ReferenceDTO `json:"references"`
}

// BalanceDTO is the payment balance view the request dialog consumes.
type BalanceDTO struct {
	PaymentID           string `json:"paymentId"`
	PaymentAmount       string `json:"paymentAmount"`
	Refunded            string `json:"refunded"`
	Transferred         string `json:"transferred"`
	Merged              string `json:"merged"`
	RefundableBalance   string `json:"refundableBalance"`
	TransferableBalance string `json:"transferableBalance"`
}

// AccountDTO is one chart-of-accounts entry.
type AccountDTO struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	ParentCode       string `json:"parentCode,omitempty"`
	IsPostable       bool   `json:"isPostable"`
	CashFlowCategory string `json:"cashFlowCategory,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toBalanceDTO(b operation.Balances) BalanceDTO {
	return BalanceDTO{
		PaymentID:           string(b.PaymentID),
		PaymentAmount:       b.PaymentAmount.String(),
		Refunded:            b.Refunded.String(),
		Transferred:         b.Transferred.String(),
		Merged:              b.Merged.String(),
		RefundableBalance:   b.Refundable().String(),
		TransferableBalance: b.Transferable().String(),
	}
}

func toReferenceDTOs(refs []operation.Reference) []ReferenceDTO {
	dtos := make([]ReferenceDTO, len(refs))
	for i, ref := range refs {
		dtos[i] = ReferenceDTO{
			RefType: string(ref.RefType),
			RefID:   ref.RefID,
			Role:    string(ref.Role),
		}
	}
	return dtos
}

func toVoucherDTO(v *accounting.Voucher) *VoucherDTO {
	if v == nil {
		return nil
	}
	return &VoucherDTO{
		ID:            v.ID,
		VoucherNumber: v.VoucherNumber,
		Type:          v.Type,
		Amount:        v.Amount.String(),
		Status:        v.Status,
	}
}

func toAccountDTOs(accounts []accounting.Account) []AccountDTO {
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = AccountDTO{
			Code:             a.Code,
			Name:             a.Name,
			Type:             string(a.Type),
			ParentCode:       a.ParentCode,
			IsPostable:       a.IsPostable,
			CashFlowCategory: string(a.CashFlowCategory),
		}
	}
	return dtos
}

func userPtr(username *string) *UserDTO {
	if username == nil {
		return nil
	}
	return &UserDTO{Username: *username}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatePaymentRequest payload for POST /admin/payments. DueDate is YYYY-MM-DD.
type CreatePaymentRequest struct {
	ClientID       string          `json:"client_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        string          `json:"due_date" validate:"required,datetime=2006-01-02"`
	Type           string          `json:"type" validate:"required,oneof=MONTHLY LICENSE SETUP"`
	Description    string          `json:"description" validate:"required"`
	ReferenceMonth *string         `json:"reference_month" validate:"omitempty,datetime=2006-01"`
	Notes          *string         `json:"notes"`
}

// MarkPaidRequest payload for POST /admin/payments/:id/pay. PaidDate accepts
// YYYY-MM-DD or RFC 3339.
type MarkPaidRequest struct {
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=PIX CREDIT_CARD DEBIT_CARD BANK_SLIP BANK_TRANSFER CASH"`
	PaidDate      *string `json:"paid_date"`
	ReceiptNumber *string `json:"receipt_number" validate:"omitempty,max=64"`
	Notes         *string `json:"notes"`
}

// GenerateMonthlyRequest payload for POST /admin/payments/generate-monthly.
type GenerateMonthlyRequest struct {
	ReferenceMonth string          `json:"reference_month" validate:"required,datetime=2006-01"`
	MonthlyAmount  decimal.Decimal `json:"monthly_amount"`
	DueDay         int             `json:"due_day" validate:"required,min=1,max=31"`
}

// PaymentListQuery captures GET /admin/payments filters.
type PaymentListQuery struct {
	Status         string `query:"status" validate:"omitempty,oneof=PENDING OVERDUE PAID"`
	Type           string `query:"type" validate:"omitempty,oneof=MONTHLY LICENSE SETUP"`
	ReferenceMonth string `query:"reference_month" validate:"omitempty,datetime=2006-01"`
	ClientID       string `query:"client_id"`
}

// PaymentResponse is the public view of a payment.
type PaymentResponse struct {
	ID             string     `json:"id"`
	ClientID       string     `json:"client_id"`
	ClientName     string     `json:"client_name"`
	ClientEmail    string     `json:"client_email"`
	Amount         string     `json:"amount"`
	DueDate        string     `json:"due_date"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	Description    string     `json:"description"`
	ReferenceMonth *string    `json:"reference_month"`
	PaymentMethod  *string    `json:"payment_method"`
	PaidDate       *time.Time `json:"paid_date"`
	ReceiptNumber  *string    `json:"receipt_number"`
	Notes          *string    `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ClientSnapshotResponse is the live owner state attached to listed payments.
type ClientSnapshotResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

// PaymentListItem is one row of the admin payment listing.
type PaymentListItem struct {
	PaymentResponse
	Client ClientSnapshotResponse `json:"client"`
}

// StatusTotalResponse aggregates one status bucket.
type StatusTotalResponse struct {
	Count int    `json:"count"`
	Total string `json:"total"`
}

// PaymentSummaryResponse holds per-status aggregates.
type PaymentSummaryResponse struct {
	Paid    StatusTotalResponse `json:"paid"`
	Pending StatusTotalResponse `json:"pending"`
	Overdue StatusTotalResponse `json:"overdue"`
}

// PaymentListResponse is the admin listing envelope.
type PaymentListResponse struct {
	Payments []PaymentListItem      `json:"payments"`
	Summary  PaymentSummaryResponse `json:"summary"`
}

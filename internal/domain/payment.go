package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus enumerates lifecycle states for a billed obligation.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusOverdue PaymentStatus = "OVERDUE"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// PaymentType classifies what the obligation charges for.
type PaymentType string

const (
	PaymentTypeMonthly PaymentType = "MONTHLY"
	PaymentTypeLicense PaymentType = "LICENSE"
	PaymentTypeSetup   PaymentType = "SETUP"
)

// PaymentMethod records how an administrator says the client paid.
type PaymentMethod string

const (
	PaymentMethodPix          PaymentMethod = "PIX"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentMethodBankSlip     PaymentMethod = "BANK_SLIP"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCash         PaymentMethod = "CASH"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusOverdue, PaymentStatusPaid},
	PaymentStatusOverdue: {PaymentStatusPaid},
}

// OpenPaymentStatuses are the statuses that still expect money.
var OpenPaymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusOverdue}

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusOverdue, PaymentStatusPaid:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid
}

// IsOpen reports whether the payment still awaits settlement.
func (s PaymentStatus) IsOpen() bool {
	return s == PaymentStatusPending || s == PaymentStatusOverdue
}

// CanTransitionTo validates a status change.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, candidate := range paymentTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeMonthly, PaymentTypeLicense, PaymentTypeSetup:
		return true
	}
	return false
}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPix, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodBankSlip, PaymentMethodBankTransfer, PaymentMethodCash:
		return true
	}
	return false
}

// Payment is a single billed obligation. ClientName and ClientEmail are copied
// from the client when the payment is created and never re-synced.
type Payment struct {
	ID             string
	ClientID       string
	ClientName     string
	ClientEmail    string
	Amount         decimal.Decimal
	DueDate        time.Time
	Type           PaymentType
	Status         PaymentStatus
	Description    string
	ReferenceMonth *string
	PaymentMethod  *PaymentMethod
	PaidDate       *time.Time
	ReceiptNumber  *string
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsOverdueAt is the read-time overdue flag; it never mutates Status.
func (p *Payment) IsOverdueAt(now time.Time) bool {
	return p.Status != PaymentStatusPaid && p.DueDate.Before(now)
}

// ClientSnapshot is the live view of a payment's owner used in listings.
type ClientSnapshot struct {
	ID     string
	Name   string
	Email  string
	Active bool
}

// PaymentWithClient pairs a payment with its owner's current state.
type PaymentWithClient struct {
	Payment
	Client ClientSnapshot
}

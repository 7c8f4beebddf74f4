package events

import (
	"time"

	"github.com/restokit/restaurant-billing/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventClientCreated            EventType = "client_created"
	EventClientUpdated            EventType = "client_updated"
	EventClientDeactivated        EventType = "client_deactivated"
	EventClientReactivated        EventType = "client_reactivated"
	EventClientDeleted            EventType = "client_deleted"
	EventPaymentCreated           EventType = "payment_created"
	EventPaymentPaid              EventType = "payment_paid"
	EventPaymentsOverdue          EventType = "payments_overdue"
	EventMonthlyPaymentsGenerated EventType = "monthly_payments_generated"
)

// Actor encapsulates actor metadata for an event. Scheduled jobs publish with
// an empty UserID and the SYSTEM role.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role"`
}

// SystemActor identifies unattended jobs.
var SystemActor = Actor{Role: "SYSTEM"}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ClientID  string      `json:"client_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ClientCreatedPayload payload.
type ClientCreatedPayload struct {
	Email          string `json:"email"`
	RestaurantID   string `json:"restaurant_id"`
	FirstPaymentID string `json:"first_payment_id"`
	ReferenceMonth string `json:"reference_month"`
}

// ClientUpdatedPayload payload.
type ClientUpdatedPayload struct {
	Fields          []string `json:"fields"`
	PaymentsUpdated int      `json:"payments_updated"`
}

// ClientDeletedPayload payload.
type ClientDeletedPayload struct {
	Email             string   `json:"email"`
	RestaurantIDs     []string `json:"restaurant_ids"`
	PaymentsRemoved   int64    `json:"payments_removed"`
	DependentsRemoved int64    `json:"dependents_removed"`
}

// PaymentPayload describes a single payment change.
type PaymentPayload struct {
	PaymentID      string               `json:"payment_id"`
	Type           domain.PaymentType   `json:"type"`
	Status         domain.PaymentStatus `json:"status"`
	Amount         string               `json:"amount"`
	ReferenceMonth *string              `json:"reference_month,omitempty"`
}

// PaymentsOverduePayload payload.
type PaymentsOverduePayload struct {
	Count int64     `json:"count"`
	AsOf  time.Time `json:"as_of"`
}

// MonthlyPaymentsGeneratedPayload payload.
type MonthlyPaymentsGeneratedPayload struct {
	ReferenceMonth string `json:"reference_month"`
	Created        int    `json:"created"`
	Skipped        int    `json:"skipped"`
}

package dto

import (
	"github.com/shopspring/decimal"
)

// CreateClientRequest payload for POST /admin/clients.
type CreateClientRequest struct {
	Email             string          `json:"email" validate:"required,email"`
	Password          string          `json:"password" validate:"required"`
	Name              string          `json:"name" validate:"required"`
	RestaurantName    string          `json:"restaurant_name" validate:"required"`
	RestaurantAddress string          `json:"restaurant_address" validate:"required"`
	Phone             *string         `json:"phone" validate:"omitempty,max=32"`
	MonthlyAmount     decimal.Decimal `json:"monthly_amount"`
	PaymentDay        int             `json:"payment_day" validate:"required,min=1,max=31"`
}

// UpdateClientRequest payload for PATCH /admin/clients/:id. Absent fields are
// left unchanged.
type UpdateClientRequest struct {
	Name              *string          `json:"name" validate:"omitempty,min=1"`
	Email             *string          `json:"email" validate:"omitempty,email"`
	Password          *string          `json:"password"`
	RestaurantName    *string          `json:"restaurant_name" validate:"omitempty,min=1"`
	RestaurantAddress *string          `json:"restaurant_address"`
	RestaurantPhone   *string          `json:"restaurant_phone" validate:"omitempty,max=32"`
	RestaurantEmail   *string          `json:"restaurant_email" validate:"omitempty,email"`
	MonthlyAmount     *decimal.Decimal `json:"monthly_amount"`
	PaymentDay        *int             `json:"payment_day" validate:"omitempty,min=1,max=31"`
}

// NextPaymentResponse is the earliest open payment shown in client listings.
type NextPaymentResponse struct {
	PaymentResponse
	IsOverdue bool `json:"is_overdue"`
}

// ClientSummaryResponse is one row of the admin client listing.
type ClientSummaryResponse struct {
	UserResponse
	Restaurant  *RestaurantResponse  `json:"restaurant"`
	NextPayment *NextPaymentResponse `json:"next_payment"`
}

// ClientOnboardingResponse is returned when a client is created.
type ClientOnboardingResponse struct {
	User       UserResponse       `json:"user"`
	Restaurant RestaurantResponse `json:"restaurant"`
	Payment    PaymentResponse    `json:"payment"`
}

// ClientUpdateResponse is returned when a client is edited.
type ClientUpdateResponse struct {
	User            UserResponse        `json:"user"`
	Restaurant      *RestaurantResponse `json:"restaurant"`
	PaymentsUpdated int                 `json:"payments_updated"`
}

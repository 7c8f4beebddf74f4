package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/restokit/restaurant-billing/internal/api/dto"
	"github.com/restokit/restaurant-billing/internal/auth"
	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/service"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

// PaymentsHandler exposes the payment ledger and billing run endpoints.
type PaymentsHandler struct {
	payments *service.PaymentService
	billing  *service.BillingService
	loc      *time.Location
}

// NewPaymentsHandler constructs handler. Dates without a zone are read in loc.
func NewPaymentsHandler(payments *service.PaymentService, billing *service.BillingService, loc *time.Location) *PaymentsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &PaymentsHandler{payments: payments, billing: billing, loc: loc}
}

// List GET /admin/payments.
func (h *PaymentsHandler) List(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var query dto.PaymentListQuery
	if err := bindQuery(c, &query); err != nil {
		return err
	}

	listing, err := h.payments.ListPayments(c.UserContext(), actor, service.PaymentListFilter{
		Status:         query.Status,
		Type:           query.Type,
		ReferenceMonth: query.ReferenceMonth,
		ClientID:       query.ClientID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": paymentListing(listing)})
}

// Create POST /admin/payments.
func (h *PaymentsHandler) Create(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreatePaymentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	dueDate, err := time.ParseInLocation(time.DateOnly, req.DueDate, h.loc)
	if err != nil {
		return apperrors.NewValidationError("request validation failed", map[string]any{"due_date": "must match YYYY-MM-DD"})
	}

	payment, err := h.payments.CreatePayment(c.UserContext(), actor, service.CreatePaymentInput{
		ClientID:       req.ClientID,
		Amount:         req.Amount,
		DueDate:        dueDate,
		Type:           domain.PaymentType(req.Type),
		Description:    req.Description,
		ReferenceMonth: req.ReferenceMonth,
		Notes:          req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": paymentResponse(payment)})
}

// MarkPaid POST /admin/payments/:id/pay.
func (h *PaymentsHandler) MarkPaid(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.MarkPaidRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	input := service.MarkPaidInput{
		Method:        domain.PaymentMethod(req.PaymentMethod),
		ReceiptNumber: req.ReceiptNumber,
		Notes:         req.Notes,
	}
	if req.PaidDate != nil && strings.TrimSpace(*req.PaidDate) != "" {
		paidDate, err := h.parseInstant(*req.PaidDate)
		if err != nil {
			return apperrors.NewValidationError("request validation failed", map[string]any{"paid_date": "must be YYYY-MM-DD or RFC 3339"})
		}
		input.PaidDate = &paidDate
	}

	payment, err := h.payments.MarkPaymentAsPaid(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": paymentResponse(payment)})
}

// SweepOverdue POST /admin/payments/sweep-overdue.
func (h *PaymentsHandler) SweepOverdue(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	count, err := h.payments.TriggerSweep(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": count}})
}

// GenerateMonthly POST /admin/payments/generate-monthly.
func (h *PaymentsHandler) GenerateMonthly(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.GenerateMonthlyRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	created, err := h.billing.GenerateMonthlyPayments(c.UserContext(), actor, service.GenerateMonthlyInput{
		ReferenceMonth: req.ReferenceMonth,
		MonthlyAmount:  req.MonthlyAmount,
		DueDay:         req.DueDay,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": paymentList(created)})
}

// ListOwn GET /me/payments.
func (h *PaymentsHandler) ListOwn(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	payments, err := h.payments.ListOwnPayments(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": paymentList(payments)})
}

func (h *PaymentsHandler) parseInstant(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, value, h.loc)
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/events"
	"github.com/restokit/restaurant-billing/internal/repository"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

// PaymentService is the payment ledger.
type PaymentService struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
	access   *AccessControl
	rt       Runtime
}

// PaymentDependencies bundles collaborators for the ledger.
type PaymentDependencies struct {
	UserRepo    repository.UserRepository
	PaymentRepo repository.PaymentRepository
	Access      *AccessControl
	Runtime     Runtime
}

// PaymentListFilter narrows ListPayments; empty fields match everything.
type PaymentListFilter struct {
	Status         string
	Type           string
	ReferenceMonth string
	ClientID       string
}

// StatusTotal aggregates payments sharing a status.
type StatusTotal struct {
	Count int
	Total decimal.Decimal
}

// PaymentSummary holds per-status aggregates of a listing.
type PaymentSummary struct {
	Paid    StatusTotal
	Pending StatusTotal
	Overdue StatusTotal
}

// PaymentListing is a filtered ledger view.
type PaymentListing struct {
	Payments []domain.PaymentWithClient
	Summary  PaymentSummary
}

// CreatePaymentInput describes an ad hoc obligation.
type CreatePaymentInput struct {
	ClientID       string
	Amount         decimal.Decimal
	DueDate        time.Time
	Type           domain.PaymentType
	Description    string
	ReferenceMonth *string
	Notes          *string
}

// MarkPaidInput records how a payment was settled.
type MarkPaidInput struct {
	Method        domain.PaymentMethod
	PaidDate      *time.Time
	ReceiptNumber *string
	Notes         *string
}

// NewPaymentService constructs the service.
func NewPaymentService(deps PaymentDependencies) *PaymentService {
	return &PaymentService{
		users:    deps.UserRepo,
		payments: deps.PaymentRepo,
		access:   deps.Access,
		rt:       deps.Runtime.withDefaults(),
	}
}

// ListPayments returns matching payments, most distant due date first, with
// each owner's current name, email and active flag plus per-status totals.
func (s *PaymentService) ListPayments(ctx context.Context, actor domain.Actor, filter PaymentListFilter) (*PaymentListing, error) {
	if err := s.access.RequireAdmin(actor); err != nil {
		return nil, err
	}
	repoFilter, err := toRepositoryFilter(filter)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.List(ctx, repoFilter)
	if err != nil {
		return nil, storeError(err)
	}
	listing := &PaymentListing{Payments: payments}
	for _, item := range payments {
		var bucket *StatusTotal
		switch item.Status {
		case domain.PaymentStatusPaid:
			bucket = &listing.Summary.Paid
		case domain.PaymentStatusPending:
			bucket = &listing.Summary.Pending
		case domain.PaymentStatusOverdue:
			bucket = &listing.Summary.Overdue
		default:
			continue
		}
		bucket.Count++
		bucket.Total = bucket.Total.Add(item.Amount)
	}
	return listing, nil
}

func toRepositoryFilter(filter PaymentListFilter) (repository.PaymentFilter, error) {
	var out repository.PaymentFilter
	details := map[string]any{}
	if v := strings.ToUpper(strings.TrimSpace(filter.Status)); v != "" {
		status := domain.PaymentStatus(v)
		if !status.Valid() {
			details["status"] = "must be one of PENDING, OVERDUE, PAID"
		}
		out.Status = &status
	}
	if v := strings.ToUpper(strings.TrimSpace(filter.Type)); v != "" {
		paymentType := domain.PaymentType(v)
		if !paymentType.Valid() {
			details["type"] = "must be one of MONTHLY, LICENSE, SETUP"
		}
		out.Type = &paymentType
	}
	if v := strings.TrimSpace(filter.ReferenceMonth); v != "" {
		if _, err := domain.ParseReferenceMonth(v); err != nil {
			details["reference_month"] = "must match YYYY-MM"
		}
		out.ReferenceMonth = &v
	}
	if v := strings.TrimSpace(filter.ClientID); v != "" {
		out.ClientID = &v
	}
	if len(details) > 0 {
		return repository.PaymentFilter{}, apperrors.NewValidationError("invalid payment filter", details)
	}
	return out, nil
}

// CreatePayment records a new PENDING obligation for a client, snapshotting
// the client's current name and email.
func (s *PaymentService) CreatePayment(ctx context.Context, actor domain.Actor, input CreatePaymentInput) (*domain.Payment, error) {
	if err := s.access.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validatePaymentInput(input); err != nil {
		return nil, err
	}
	client, err := clientTarget(ctx, s.users, input.ClientID)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ClientID:       client.ID,
		ClientName:     client.Name,
		ClientEmail:    client.Email,
		Amount:         input.Amount,
		DueDate:        input.DueDate,
		Type:           input.Type,
		Status:         domain.PaymentStatusPending,
		Description:    strings.TrimSpace(input.Description),
		ReferenceMonth: trimmedOrNil(input.ReferenceMonth),
		Notes:          trimmedOrNil(input.Notes),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("monthly payment already exists for reference month", map[string]any{
				"client_id":       client.ID,
				"reference_month": payment.ReferenceMonth,
			})
		}
		return nil, storeError(err)
	}

	s.rt.Logger.Info("payment created",
		zap.String("payment_id", payment.ID),
		zap.String("client_id", client.ID),
		zap.String("type", string(payment.Type)))
	s.rt.Metrics.PaymentsCreated(string(payment.Type), 1)
	s.rt.publish(ctx, events.Event{
		Type:     events.EventPaymentCreated,
		ClientID: client.ID,
		Actor:    actorOf(actor),
		Payload:  paymentPayload(payment),
	})
	return payment, nil
}

func validatePaymentInput(input CreatePaymentInput) error {
	if err := requiredFields(map[string]string{
		"client_id":   input.ClientID,
		"description": input.Description,
		"type":        string(input.Type),
	}); err != nil {
		return err
	}
	details := map[string]any{}
	if input.DueDate.IsZero() {
		details["due_date"] = "required"
	}
	if !input.Amount.IsPositive() {
		details["amount"] = "must be greater than 0"
	}
	if !input.Type.Valid() {
		details["type"] = "must be one of MONTHLY, LICENSE, SETUP"
	}
	if ref := trimmedOrNil(input.ReferenceMonth); ref != nil {
		if _, err := domain.ParseReferenceMonth(*ref); err != nil {
			details["reference_month"] = "must match YYYY-MM"
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid payment", details)
	}
	return nil
}

// MarkPaymentAsPaid settles a PENDING or OVERDUE payment. PAID is terminal:
// settling it again is a conflict and leaves the payment untouched. Notes and
// receipt number are only overwritten when supplied.
func (s *PaymentService) MarkPaymentAsPaid(ctx context.Context, actor domain.Actor, paymentID string, input MarkPaidInput) (*domain.Payment, error) {
	if err := s.access.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if !input.Method.Valid() {
		return nil, apperrors.NewValidationError("invalid payment method", map[string]any{
			"payment_method": "must be one of PIX, CREDIT_CARD, DEBIT_CARD, BANK_SLIP, BANK_TRANSFER, CASH",
		})
	}

	current, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("payment", map[string]any{"payment_id": paymentID})
		}
		return nil, storeError(err)
	}
	if !current.Status.CanTransitionTo(domain.PaymentStatusPaid) {
		return nil, alreadyPaid(paymentID)
	}

	paidDate := s.rt.Clock()
	if input.PaidDate != nil {
		paidDate = *input.PaidDate
	}
	payment, err := s.payments.MarkPaid(ctx, paymentID, repository.PaymentSettlement{
		Method:        input.Method,
		PaidDate:      paidDate,
		ReceiptNumber: trimmedOrNil(input.ReceiptNumber),
		Notes:         trimmedOrNil(input.Notes),
	})
	if err != nil {
		switch {
		case isNotFound(err):
			return nil, apperrors.NewNotFound("payment", map[string]any{"payment_id": paymentID})
		case errors.Is(err, repository.ErrStateChanged):
			return nil, alreadyPaid(paymentID)
		}
		return nil, storeError(err)
	}

	s.rt.Logger.Info("payment marked paid",
		zap.String("payment_id", payment.ID),
		zap.String("client_id", payment.ClientID),
		zap.String("method", string(input.Method)),
		zap.String("previous_status", string(current.Status)))
	s.rt.Metrics.PaymentPaid(string(input.Method))
	s.rt.publish(ctx, events.Event{
		Type:     events.EventPaymentPaid,
		ClientID: payment.ClientID,
		Actor:    actorOf(actor),
		Payload:  paymentPayload(payment),
	})
	return payment, nil
}

func alreadyPaid(paymentID string) error {
	return apperrors.NewConflict("payment already paid", map[string]any{"payment_id": paymentID})
}

// SweepOverdue moves every PENDING payment due strictly before now to
// OVERDUE and returns how many moved. A failure reports zero.
func (s *PaymentService) SweepOverdue(ctx context.Context) (int64, error) {
	now := s.rt.Clock()
	count, err := s.payments.MarkOverdue(ctx, now)
	if err != nil {
		s.rt.Logger.Error("overdue sweep failed", zap.Error(err))
		return 0, apperrors.NewInternalError(err)
	}

	s.rt.Logger.Info("overdue sweep completed", zap.Int64("updated", count), zap.Time("as_of", now))
	s.rt.Metrics.PaymentsOverdue(count)
	if count > 0 {
		s.rt.publish(ctx, events.Event{
			Type:    events.EventPaymentsOverdue,
			Actor:   events.SystemActor,
			Payload: events.PaymentsOverduePayload{Count: count, AsOf: now},
		})
	}
	return count, nil
}

// TriggerSweep runs SweepOverdue on behalf of an administrator.
func (s *PaymentService) TriggerSweep(ctx context.Context, actor domain.Actor) (int64, error) {
	if err := s.access.RequireAdmin(actor); err != nil {
		return 0, err
	}
	return s.SweepOverdue(ctx)
}

// ListOwnPayments returns the caller's own payments, most distant due date first.
func (s *PaymentService) ListOwnPayments(ctx context.Context, actor domain.Actor) ([]domain.Payment, error) {
	if actor.ID == "" {
		return nil, apperrors.NewForbidden(accessDenied)
	}
	payments, err := s.payments.ListByClient(ctx, actor.ID)
	if err != nil {
		return nil, storeError(err)
	}
	return payments, nil
}

func paymentPayload(p *domain.Payment) events.PaymentPayload {
	return events.PaymentPayload{
		PaymentID:      p.ID,
		Type:           p.Type,
		Status:         p.Status,
		Amount:         p.Amount.StringFixed(2),
		ReferenceMonth: p.ReferenceMonth,
	}
}

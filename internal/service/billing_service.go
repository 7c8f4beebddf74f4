package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/events"
	"github.com/restokit/restaurant-billing/internal/repository"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

const defaultGenerationConcurrency = 4

// BillingService materializes recurring monthly obligations.
type BillingService struct {
	users       repository.UserRepository
	payments    repository.PaymentRepository
	access      *AccessControl
	concurrency int
	rt          Runtime
}

// BillingDependencies bundles collaborators for the generator.
type BillingDependencies struct {
	UserRepo    repository.UserRepository
	PaymentRepo repository.PaymentRepository
	Access      *AccessControl
	// Concurrency bounds parallel inserts; zero picks a default.
	Concurrency int
	Runtime     Runtime
}

// GenerateMonthlyInput describes one billing run.
type GenerateMonthlyInput struct {
	ReferenceMonth string
	MonthlyAmount  decimal.Decimal
	DueDay         int
}

// GenerationResult reports a billing run.
type GenerationResult struct {
	ReferenceMonth string
	Created        []domain.Payment
	Skipped        int
}

// NewBillingService constructs the service.
func NewBillingService(deps BillingDependencies) *BillingService {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultGenerationConcurrency
	}
	return &BillingService{
		users:       deps.UserRepo,
		payments:    deps.PaymentRepo,
		access:      deps.Access,
		concurrency: concurrency,
		rt:          deps.Runtime.withDefaults(),
	}
}

// GenerateMonthlyPayments creates the month's MONTHLY payment for every
// active client that lacks one and returns only the newly created payments.
func (s *BillingService) GenerateMonthlyPayments(ctx context.Context, actor domain.Actor, input GenerateMonthlyInput) ([]domain.Payment, error) {
	if err := s.access.RequireAdmin(actor); err != nil {
		return nil, err
	}
	result, err := s.generate(ctx, actorOf(actor), input)
	if err != nil {
		return nil, err
	}
	return result.Created, nil
}

// RunForMonth is the unattended variant used by the scheduler.
func (s *BillingService) RunForMonth(ctx context.Context, input GenerateMonthlyInput) (*GenerationResult, error) {
	return s.generate(ctx, events.SystemActor, input)
}

func (s *BillingService) generate(ctx context.Context, actor events.Actor, input GenerateMonthlyInput) (*GenerationResult, error) {
	token := strings.TrimSpace(input.ReferenceMonth)
	ref, err := validateGeneration(token, input)
	if err != nil {
		return nil, err
	}
	dueDate := ref.DueDate(input.DueDay, s.rt.Location)

	clients, err := s.users.ListClients(ctx, true)
	if err != nil {
		return nil, storeError(err)
	}

	slots := make([]*domain.Payment, len(clients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, client := range clients {
		g.Go(func() error {
			payment := &domain.Payment{
				ClientID:       client.ID,
				ClientName:     client.Name,
				ClientEmail:    client.Email,
				Amount:         input.MonthlyAmount,
				DueDate:        dueDate,
				Type:           domain.PaymentTypeMonthly,
				Status:         domain.PaymentStatusPending,
				Description:    domain.MonthlyDescription(token),
				ReferenceMonth: &token,
			}
			created, err := s.payments.CreateMonthlyIfAbsent(gctx, payment)
			if err != nil {
				return fmt.Errorf("client %s: %w", client.ID, err)
			}
			if created {
				slots[i] = payment
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.rt.Logger.Error("monthly generation failed", zap.String("reference_month", token), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	result := &GenerationResult{ReferenceMonth: token, Created: []domain.Payment{}}
	for _, payment := range slots {
		if payment == nil {
			result.Skipped++
			continue
		}
		result.Created = append(result.Created, *payment)
	}

	s.rt.Logger.Info("monthly payments generated",
		zap.String("reference_month", token),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", result.Skipped))
	s.rt.Metrics.PaymentsCreated(string(domain.PaymentTypeMonthly), len(result.Created))
	s.rt.publish(ctx, events.Event{
		Type:  events.EventMonthlyPaymentsGenerated,
		Actor: actor,
		Payload: events.MonthlyPaymentsGeneratedPayload{
			ReferenceMonth: token,
			Created:        len(result.Created),
			Skipped:        result.Skipped,
		},
	})
	return result, nil
}

func validateGeneration(token string, input GenerateMonthlyInput) (domain.ReferenceMonth, error) {
	details := map[string]any{}
	ref, err := domain.ParseReferenceMonth(token)
	if err != nil {
		details["reference_month"] = "must match YYYY-MM"
	}
	if !input.MonthlyAmount.IsPositive() {
		details["monthly_amount"] = "must be greater than 0"
	}
	if input.DueDay < 1 || input.DueDay > 31 {
		details["due_day"] = "must be between 1 and 31"
	}
	if len(details) > 0 {
		return domain.ReferenceMonth{}, apperrors.NewValidationError("invalid monthly generation request", details)
	}
	return ref, nil
}

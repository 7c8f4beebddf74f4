package service

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/repository"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

func (s *ServiceSuite) generateInput(ref string) GenerateMonthlyInput {
	return GenerateMonthlyInput{ReferenceMonth: ref, MonthlyAmount: decimal.NewFromInt(199), DueDay: 15}
}

func (s *ServiceSuite) TestGenerateMonthlyPaymentsIsIdempotent() {
	first := s.newClient("ana@bistro.com")
	second := s.newClient("bruno@cafe.com")
	inactive := s.newClient("carla@bar.com")
	_, err := s.clients.DeactivateClient(s.ctx, s.admin, inactive.User.ID)
	s.Require().NoError(err)

	created, err := s.billing.GenerateMonthlyPayments(s.ctx, s.admin, s.generateInput("2025-02"))
	s.Require().NoError(err)
	s.Require().Len(created, 2)
	owners := []string{created[0].ClientID, created[1].ClientID}
	s.ElementsMatch([]string{first.User.ID, second.User.ID}, owners)
	for _, payment := range created {
		s.Equal("Mensalidade 2025-02", payment.Description)
		s.Equal(time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), payment.DueDate)
		s.Equal(domain.PaymentStatusPending, payment.Status)
		s.True(payment.Amount.Equal(decimal.NewFromInt(199)))
	}

	again, err := s.billing.GenerateMonthlyPayments(s.ctx, s.admin, s.generateInput("2025-02"))
	s.Require().NoError(err)
	s.Empty(again)

	monthly := domain.PaymentTypeMonthly
	ref := "2025-02"
	stored, err := s.store.Payments().List(s.ctx, repository.PaymentFilter{Type: &monthly, ReferenceMonth: &ref})
	s.Require().NoError(err)
	s.Len(stored, 2)
}

func (s *ServiceSuite) TestConcurrentGenerationCreatesOnePaymentPerClient() {
	clients := []string{
		s.newClient("ana@bistro.com").User.ID,
		s.newClient("bruno@cafe.com").User.ID,
		s.newClient("carla@bar.com").User.ID,
		s.newClient("davi@pizza.com").User.ID,
	}

	const runs = 2
	var wg sync.WaitGroup
	results := make([][]domain.Payment, runs)
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.billing.GenerateMonthlyPayments(s.ctx, s.admin, s.generateInput("2025-03"))
		}(i)
	}
	wg.Wait()

	var owners []string
	for i := 0; i < runs; i++ {
		s.Require().NoError(errs[i])
		for _, payment := range results[i] {
			owners = append(owners, payment.ClientID)
		}
	}
	s.ElementsMatch(clients, owners, "every client is created by exactly one run")

	monthly := domain.PaymentTypeMonthly
	ref := "2025-03"
	for _, clientID := range clients {
		stored, err := s.store.Payments().List(s.ctx, repository.PaymentFilter{Type: &monthly, ReferenceMonth: &ref, ClientID: &clientID})
		s.Require().NoError(err)
		s.Len(stored, 1, "client %s", clientID)
	}
}

func (s *ServiceSuite) TestGenerateSkipsClientsAlreadyBilled() {
	s.newClient("ana@bistro.com")

	// Onboarding already created January.
	created, err := s.billing.GenerateMonthlyPayments(s.ctx, s.admin, s.generateInput("2025-01"))
	s.Require().NoError(err)
	s.Empty(created)

	result, err := s.billing.RunForMonth(s.ctx, s.generateInput("2025-01"))
	s.Require().NoError(err)
	s.Equal(1, result.Skipped)
}

func (s *ServiceSuite) TestGenerateValidatesInput() {
	cases := map[string]GenerateMonthlyInput{
		"bad month":  {ReferenceMonth: "2025-13", MonthlyAmount: decimal.NewFromInt(1), DueDay: 1},
		"no amount":  {ReferenceMonth: "2025-02", DueDay: 1},
		"bad dueDay": {ReferenceMonth: "2025-02", MonthlyAmount: decimal.NewFromInt(1), DueDay: 0},
	}
	for name, input := range cases {
		s.Run(name, func() {
			_, err := s.billing.GenerateMonthlyPayments(s.ctx, s.admin, input)
			s.True(apperrors.HasCode(err, apperrors.CodeValidation))
		})
	}
}

func (s *ServiceSuite) TestGenerateRequiresAdmin() {
	owner := s.newClient("ana@bistro.com").User
	_, err := s.billing.GenerateMonthlyPayments(s.ctx, s.ownerActor(owner), s.generateInput("2025-02"))
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))
}

package service

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/events"
	"github.com/restokit/restaurant-billing/internal/repository"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

func (s *ServiceSuite) TestCreateClientOnboardsAtomically() {
	onboarding := s.newClient("Ana@Bistro.com")

	s.Equal("ana@bistro.com", onboarding.User.Email)
	s.Equal(domain.RoleUser, onboarding.User.Role)
	s.True(onboarding.User.Active)
	s.NotEqual("secret123", onboarding.User.PasswordHash)
	s.Equal(onboarding.User.ID, onboarding.Restaurant.OwnerID)

	payment := onboarding.Payment
	s.Equal(domain.PaymentTypeMonthly, payment.Type)
	s.Equal(domain.PaymentStatusPending, payment.Status)
	s.Require().NotNil(payment.ReferenceMonth)
	s.Equal("2025-01", *payment.ReferenceMonth)
	s.Equal("Mensalidade 2025-01", payment.Description)
	s.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), payment.DueDate)
	s.Equal("ana@bistro.com", payment.ClientEmail)
	s.True(payment.Amount.Equal(decimal.NewFromInt(150)))

	stored, err := s.store.Payments().ListByClient(s.ctx, onboarding.User.ID)
	s.Require().NoError(err)
	s.Len(stored, 1)
	s.Contains(s.recorded.types(), events.EventClientCreated)
}

func (s *ServiceSuite) TestCreateClientEmailConflictIgnoresCase() {
	s.newClient("ana@bistro.com")

	_, err := s.clients.CreateClient(s.ctx, s.admin, CreateClientInput{
		Email:             "ANA@Bistro.COM",
		Password:          "secret123",
		Name:              "Impostor",
		RestaurantName:    "Other",
		RestaurantAddress: "Rua B",
		MonthlyAmount:     decimal.NewFromInt(100),
		PaymentDay:        5,
	})
	s.True(apperrors.HasCode(err, apperrors.CodeConflict))

	clients, err := s.store.Users().ListClients(s.ctx, true)
	s.Require().NoError(err)
	s.Len(clients, 1)
}

func (s *ServiceSuite) TestCreateClientValidation() {
	cases := map[string]CreateClientInput{
		"missing fields": {Email: "a@b.com"},
		"bad email": {
			Email: "not-an-email", Password: "secret123", Name: "A", RestaurantName: "R",
			RestaurantAddress: "X", MonthlyAmount: decimal.NewFromInt(1), PaymentDay: 1,
		},
		"weak password": {
			Email: "a@b.com", Password: "short", Name: "A", RestaurantName: "R",
			RestaurantAddress: "X", MonthlyAmount: decimal.NewFromInt(1), PaymentDay: 1,
		},
		"zero amount": {
			Email: "a@b.com", Password: "secret123", Name: "A", RestaurantName: "R",
			RestaurantAddress: "X", PaymentDay: 1,
		},
		"day out of range": {
			Email: "a@b.com", Password: "secret123", Name: "A", RestaurantName: "R",
			RestaurantAddress: "X", MonthlyAmount: decimal.NewFromInt(1), PaymentDay: 32,
		},
	}
	for name, input := range cases {
		s.Run(name, func() {
			_, err := s.clients.CreateClient(s.ctx, s.admin, input)
			s.True(apperrors.HasCode(err, apperrors.CodeValidation), err)
		})
	}
}

func (s *ServiceSuite) TestCreateClientRequiresAdmin() {
	owner := s.newClient("ana@bistro.com").User
	_, err := s.clients.CreateClient(s.ctx, s.ownerActor(owner), CreateClientInput{})
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))
}

func (s *ServiceSuite) TestListClientsSplitsByActiveFlag() {
	first := s.newClient("ana@bistro.com")
	second := s.newClient("bruno@cafe.com")
	_, err := s.clients.DeactivateClient(s.ctx, s.admin, first.User.ID)
	s.Require().NoError(err)

	active, err := s.clients.ListActiveClients(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(second.User.ID, active[0].User.ID)
	s.Require().NotNil(active[0].Restaurant)
	s.Equal(second.Restaurant.ID, active[0].Restaurant.ID)
	s.Require().NotNil(active[0].NextPayment)
	s.Equal(second.Payment.ID, active[0].NextPayment.Payment.ID)
	s.False(active[0].NextPayment.IsOverdue)

	inactive, err := s.clients.ListDeactivatedClients(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Require().Len(inactive, 1)
	s.Equal(first.User.ID, inactive[0].User.ID)
}

func (s *ServiceSuite) TestNextPaymentFlagsOverdueAtReadTime() {
	onboarding := s.newClient("ana@bistro.com")
	past := s.adHocPayment(onboarding.User.ID, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), domain.PaymentTypeSetup)

	active, err := s.clients.ListActiveClients(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Require().NotNil(active[0].NextPayment)
	s.Equal(past.ID, active[0].NextPayment.Payment.ID)
	s.True(active[0].NextPayment.IsOverdue)
	s.Equal(domain.PaymentStatusPending, active[0].NextPayment.Payment.Status, "reads never mutate status")
}

func (s *ServiceSuite) TestDeactivateAndReactivateAreIdempotent() {
	owner := s.newClient("ana@bistro.com").User

	for range 2 {
		user, err := s.clients.DeactivateClient(s.ctx, s.admin, owner.ID)
		s.Require().NoError(err)
		s.False(user.Active)
	}
	for range 2 {
		user, err := s.clients.ReactivateClient(s.ctx, s.admin, owner.ID)
		s.Require().NoError(err)
		s.True(user.Active)
	}
}

func (s *ServiceSuite) TestAdminAccountsAreNotClients() {
	_, err := s.clients.DeactivateClient(s.ctx, s.admin, s.admin.ID)
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))

	stored, err := s.store.Users().GetByID(s.ctx, s.admin.ID)
	s.Require().NoError(err)
	s.True(stored.Active)

	s.True(apperrors.HasCode(s.clients.DeleteClient(s.ctx, s.admin, s.admin.ID), apperrors.CodeForbidden))
	_, err = s.clients.UpdateClient(s.ctx, s.admin, s.admin.ID, UpdateClientInput{})
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))
}

func (s *ServiceSuite) TestUnknownClientIsNotFound() {
	_, err := s.clients.ReactivateClient(s.ctx, s.admin, "user-404")
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))
}

func (s *ServiceSuite) TestUpdateClientRewritesOpenPaymentsOnly() {
	onboarding := s.newClient("ana@bistro.com")
	clientID := onboarding.User.ID
	december := s.adHocPayment(clientID, time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC), domain.PaymentTypeLicense)
	settled := s.adHocPayment(clientID, time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC), domain.PaymentTypeSetup)
	_, err := s.payments.MarkPaymentAsPaid(s.ctx, s.admin, settled.ID, MarkPaidInput{Method: domain.PaymentMethodPix})
	s.Require().NoError(err)

	day := 20
	amount := decimal.RequireFromString("175.50")
	update, err := s.clients.UpdateClient(s.ctx, s.admin, clientID, UpdateClientInput{PaymentDay: &day, MonthlyAmount: &amount})
	s.Require().NoError(err)
	s.Equal(2, update.PaymentsUpdated)

	got, err := s.store.Payments().GetByID(s.ctx, december.ID)
	s.Require().NoError(err)
	s.Equal(time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC), got.DueDate)
	s.True(got.Amount.Equal(amount))

	monthly, err := s.store.Payments().GetByID(s.ctx, onboarding.Payment.ID)
	s.Require().NoError(err)
	s.Equal(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), monthly.DueDate)
	s.Equal("2025-01", *monthly.ReferenceMonth)

	paid, err := s.store.Payments().GetByID(s.ctx, settled.ID)
	s.Require().NoError(err)
	s.Equal(time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC), paid.DueDate)
	s.True(paid.Amount.Equal(decimal.NewFromInt(80)))
}

func (s *ServiceSuite) TestUpdateClientSkipsPaymentSettledMidRewrite() {
	onboarding := s.newClient("ana@bistro.com")
	clientID := onboarding.User.ID
	setup := s.adHocPayment(clientID, time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC), domain.PaymentTypeSetup)

	paidAt := time.Date(2024, 12, 9, 15, 30, 0, 0, time.UTC)
	clients := s.clientServiceWith(&settleAfterListing{
		PaymentRepository: s.store.Payments(),
		paymentID:         onboarding.Payment.ID,
		settlement:        repository.PaymentSettlement{Method: domain.PaymentMethodPix, PaidDate: paidAt},
	})

	day := 25
	amount := decimal.RequireFromString("210.00")
	update, err := clients.UpdateClient(s.ctx, s.admin, clientID, UpdateClientInput{PaymentDay: &day, MonthlyAmount: &amount})
	s.Require().NoError(err)
	s.Equal(1, update.PaymentsUpdated, "the payment settled after listing is not counted")

	settled, err := s.store.Payments().GetByID(s.ctx, onboarding.Payment.ID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusPaid, settled.Status)
	s.True(settled.Amount.Equal(decimal.RequireFromString("150.00")), "paid amount kept, got %s", settled.Amount)
	s.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), settled.DueDate)
	s.Require().NotNil(settled.PaidDate)
	s.True(settled.PaidDate.Equal(paidAt))

	rewritten, err := s.store.Payments().GetByID(s.ctx, setup.ID)
	s.Require().NoError(err)
	s.Equal(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC), rewritten.DueDate)
	s.True(rewritten.Amount.Equal(amount))
}

func (s *ServiceSuite) TestUpdateClientProfileAndRestaurant() {
	onboarding := s.newClient("ana@bistro.com")
	name := "Ana Maria"
	restaurantName := "Bistro Nova"
	update, err := s.clients.UpdateClient(s.ctx, s.admin, onboarding.User.ID, UpdateClientInput{
		Name:           &name,
		RestaurantName: &restaurantName,
	})
	s.Require().NoError(err)
	s.Equal("Ana Maria", update.User.Name)
	s.Require().NotNil(update.Restaurant)
	s.Equal("Bistro Nova", update.Restaurant.Name)
	s.Zero(update.PaymentsUpdated)

	payment, err := s.store.Payments().GetByID(s.ctx, onboarding.Payment.ID)
	s.Require().NoError(err)
	s.Equal("Owner ana@bistro.com", payment.ClientName, "payment keeps its snapshot")
}

func (s *ServiceSuite) TestUpdateClientEmailConflict() {
	s.newClient("ana@bistro.com")
	other := s.newClient("bruno@cafe.com")

	email := "ANA@bistro.com"
	_, err := s.clients.UpdateClient(s.ctx, s.admin, other.User.ID, UpdateClientInput{Email: &email})
	s.True(apperrors.HasCode(err, apperrors.CodeConflict))
}

func (s *ServiceSuite) TestDeleteClientCascades() {
	onboarding := s.newClient("ana@bistro.com")
	restaurantID := onboarding.Restaurant.ID
	s.store.AddDependent("inventory_movements", restaurantID, 3)
	s.store.AddDependent("inventory_items", restaurantID, 2)
	s.store.AddDependent("financial_transactions", restaurantID, 4)
	s.store.AddDependent("calendar_events", restaurantID, 1)

	s.Require().NoError(s.clients.DeleteClient(s.ctx, s.admin, onboarding.User.ID))

	_, err := s.store.Users().GetByID(s.ctx, onboarding.User.ID)
	s.Error(err)
	_, err = s.store.Restaurants().GetByID(s.ctx, restaurantID)
	s.Error(err)
	for _, table := range domain.RestaurantDependents {
		s.Zero(s.store.DependentCount(table, restaurantID), table)
	}
	payments, err := s.store.Payments().ListByClient(s.ctx, onboarding.User.ID)
	s.Require().NoError(err)
	s.Empty(payments)
	s.Contains(s.recorded.types(), events.EventClientDeleted)
}

func (s *ServiceSuite) TestDeleteClientKeepsEverythingWhenCascadeFails() {
	onboarding := s.newClient("ana@bistro.com")
	restaurantID := onboarding.Restaurant.ID

	tenantData := &failingTenantData{}
	tenantData.On("DeleteByRestaurant", mock.Anything, "inventory_movements", restaurantID).Return(int64(3), nil)
	tenantData.On("DeleteByRestaurant", mock.Anything, "inventory_items", restaurantID).Return(int64(0), errors.New("lock timeout"))
	s.build(tenantData)

	err := s.clients.DeleteClient(s.ctx, s.admin, onboarding.User.ID)
	s.True(apperrors.HasCode(err, apperrors.CodeInternal))
	tenantData.AssertExpectations(s.T())
	tenantData.AssertNotCalled(s.T(), "DeleteByRestaurant", mock.Anything, "financial_transactions", restaurantID)

	user, err := s.store.Users().GetByID(s.ctx, onboarding.User.ID)
	s.Require().NoError(err)
	s.True(user.Active)
	_, err = s.store.Restaurants().GetByID(s.ctx, restaurantID)
	s.NoError(err)
	payments, err := s.store.Payments().ListByClient(s.ctx, onboarding.User.ID)
	s.Require().NoError(err)
	s.Len(payments, 1)
}

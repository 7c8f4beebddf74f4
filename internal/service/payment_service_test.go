package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/events"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

func (s *ServiceSuite) TestMarkPaidTwiceConflictsAndKeepsFields() {
	onboarding := s.newClient("ana@bistro.com")
	paymentID := onboarding.Payment.ID
	paidDate := time.Date(2024, 12, 9, 0, 0, 0, 0, time.UTC)
	receipt := "R-100"
	notes := "paid at counter"

	paid, err := s.payments.MarkPaymentAsPaid(s.ctx, s.admin, paymentID, MarkPaidInput{
		Method:        domain.PaymentMethodPix,
		PaidDate:      &paidDate,
		ReceiptNumber: &receipt,
		Notes:         &notes,
	})
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusPaid, paid.Status)
	s.Equal(domain.PaymentMethodPix, *paid.PaymentMethod)
	s.Equal(paidDate, *paid.PaidDate)

	otherNotes := "second attempt"
	_, err = s.payments.MarkPaymentAsPaid(s.ctx, s.admin, paymentID, MarkPaidInput{
		Method: domain.PaymentMethodCash,
		Notes:  &otherNotes,
	})
	s.True(apperrors.HasCode(err, apperrors.CodeConflict))

	stored, err := s.store.Payments().GetByID(s.ctx, paymentID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentMethodPix, *stored.PaymentMethod)
	s.Equal(paidDate, *stored.PaidDate)
	s.Equal("R-100", *stored.ReceiptNumber)
	s.Equal("paid at counter", *stored.Notes)
}

func (s *ServiceSuite) TestMarkPaidDefaultsAndKeepsNotes() {
	onboarding := s.newClient("ana@bistro.com")
	notes := "first contact"
	payment, err := s.payments.CreatePayment(s.ctx, s.admin, CreatePaymentInput{
		ClientID:    onboarding.User.ID,
		Amount:      decimal.NewFromInt(500),
		DueDate:     time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
		Type:        domain.PaymentTypeLicense,
		Description: "Annual license",
		Notes:       &notes,
	})
	s.Require().NoError(err)

	paid, err := s.payments.MarkPaymentAsPaid(s.ctx, s.admin, payment.ID, MarkPaidInput{Method: domain.PaymentMethodBankSlip})
	s.Require().NoError(err)
	s.Equal(s.now, *paid.PaidDate)
	s.Equal("first contact", *paid.Notes)
	s.Nil(paid.ReceiptNumber)
}

func (s *ServiceSuite) TestMarkPaidSettlesOverduePayments() {
	onboarding := s.newClient("ana@bistro.com")
	late := s.adHocPayment(onboarding.User.ID, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), domain.PaymentTypeSetup)
	_, err := s.payments.SweepOverdue(s.ctx)
	s.Require().NoError(err)

	paid, err := s.payments.MarkPaymentAsPaid(s.ctx, s.admin, late.ID, MarkPaidInput{Method: domain.PaymentMethodCash})
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusPaid, paid.Status)
}

func (s *ServiceSuite) TestMarkPaidErrors() {
	_, err := s.payments.MarkPaymentAsPaid(s.ctx, s.admin, "payment-404", MarkPaidInput{Method: domain.PaymentMethodPix})
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))

	onboarding := s.newClient("ana@bistro.com")
	_, err = s.payments.MarkPaymentAsPaid(s.ctx, s.admin, onboarding.Payment.ID, MarkPaidInput{Method: "CHEQUE"})
	s.True(apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = s.payments.MarkPaymentAsPaid(s.ctx, s.ownerActor(onboarding.User), onboarding.Payment.ID, MarkPaidInput{Method: domain.PaymentMethodPix})
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))
}

func (s *ServiceSuite) TestSweepOverdueIsIdempotent() {
	onboarding := s.newClient("ana@bistro.com")
	due := s.adHocPayment(onboarding.User.ID, time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC), domain.PaymentTypeLicense)

	count, err := s.payments.SweepOverdue(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, count)

	swept, err := s.store.Payments().GetByID(s.ctx, due.ID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusOverdue, swept.Status)

	s.now = time.Date(2024, 12, 11, 12, 0, 0, 0, time.UTC)
	count, err = s.payments.SweepOverdue(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)

	monthly, err := s.store.Payments().GetByID(s.ctx, onboarding.Payment.ID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusPending, monthly.Status, "future payment untouched")
	s.Contains(s.recorded.types(), events.EventPaymentsOverdue)
}

func (s *ServiceSuite) TestTriggerSweepRequiresAdmin() {
	owner := s.newClient("ana@bistro.com").User
	_, err := s.payments.TriggerSweep(s.ctx, s.ownerActor(owner))
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))

	count, err := s.payments.TriggerSweep(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ServiceSuite) TestCreatePaymentValidatesAndSnapshots() {
	onboarding := s.newClient("ana@bistro.com")

	_, err := s.payments.CreatePayment(s.ctx, s.admin, CreatePaymentInput{
		ClientID:    onboarding.User.ID,
		Amount:      decimal.NewFromInt(-1),
		DueDate:     s.now,
		Type:        domain.PaymentTypeSetup,
		Description: "Setup",
	})
	s.True(apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = s.payments.CreatePayment(s.ctx, s.admin, CreatePaymentInput{
		ClientID:    "user-404",
		Amount:      decimal.NewFromInt(10),
		DueDate:     s.now,
		Type:        domain.PaymentTypeSetup,
		Description: "Setup",
	})
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))

	ref := "2025-01"
	_, err = s.payments.CreatePayment(s.ctx, s.admin, CreatePaymentInput{
		ClientID:       onboarding.User.ID,
		Amount:         decimal.NewFromInt(10),
		DueDate:        s.now,
		Type:           domain.PaymentTypeMonthly,
		Description:    "Duplicate",
		ReferenceMonth: &ref,
	})
	s.True(apperrors.HasCode(err, apperrors.CodeConflict))
}

func (s *ServiceSuite) TestListPaymentsFiltersAndSummarizes() {
	first := s.newClient("ana@bistro.com")
	second := s.newClient("bruno@cafe.com")
	s.adHocPayment(first.User.ID, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), domain.PaymentTypeSetup)
	_, err := s.payments.MarkPaymentAsPaid(s.ctx, s.admin, second.Payment.ID, MarkPaidInput{Method: domain.PaymentMethodPix})
	s.Require().NoError(err)
	_, err = s.payments.SweepOverdue(s.ctx)
	s.Require().NoError(err)

	all, err := s.payments.ListPayments(s.ctx, s.admin, PaymentListFilter{})
	s.Require().NoError(err)
	s.Len(all.Payments, 3)
	s.Equal(1, all.Summary.Paid.Count)
	s.True(all.Summary.Paid.Total.Equal(decimal.NewFromInt(150)))
	s.Equal(1, all.Summary.Pending.Count)
	s.Equal(1, all.Summary.Overdue.Count)
	s.True(all.Summary.Overdue.Total.Equal(decimal.NewFromInt(80)))
	s.True(!all.Payments[0].DueDate.Before(all.Payments[1].DueDate))

	monthly, err := s.payments.ListPayments(s.ctx, s.admin, PaymentListFilter{Type: "monthly", ReferenceMonth: "2025-01"})
	s.Require().NoError(err)
	s.Len(monthly.Payments, 2)

	_, err = s.payments.ListPayments(s.ctx, s.admin, PaymentListFilter{Status: "LOST"})
	s.True(apperrors.HasCode(err, apperrors.CodeValidation))
}

func (s *ServiceSuite) TestListPaymentsShowsLiveClientState() {
	onboarding := s.newClient("ana@bistro.com")
	_, err := s.clients.DeactivateClient(s.ctx, s.admin, onboarding.User.ID)
	s.Require().NoError(err)

	listing, err := s.payments.ListPayments(s.ctx, s.admin, PaymentListFilter{})
	s.Require().NoError(err)
	s.Require().Len(listing.Payments, 1)
	s.False(listing.Payments[0].Client.Active)
}

func (s *ServiceSuite) TestListOwnPayments() {
	first := s.newClient("ana@bistro.com")
	s.newClient("bruno@cafe.com")

	own, err := s.payments.ListOwnPayments(s.ctx, s.ownerActor(first.User))
	s.Require().NoError(err)
	s.Require().Len(own, 1)
	s.Equal(first.Payment.ID, own[0].ID)
}

func (s *ServiceSuite) TestListPaymentsByClient() {
	ana := s.newClient("ana@bistro.com")
	s.newClient("bruno@cafe.com")

	listing, err := s.payments.ListPayments(s.ctx, s.admin, PaymentListFilter{ClientID: ana.User.ID})
	s.Require().NoError(err)
	s.Require().Len(listing.Payments, 1)
	s.Equal(ana.Payment.ID, listing.Payments[0].ID)
}

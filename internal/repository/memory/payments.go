package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/repository"
)

type paymentStore struct {
	s *Store
}

func (p *paymentStore) monthlyExists(clientID, referenceMonth string) bool {
	for _, existing := range p.s.payments {
		if existing.Type == domain.PaymentTypeMonthly && existing.ClientID == clientID &&
			existing.ReferenceMonth != nil && *existing.ReferenceMonth == referenceMonth {
			return true
		}
	}
	return false
}

func (p *paymentStore) insert(payment *domain.Payment) error {
	if _, ok := p.s.users[payment.ClientID]; !ok {
		return fmt.Errorf("payments_client_id_fkey: client %s does not exist", payment.ClientID)
	}
	if !payment.Amount.IsPositive() {
		return fmt.Errorf("payments_amount_check: amount must be positive")
	}
	id, seq := p.s.nextID("payment")
	now := p.s.now()
	payment.ID = id
	payment.CreatedAt = now
	payment.UpdatedAt = now
	p.s.payments[id] = clonePayment(*payment)
	p.s.order[id] = seq
	return nil
}

func (p *paymentStore) Create(ctx context.Context, payment *domain.Payment) error {
	defer p.s.lockWrite(ctx)()

	if payment.Type == domain.PaymentTypeMonthly && payment.ReferenceMonth != nil &&
		p.monthlyExists(payment.ClientID, *payment.ReferenceMonth) {
		return fmt.Errorf("%w: payments_monthly_reference_key", repository.ErrDuplicate)
	}
	return p.insert(payment)
}

func (p *paymentStore) CreateMonthlyIfAbsent(ctx context.Context, payment *domain.Payment) (bool, error) {
	if payment.Type != domain.PaymentTypeMonthly || payment.ReferenceMonth == nil {
		return false, fmt.Errorf("monthly payment with reference month required")
	}
	defer p.s.lockWrite(ctx)()

	if p.monthlyExists(payment.ClientID, *payment.ReferenceMonth) {
		return false, nil
	}
	if err := p.insert(payment); err != nil {
		return false, err
	}
	return true, nil
}

func (p *paymentStore) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	payment, ok := p.s.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := clonePayment(payment)
	return &found, nil
}

func (p *paymentStore) List(_ context.Context, filter repository.PaymentFilter) ([]domain.PaymentWithClient, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	var result []domain.PaymentWithClient
	for _, payment := range p.s.payments {
		if filter.Status != nil && payment.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && payment.Type != *filter.Type {
			continue
		}
		if filter.ReferenceMonth != nil && (payment.ReferenceMonth == nil || *payment.ReferenceMonth != *filter.ReferenceMonth) {
			continue
		}
		if filter.ClientID != nil && payment.ClientID != *filter.ClientID {
			continue
		}
		user, ok := p.s.users[payment.ClientID]
		if !ok {
			continue
		}
		result = append(result, domain.PaymentWithClient{
			Payment: clonePayment(payment),
			Client:  domain.ClientSnapshot{ID: user.ID, Name: user.Name, Email: user.Email, Active: user.Active},
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DueDate.Equal(result[j].DueDate) {
			return result[i].DueDate.After(result[j].DueDate)
		}
		return p.s.order[result[i].ID] > p.s.order[result[j].ID]
	})
	return result, nil
}

func (p *paymentStore) byClient(clientID string, openOnly bool) []domain.Payment {
	var result []domain.Payment
	for _, payment := range p.s.payments {
		if payment.ClientID != clientID {
			continue
		}
		if openOnly && !payment.Status.IsOpen() {
			continue
		}
		result = append(result, clonePayment(payment))
	}
	return result
}

func (p *paymentStore) ListByClient(_ context.Context, clientID string) ([]domain.Payment, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	result := p.byClient(clientID, false)
	sort.Slice(result, func(i, j int) bool { return result[i].DueDate.After(result[j].DueDate) })
	return result, nil
}

func (p *paymentStore) ListOpenByClient(_ context.Context, clientID string) ([]domain.Payment, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	result := p.byClient(clientID, true)
	sort.Slice(result, func(i, j int) bool { return result[i].DueDate.Before(result[j].DueDate) })
	return result, nil
}

func (p *paymentStore) NextOpenByClients(_ context.Context, clientIDs []string) (map[string]domain.Payment, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	result := make(map[string]domain.Payment, len(clientIDs))
	for _, payment := range p.s.payments {
		if !payment.Status.IsOpen() || !slices.Contains(clientIDs, payment.ClientID) {
			continue
		}
		current, ok := result[payment.ClientID]
		if !ok || payment.DueDate.Before(current.DueDate) {
			result[payment.ClientID] = clonePayment(payment)
		}
	}
	return result, nil
}

func (p *paymentStore) UpdateOpenTerms(ctx context.Context, id string, amount *decimal.Decimal, dueDate *time.Time) error {
	defer p.s.lockWrite(ctx)()

	payment, ok := p.s.payments[id]
	if !ok || !payment.Status.IsOpen() {
		return repository.ErrStateChanged
	}
	if amount != nil {
		payment.Amount = *amount
	}
	if dueDate != nil {
		payment.DueDate = *dueDate
	}
	payment.UpdatedAt = p.s.now()
	p.s.payments[id] = payment
	return nil
}

func (p *paymentStore) MarkPaid(ctx context.Context, id string, settlement repository.PaymentSettlement) (*domain.Payment, error) {
	defer p.s.lockWrite(ctx)()

	payment, ok := p.s.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if payment.Status == domain.PaymentStatusPaid {
		return nil, repository.ErrStateChanged
	}
	method := settlement.Method
	paidDate := settlement.PaidDate
	payment.Status = domain.PaymentStatusPaid
	payment.PaymentMethod = &method
	payment.PaidDate = &paidDate
	if settlement.ReceiptNumber != nil {
		payment.ReceiptNumber = cloneString(settlement.ReceiptNumber)
	}
	if settlement.Notes != nil {
		payment.Notes = cloneString(settlement.Notes)
	}
	payment.UpdatedAt = p.s.now()
	p.s.payments[id] = payment

	updated := clonePayment(payment)
	return &updated, nil
}

func (p *paymentStore) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	defer p.s.lockWrite(ctx)()

	var count int64
	for id, payment := range p.s.payments {
		if payment.Status == domain.PaymentStatusPending && payment.DueDate.Before(now) {
			payment.Status = domain.PaymentStatusOverdue
			payment.UpdatedAt = p.s.now()
			p.s.payments[id] = payment
			count++
		}
	}
	return count, nil
}

func (p *paymentStore) DeleteByClient(ctx context.Context, clientID string) (int64, error) {
	defer p.s.lockWrite(ctx)()

	var count int64
	for id, payment := range p.s.payments {
		if payment.ClientID == clientID {
			delete(p.s.payments, id)
			delete(p.s.order, id)
			count++
		}
	}
	return count, nil
}

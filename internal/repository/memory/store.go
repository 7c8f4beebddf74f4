// Package memory provides in-process repositories with the same uniqueness,
// foreign-key and conditional-update behavior as the Postgres schema.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/repository"
)

// Store holds all tables behind one lock. Transactions run one at a time and
// writes made outside a transaction wait for the open one to finish, so a
// rollback only discards the writes of its own unit of work.
type Store struct {
	mu          sync.RWMutex
	txMu        sync.Mutex
	seq         int64
	users       map[string]domain.User
	restaurants map[string]domain.Restaurant
	payments    map[string]domain.Payment
	order       map[string]int64
	dependents  map[string]map[string]int
	now         func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		restaurants: make(map[string]domain.Restaurant),
		payments:    make(map[string]domain.Payment),
		order:       make(map[string]int64),
		dependents:  make(map[string]map[string]int),
		now:         time.Now,
	}
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return &userStore{s} }

// Restaurants returns the restaurant repository view.
func (s *Store) Restaurants() repository.RestaurantRepository { return &restaurantStore{s} }

// Payments returns the payment repository view.
func (s *Store) Payments() repository.PaymentRepository { return &paymentStore{s} }

// TenantData returns the restaurant-dependent data view.
func (s *Store) TenantData() repository.TenantDataRepository { return &tenantDataStore{s} }

// TxManager returns a transaction manager that restores a snapshot when the
// unit of work fails.
func (s *Store) TxManager() repository.TxManager { return &txManager{s} }

// AddDependent records count rows of a restaurant-scoped table.
func (s *Store) AddDependent(table, restaurantID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dependents[table] == nil {
		s.dependents[table] = make(map[string]int)
	}
	s.dependents[table][restaurantID] += count
}

// DependentCount returns how many rows of table belong to the restaurant.
func (s *Store) DependentCount(table, restaurantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dependents[table][restaurantID]
}

func (s *Store) nextID(prefix string) (string, int64) {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq), s.seq
}

type txKey struct{}

// lockWrite takes the table lock for a mutation and returns its release.
// Outside a transaction it first waits on txMu.
func (s *Store) lockWrite(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

type txManager struct {
	s *Store
}

func (m *txManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	snap := m.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	seq         int64
	users       map[string]domain.User
	restaurants map[string]domain.Restaurant
	payments    map[string]domain.Payment
	order       map[string]int64
	dependents  map[string]map[string]int
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deps := make(map[string]map[string]int, len(s.dependents))
	for table, rows := range s.dependents {
		deps[table] = maps.Clone(rows)
	}
	payments := make(map[string]domain.Payment, len(s.payments))
	for id, p := range s.payments {
		payments[id] = clonePayment(p)
	}
	return snapshot{
		seq:         s.seq,
		users:       maps.Clone(s.users),
		restaurants: maps.Clone(s.restaurants),
		payments:    payments,
		order:       maps.Clone(s.order),
		dependents:  deps,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = snap.seq
	s.users = snap.users
	s.restaurants = snap.restaurants
	s.payments = snap.payments
	s.order = snap.order
	s.dependents = snap.dependents
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func clonePayment(p domain.Payment) domain.Payment {
	p.ReferenceMonth = cloneString(p.ReferenceMonth)
	p.ReceiptNumber = cloneString(p.ReceiptNumber)
	p.Notes = cloneString(p.Notes)
	if p.PaymentMethod != nil {
		m := *p.PaymentMethod
		p.PaymentMethod = &m
	}
	if p.PaidDate != nil {
		d := *p.PaidDate
		p.PaidDate = &d
	}
	return p
}

func cloneRestaurant(r domain.Restaurant) domain.Restaurant {
	r.Description = cloneString(r.Description)
	r.Address = cloneString(r.Address)
	r.Phone = cloneString(r.Phone)
	r.Email = cloneString(r.Email)
	r.Color = cloneString(r.Color)
	return r
}

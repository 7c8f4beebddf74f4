package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/repository"
)

type userStore struct {
	s *Store
}

func (u *userStore) emailTaken(email, exceptID string) bool {
	for id, existing := range u.s.users {
		if id != exceptID && domain.NormalizeEmail(existing.Email) == email {
			return true
		}
	}
	return false
}

func (u *userStore) Create(ctx context.Context, user *domain.User) error {
	defer u.s.lockWrite(ctx)()

	email := domain.NormalizeEmail(user.Email)
	if u.emailTaken(email, "") {
		return fmt.Errorf("%w: users_email_lower_key", repository.ErrDuplicate)
	}
	id, seq := u.s.nextID("user")
	now := u.s.now()
	user.ID = id
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now
	u.s.users[id] = *user
	u.s.order[id] = seq
	return nil
}

func (u *userStore) Update(ctx context.Context, user *domain.User) error {
	defer u.s.lockWrite(ctx)()

	existing, ok := u.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	email := domain.NormalizeEmail(user.Email)
	if u.emailTaken(email, user.ID) {
		return fmt.Errorf("%w: users_email_lower_key", repository.ErrDuplicate)
	}
	existing.Name = user.Name
	existing.Email = email
	existing.PasswordHash = user.PasswordHash
	existing.Active = user.Active
	existing.UpdatedAt = u.s.now()
	u.s.users[user.ID] = existing
	user.Email = email
	user.UpdatedAt = existing.UpdatedAt
	return nil
}

func (u *userStore) SetActive(ctx context.Context, id string, active bool) error {
	defer u.s.lockWrite(ctx)()

	existing, ok := u.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Active = active
	existing.UpdatedAt = u.s.now()
	u.s.users[id] = existing
	return nil
}

func (u *userStore) Delete(ctx context.Context, id string) error {
	defer u.s.lockWrite(ctx)()

	if _, ok := u.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, r := range u.s.restaurants {
		if r.OwnerID == id {
			return fmt.Errorf("restaurants_owner_id_fkey: user %s still owns restaurant %s", id, r.ID)
		}
	}
	for _, p := range u.s.payments {
		if p.ClientID == id {
			return fmt.Errorf("payments_client_id_fkey: user %s still has payment %s", id, p.ID)
		}
	}
	delete(u.s.users, id)
	delete(u.s.order, id)
	return nil
}

func (u *userStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (u *userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	email = domain.NormalizeEmail(email)
	for _, user := range u.s.users {
		if domain.NormalizeEmail(user.Email) == email {
			found := user
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u *userStore) ListClients(_ context.Context, active bool) ([]domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	var result []domain.User
	for _, user := range u.s.users {
		if user.Role == domain.RoleUser && user.Active == active {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return u.s.order[result[i].ID] > u.s.order[result[j].ID]
	})
	return result, nil
}

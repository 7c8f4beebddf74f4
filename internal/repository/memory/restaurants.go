package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/repository"
)

type restaurantStore struct {
	s *Store
}

func (r *restaurantStore) Create(ctx context.Context, restaurant *domain.Restaurant) error {
	defer r.s.lockWrite(ctx)()

	if _, ok := r.s.users[restaurant.OwnerID]; !ok {
		return fmt.Errorf("restaurants_owner_id_fkey: owner %s does not exist", restaurant.OwnerID)
	}
	id, seq := r.s.nextID("restaurant")
	now := r.s.now()
	restaurant.ID = id
	restaurant.CreatedAt = now
	restaurant.UpdatedAt = now
	r.s.restaurants[id] = cloneRestaurant(*restaurant)
	r.s.order[id] = seq
	return nil
}

func (r *restaurantStore) Update(ctx context.Context, restaurant *domain.Restaurant) error {
	defer r.s.lockWrite(ctx)()

	existing, ok := r.s.restaurants[restaurant.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := cloneRestaurant(*restaurant)
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = r.s.now()
	r.s.restaurants[restaurant.ID] = updated
	restaurant.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *restaurantStore) Delete(ctx context.Context, id string) error {
	defer r.s.lockWrite(ctx)()

	if _, ok := r.s.restaurants[id]; !ok {
		return repository.ErrNotFound
	}
	for table, rows := range r.s.dependents {
		if rows[id] > 0 {
			return fmt.Errorf("%s_restaurant_id_fkey: restaurant %s still referenced", table, id)
		}
	}
	delete(r.s.restaurants, id)
	delete(r.s.order, id)
	return nil
}

func (r *restaurantStore) GetByID(_ context.Context, id string) (*domain.Restaurant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	restaurant, ok := r.s.restaurants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := cloneRestaurant(restaurant)
	return &found, nil
}

func (r *restaurantStore) ListByOwners(_ context.Context, ownerIDs []string) ([]domain.Restaurant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Restaurant
	for _, restaurant := range r.s.restaurants {
		if slices.Contains(ownerIDs, restaurant.OwnerID) {
			result = append(result, cloneRestaurant(restaurant))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return r.s.order[result[i].ID] < r.s.order[result[j].ID]
	})
	return result, nil
}

type tenantDataStore struct {
	s *Store
}

func (t *tenantDataStore) DeleteByRestaurant(ctx context.Context, table, restaurantID string) (int64, error) {
	if !slices.Contains(domain.RestaurantDependents, table) {
		return 0, fmt.Errorf("unknown restaurant dependent %q", table)
	}
	defer t.s.lockWrite(ctx)()

	if table == "inventory_items" && t.s.dependents["inventory_movements"][restaurantID] > 0 {
		return 0, fmt.Errorf("inventory_movements_item_id_fkey: items of restaurant %s still referenced", restaurantID)
	}
	removed := t.s.dependents[table][restaurantID]
	if removed > 0 {
		delete(t.s.dependents[table], restaurantID)
	}
	return int64(removed), nil
}

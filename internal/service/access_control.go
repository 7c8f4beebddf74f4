package service

import (
	"context"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/repository"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

const accessDenied = "access denied"

// AccessControl decides whether an actor may touch a tenant-scoped resource.
// Every operation is either owner-scoped or admin-only; the two checks are
// never layered.
type AccessControl struct {
	restaurants repository.RestaurantRepository
}

// NewAccessControl constructs the evaluator.
func NewAccessControl(restaurants repository.RestaurantRepository) *AccessControl {
	return &AccessControl{restaurants: restaurants}
}

// CanAccessRestaurant is true iff the restaurant exists and actorUserID owns it.
// A missing restaurant and a foreign one both yield false.
func (a *AccessControl) CanAccessRestaurant(ctx context.Context, restaurantID, actorUserID string) (bool, error) {
	restaurant, err := a.ownedRestaurant(ctx, restaurantID, actorUserID)
	if err != nil {
		return false, err
	}
	return restaurant != nil, nil
}

// RequireAdmin gates admin-only operations.
func (a *AccessControl) RequireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// RequireRestaurantOwner gates owner-scoped operations and returns the
// restaurant. Callers cannot tell a missing restaurant from a foreign one.
func (a *AccessControl) RequireRestaurantOwner(ctx context.Context, actor domain.Actor, restaurantID string) (*domain.Restaurant, error) {
	restaurant, err := a.ownedRestaurant(ctx, restaurantID, actor.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if restaurant == nil {
		return nil, apperrors.NewForbidden(accessDenied)
	}
	return restaurant, nil
}

func (a *AccessControl) ownedRestaurant(ctx context.Context, restaurantID, actorUserID string) (*domain.Restaurant, error) {
	if restaurantID == "" || actorUserID == "" {
		return nil, nil
	}
	restaurant, err := a.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !restaurant.OwnedBy(actorUserID) {
		return nil, nil
	}
	return restaurant, nil
}

// clientTarget resolves the account a client-management operation addresses.
// ADMIN accounts are never valid targets.
func clientTarget(ctx context.Context, users repository.UserRepository, clientID string) (*domain.User, error) {
	user, err := users.GetByID(ctx, clientID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("client", map[string]any{"client_id": clientID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if user.IsAdmin() {
		return nil, apperrors.NewForbidden("administrator accounts cannot be managed as clients")
	}
	return user, nil
}

package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/repository"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

// RestaurantService serves owner-scoped restaurant profile operations.
type RestaurantService struct {
	restaurants repository.RestaurantRepository
	access      *AccessControl
	rt          Runtime
}

// RestaurantDependencies bundles collaborators.
type RestaurantDependencies struct {
	RestaurantRepo repository.RestaurantRepository
	Access         *AccessControl
	Runtime        Runtime
}

// UpdateRestaurantInput carries profile changes; nil means unchanged.
type UpdateRestaurantInput struct {
	Name        *string
	Description *string
	Address     *string
	Phone       *string
	Email       *string
	Color       *string
}

// NewRestaurantService constructs the service.
func NewRestaurantService(deps RestaurantDependencies) *RestaurantService {
	return &RestaurantService{
		restaurants: deps.RestaurantRepo,
		access:      deps.Access,
		rt:          deps.Runtime.withDefaults(),
	}
}

// GetRestaurant returns a restaurant to its owner.
func (s *RestaurantService) GetRestaurant(ctx context.Context, actor domain.Actor, restaurantID string) (*domain.Restaurant, error) {
	return s.access.RequireRestaurantOwner(ctx, actor, restaurantID)
}

// UpdateRestaurant edits a restaurant profile on behalf of its owner.
func (s *RestaurantService) UpdateRestaurant(ctx context.Context, actor domain.Actor, restaurantID string, input UpdateRestaurantInput) (*domain.Restaurant, error) {
	restaurant, err := s.access.RequireRestaurantOwner(ctx, actor, restaurantID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if isBlank(*input.Name) {
			return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"name": "required"})
		}
		restaurant.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil && !isBlank(*input.Email) {
		if err := validateEmail(domain.NormalizeEmail(*input.Email)); err != nil {
			return nil, err
		}
	}
	for target, value := range map[**string]*string{
		&restaurant.Description: input.Description,
		&restaurant.Address:     input.Address,
		&restaurant.Phone:       input.Phone,
		&restaurant.Email:       input.Email,
		&restaurant.Color:       input.Color,
	} {
		if value != nil {
			*target = trimmedOrNil(value)
		}
	}

	if err := s.restaurants.Update(ctx, restaurant); err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewForbidden(accessDenied)
		}
		return nil, storeError(err)
	}
	s.rt.Logger.Info("restaurant updated", zap.String("restaurant_id", restaurant.ID), zap.String("owner_id", actor.ID))
	return restaurant, nil
}

package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/repository"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

// CascadeResult reports what a client purge removed.
type CascadeResult struct {
	RestaurantIDs     []string
	DependentsRemoved int64
	PaymentsRemoved   int64
}

// CascadeCoordinator removes every tenant-owned record of a client, children
// before parents, so the user row can be deleted afterwards.
type CascadeCoordinator struct {
	restaurants repository.RestaurantRepository
	payments    repository.PaymentRepository
	tenantData  repository.TenantDataRepository
	logger      *zap.Logger
}

// CascadeDependencies bundles repositories for the coordinator.
type CascadeDependencies struct {
	RestaurantRepo repository.RestaurantRepository
	PaymentRepo    repository.PaymentRepository
	TenantDataRepo repository.TenantDataRepository
	Logger         *zap.Logger
}

// NewCascadeCoordinator constructs the coordinator.
func NewCascadeCoordinator(deps CascadeDependencies) *CascadeCoordinator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CascadeCoordinator{
		restaurants: deps.RestaurantRepo,
		payments:    deps.PaymentRepo,
		tenantData:  deps.TenantDataRepo,
		logger:      logger,
	}
}

// DeleteClientData purges restaurants, their dependents and the client's
// payments. The first failing step is logged and surfaced as an internal error;
// callers run it inside a transaction so the user row survives a failure.
func (c *CascadeCoordinator) DeleteClientData(ctx context.Context, clientID string) (*CascadeResult, error) {
	log := c.logger.With(zap.String("client_id", clientID))

	restaurants, err := c.restaurants.ListByOwners(ctx, []string{clientID})
	if err != nil {
		return nil, c.fail(log, "list_restaurants", "", err)
	}

	result := &CascadeResult{}
	for _, restaurant := range restaurants {
		for _, table := range domain.RestaurantDependents {
			removed, err := c.tenantData.DeleteByRestaurant(ctx, table, restaurant.ID)
			if err != nil {
				return nil, c.fail(log, table, restaurant.ID, err)
			}
			result.DependentsRemoved += removed
			log.Debug("cascade step done",
				zap.String("step", table),
				zap.String("restaurant_id", restaurant.ID),
				zap.Int64("removed", removed))
		}
		if err := c.restaurants.Delete(ctx, restaurant.ID); err != nil {
			return nil, c.fail(log, "restaurants", restaurant.ID, err)
		}
		result.RestaurantIDs = append(result.RestaurantIDs, restaurant.ID)
	}

	removed, err := c.payments.DeleteByClient(ctx, clientID)
	if err != nil {
		return nil, c.fail(log, "payments", "", err)
	}
	result.PaymentsRemoved = removed

	log.Info("client data purged",
		zap.Strings("restaurant_ids", result.RestaurantIDs),
		zap.Int64("dependents_removed", result.DependentsRemoved),
		zap.Int64("payments_removed", result.PaymentsRemoved))
	return result, nil
}

func (c *CascadeCoordinator) fail(log *zap.Logger, step, restaurantID string, err error) error {
	log.Error("cascade deletion step failed",
		zap.String("step", step),
		zap.String("restaurant_id", restaurantID),
		zap.Error(err))
	return apperrors.NewInternalError(fmt.Errorf("cascade step %s: %w", step, err))
}

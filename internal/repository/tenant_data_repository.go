package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restokit/restaurant-billing/internal/domain"
)

// TenantDataRepository removes records scoped to a restaurant.
type TenantDataRepository interface {
	// DeleteByRestaurant clears one dependent table for the restaurant and
	// returns the number of removed rows.
	DeleteByRestaurant(ctx context.Context, table, restaurantID string) (int64, error)
}

type tenantDataRepository struct {
	pool *pgxpool.Pool
}

// NewTenantDataRepository instantiates repository.
func NewTenantDataRepository(pool *pgxpool.Pool) TenantDataRepository {
	return &tenantDataRepository{pool: pool}
}

func (r *tenantDataRepository) DeleteByRestaurant(ctx context.Context, table, restaurantID string) (int64, error) {
	if !slices.Contains(domain.RestaurantDependents, table) {
		return 0, fmt.Errorf("unknown restaurant dependent %q", table)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE restaurant_id=$1`, table)

	cmd, err := conn(ctx, r.pool).Exec(ctx, query, restaurantID)
	if err != nil {
		return 0, mapError(err)
	}
	return cmd.RowsAffected(), nil
}

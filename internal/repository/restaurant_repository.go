package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restokit/restaurant-billing/internal/domain"
)

// RestaurantRepository encapsulates restaurant persistence.
type RestaurantRepository interface {
	Create(ctx context.Context, restaurant *domain.Restaurant) error
	Update(ctx context.Context, restaurant *domain.Restaurant) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Restaurant, error)
	// ListByOwners returns restaurants of the given owners, oldest first.
	ListByOwners(ctx context.Context, ownerIDs []string) ([]domain.Restaurant, error)
}

type restaurantRepository struct {
	pool *pgxpool.Pool
}

// NewRestaurantRepository instantiates repository.
func NewRestaurantRepository(pool *pgxpool.Pool) RestaurantRepository {
	return &restaurantRepository{pool: pool}
}

const restaurantColumns = `id, name, description, address, phone, email, color, owner_id, created_at, updated_at`

func (r *restaurantRepository) Create(ctx context.Context, restaurant *domain.Restaurant) error {
	const query = `
        INSERT INTO restaurants (name, description, address, phone, email, color, owner_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		restaurant.Name,
		restaurant.Description,
		restaurant.Address,
		restaurant.Phone,
		restaurant.Email,
		restaurant.Color,
		restaurant.OwnerID,
	).Scan(&restaurant.ID, &restaurant.CreatedAt, &restaurant.UpdatedAt)
	return mapError(err)
}

func (r *restaurantRepository) Update(ctx context.Context, restaurant *domain.Restaurant) error {
	const query = `
        UPDATE restaurants SET name=$1, description=$2, address=$3, phone=$4, email=$5, color=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		restaurant.Name,
		restaurant.Description,
		restaurant.Address,
		restaurant.Phone,
		restaurant.Email,
		restaurant.Color,
		restaurant.ID,
	).Scan(&restaurant.UpdatedAt)
	return mapError(err)
}

func (r *restaurantRepository) Delete(ctx context.Context, id string) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM restaurants WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *restaurantRepository) GetByID(ctx context.Context, id string) (*domain.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id=$1`
	restaurant, err := scanRestaurant(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return restaurant, nil
}

func (r *restaurantRepository) ListByOwners(ctx context.Context, ownerIDs []string) ([]domain.Restaurant, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + restaurantColumns + ` FROM restaurants
        WHERE owner_id = ANY($1::uuid[])
        ORDER BY created_at ASC, id ASC`

	rows, err := conn(ctx, r.pool).Query(ctx, query, ownerIDs)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.Restaurant
	for rows.Next() {
		restaurant, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *restaurant)
	}
	return result, mapError(rows.Err())
}

func scanRestaurant(row pgx.Row) (*domain.Restaurant, error) {
	var restaurant domain.Restaurant
	if err := row.Scan(
		&restaurant.ID,
		&restaurant.Name,
		&restaurant.Description,
		&restaurant.Address,
		&restaurant.Phone,
		&restaurant.Email,
		&restaurant.Color,
		&restaurant.OwnerID,
		&restaurant.CreatedAt,
		&restaurant.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &restaurant, nil
}

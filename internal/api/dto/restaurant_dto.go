package dto

import "time"

// UpdateRestaurantRequest payload for PATCH /restaurants/:id.
type UpdateRestaurantRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	Address     *string `json:"address"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Color       *string `json:"color" validate:"omitempty,max=16"`
}

// RestaurantResponse is the public view of a restaurant.
type RestaurantResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Address     *string   `json:"address"`
	Phone       *string   `json:"phone"`
	Email       *string   `json:"email"`
	Color       *string   `json:"color"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

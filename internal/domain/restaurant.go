package domain

import "time"

// Restaurant is the tenant profile owned by exactly one client.
type Restaurant struct {
	ID          string
	Name        string
	Description *string
	Address     *string
	Phone       *string
	Email       *string
	Color       *string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnedBy reports whether userID owns the restaurant.
func (r *Restaurant) OwnedBy(userID string) bool {
	return r != nil && userID != "" && r.OwnerID == userID
}

// Tables scoped to a restaurant, in the order they must be cleared before the
// restaurant row itself can go.
var RestaurantDependents = []string{
	"inventory_movements",
	"inventory_items",
	"financial_transactions",
	"calendar_events",
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/restokit/restaurant-billing/internal/api/dto"
	"github.com/restokit/restaurant-billing/internal/auth"
	"github.com/restokit/restaurant-billing/internal/service"
)

// RestaurantsHandler serves the owner-scoped restaurant profile.
type RestaurantsHandler struct {
	service *service.RestaurantService
}

// NewRestaurantsHandler constructs handler.
func NewRestaurantsHandler(restaurantService *service.RestaurantService) *RestaurantsHandler {
	return &RestaurantsHandler{service: restaurantService}
}

// Get GET /restaurants/:id.
func (h *RestaurantsHandler) Get(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	restaurant, err := h.service.GetRestaurant(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": restaurantResponse(restaurant)})
}

// Update PATCH /restaurants/:id.
func (h *RestaurantsHandler) Update(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRestaurantRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	restaurant, err := h.service.UpdateRestaurant(c.UserContext(), actor, c.Params("id"), service.UpdateRestaurantInput{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Phone:       req.Phone,
		Email:       req.Email,
		Color:       req.Color,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": restaurantResponse(restaurant)})
}

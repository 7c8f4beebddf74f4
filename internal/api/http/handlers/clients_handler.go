package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/restokit/restaurant-billing/internal/api/dto"
	"github.com/restokit/restaurant-billing/internal/auth"
	"github.com/restokit/restaurant-billing/internal/service"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

// ClientsHandler manages the admin client registry endpoints.
type ClientsHandler struct {
	service *service.ClientService
}

// NewClientsHandler constructs handler.
func NewClientsHandler(clientService *service.ClientService) *ClientsHandler {
	return &ClientsHandler{service: clientService}
}

// List GET /admin/clients?status=active|inactive.
func (h *ClientsHandler) List(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}

	var summaries []service.ClientSummary
	switch strings.ToLower(c.Query("status", "active")) {
	case "active":
		summaries, err = h.service.ListActiveClients(c.UserContext(), actor)
	case "inactive":
		summaries, err = h.service.ListDeactivatedClients(c.UserContext(), actor)
	default:
		return apperrors.NewValidationError("invalid status filter", map[string]any{"status": "must be one of: active, inactive"})
	}
	if err != nil {
		return err
	}

	items := make([]dto.ClientSummaryResponse, 0, len(summaries))
	for i := range summaries {
		items = append(items, clientSummaryResponse(&summaries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /admin/clients.
func (h *ClientsHandler) Create(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateClientRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	onboarding, err := h.service.CreateClient(c.UserContext(), actor, service.CreateClientInput{
		Email:             req.Email,
		Password:          req.Password,
		Name:              req.Name,
		RestaurantName:    req.RestaurantName,
		RestaurantAddress: req.RestaurantAddress,
		Phone:             req.Phone,
		MonthlyAmount:     req.MonthlyAmount,
		PaymentDay:        req.PaymentDay,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ClientOnboardingResponse{
		User:       userResponse(onboarding.User),
		Restaurant: restaurantResponse(onboarding.Restaurant),
		Payment:    paymentResponse(onboarding.Payment),
	}})
}

// Update PATCH /admin/clients/:id.
func (h *ClientsHandler) Update(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateClientRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	update, err := h.service.UpdateClient(c.UserContext(), actor, c.Params("id"), service.UpdateClientInput{
		Name:              req.Name,
		Email:             req.Email,
		Password:          req.Password,
		RestaurantName:    req.RestaurantName,
		RestaurantAddress: req.RestaurantAddress,
		RestaurantPhone:   req.RestaurantPhone,
		RestaurantEmail:   req.RestaurantEmail,
		MonthlyAmount:     req.MonthlyAmount,
		PaymentDay:        req.PaymentDay,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.ClientUpdateResponse{
		User:            userResponse(update.User),
		Restaurant:      optionalRestaurant(update.Restaurant),
		PaymentsUpdated: update.PaymentsUpdated,
	}})
}

// Deactivate POST /admin/clients/:id/deactivate.
func (h *ClientsHandler) Deactivate(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	user, err := h.service.DeactivateClient(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// Reactivate POST /admin/clients/:id/reactivate.
func (h *ClientsHandler) Reactivate(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	user, err := h.service.ReactivateClient(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// Delete DELETE /admin/clients/:id.
func (h *ClientsHandler) Delete(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteClient(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

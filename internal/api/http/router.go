package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/restokit/restaurant-billing/internal/api/http/handlers"
	"github.com/restokit/restaurant-billing/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Clients        *handlers.ClientsHandler
	Payments       *handlers.PaymentsHandler
	Restaurants    *handlers.RestaurantsHandler
	AuthMiddleware *auth.AuthMiddleware
	// MetricsRegistry is served on /metrics when set.
	MetricsRegistry *prometheus.Registry
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.MetricsRegistry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.MetricsRegistry, promhttp.HandlerOpts{})))
	}

	app.Post("/auth/login", cfg.Auth.Login)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())

	clients := admin.Group("/clients")
	clients.Get("/", cfg.Clients.List)
	clients.Post("/", cfg.Clients.Create)
	clients.Patch("/:id", cfg.Clients.Update)
	clients.Post("/:id/deactivate", cfg.Clients.Deactivate)
	clients.Post("/:id/reactivate", cfg.Clients.Reactivate)
	clients.Delete("/:id", cfg.Clients.Delete)

	payments := admin.Group("/payments")
	payments.Get("/", cfg.Payments.List)
	payments.Post("/", cfg.Payments.Create)
	payments.Post("/sweep-overdue", cfg.Payments.SweepOverdue)
	payments.Post("/generate-monthly", cfg.Payments.GenerateMonthly)
	payments.Post("/:id/pay", cfg.Payments.MarkPaid)

	me := app.Group("/me", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	me.Get("/payments", cfg.Payments.ListOwn)

	restaurants := app.Group("/restaurants", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	restaurants.Get("/:id", cfg.Restaurants.Get)
	restaurants.Patch("/:id", cfg.Restaurants.Update)
}

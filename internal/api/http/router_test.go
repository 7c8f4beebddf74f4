package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/restokit/restaurant-billing/internal/api/http/handlers"
	"github.com/restokit/restaurant-billing/internal/auth"
	"github.com/restokit/restaurant-billing/internal/config"
	"github.com/restokit/restaurant-billing/internal/events"
	"github.com/restokit/restaurant-billing/internal/observability"
	"github.com/restokit/restaurant-billing/internal/repository/memory"
	"github.com/restokit/restaurant-billing/internal/service"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type RouterSuite struct {
	suite.Suite
	app        *fiber.App
	metrics    *observability.Metrics
	adminToken string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	store := memory.NewStore()
	metrics := observability.NewMetrics()
	s.metrics = metrics
	rt := service.Runtime{
		Logger:     zap.NewNop(),
		Dispatcher: events.NewInMemoryDispatcher(),
		Metrics:    metrics,
		Clock:      time.Now,
		Location:   time.UTC,
	}
	credentials := auth.NewCredentials(auth.NewTokenManager("router-secret", 5), bcrypt.MinCost, 8)
	access := service.NewAccessControl(store.Restaurants())
	cascade := service.NewCascadeCoordinator(service.CascadeDependencies{
		RestaurantRepo: store.Restaurants(),
		PaymentRepo:    store.Payments(),
		TenantDataRepo: store.TenantData(),
	})

	authService := service.NewAuthService(service.AuthDependencies{UserRepo: store.Users(), Credentials: credentials, Runtime: rt})
	clientService := service.NewClientService(service.ClientDependencies{
		UserRepo:       store.Users(),
		RestaurantRepo: store.Restaurants(),
		PaymentRepo:    store.Payments(),
		TxManager:      store.TxManager(),
		Access:         access,
		Cascade:        cascade,
		Hasher:         credentials,
		Runtime:        rt,
	})
	paymentService := service.NewPaymentService(service.PaymentDependencies{
		UserRepo: store.Users(), PaymentRepo: store.Payments(), Access: access, Runtime: rt,
	})
	billingService := service.NewBillingService(service.BillingDependencies{
		UserRepo: store.Users(), PaymentRepo: store.Payments(), Access: access, Runtime: rt,
	})
	restaurantService := service.NewRestaurantService(service.RestaurantDependencies{
		RestaurantRepo: store.Restaurants(), Access: access, Runtime: rt,
	})

	created, err := authService.BootstrapAdmin(context.Background(), config.BootstrapConfig{
		AdminEmail: "root@platform.com", AdminPassword: "rootpass1", AdminName: "Root",
	})
	s.Require().NoError(err)
	s.Require().True(created)

	s.app = fiber.New()
	RegisterMiddlewares(s.app, zap.NewNop(), metrics, 5*time.Second)
	RegisterRoutes(s.app, RouteConfig{
		Health: handlers.NewHealthHandler("billing", "test", map[string]handlers.Pinger{
			"postgres": pingerFunc(func(context.Context) error { return nil }),
		}),
		Auth:            handlers.NewAuthHandler(authService),
		Clients:         handlers.NewClientsHandler(clientService),
		Payments:        handlers.NewPaymentsHandler(paymentService, billingService, time.UTC),
		Restaurants:     handlers.NewRestaurantsHandler(restaurantService),
		AuthMiddleware:  auth.NewAuthMiddleware(credentials, store.Users()),
		MetricsRegistry: metrics.Registry(),
	})

	s.adminToken = s.login("root@platform.com", "rootpass1")
}

func (s *RouterSuite) do(method, path, token string, body any) (int, envelope) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *RouterSuite) login(email, password string) string {
	status, env := s.do(fiber.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	s.Require().Equal(fiber.StatusOK, status)
	var data struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &data))
	s.Require().NotEmpty(data.Auth.Token)
	return data.Auth.Token
}

type onboardingBody struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Restaurant struct {
		ID string `json:"id"`
	} `json:"restaurant"`
	Payment struct {
		ID             string `json:"id"`
		Amount         string `json:"amount"`
		Status         string `json:"status"`
		ReferenceMonth string `json:"reference_month"`
	} `json:"payment"`
}

func (s *RouterSuite) createClient(email string) onboardingBody {
	status, env := s.do(fiber.MethodPost, "/admin/clients", s.adminToken, map[string]any{
		"email":              email,
		"password":           "secret123",
		"name":               "Ana",
		"restaurant_name":    "Bistro",
		"restaurant_address": "Rua A, 100",
		"monthly_amount":     "150.00",
		"payment_day":        10,
	})
	s.Require().Equal(fiber.StatusCreated, status)
	var body onboardingBody
	s.Require().NoError(json.Unmarshal(env.Data, &body))
	return body
}

func (s *RouterSuite) TestHealthAndMetrics() {
	status, _ := s.do(fiber.MethodGet, "/health/live", "", nil)
	s.Equal(fiber.StatusOK, status)
	status, _ = s.do(fiber.MethodGet, "/health/ready", "", nil)
	s.Equal(fiber.StatusOK, status)

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(fiber.StatusOK, resp.StatusCode)
}

func (s *RouterSuite) TestAdminOnboardsClient() {
	body := s.createClient("ana@bistro.com")
	s.NotEmpty(body.User.ID)
	s.NotEmpty(body.Restaurant.ID)
	s.Equal("150.00", body.Payment.Amount)
	s.Equal("PENDING", body.Payment.Status)

	status, env := s.do(fiber.MethodGet, "/admin/clients", s.adminToken, nil)
	s.Equal(fiber.StatusOK, status)
	var items []map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &items))
	s.Len(items, 1)
}

func (s *RouterSuite) TestClientCannotReachAdminRoutes() {
	s.createClient("ana@bistro.com")
	token := s.login("ana@bistro.com", "secret123")

	status, env := s.do(fiber.MethodGet, "/admin/clients", token, nil)
	s.Equal(fiber.StatusForbidden, status)
	s.Require().NotNil(env.Error)
	s.Equal("FORBIDDEN", env.Error.Code)

	status, env = s.do(fiber.MethodGet, "/admin/payments", "", nil)
	s.Equal(fiber.StatusUnauthorized, status)
	s.Equal("UNAUTHORIZED", env.Error.Code)
}

func (s *RouterSuite) TestValidationDetailsUseWireNames() {
	status, env := s.do(fiber.MethodPost, "/admin/clients", s.adminToken, map[string]any{
		"email":       "not-an-email",
		"payment_day": 40,
	})
	s.Equal(fiber.StatusBadRequest, status)
	s.Require().NotNil(env.Error)
	s.Equal("VALIDATION_FAILED", env.Error.Code)
	s.Equal("must be a valid email", env.Error.Details["email"])
	s.Equal("must be at most 31", env.Error.Details["payment_day"])
	s.Equal("required", env.Error.Details["restaurant_name"])

	status, env = s.do(fiber.MethodGet, "/admin/clients?status=archived", s.adminToken, nil)
	s.Equal(fiber.StatusBadRequest, status)
	s.Contains(env.Error.Details, "status")
}

func (s *RouterSuite) TestUnknownRouteUsesErrorEnvelope() {
	status, env := s.do(fiber.MethodGet, "/nope", "", nil)
	s.Equal(fiber.StatusNotFound, status)
	s.Require().NotNil(env.Error)
	s.Equal("NOT_FOUND", env.Error.Code)
}

func (s *RouterSuite) TestOwnerFlow() {
	ana := s.createClient("ana@bistro.com")
	bruno := s.createClient("bruno@cafe.com")
	token := s.login("ana@bistro.com", "secret123")

	status, env := s.do(fiber.MethodGet, "/me/payments", token, nil)
	s.Equal(fiber.StatusOK, status)
	var own []map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &own))
	s.Require().Len(own, 1)
	s.Equal(ana.Payment.ID, own[0]["id"])

	status, _ = s.do(fiber.MethodGet, "/restaurants/"+ana.Restaurant.ID, token, nil)
	s.Equal(fiber.StatusOK, status)

	status, env = s.do(fiber.MethodPatch, "/restaurants/"+bruno.Restaurant.ID, token, map[string]any{"name": "Mine now"})
	s.Equal(fiber.StatusForbidden, status)
	s.Equal("FORBIDDEN", env.Error.Code)
}

func (s *RouterSuite) TestMarkPaidTwiceConflicts() {
	ana := s.createClient("ana@bistro.com")
	path := "/admin/payments/" + ana.Payment.ID + "/pay"

	status, env := s.do(fiber.MethodPost, path, s.adminToken, map[string]any{"payment_method": "PIX", "paid_date": "2025-01-05"})
	s.Require().Equal(fiber.StatusOK, status)
	var paid map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &paid))
	s.Equal("PAID", paid["status"])

	status, env = s.do(fiber.MethodPost, path, s.adminToken, map[string]any{"payment_method": "CASH"})
	s.Equal(fiber.StatusConflict, status)
	s.Equal("CONFLICT", env.Error.Code)
}

func (s *RouterSuite) TestDeleteClient() {
	ana := s.createClient("ana@bistro.com")

	status, _ := s.do(fiber.MethodDelete, "/admin/clients/"+ana.User.ID, s.adminToken, nil)
	s.Equal(fiber.StatusNoContent, status)

	status, env := s.do(fiber.MethodDelete, "/admin/clients/"+ana.User.ID, s.adminToken, nil)
	s.Equal(fiber.StatusNotFound, status)
	s.Equal("NOT_FOUND", env.Error.Code)
}

func (s *RouterSuite) TestErrorMetricsUseRouteTemplates() {
	for _, id := range []string{"a1", "b2", "c3"} {
		status, _ := s.do(fiber.MethodDelete, "/admin/clients/"+id, s.adminToken, nil)
		s.Equal(fiber.StatusNotFound, status)
	}
	for _, path := range []string{"/nope-1", "/nope-2", "/nope-3"} {
		status, _ := s.do(fiber.MethodGet, path, "", nil)
		s.Equal(fiber.StatusNotFound, status)
	}

	families, err := s.metrics.Registry().Gather()
	s.Require().NoError(err)
	paths := map[string]bool{}
	for _, family := range families {
		if family.GetName() != "restaurant_billing_http_errors_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "path" {
					paths[label.GetValue()] = true
				}
			}
		}
	}
	s.Equal(map[string]bool{"/admin/clients/:id": true, observability.UnmatchedRoute: true}, paths)
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/restokit/restaurant-billing/internal/api/http"
	"github.com/restokit/restaurant-billing/internal/api/http/handlers"
	"github.com/restokit/restaurant-billing/internal/auth"
	"github.com/restokit/restaurant-billing/internal/config"
	"github.com/restokit/restaurant-billing/internal/events"
	"github.com/restokit/restaurant-billing/internal/observability"
	"github.com/restokit/restaurant-billing/internal/persistence"
	"github.com/restokit/restaurant-billing/internal/repository"
	"github.com/restokit/restaurant-billing/internal/service"
	"github.com/restokit/restaurant-billing/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.Billing.Location().String(), logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.Pool
	userRepo := repository.NewUserRepository(pool)
	restaurantRepo := repository.NewRestaurantRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	tenantDataRepo := repository.NewTenantDataRepository(pool)
	txManager := repository.NewTxManager(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	runtime := service.Runtime{
		Logger:     logger,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Clock:      time.Now,
		Location:   cfg.Billing.Location(),
	}

	credentials := auth.NewCredentials(
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		cfg.Auth.BcryptCost,
		cfg.Auth.PasswordMinLength,
	)
	access := service.NewAccessControl(restaurantRepo)
	cascade := service.NewCascadeCoordinator(service.CascadeDependencies{
		RestaurantRepo: restaurantRepo,
		PaymentRepo:    paymentRepo,
		TenantDataRepo: tenantDataRepo,
		Logger:         logger,
	})

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:    userRepo,
		Credentials: credentials,
		Runtime:     runtime,
	})
	clientService := service.NewClientService(service.ClientDependencies{
		UserRepo:       userRepo,
		RestaurantRepo: restaurantRepo,
		PaymentRepo:    paymentRepo,
		TxManager:      txManager,
		Access:         access,
		Cascade:        cascade,
		Hasher:         credentials,
		Runtime:        runtime,
	})
	paymentService := service.NewPaymentService(service.PaymentDependencies{
		UserRepo:    userRepo,
		PaymentRepo: paymentRepo,
		Access:      access,
		Runtime:     runtime,
	})
	billingService := service.NewBillingService(service.BillingDependencies{
		UserRepo:    userRepo,
		PaymentRepo: paymentRepo,
		Access:      access,
		Runtime:     runtime,
	})
	restaurantService := service.NewRestaurantService(service.RestaurantDependencies{
		RestaurantRepo: restaurantRepo,
		Access:         access,
		Runtime:        runtime,
	})

	if created, err := authService.BootstrapAdmin(ctx, cfg.Bootstrap); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	} else if created {
		logger.Info("bootstrap admin ready", zap.String("email", cfg.Bootstrap.AdminEmail))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:            handlers.NewAuthHandler(authService),
		Clients:         handlers.NewClientsHandler(clientService),
		Payments:        handlers.NewPaymentsHandler(paymentService, billingService, cfg.Billing.Location()),
		Restaurants:     handlers.NewRestaurantsHandler(restaurantService),
		AuthMiddleware:  auth.NewAuthMiddleware(credentials, userRepo),
		MetricsRegistry: metrics.Registry(),
	})

	scheduler := worker.NewBillingScheduler(worker.SchedulerDependencies{
		Config:    cfg.Scheduler,
		Billing:   cfg.Billing,
		Sweeper:   paymentService,
		Generator: billingService,
		Locker:    redis,
		Metrics:   metrics,
		Logger:    logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(cfg.App.Addr())
	})
	if cfg.Scheduler.Enabled {
		if err := scheduler.Start(gctx); err != nil {
			logger.Fatal("failed to start scheduler", zap.Error(err))
		}
	}
	g.Go(func() error {
		waitForShutdown(gctx, logger)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduler stop", zap.Error(err))
		}
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}
}

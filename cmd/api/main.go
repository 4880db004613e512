package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/visahub/crm-service/internal/api/http"
	"github.com/visahub/crm-service/internal/api/http/handlers"
	"github.com/visahub/crm-service/internal/auth"
	"github.com/visahub/crm-service/internal/config"
	"github.com/visahub/crm-service/internal/events"
	"github.com/visahub/crm-service/internal/observability"
	"github.com/visahub/crm-service/internal/persistence"
	"github.com/visahub/crm-service/internal/repository"
	"github.com/visahub/crm-service/internal/service"
	"github.com/visahub/crm-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	profileRepo := repository.NewProfileRepository(pool)
	leadRepo := repository.NewLeadRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	timelineRepo := repository.NewTimelineRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notificationWorker := worker.NewNotificationWorker(logger, 128)
	notificationWorker.Start(ctx)
	service.NewNotificationService(dispatcher, notificationWorker)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	authService := service.NewAuthService(service.AuthDependencies{
		ProfileRepo: profileRepo,
		ResetRepo:   resetRepo,
		Tokens:      tokens,
		Config:      cfg.Auth,
		Logger:      logger,
	})
	leadService := service.NewLeadService(service.LeadDependencies{
		LeadRepo:        leadRepo,
		AppointmentRepo: appointmentRepo,
		ProfileRepo:     profileRepo,
		TimelineRepo:    timelineRepo,
		Dispatcher:      dispatcher,
	})
	appointmentService := service.NewAppointmentService(service.AppointmentDependencies{
		AppointmentRepo: appointmentRepo,
		LeadRepo:        leadRepo,
		ProfileRepo:     profileRepo,
		TimelineRepo:    timelineRepo,
		Dispatcher:      dispatcher,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		LeadRepo:        leadRepo,
		AppointmentRepo: appointmentRepo,
		Cache:           redis,
		Config:          cfg.Dashboard,
		Logger:          logger,
	})

	authMiddleware := auth.NewAuthMiddleware(tokens, profileRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis, cfg.App.Version),
		Inquiries:      handlers.NewInquiryHandler(leadService, metrics),
		Profiles:       handlers.NewProfilesHandler(authService),
		Leads:          handlers.NewLeadsHandler(leadService, metrics),
		Appointments:   handlers.NewAppointmentsHandler(appointmentService, metrics),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	notificationWorker.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

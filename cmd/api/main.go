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

	httptransport "github.com/soporte-bpo/incident-service/internal/api/http"
	"github.com/soporte-bpo/incident-service/internal/api/http/handlers"
	"github.com/soporte-bpo/incident-service/internal/auth"
	"github.com/soporte-bpo/incident-service/internal/config"
	"github.com/soporte-bpo/incident-service/internal/events"
	"github.com/soporte-bpo/incident-service/internal/observability"
	"github.com/soporte-bpo/incident-service/internal/persistence"
	"github.com/soporte-bpo/incident-service/internal/realtime"
	"github.com/soporte-bpo/incident-service/internal/repository"
	"github.com/soporte-bpo/incident-service/internal/service"
	"github.com/soporte-bpo/incident-service/internal/worker"
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

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	workstationRepo := repository.NewWorkstationRepository(pool)
	incidentRepo := repository.NewIncidentRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	ratingRepo := repository.NewRatingRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	alertRepo := repository.NewAlertRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	registry := realtime.NewRegistry(redis.Client, logger, 5*time.Minute)

	authService := service.NewAuthService(*cfg, userRepo)
	incidentService := service.NewIncidentService(service.IncidentDependencies{
		IncidentRepo:    incidentRepo,
		WorkstationRepo: workstationRepo,
		UserRepo:        userRepo,
		HistoryRepo:     historyRepo,
		RatingRepo:      ratingRepo,
		AttachmentRepo:  attachmentRepo,
		Dispatcher:      dispatcher,
		Logger:          logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		IncidentRepo: incidentRepo,
		UserRepo:     userRepo,
		Dispatcher:   dispatcher,
	})
	ledgerService := service.NewLedgerService(historyRepo)
	ratingService := service.NewRatingService(ratingRepo)
	alertService := service.NewAlertService(service.AlertDependencies{
		AlertRepo:    alertRepo,
		IncidentRepo: incidentRepo,
		Dispatcher:   dispatcher,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:   dispatcher,
		Registry:     registry,
		IncidentRepo: incidentRepo,
		UserRepo:     userRepo,
		Logger:       logger,
	})
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Incidents:      handlers.NewIncidentsHandler(incidentService, assignmentService),
		Technicians:    handlers.NewTechniciansHandler(assignmentService, ratingService),
		Ledger:         handlers.NewLedgerHandler(ledgerService),
		Alerts:         handlers.NewAlertsHandler(alertService),
		Presence:       handlers.NewPresenceHandler(registry),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

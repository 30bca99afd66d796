package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/ticketops/triage-service/internal/api/http"
	"github.com/ticketops/triage-service/internal/api/http/handlers"
	"github.com/ticketops/triage-service/internal/analysis"
	"github.com/ticketops/triage-service/internal/assign"
	"github.com/ticketops/triage-service/internal/auth"
	"github.com/ticketops/triage-service/internal/config"
	"github.com/ticketops/triage-service/internal/events"
	"github.com/ticketops/triage-service/internal/observability"
	"github.com/ticketops/triage-service/internal/persistence"
	"github.com/ticketops/triage-service/internal/pipeline"
	"github.com/ticketops/triage-service/internal/queue"
	"github.com/ticketops/triage-service/internal/repository"
	"github.com/ticketops/triage-service/internal/service"
	"github.com/ticketops/triage-service/internal/worker"
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
	dispatcher := events.NewInMemoryDispatcher()

	if cfg.Events.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.Events, logger)
		if err != nil {
			logger.Warn("amqp event bridge disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			publisher.RegisterHandlers(dispatcher)
			logger.Info("amqp event bridge enabled", zap.String("exchange", cfg.Events.Exchange))
		}
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	engine := analysis.NewEngineClient(cfg.Engine, logger)
	if !engine.Configured() {
		logger.Warn("analysis engine credential missing; tickets will receive default triage")
	}

	scorer := assign.NewScorer(assign.OpenTicketCounter{Tickets: ticketRepo}, logger)
	mailer := service.NewMailer(cfg.Notification, logger)

	orchestrator := pipeline.NewOrchestrator(pipeline.Dependencies{
		Storage:    pipeline.RepoStorage{Tickets: ticketRepo},
		Directory:  pipeline.RepoDirectory{Users: userRepo},
		Analyzer:   engine,
		Selector:   scorer,
		Notifier:   mailer,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	triageQueue := queue.NewTriageQueue(redis.Client, cfg.Redis)
	triageWorker := worker.NewTriageWorker(triageQueue, orchestrator, logger)
	go triageWorker.Run(ctx)

	notificationService := service.NewNotificationService(dispatcher, mailer, userRepo, logger)
	notificationService.RegisterHandlers()

	authService := service.NewAuthService(cfg.Auth, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		Queue:        triageQueue,
		Orchestrator: orchestrator,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, cfg.Engine),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

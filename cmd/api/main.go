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

	"github.com/spec-kit/support-desk/internal/ai"
	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/repository/memory"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/worker"
)

type storage struct {
	users    repository.UserRepository
	tickets  repository.TicketRepository
	messages repository.MessageRepository
	aiLogs   repository.AILogRepository
	tx       repository.TxRunner
}

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

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store storage
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		pool := pg.PoolHandle()
		store = storage{
			users:    repository.NewUserRepository(pool),
			tickets:  repository.NewTicketRepository(pool),
			messages: repository.NewMessageRepository(pool),
			aiLogs:   repository.NewAILogRepository(pool),
			tx:       repository.NewTxRunner(pool),
		}
	} else {
		mem := memory.NewStore()
		store = storage{
			users:    mem.Users(),
			tickets:  mem.Tickets(),
			messages: mem.Messages(),
			aiLogs:   mem.AILogs(),
			tx:       mem,
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var sink events.Sink
	if redis.Enabled() {
		sink = events.NewRedisPublisher(redis.Client, cfg.Redis.EventsChannel)
	}

	completer, err := ai.NewCompleter(cfg.AI.Provider, cfg.AI.APIKey(), cfg.AI.BaseURL, cfg.AI.Timeout())
	if err != nil {
		logger.Fatal("failed to init ai provider", zap.Error(err))
	}
	if cfg.AI.APIKey() == "" {
		logger.Warn("AI API key not set; classification falls back and replies fail", zap.String("provider", cfg.AI.Provider))
	}
	triage := ai.NewTriage(completer, ai.Models{Classify: cfg.AI.ClassifyModel, Assist: cfg.AI.AssistModel}, logger, metrics)

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, sink, logger))

	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: store.users})
	if err := authService.EnsureSystemUser(ctx, cfg.AI.SenderID); err != nil {
		logger.Fatal("failed to provision ai sender", zap.Error(err))
	}
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:          store.tickets,
		TxRunner:            store.tx,
		Classifier:          triage,
		Dispatcher:          dispatcher,
		Logger:              logger,
		EmptyListIsNotFound: cfg.Tickets.EmptyListIsNotFound,
	})
	messageService := service.NewMessageService(service.MessageDependencies{
		TicketRepo:  store.tickets,
		MessageRepo: store.messages,
		TxRunner:    store.tx,
		Assistant:   triage,
		Dispatcher:  dispatcher,
		Logger:      logger,
		AISenderID:  cfg.AI.SenderID,
	})
	aiLogService := service.NewAILogService(service.AILogDependencies{
		TicketRepo: store.tickets,
		AILogRepo:  store.aiLogs,
	})

	deps := map[string]handlers.Pinger{}
	if pg.Enabled() {
		deps["postgres"] = pg
	}
	if redis.Enabled() {
		deps["redis"] = redis
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: cfg.App.IsProduction()})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Messages:       handlers.NewMessagesHandler(messageService),
		Agent:          handlers.NewAgentHandler(ticketService, messageService, aiLogService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), logger),
		Metrics:        metrics,
		AuthRateLimit:  httptransport.RateLimit(cfg.RateLimit.AuthPerSecond, cfg.RateLimit.AuthBurst),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

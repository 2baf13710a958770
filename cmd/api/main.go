package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fieldops/job-scheduling/internal/api/http"
	"github.com/fieldops/job-scheduling/internal/api/http/handlers"
	"github.com/fieldops/job-scheduling/internal/api/validation"
	"github.com/fieldops/job-scheduling/internal/auth"
	"github.com/fieldops/job-scheduling/internal/config"
	"github.com/fieldops/job-scheduling/internal/events"
	"github.com/fieldops/job-scheduling/internal/observability"
	"github.com/fieldops/job-scheduling/internal/persistence"
	"github.com/fieldops/job-scheduling/internal/repository"
	"github.com/fieldops/job-scheduling/internal/service"
	"github.com/fieldops/job-scheduling/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	location, err := cfg.Scheduling.Location()
	if err != nil {
		logger.Fatal("invalid scheduling timezone", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.Pool
	staffRepo := repository.NewStaffRepository(pool)
	jobRepo := repository.NewJobRepository(pool)
	followUpRepo := repository.NewFollowUpRepository(pool)
	scheduleIndex := repository.NewCachedScheduleIndex(
		repository.NewScheduleIndex(pool),
		redis.Client,
		cfg.Scheduling.CacheTTL(),
		logger,
	)

	conflictService := service.NewScheduleConflictService(service.ScheduleConflictDependencies{
		Index:         scheduleIndex,
		Logger:        logger,
		Metrics:       metrics,
		LookupTimeout: cfg.Scheduling.LookupTimeout(),
		Concurrency:   cfg.Scheduling.LookupConcurrency,
	})
	jobService := service.NewJobService(service.JobDependencies{
		JobRepo:     jobRepo,
		StaffRepo:   staffRepo,
		Conflicts:   conflictService,
		Invalidator: scheduleIndex,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
		Location:    location,
	})
	followUpService := service.NewFollowUpService(service.FollowUpDependencies{
		JobRepo:      jobRepo,
		FollowUpRepo: followUpRepo,
		Lifecycle:    service.NewFollowUpLifecycle(cfg.Scheduling.FollowUpTypes),
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
	})
	authService := service.NewAuthService(*cfg, staffRepo)
	staffService := service.NewStaffService(*cfg, staffRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), staffRepo)
	validator := validation.New()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Staff:          handlers.NewStaffHandler(authService, staffService, validator),
		Jobs:           handlers.NewJobsHandler(jobService, validator),
		FollowUps:      handlers.NewFollowUpsHandler(followUpService, validator),
		AuthMiddleware: authMiddleware,
		LoginLimiter:   httptransport.NewRateLimiter(cfg.App.RateLimitRPS, cfg.App.RateLimitBurst),
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

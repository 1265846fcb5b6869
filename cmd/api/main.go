package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/fdbank/deposit-service/internal/api/http"
	"github.com/fdbank/deposit-service/internal/api/http/handlers"
	"github.com/fdbank/deposit-service/internal/auth"
	"github.com/fdbank/deposit-service/internal/cache"
	"github.com/fdbank/deposit-service/internal/config"
	"github.com/fdbank/deposit-service/internal/events"
	"github.com/fdbank/deposit-service/internal/observability"
	"github.com/fdbank/deposit-service/internal/persistence"
	"github.com/fdbank/deposit-service/internal/repository"
	"github.com/fdbank/deposit-service/internal/service"
	"github.com/fdbank/deposit-service/internal/worker"
)

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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	tokens, err := auth.NewTokenServiceFromConfig(cfg.Auth,
		auth.WithLogger(logger.Named("token")),
		auth.WithFailureRecorder(metrics))
	if err != nil {
		logger.Fatal("invalid token settings", zap.Error(err))
	}
	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("invalid password settings", zap.Error(err))
	}

	userRepo, depositRepo := newRepositories(pg)
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Hasher:     hasher,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	depositService := service.NewDepositService(service.DepositDependencies{
		UserRepo:    userRepo,
		DepositRepo: depositRepo,
		Cache:       cache.NewDashboardCache(redis.Client, cfg.Cache.DashboardTTL()),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(logger, cfg.Notification)
	worker.StartEventWorkers(dispatcher, depositService, notificationService)

	if cfg.Auth.BootstrapManager() {
		created, err := authService.BootstrapManager(ctx, cfg.Auth.ManagerUsername, cfg.Auth.ManagerEmail, cfg.Auth.ManagerPassword)
		if err != nil {
			logger.Fatal("failed to bootstrap manager account", zap.Error(err))
		}
		if !created {
			logger.Info("manager account already present", zap.String("username", cfg.Auth.ManagerUsername))
		}
	}

	app := httptransport.NewApp(cfg.App.Name)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Deposits:       handlers.NewDepositHandler(depositService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, logger.Named("auth")),
		Policy:         auth.DefaultPolicy(),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// newRepositories picks Postgres when a pool is open and in-process stores otherwise.
func newRepositories(pg *persistence.Postgres) (repository.UserRepository, repository.DepositRepository) {
	if pg.Enabled() {
		pool := pg.PoolHandle()
		return repository.NewUserRepository(pool), repository.NewDepositRepository(pool)
	}
	return repository.NewMemoryUserRepository(), repository.NewMemoryDepositRepository()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/provider-directory/internal/api/http"
	"github.com/spec-kit/provider-directory/internal/api/http/handlers"
	"github.com/spec-kit/provider-directory/internal/auth"
	"github.com/spec-kit/provider-directory/internal/config"
	"github.com/spec-kit/provider-directory/internal/events"
	"github.com/spec-kit/provider-directory/internal/observability"
	"github.com/spec-kit/provider-directory/internal/persistence"
	"github.com/spec-kit/provider-directory/internal/repository"
	"github.com/spec-kit/provider-directory/internal/service"
	"github.com/spec-kit/provider-directory/internal/storage"
	"github.com/spec-kit/provider-directory/internal/worker"
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

	imageStore, err := newImageStore(ctx, cfg.ImageStorage)
	if err != nil {
		logger.Fatal("failed to init image storage", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	providerRepo := repository.NewProviderRepository(pool)
	imageRepo := repository.NewProviderImageRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, userRepo)
	providerService := service.NewProviderService(*cfg, service.ProviderDependencies{
		ProviderRepo: providerRepo,
		ImageRepo:    imageRepo,
		Dispatcher:   dispatcher,
		Cache:        redis,
	}, logger)
	imageService := service.NewImageService(providerRepo, imageRepo, imageStore, dispatcher, providerService)
	auditService := service.NewAuditService(dispatcher, logger, cfg.Audit)
	worker.StartAuditWorker(auditService)

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo, logger)

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Sessions:       handlers.NewSessionsHandler(authService),
		Providers:      handlers.NewProvidersHandler(providerService, imageService),
		ProfileImages:  handlers.NewProfileImagesHandler(imageService),
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

func newImageStore(ctx context.Context, cfg config.ImageStorageConfig) (storage.ObjectStore, error) {
	if cfg.Backend == "s3" {
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.KeyPrefix)
	}
	return storage.NewFilesystemStore(cfg.LocalPath)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

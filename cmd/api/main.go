package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/lamisoft/wadispatch/internal/config"
	"github.com/lamisoft/wadispatch/internal/dispatch"
	"github.com/lamisoft/wadispatch/internal/domain"
	"github.com/lamisoft/wadispatch/internal/gateway"
	"github.com/lamisoft/wadispatch/internal/handler"
	"github.com/lamisoft/wadispatch/internal/infra/postgresql"
	"github.com/lamisoft/wadispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/lamisoft/wadispatch/internal/infra/redis"
	"github.com/lamisoft/wadispatch/internal/media"
	"github.com/lamisoft/wadispatch/internal/observability"
	"github.com/lamisoft/wadispatch/internal/phone"
	"github.com/lamisoft/wadispatch/internal/ratelimit"
	"github.com/lamisoft/wadispatch/internal/repository"
	"github.com/lamisoft/wadispatch/internal/service"
	"github.com/lamisoft/wadispatch/internal/transport"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var protectedPaths = []string{
	"/v1/messages/bulk-text",
	"/v1/messages/bulk-media",
	"/v1/media/prepare",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	var rdb *goredis.Client
	if strings.EqualFold(cfg.RateLimitBackend, "redis") {
		rdb, err = infraredis.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()
	}

	limiter, err := newLimiter(cfg, rdb)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	gatewayClient, err := gateway.NewClient(cfg.GatewayBaseURL)
	if err != nil {
		logger.Fatal("gateway client initialization failed", zap.Error(err))
	}

	resolver, err := media.NewResolver(gatewayClient, cfg.GatewayBaseURL)
	if err != nil {
		logger.Fatal("media resolver initialization failed", zap.Error(err))
	}

	dispatcher, err := dispatch.NewDispatcher(gatewayClient, phone.NewNormalizer(cfg.CountryCode), logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	logSvc, err := service.NewDeliveryLogService(
		repository.NewGormDeliveryLogRepo(db),
		repository.NewGormSessionRepo(db),
		logger,
	)
	if err != nil {
		logger.Fatal("delivery log service initialization failed", zap.Error(err))
	}

	sendSvc, err := service.NewSendService(
		dispatcher,
		resolver,
		repository.NewGormSettingsRepo(db),
		logSvc,
		defaultSettings(cfg),
		logger,
	)
	if err != nil {
		logger.Fatal("send service initialization failed", zap.Error(err))
	}
	sendSvc.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	app.Use(transport.RateLimitMiddleware(transport.RateLimitConfig{
		Limiter:        limiter,
		ProtectedPaths: protectedPaths,
		Disabled:       cfg.RateLimitDisabled,
		Metrics:        metrics,
		Logger:         logger,
	}))

	if err := handler.RegisterSendRoutes(app, sendSvc, logSvc); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("wadispatch api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}

func newLimiter(cfg *config.Config, rdb *goredis.Client) (ratelimit.Limiter, error) {
	window := time.Duration(cfg.RateLimitWindowSec) * time.Second
	if rdb != nil {
		return infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitMax, window)
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimitMax, window)
}

func defaultSettings(cfg *config.Config) domain.Settings {
	return domain.Settings{
		APIKey:              cfg.GatewayAPIKey,
		CompanyName:         cfg.CompanyName,
		MessageDelayMillis:  cfg.MessageDelayMillis,
		MessageJitterMillis: cfg.MessageJitterMillis,
		BatchSize:           cfg.BatchSize,
		BatchPauseMillis:    cfg.BatchPauseMillis,
	}
}

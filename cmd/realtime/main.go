package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/TienDattttt/shoppi-sub010/internal/config"
	"github.com/TienDattttt/shoppi-sub010/internal/dispatch"
	"github.com/TienDattttt/shoppi-sub010/internal/events"
	"github.com/TienDattttt/shoppi-sub010/internal/handler"
	"github.com/TienDattttt/shoppi-sub010/internal/infra/postgresql"
	"github.com/TienDattttt/shoppi-sub010/internal/infra/postgresql/migrations"
	infraredis "github.com/TienDattttt/shoppi-sub010/internal/infra/redis"
	"github.com/TienDattttt/shoppi-sub010/internal/observability"
	"github.com/TienDattttt/shoppi-sub010/internal/push"
	"github.com/TienDattttt/shoppi-sub010/internal/repository"
	"github.com/TienDattttt/shoppi-sub010/internal/tracking"
	"github.com/TienDattttt/shoppi-sub010/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const eventConsumerPrefetch = 16

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

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

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.PushRateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	broker, err := events.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer broker.Close()

	var gateway push.Gateway
	if cfg.PushEnabled() {
		fcm, err := push.NewFCMGateway(ctx, cfg.FCMCredentialsFile, logger)
		if err != nil {
			logger.Fatal("fcm initialization failed", zap.Error(err))
		}
		gateway = fcm
	} else {
		logger.Warn("push credentials absent, running with push disabled")
		gateway = push.NewDisabledGateway()
	}

	directory := repository.NewGormDeviceEndpointRepo(db)

	dispatcher, err := dispatch.NewDispatcher(gateway, directory, directory, limiter, logger, metrics)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	registry := tracking.NewRegistry(logger, metrics)
	publisher, err := tracking.NewPublisher(registry, logger, metrics)
	if err != nil {
		logger.Fatal("tracking publisher initialization failed", zap.Error(err))
	}

	router, err := events.NewRouter(publisher, dispatcher, logger)
	if err != nil {
		logger.Fatal("event router initialization failed", zap.Error(err))
	}
	consumer := events.NewRabbitMQConsumer(broker, eventConsumerPrefetch, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterDispatchRoutes(app, dispatcher, registry); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("shipment event consumer started", zap.String("queue", events.EventsQueue))
		return consumer.Consume(groupCtx, router.Handle)
	})

	g.Go(func() error {
		logger.Info("realtime api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("service stopped")
}

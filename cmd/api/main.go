package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/agrolab/sample-engine/internal/config"
	"github.com/agrolab/sample-engine/internal/domain"
	"github.com/agrolab/sample-engine/internal/filter"
	"github.com/agrolab/sample-engine/internal/handler"
	"github.com/agrolab/sample-engine/internal/infra/postgresql"
	"github.com/agrolab/sample-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/agrolab/sample-engine/internal/infra/redis"
	"github.com/agrolab/sample-engine/internal/notify"
	"github.com/agrolab/sample-engine/internal/observability"
	"github.com/agrolab/sample-engine/internal/queue"
	"github.com/agrolab/sample-engine/internal/repository"
	"github.com/agrolab/sample-engine/internal/schedule"
	"github.com/agrolab/sample-engine/internal/seed"
	"github.com/agrolab/sample-engine/internal/service"
	"github.com/agrolab/sample-engine/internal/transport"
)

const (
	shutdownTimeout = 10 * time.Second
	demoSeed        = 2024
)

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

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewSubmissionLimiter(rdb, cfg.SubmitRatePerSec)
	if err != nil {
		logger.Fatal("submission limiter init failed", zap.Error(err))
	}

	broker, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer broker.Close()

	loc, err := time.LoadLocation(cfg.LabTimezone)
	if err != nil {
		logger.Fatal("invalid lab timezone", zap.String("timezone", cfg.LabTimezone), zap.Error(err))
	}
	estimator := schedule.NewEstimator(loc, nil)

	sampleRepo := repository.NewGormSampleRepo(db)
	changeRepo := repository.NewGormChangeRequestRepo(db)
	eventRepo := repository.NewGormResultEventRepo(db)

	sampleService, err := service.NewSampleService(
		sampleRepo, changeRepo, filter.NewEngine(logger), limiter, logger,
	)
	if err != nil {
		logger.Fatal("sample service init failed", zap.Error(err))
	}

	var notifier notify.Notifier
	if cfg.ResultWebhookURL != "" {
		webhook, err := notify.NewWebhookNotifier(cfg.ResultWebhookURL)
		if err != nil {
			logger.Fatal("webhook notifier init failed", zap.Error(err))
		}
		notifier = webhook
	}

	metrics := observability.NewMetrics()

	consumer := queue.NewRabbitMQConsumer(broker, cfg.WorkerConcurrency, logger)
	worker, err := service.NewResultWorker(
		sampleRepo, changeRepo, eventRepo, consumer, notifier, cfg.WorkerConcurrency, logger,
	)
	if err != nil {
		logger.Fatal("result worker init failed", zap.Error(err))
	}
	worker.SetMetrics(metrics)

	scanner, err := service.NewApprovalScanner(
		changeRepo, queue.NewRabbitMQPublisher(broker), 0, 0, logger,
	)
	if err != nil {
		logger.Fatal("approval scanner init failed", zap.Error(err))
	}
	scanner.SetMetrics(metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SeedDemoData {
		if err := seedDemoSamples(ctx, cfg, sampleRepo, logger); err != nil {
			logger.Fatal("demo data seeding failed", zap.Error(err))
		}
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	if err := handler.RegisterSampleRoutes(app, sampleService, estimator, metrics); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}
	handler.RegisterHealthRoutes(app, sqlDB, rdb, broker)

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(metrics.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api listening", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("api server stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down api")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	g.Go(func() error {
		logger.Info("result worker starting", zap.Int("concurrency", cfg.WorkerConcurrency))
		return worker.Start(gctx)
	})

	g.Go(func() error {
		logger.Info("approval scanner starting")
		return scanner.Start(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("service exited", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// seedDemoSamples loads a deterministic demo population so a fresh
// environment has data to browse. Samples already present from an earlier
// run are skipped.
func seedDemoSamples(ctx context.Context, cfg *config.Config, samples repository.SampleRepository, logger *zap.Logger) error {
	farmID := cfg.SeedFarmID
	if farmID == "" {
		farmID = "demo-farm"
	}

	gen, err := seed.NewGenerator(domain.ModeFeeds, demoSeed, time.Now().UTC())
	if err != nil {
		return err
	}

	created := 0
	for _, sample := range gen.Samples(farmID, cfg.SeedSampleCount) {
		sample := sample
		if err := samples.Create(ctx, &sample); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return err
		}
		created++
	}

	logger.Info("demo data seeded",
		zap.String("farmId", farmID),
		zap.Int("created", created),
		zap.Int("requested", cfg.SeedSampleCount),
	)
	return nil
}

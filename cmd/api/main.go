package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/habitloop/habitloop-api/internal/config"
	"github.com/habitloop/habitloop-api/internal/database"
	"github.com/habitloop/habitloop-api/internal/handler"
	"github.com/habitloop/habitloop-api/internal/middleware"
	"github.com/habitloop/habitloop-api/internal/models"
	"github.com/habitloop/habitloop-api/internal/repository"
	"github.com/habitloop/habitloop-api/internal/router"
	"github.com/habitloop/habitloop-api/internal/service"
	"github.com/habitloop/habitloop-api/internal/worker"
	"github.com/habitloop/habitloop-api/pkg/ai"
	cloud "github.com/habitloop/habitloop-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Habit{},
		&models.CheckIn{},
		&models.ValidationRule{},
		&models.ValidationLog{},
		&models.ValidationCache{},
		&models.ModelPerformance{},
		&models.AIFeedback{},
		&models.ProgressInsight{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	var uploader service.PhotoUploader
	if cfg.CloudinaryCloudName != "" {
		cloudService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudService
	}

	if cfg.AIModel == "" {
		if cfg.AIProvider == "gemini" {
			cfg.AIModel = "gemini-2.5-flash"
		} else {
			cfg.AIModel = "gpt-4o-mini"
		}
	}
	registry := ai.NewRegistry(generatorFactory(cfg, logger))

	validate := validator.New(validator.WithRequiredStructEnabled())

	habitRepo := repository.NewHabitRepository(db)
	checkinRepo := repository.NewCheckInRepository(db)
	ruleRepo := repository.NewValidationRuleRepository(db)
	logRepo := repository.NewValidationLogRepository(db)
	cacheRepo := repository.NewValidationCacheRepository(db)
	performanceRepo := repository.NewModelPerformanceRepository(db)
	feedbackRepo := repository.NewAIFeedbackRepository(db)
	insightRepo := repository.NewProgressInsightRepository(db)

	engine := service.NewValidationEngine(ruleRepo, cacheRepo, registry, cfg.AIModel, logger)
	metrics := service.NewMetricsRecorder(performanceRepo, logger)
	validationService := service.NewValidationService(engine, checkinRepo, logRepo, cacheRepo, metrics, redisClient, cfg.PerformanceCacheTTL, logger)
	insightService := service.NewInsightService(insightRepo, checkinRepo, habitRepo, registry, cfg.AIModel, logger)
	feedbackService := service.NewFeedbackService(feedbackRepo, checkinRepo, logger)

	queue := worker.NewQueue(redisClient, cfg.ChannelBase, natsConn, logger)
	checkinService := service.NewCheckInService(checkinRepo, habitRepo, uploader, queue, logger)

	checkinHandler := handler.NewCheckInHandler(checkinService, validate, logger)
	validationHandler := handler.NewValidationHandler(validationService, validate, logger)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService, validate, logger)
	insightHandler := handler.NewInsightHandler(insightService, logger)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	go worker.NewWorker(queue, validationService, logger).Start(workerCtx)
	go worker.NewScheduler(validationService, insightService, cfg.CacheEvictionDays, logger).Start(workerCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    12 << 20,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CheckInHandler:    checkinHandler,
		ValidationHandler: validationHandler,
		FeedbackHandler:   feedbackHandler,
		InsightHandler:    insightHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopWorkers)
}

func generatorFactory(cfg config.Config, logger zerolog.Logger) ai.Factory {
	switch cfg.AIProvider {
	case "gemini":
		return func(model string) (ai.Generator, error) {
			return ai.NewGeminiGenerator(context.Background(), ai.GeminiConfig{
				APIKey: cfg.GeminiAPIKey,
				Model:  model,
				Logger: logger,
			})
		}
	case "openai", "":
		return func(model string) (ai.Generator, error) {
			return ai.NewOpenAIGenerator(ai.OpenAIConfig{
				APIKey: cfg.OpenAIAPIKey,
				Model:  model,
				Logger: logger,
			})
		}
	default:
		return func(string) (ai.Generator, error) {
			return nil, fmt.Errorf("unknown ai provider %q", cfg.AIProvider)
		}
	}
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

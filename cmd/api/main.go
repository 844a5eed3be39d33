package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/interview-sim-api/internal/config"
	"github.com/noah-isme/interview-sim-api/internal/database"
	"github.com/noah-isme/interview-sim-api/internal/handler"
	"github.com/noah-isme/interview-sim-api/internal/middleware"
	"github.com/noah-isme/interview-sim-api/internal/repository"
	"github.com/noah-isme/interview-sim-api/internal/router"
	"github.com/noah-isme/interview-sim-api/internal/service"
	"github.com/noah-isme/interview-sim-api/internal/utils"
	cloud "github.com/noah-isme/interview-sim-api/pkg/cloudinary"
	"github.com/noah-isme/interview-sim-api/pkg/shapes"
)

const startupTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if cfg.ShapesAPIKey == "" {
		logger.Warn().Msg("SHAPES_API_KEY not set; interview endpoints will fail until it is configured")
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelStartup()

	var store repository.SessionStore
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(startupCtx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		store = repository.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	} else {
		logger.Info().Msg("REDIS_URL not set; keeping interview sessions in memory")
		store = repository.NewMemorySessionStore(cfg.SessionTTL)
	}

	var uploadRepo repository.AudioUploadRepository
	if cfg.DatabaseURL != "" {
		db, err := database.ConnectPostgres(startupCtx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err := database.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
		uploadRepo = repository.NewAudioUploadRepository(db)
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	var storage service.AudioStorage
	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if cloudCfg.Configured() {
		uploader, err := cloud.New(cloudCfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		storage = uploader
	} else {
		logger.Warn().Msg("cloudinary credentials not set; audio uploads are disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	chat := shapes.NewClient(shapes.Config{
		APIKey:  cfg.ShapesAPIKey,
		BaseURL: cfg.ShapesBaseURL,
		Timeout: cfg.ShapesRequestTimeout,
		Logger:  logger,
	})
	resetter := shapes.NewMemoryResetter(shapes.ResetConfig{
		APIKey:  cfg.ShapesAPIKey,
		BaseURL: cfg.ShapesBaseURL,
		Timeout: cfg.MemoryResetTimeout,
		Logger:  logger,
	})
	events := service.NewNATSEventPublisher(natsConn, cfg.NATSSubject, logger)

	interviewService := service.NewInterviewService(chat, resetter, store, events, service.InterviewServiceConfig{
		VoiceModel: cfg.ShapesVoiceModel,
		TextModel:  cfg.ShapesTextModel,
	}, logger)
	uploadService := service.NewAudioUploadService(storage, uploadRepo, cfg.MaxUploadSizeMB, logger)
	relayService := service.NewAudioRelayService(service.AudioRelayConfig{
		TrustedHost: cfg.TrustedAudioHost,
		Timeout:     cfg.RelayTimeout,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.MaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: utils.ErrorHandler,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		InterviewHandler:  handler.NewInterviewHandler(interviewService, validate, logger),
		AudioHandler:      handler.NewAudioHandler(uploadService, relayService, logger),
		SessionMiddleware: middleware.InterviewSession(cfg.SessionTTL, cfg.AppEnv == "production", logger),
		RateLimiter:       middleware.RateLimit("interview", cfg.RateLimitMax, cfg.RateLimitWindow),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msg("starting interview api")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}

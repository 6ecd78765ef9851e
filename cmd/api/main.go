package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/puertonuevo/portal-api/internal/config"
	"github.com/puertonuevo/portal-api/internal/database"
	"github.com/puertonuevo/portal-api/internal/handler"
	"github.com/puertonuevo/portal-api/internal/middleware"
	"github.com/puertonuevo/portal-api/internal/repository"
	"github.com/puertonuevo/portal-api/internal/router"
	"github.com/puertonuevo/portal-api/internal/service"
	"github.com/puertonuevo/portal-api/internal/textfix"
	cloud "github.com/puertonuevo/portal-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, feed cache and redis events disabled")
		} else {
			defer redisClient.Close()
			probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, broker events disabled")
		} else {
			defer natsConn.Drain()
		}
	}

	storage, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cloudinary client")
	}

	fixer, err := textfix.New(textfix.DefaultCacheSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create text fixer")
	}

	activityRepo := repository.NewActivityRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	auditService := service.NewAuditService(auditRepo, fixer, logger)
	resolver := service.NewAmbienteResolver(familyRepo, childRepo, logger)
	activityService := service.NewActivityService(service.ActivityServiceConfig{
		Activities:  activityRepo,
		Resolver:    resolver,
		Storage:     storage,
		Validator:   service.NewValidator(),
		Cache:       redisClient,
		CacheTTL:    cfg.FeedCacheTTL,
		Publisher:   service.NewActivityPublisher(redisClient, natsConn, cfg.EventsChannel),
		Audit:       auditService,
		Fixer:       fixer,
		MaxUploadMB: cfg.MaxUploadMB,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		// Several attachments per request, plus form overhead.
		BodyLimit: (cfg.MaxUploadMB*5 + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowedOrigins: cfg.AllowedOrigins})
	router.Register(app, cfg, router.Dependencies{
		ActivityHandler: handler.NewActivityHandler(activityService, logger),
		FamilyHandler:   handler.NewFamilyHandler(activityService, logger),
		AuditHandler:    handler.NewAuditHandler(auditService, logger),
		HealthProbes:    probes,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
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

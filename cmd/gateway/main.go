package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/lakshcode9/metaapi-server-deploy/internal/gateway/handler"
	"github.com/lakshcode9/metaapi-server-deploy/internal/gateway/session"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/config"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/events"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/logger"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/metaapi"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/metrics"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/middleware"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/response"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("config")
	if err != nil {
		logger.Init("metaapi-gateway", "info", false)
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Init("metaapi-gateway", cfg.Log.Level, cfg.Log.Pretty)

	factory := metaapi.NewFactory(metaapi.Config{
		ProvisioningURL: cfg.MetaAPI.ProvisioningURL,
		ClientURL:       cfg.MetaAPI.ClientURL,
		RequestTimeout:  cfg.MetaAPI.RequestTimeout,
		DeployTimeout:   cfg.MetaAPI.DeployTimeout,
		SyncTimeout:     cfg.MetaAPI.SyncTimeout,
		PollInterval:    cfg.MetaAPI.PollInterval,
	})

	var publisher events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher

		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("event publishing enabled")
	}

	app := fiber.New(fiber.Config{
		AppName:      "metaapi-gateway",
		ErrorHandler: response.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.CORS(middleware.CORSConfig{AllowOrigins: cfg.CORS.AllowOrigins}))
	app.Use(middleware.Logger())
	app.Use(metrics.Middleware())
	app.Use("/api", middleware.RateLimiter(middleware.RateLimitConfig{
		Max:      cfg.RateLimit.Max,
		Duration: cfg.RateLimit.Duration,
	}))

	handler.New(session.NewManager(factory), publisher).Register(app)
	app.Get("/metrics", metrics.Handler())

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr()).Msg("starting metaapi gateway")
		if err := app.Listen(cfg.Server.Addr()); err != nil {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"matching-core/src/audit"
	"matching-core/src/config"
	"matching-core/src/engine"
	"matching-core/src/handlers"
	"matching-core/src/logger"
	"matching-core/src/middleware"
	"matching-core/src/routes"
	"matching-core/src/service"
)

func main() {
	cfg := config.Load()

	logger.InitLogger(logger.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Format: cfg.LogFormat,
	})
	defer logger.CloseLogger()

	log.Info().
		Str("symbol", cfg.Symbol).
		Int32("price_scale", cfg.PriceScale).
		Msg("Initializing matching engine")

	sink, err := openAuditSink(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("audit_file", cfg.AuditFile).Msg("Failed to open audit sink")
	}

	book := engine.NewOrderBook(cfg.Symbol, engine.WithTradeHistorySize(cfg.TradeHistorySize))
	orderService := service.NewOrderService(book, sink, cfg.DefaultActorID)
	availability := middleware.NewServiceAvailability(cfg.MaxConcurrentRequests, cfg.MaintenanceMode)

	orderHandler := handlers.NewOrderHandler(orderService, handlers.Options{
		Symbol:            cfg.Symbol,
		PriceScale:        cfg.PriceScale,
		DefaultDepth:      cfg.OrderBookDefaultDepth,
		MaxDepth:          cfg.OrderBookMaxDepth,
		MaxLatencySamples: cfg.MaxLatencySamples,
		TradingHalted:     availability.IsHalted,
	})

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}

			log.Error().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("status", code).
				Str("error", err.Error()).
				Msg("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	routes.SetupRoutes(app, orderHandler, availability, cfg)

	serverError := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Matching engine listening")
		if err := app.Listen(cfg.Port); err != nil {
			serverError <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverError:
		log.Error().
			Err(err).
			Str("port", cfg.Port).
			Msg("Server failed to start")
	case <-quit:
		log.Info().Msg("Received shutdown signal, shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		// edge case: timeout during shutdown is acceptable
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Dur("timeout", cfg.ShutdownTimeout).
				Msg("Timeout exceeded, shutting down...")
		} else {
			log.Error().Err(err).Msg("Error during shutdown")
		}
	}

	if err := orderService.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing audit sink")
	}
	log.Info().Msg("Shutdown complete")
}

func openAuditSink(cfg *config.Config) (audit.Sink, error) {
	formatter := audit.Formatter{PriceScale: cfg.PriceScale}
	var sinks audit.MultiSink

	if cfg.AuditFile != "" && cfg.AuditFile != "none" {
		fileSink, err := audit.NewFileSink(cfg.AuditFile, formatter)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fileSink)
	}

	if len(cfg.AuditKafkaBrokers) > 0 {
		kafkaSink := audit.NewKafkaSink(cfg.AuditKafkaBrokers, cfg.AuditKafkaTopic, formatter)
		sinks = append(sinks, audit.NewAsyncSink(kafkaSink, cfg.AuditKafkaQueue))
		log.Info().
			Strs("brokers", cfg.AuditKafkaBrokers).
			Str("topic", cfg.AuditKafkaTopic).
			Int("queue_size", cfg.AuditKafkaQueue).
			Msg("Audit records will be published to Kafka")
	}

	if len(sinks) == 0 {
		log.Warn().Msg("No audit sink configured")
		return audit.NopSink{}, nil
	}
	return sinks, nil
}

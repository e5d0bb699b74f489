package routes

import (
	"github.com/gofiber/fiber/v2"

	"matching-core/src/config"
	"matching-core/src/handlers"
	"matching-core/src/middleware"
)

func SetupRoutes(app *fiber.App, orderHandler *handlers.OrderHandler, availability *middleware.ServiceAvailability, cfg *config.Config) {
	app.Use(availability.Middleware())
	app.Use(middleware.RequestLogger(cfg.RequestLogging, handlers.ActorHeader))

	api := app.Group("/api/v1")

	if !cfg.RateLimitDisabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow, handlers.ActorHeader)
		api.Use(rateLimiter.Middleware())
	}

	api.Post("/orders", orderHandler.SubmitOrder)
	api.Delete("/orders/:id", orderHandler.CancelOrder)
	api.Get("/orders/:id", orderHandler.GetOrderStatus)
	api.Get("/orderbook", orderHandler.GetOrderBook)
	api.Get("/trades", orderHandler.GetRecentTrades)
	api.Get("/ticker", orderHandler.GetTicker)

	admin := app.Group("/api/admin")
	admin.Get("/orders/book", orderHandler.AdminOrderBook)
	admin.Get("/trades/history", orderHandler.AdminTradeHistory)

	app.Get("/health", orderHandler.HealthCheck)
	app.Get("/metrics", orderHandler.Metrics)
}

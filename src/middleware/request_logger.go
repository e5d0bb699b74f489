package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs one line per request at info level. It is a pass-through
// when disabled or when the global level is above info.
func RequestLogger(enabled bool, actorHeader string) fiber.Handler {
	if !enabled || zerolog.GlobalLevel() > zerolog.InfoLevel {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		event := log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Int("bytes_in", len(c.Body())).
			Int("bytes_out", len(c.Response().Body()))
		if actor := c.Get(actorHeader); actor != "" {
			event = event.Str("actor_id", actor)
		}
		event.Msg("HTTP request")

		return err
	}
}

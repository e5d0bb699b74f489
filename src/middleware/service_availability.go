package middleware

import (
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ServiceAvailability halts trading and sheds load. A halt only rejects
// requests that would change the book; queries keep working.
type ServiceAvailability struct {
	halted                atomic.Bool
	maxConcurrentRequests int64
	inFlightRequests      atomic.Int64
}

func NewServiceAvailability(maxConcurrentRequests int64, halted bool) *ServiceAvailability {
	sa := &ServiceAvailability{
		maxConcurrentRequests: maxConcurrentRequests,
	}
	if halted {
		sa.halted.Store(true)
		log.Warn().Msg("Trading is halted - order entry will return 503")
	}
	if maxConcurrentRequests > 0 {
		log.Info().
			Int64("max_concurrent_requests", maxConcurrentRequests).
			Msg("Server overload detection enabled")
	}
	return sa
}

func (sa *ServiceAvailability) SetHalted(halted bool) {
	sa.halted.Store(halted)
	if halted {
		log.Warn().Msg("Trading halted")
	} else {
		log.Info().Msg("Trading resumed")
	}
}

func (sa *ServiceAvailability) IsHalted() bool {
	return sa.halted.Load()
}

func (sa *ServiceAvailability) InFlightRequests() int64 {
	return sa.inFlightRequests.Load()
}

func isMutation(method string) bool {
	return method == fiber.MethodPost || method == fiber.MethodDelete ||
		method == fiber.MethodPut || method == fiber.MethodPatch
}

func (sa *ServiceAvailability) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// edge case: health check always available
		if c.Path() == "/health" {
			return c.Next()
		}

		if sa.halted.Load() && isMutation(c.Method()) {
			log.Warn().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Str("ip", c.IP()).
				Msg("Request rejected: trading halted")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   "Service unavailable",
				"message": "Trading is halted. Please try again later.",
				"code":    fiber.StatusServiceUnavailable,
			})
		}

		if sa.maxConcurrentRequests > 0 {
			current := sa.inFlightRequests.Add(1)
			defer sa.inFlightRequests.Add(-1)

			if current > sa.maxConcurrentRequests {
				log.Warn().
					Str("path", c.Path()).
					Str("method", c.Method()).
					Int64("current_requests", current-1).
					Int64("max_requests", sa.maxConcurrentRequests).
					Msg("Request rejected: server overload")
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error":   "Service unavailable",
					"message": "The service is currently overloaded. Please try again later.",
					"code":    fiber.StatusServiceUnavailable,
				})
			}
		}

		return c.Next()
	}
}

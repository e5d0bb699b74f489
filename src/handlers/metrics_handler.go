package handlers

import (
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"

	"matching-core/src/models"
)

func (h *OrderHandler) HealthCheck(c *fiber.Ctx) error {
	stats := h.Service.Book().Stats()

	status := "healthy"
	halted := h.tradingHalted()
	if halted {
		status = "halted"
	}

	return c.Status(fiber.StatusOK).JSON(models.HealthResponse{
		Status:        status,
		UptimeSeconds: int64(time.Since(h.StartTime).Seconds()),
		OrdersInBook:  int64(stats.RestingOrders),
		TradingHalted: halted,
	})
}

func (h *OrderHandler) Metrics(c *fiber.Ctx) error {
	stats := h.Service.Book().Stats()
	p50, p99, p999 := h.calculateLatencyPercentiles()

	return c.Status(fiber.StatusOK).JSON(models.MetricsResponse{
		OrdersReceived:         h.ordersReceived.Load(),
		OrdersRejected:         h.ordersRejected.Load(),
		OrdersMatched:          h.ordersMatched.Load(),
		OrdersCancelled:        h.ordersCancelled.Load(),
		OrdersInBook:           int64(stats.RestingOrders),
		BidLevels:              int64(stats.BidLevels),
		AskLevels:              int64(stats.AskLevels),
		TradesExecuted:         h.tradesExecuted.Load(),
		LatencyP50Ms:           p50,
		LatencyP99Ms:           p99,
		LatencyP999Ms:          p999,
		ThroughputOrdersPerSec: h.calculateThroughput(),
	})
}

func (h *OrderHandler) recordLatency(latency time.Duration) {
	h.latenciesMu.Lock()
	defer h.latenciesMu.Unlock()

	h.latencies = append(h.latencies, latency)

	// edge case: maintain rolling window by removing oldest measurements
	if len(h.latencies) > h.maxLatencies {
		h.latencies = h.latencies[len(h.latencies)-h.maxLatencies:]
	}
}

func (h *OrderHandler) calculateLatencyPercentiles() (p50, p99, p999 float64) {
	h.latenciesMu.RLock()
	sorted := slices.Clone(h.latencies)
	h.latenciesMu.RUnlock()

	if len(sorted) == 0 {
		return 0, 0, 0
	}
	slices.Sort(sorted)

	return percentileMs(sorted, 0.50), percentileMs(sorted, 0.99), percentileMs(sorted, 0.999)
}

func percentileMs(sorted []time.Duration, q float64) float64 {
	// edge case: ensure index is within bounds
	idx := min(int(float64(len(sorted))*q), len(sorted)-1)
	return float64(sorted[idx].Nanoseconds()) / 1e6
}

func (h *OrderHandler) calculateThroughput() float64 {
	uptime := time.Since(h.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}
	return float64(h.ordersReceived.Load()) / uptime
}

package handlers

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"matching-core/src/engine"
	"matching-core/src/models"
	"matching-core/src/service"
)

const ActorHeader = "X-Actor-ID"

type Options struct {
	Symbol            string
	PriceScale        int32
	DefaultDepth      int
	MaxDepth          int
	MaxLatencySamples int
	// TradingHalted reports maintenance mode for the health endpoint.
	TradingHalted func() bool
}

type OrderHandler struct {
	Service   *service.OrderService
	StartTime time.Time

	symbol        string
	prices        priceFormat
	defaultDepth  int
	maxDepth      int
	tradingHalted func() bool

	ordersReceived  atomic.Int64
	ordersRejected  atomic.Int64
	ordersMatched   atomic.Int64
	ordersCancelled atomic.Int64
	tradesExecuted  atomic.Int64

	latencies    []time.Duration
	latenciesMu  sync.RWMutex
	maxLatencies int
}

func NewOrderHandler(svc *service.OrderService, opts Options) *OrderHandler {
	if opts.DefaultDepth <= 0 {
		opts.DefaultDepth = 10
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 1000
	}
	if opts.MaxLatencySamples <= 0 {
		opts.MaxLatencySamples = 10000
	}
	if opts.TradingHalted == nil {
		opts.TradingHalted = func() bool { return false }
	}

	return &OrderHandler{
		Service:       svc,
		StartTime:     time.Now(),
		symbol:        opts.Symbol,
		prices:        priceFormat(opts.PriceScale),
		defaultDepth:  opts.DefaultDepth,
		maxDepth:      opts.MaxDepth,
		tradingHalted: opts.TradingHalted,
		latencies:     make([]time.Duration, 0, opts.MaxLatencySamples),
		maxLatencies:  opts.MaxLatencySamples,
	}
}

func (h *OrderHandler) SubmitOrder(c *fiber.Ctx) error {
	var req models.SubmitOrderRequest

	if err := c.BodyParser(&req); err != nil {
		log.Warn().
			Err(err).
			Str("ip", c.IP()).
			Str("path", c.Path()).
			Msg("Invalid request: malformed JSON")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	h.ordersReceived.Add(1)

	submit, err := toSubmitRequest(&req)
	if err != nil {
		return h.rejectOrder(c, &req, err)
	}
	submit.ActorID = c.Get(ActorHeader)

	startTime := time.Now()
	result, err := h.Service.Submit(submit)
	h.recordLatency(time.Since(startTime))

	if err != nil {
		var validationErr *engine.ValidationError
		if errors.As(err, &validationErr) || errors.Is(err, engine.ErrInvalidOrder) {
			return h.rejectOrder(c, &req, err)
		}
		log.Error().
			Err(err).
			Str("order_id", req.OrderID).
			Msg("Error matching order")
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: "Internal server error",
		})
	}

	order := result.Order
	trades := make([]models.TradeInfo, 0, len(result.Trades))
	for _, trade := range result.Trades {
		trades = append(trades, h.tradeInfo(trade))
	}

	if result.FilledQuantity() > 0 {
		h.ordersMatched.Add(1)
	}
	h.tradesExecuted.Add(int64(len(trades)))

	log.Info().
		Str("order_id", order.ID).
		Str("side", order.Side.String()).
		Str("type", order.Type.String()).
		Str("tif", order.TimeInForce.String()).
		Int64("price", order.Price).
		Int64("quantity", order.Quantity).
		Str("status", order.Status.String()).
		Int64("remaining_quantity", order.Remaining).
		Int("trades_count", len(trades)).
		Msg("Order processed")

	response := models.SubmitOrderResponse{
		OrderID:           order.ID,
		Status:            order.Status.String(),
		FilledQuantity:    order.FilledQuantity(),
		RemainingQuantity: order.Remaining,
		Rested:            result.Rested,
		Trades:            trades,
	}

	switch {
	case order.Status == engine.StatusFilled:
		return c.Status(fiber.StatusOK).JSON(response)
	case order.FilledQuantity() == 0 && result.Rested:
		response.Message = "Order added to book"
		return c.Status(fiber.StatusCreated).JSON(response)
	case order.FilledQuantity() == 0:
		response.Message = "No crossing liquidity, order expired"
		return c.Status(fiber.StatusOK).JSON(response)
	case result.Rested:
		response.Message = "Partially filled, remainder added to book"
		return c.Status(fiber.StatusAccepted).JSON(response)
	default:
		response.Message = "Partially filled, remainder discarded"
		return c.Status(fiber.StatusAccepted).JSON(response)
	}
}

func (h *OrderHandler) rejectOrder(c *fiber.Ctx, req *models.SubmitOrderRequest, err error) error {
	h.ordersRejected.Add(1)

	response := models.ErrorResponse{Error: err.Error()}
	var validationErr *engine.ValidationError
	if errors.As(err, &validationErr) {
		response.Field = validationErr.Field
	}

	log.Warn().
		Err(err).
		Str("order_id", req.OrderID).
		Str("side", req.Side).
		Str("type", req.Type).
		Str("ip", c.IP()).
		Msg("Invalid order request")
	return c.Status(fiber.StatusBadRequest).JSON(response)
}

// CancelOrder always succeeds; cancelled is false when the id was not resting.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")

	order, cancelled := h.Service.Cancel(orderID)
	if !cancelled {
		log.Debug().
			Str("order_id", orderID).
			Str("ip", c.IP()).
			Msg("Cancel order: nothing resting")
		return c.Status(fiber.StatusOK).JSON(models.CancelOrderResponse{
			OrderID:   orderID,
			Cancelled: false,
		})
	}

	h.ordersCancelled.Add(1)

	log.Info().
		Str("order_id", orderID).
		Int64("remaining_quantity", order.Remaining).
		Str("ip", c.IP()).
		Msg("Order cancelled")

	return c.Status(fiber.StatusOK).JSON(models.CancelOrderResponse{
		OrderID:   orderID,
		Cancelled: true,
		Status:    order.Status.String(),
	})
}

func (h *OrderHandler) GetOrderStatus(c *fiber.Ctx) error {
	order, exists := h.Service.Book().GetOrder(c.Params("id"))
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Order not found",
		})
	}

	return c.Status(fiber.StatusOK).JSON(models.OrderStatusResponse{
		OrderID:        order.ID,
		Side:           order.Side.String(),
		Type:           order.Type.String(),
		TimeInForce:    order.TimeInForce.String(),
		Price:          order.Price,
		Quantity:       order.Quantity,
		FilledQuantity: order.FilledQuantity(),
		Remaining:      order.Remaining,
		Status:         order.Status.String(),
		ActorID:        order.ActorID,
		Timestamp:      order.Timestamp.UnixMilli(),
	})
}

func toSubmitRequest(req *models.SubmitOrderRequest) (service.SubmitRequest, error) {
	var out service.SubmitRequest

	switch strings.ToUpper(req.Side) {
	case "BUY":
		out.Side = engine.SideBuy
	case "SELL":
		out.Side = engine.SideSell
	default:
		return out, &engine.ValidationError{Field: "side", Message: "side must be BUY or SELL"}
	}

	switch strings.ToUpper(req.Type) {
	case "LIMIT":
		out.Type = engine.TypeLimit
	case "MARKET":
		out.Type = engine.TypeMarket
	default:
		return out, &engine.ValidationError{Field: "type", Message: "type must be LIMIT or MARKET"}
	}

	switch strings.ToUpper(req.TimeInForce) {
	case "":
		// edge case: market orders default to IOC since they cannot rest
		out.TimeInForce = engine.GTC
		if out.Type == engine.TypeMarket {
			out.TimeInForce = engine.IOC
		}
	case "GTC":
		out.TimeInForce = engine.GTC
	case "IOC":
		out.TimeInForce = engine.IOC
	case "FOK":
		out.TimeInForce = engine.FOK
	default:
		return out, &engine.ValidationError{Field: "time_in_force", Message: "time in force must be GTC, IOC or FOK"}
	}

	out.OrderID = req.OrderID
	out.Price = req.Price
	out.Quantity = req.Quantity
	return out, nil
}

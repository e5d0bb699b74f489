package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"matching-core/src/engine"
	"matching-core/src/models"
)

// priceFormat turns integer ticks into display prices.
type priceFormat int32

func (p priceFormat) decimal(ticks int64) decimal.Decimal {
	return decimal.New(ticks, -int32(p))
}

func (p priceFormat) display(ticks int64) string {
	return p.decimal(ticks).String()
}

func (p priceFormat) float(ticks int64) float64 {
	return p.decimal(ticks).InexactFloat64()
}

func (h *OrderHandler) tradeInfo(trade engine.Trade) models.TradeInfo {
	return models.TradeInfo{
		TradeID:      trade.TradeID,
		BuyOrderID:   trade.BuyOrderID,
		SellOrderID:  trade.SellOrderID,
		Price:        trade.Price,
		DisplayPrice: h.prices.display(trade.Price),
		Quantity:     trade.Quantity,
		Aggressor:    trade.Aggressor.String(),
		Timestamp:    trade.Timestamp.UnixMilli(),
	}
}

func (h *OrderHandler) GetOrderBook(c *fiber.Ctx) error {
	depth, err := strconv.Atoi(c.Query("depth", strconv.Itoa(h.defaultDepth)))
	if err != nil || depth <= 0 {
		depth = h.defaultDepth
	}

	// edge case: enforce maximum depth limit
	if depth > h.maxDepth {
		depth = h.maxDepth
	}

	bidLevels, askLevels := h.Service.Book().Depth(depth)

	return c.Status(fiber.StatusOK).JSON(models.OrderBookResponse{
		Symbol:    h.symbol,
		Timestamp: time.Now().UnixMilli(),
		Bids:      h.levelInfo(bidLevels),
		Asks:      h.levelInfo(askLevels),
	})
}

func (h *OrderHandler) levelInfo(levels []engine.LevelSnapshot) []models.PriceLevelInfo {
	out := make([]models.PriceLevelInfo, 0, len(levels))
	for _, level := range levels {
		out = append(out, models.PriceLevelInfo{
			Price:        level.Price,
			DisplayPrice: h.prices.display(level.Price),
			Quantity:     level.Quantity,
			Orders:       level.OrderCount,
		})
	}
	return out
}

func (h *OrderHandler) GetRecentTrades(c *fiber.Ctx) error {
	trades := h.Service.Book().GetRecentTrades()

	out := make([]models.TradeInfo, 0, len(trades))
	for _, trade := range trades {
		out = append(out, h.tradeInfo(trade))
	}

	return c.Status(fiber.StatusOK).JSON(models.TradesResponse{
		Symbol: h.symbol,
		Trades: out,
	})
}

func (h *OrderHandler) GetTicker(c *fiber.Ctx) error {
	book := h.Service.Book()
	bid, ask := book.GetBestBidPrice(), book.GetBestAskPrice()

	var spread int64
	if bid != 0 && ask != 0 {
		spread = ask - bid
	}

	return c.Status(fiber.StatusOK).JSON(models.TickerResponse{
		Symbol:  h.symbol,
		BestBid: bid,
		BestAsk: ask,
		Spread:  spread,
	})
}

// AdminOrderBook lists every resting order for the admin console.
func (h *OrderHandler) AdminOrderBook(c *fiber.Ctx) error {
	orders := h.Service.Book().RestingOrders()

	out := make([]models.BookEntry, 0, len(orders))
	for _, order := range orders {
		out = append(out, models.BookEntry{
			ID:        order.ID,
			Symbol:    h.symbol,
			Side:      order.Side.String(),
			Price:     h.prices.float(order.Price),
			Quantity:  order.Remaining,
			Timestamp: order.Timestamp.UnixMilli(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

// AdminTradeHistory lists recent trades newest first from the aggressor's view.
func (h *OrderHandler) AdminTradeHistory(c *fiber.Ctx) error {
	trades := h.Service.Book().GetRecentTrades()

	out := make([]models.TradeRecord, 0, len(trades))
	for i := len(trades) - 1; i >= 0; i-- {
		trade := trades[i]
		out = append(out, models.TradeRecord{
			ID:        trade.TradeID,
			Symbol:    h.symbol,
			Side:      trade.Aggressor.String(),
			Price:     h.prices.float(trade.Price),
			Quantity:  trade.Quantity,
			Timestamp: trade.Timestamp.UnixMilli(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

package engine

import "time"

type Trade struct {
	TradeID     string
	BuyOrderID  string
	SellOrderID string
	Price       int64
	Quantity    int64
	Aggressor   OrderSide
	Timestamp   time.Time
}

// tradeHistory is a fixed-capacity ring of the most recent trades.
type tradeHistory struct {
	buf   []Trade
	start int
	count int
}

func newTradeHistory(capacity int) *tradeHistory {
	if capacity <= 0 {
		capacity = DefaultTradeHistorySize
	}
	return &tradeHistory{buf: make([]Trade, capacity)}
}

func (h *tradeHistory) push(t Trade) {
	if h.count < len(h.buf) {
		h.buf[(h.start+h.count)%len(h.buf)] = t
		h.count++
		return
	}
	// edge case: full, overwrite the oldest
	h.buf[h.start] = t
	h.start = (h.start + 1) % len(h.buf)
}

func (h *tradeHistory) snapshot() []Trade {
	out := make([]Trade, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

func (h *tradeHistory) len() int {
	return h.count
}

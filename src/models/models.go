package models

type SubmitOrderRequest struct {
	OrderID     string `json:"order_id,omitempty"` // engine-assigned when empty
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force,omitempty"` // GTC for LIMIT, IOC for MARKET when empty
	Price       int64  `json:"price"`                   // price in ticks, required for LIMIT, ignored for MARKET
	Quantity    int64  `json:"quantity"`
}

type SubmitOrderResponse struct {
	OrderID           string      `json:"order_id"`
	Status            string      `json:"status"`
	Message           string      `json:"message,omitempty"`
	FilledQuantity    int64       `json:"filled_quantity"`
	RemainingQuantity int64       `json:"remaining_quantity"`
	Rested            bool        `json:"rested"`
	Trades            []TradeInfo `json:"trades,omitempty"`
}

type TradeInfo struct {
	TradeID      string `json:"trade_id"`
	BuyOrderID   string `json:"buy_order_id"`
	SellOrderID  string `json:"sell_order_id"`
	Price        int64  `json:"price"` // price in ticks
	DisplayPrice string `json:"display_price"`
	Quantity     int64  `json:"quantity"`
	Aggressor    string `json:"aggressor"`
	Timestamp    int64  `json:"timestamp"` // unix timestamp in milliseconds
}

type CancelOrderResponse struct {
	OrderID   string `json:"order_id"`
	Cancelled bool   `json:"cancelled"`
	Status    string `json:"status,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type OrderBookResponse struct {
	Symbol    string           `json:"symbol"`
	Timestamp int64            `json:"timestamp"` // unix timestamp in milliseconds
	Bids      []PriceLevelInfo `json:"bids"`      // sorted descending (highest first)
	Asks      []PriceLevelInfo `json:"asks"`      // sorted ascending (lowest first)
}

type PriceLevelInfo struct {
	Price        int64  `json:"price"` // price in ticks
	DisplayPrice string `json:"display_price"`
	Quantity     int64  `json:"quantity"` // aggregated quantity at this price
	Orders       int    `json:"orders"`
}

type OrderStatusResponse struct {
	OrderID        string `json:"order_id"`
	Side           string `json:"side"`
	Type           string `json:"type"`
	TimeInForce    string `json:"time_in_force"`
	Price          int64  `json:"price"` // price in ticks
	Quantity       int64  `json:"quantity"`
	FilledQuantity int64  `json:"filled_quantity"`
	Remaining      int64  `json:"remaining_quantity"`
	Status         string `json:"status"`
	ActorID        string `json:"actor_id"`
	Timestamp      int64  `json:"timestamp"` // unix timestamp in milliseconds
}

type TickerResponse struct {
	Symbol  string `json:"symbol"`
	BestBid int64  `json:"best_bid"` // 0 means no bids
	BestAsk int64  `json:"best_ask"` // 0 means no asks
	Spread  int64  `json:"spread"`   // 0 unless both sides are present
}

type TradesResponse struct {
	Symbol string      `json:"symbol"`
	Trades []TradeInfo `json:"trades"` // oldest first
}

// BookEntry and TradeRecord are the flat shapes the admin console reads.
type BookEntry struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Timestamp int64   `json:"timestamp"`
}

type TradeRecord struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Timestamp int64   `json:"timestamp"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	OrdersInBook  int64  `json:"orders_in_book"`
	TradingHalted bool   `json:"trading_halted"`
}

type MetricsResponse struct {
	OrdersReceived         int64   `json:"orders_received"`
	OrdersRejected         int64   `json:"orders_rejected"`
	OrdersMatched          int64   `json:"orders_matched"`
	OrdersCancelled        int64   `json:"orders_cancelled"`
	OrdersInBook           int64   `json:"orders_in_book"`
	BidLevels              int64   `json:"bid_levels"`
	AskLevels              int64   `json:"ask_levels"`
	TradesExecuted         int64   `json:"trades_executed"`
	LatencyP50Ms           float64 `json:"latency_p50_ms"`
	LatencyP99Ms           float64 `json:"latency_p99_ms"`
	LatencyP999Ms          float64 `json:"latency_p999_ms"`
	ThroughputOrdersPerSec float64 `json:"throughput_orders_per_sec"`
}

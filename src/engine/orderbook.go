package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
)

const DefaultTradeHistorySize = 100

const btreeDegree = 32

type Option func(*OrderBook)

// WithTradeHistorySize bounds how many recent trades the book retains.
func WithTradeHistorySize(size int) Option {
	return func(ob *OrderBook) {
		if size > 0 {
			ob.trades = newTradeHistory(size)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(ob *OrderBook) {
		ob.now = now
	}
}

func WithTradeIDGenerator(next func() string) Option {
	return func(ob *OrderBook) {
		ob.newTradeID = next
	}
}

// OrderBook matches a single instrument. One lock covers both sides, the
// index and the trade history.
type OrderBook struct {
	Symbol string

	bids   *btree.BTreeG[*PriceLevel] // sorted descending (highest first)
	asks   *btree.BTreeG[*PriceLevel] // sorted ascending (lowest first)
	orders map[string]*Order
	trades *tradeHistory

	now        func() time.Time
	newTradeID func() string

	mu sync.RWMutex
}

func NewOrderBook(symbol string, opts ...Option) *OrderBook {
	ob := &OrderBook{
		Symbol: symbol,
		bids: btree.NewG(btreeDegree, func(a, b *PriceLevel) bool {
			return a.Price > b.Price
		}),
		asks: btree.NewG(btreeDegree, func(a, b *PriceLevel) bool {
			return a.Price < b.Price
		}),
		orders:     make(map[string]*Order),
		trades:     newTradeHistory(DefaultTradeHistorySize),
		now:        time.Now,
		newTradeID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(ob)
	}
	return ob
}

// MatchResult holds copies of everything an AddOrder call changed.
type MatchResult struct {
	Order  Order
	Trades []Trade
	// Counterparties are the resting orders that traded, in fill order, as
	// they stood after their fill.
	Counterparties []Order
	Rested         bool
}

func (r *MatchResult) FilledQuantity() int64 {
	return r.Order.FilledQuantity()
}

// AddOrder crosses the order against the opposite side and rests any GTC
// LIMIT remainder. The book takes ownership of order.
func (ob *OrderBook) AddOrder(order *Order) (*MatchResult, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	if _, exists := ob.orders[order.ID]; exists {
		return nil, &ValidationError{
			Field:   "order_id",
			Message: "order id " + order.ID + " is already resting",
			Err:     ErrDuplicateOrder,
		}
	}
	// edge case: a level's aggregate quantity must stay within int64
	if order.canRest() {
		if level, ok := ob.side(order.Side).Get(&PriceLevel{Price: order.Price}); ok &&
			level.TotalQuantity() > math.MaxInt64-order.Quantity {
			return nil, &ValidationError{Field: "quantity", Message: "quantity exceeds capacity at this price"}
		}
	}
	if order.Timestamp.IsZero() {
		order.Timestamp = ob.now()
	}

	result := &MatchResult{}

	// edge case: fill or kill must see enough crossing liquidity before touching the book
	if order.TimeInForce == FOK && ob.crossingLiquidity(order, order.Quantity) < order.Quantity {
		order.Status = StatusExpired
		result.Order = *order
		return result, nil
	}

	ob.match(order, result)

	if order.Remaining > 0 {
		if order.canRest() {
			ob.rest(order)
			result.Rested = true
		} else if order.Remaining == order.Quantity {
			order.Status = StatusExpired
		}
	}

	result.Order = *order
	return result, nil
}

func (ob *OrderBook) match(order *Order, result *MatchResult) {
	opposite := ob.side(order.Side.Opposite())

	for order.Remaining > 0 {
		level, ok := opposite.Min()
		if !ok || !order.crosses(level.Price) {
			break
		}

		for order.Remaining > 0 && !level.IsEmpty() {
			resting := level.FirstOrder()
			qty := min(order.Remaining, resting.Remaining)

			result.Trades = append(result.Trades, ob.execute(order, resting, qty, level.Price))
			level.reduce(qty)

			if resting.IsFilled() {
				level.RemoveOrder(resting.ID)
				delete(ob.orders, resting.ID)
			}
			result.Counterparties = append(result.Counterparties, *resting)
		}

		// edge case: remove empty price level
		if level.IsEmpty() {
			opposite.Delete(level)
		}
	}
}

// execute fills both orders at the resting level's price.
func (ob *OrderBook) execute(incoming, resting *Order, qty, price int64) Trade {
	incoming.fill(qty)
	resting.fill(qty)

	trade := Trade{
		TradeID:   ob.newTradeID(),
		Price:     price,
		Quantity:  qty,
		Aggressor: incoming.Side,
		Timestamp: ob.now(),
	}
	if incoming.Side == SideBuy {
		trade.BuyOrderID = incoming.ID
		trade.SellOrderID = resting.ID
	} else {
		trade.BuyOrderID = resting.ID
		trade.SellOrderID = incoming.ID
	}

	ob.trades.push(trade)
	return trade
}

func (ob *OrderBook) rest(order *Order) {
	tree := ob.side(order.Side)

	level, ok := tree.Get(&PriceLevel{Price: order.Price})
	if !ok {
		level = NewPriceLevel(order.Price)
		tree.ReplaceOrInsert(level)
	}
	level.AddOrder(order)
	ob.orders[order.ID] = order
}

// crossingLiquidity sums resting quantity the order could trade against,
// capped at need so the sum cannot overflow.
func (ob *OrderBook) crossingLiquidity(order *Order, need int64) int64 {
	var available int64
	ob.side(order.Side.Opposite()).Ascend(func(level *PriceLevel) bool {
		if !order.crosses(level.Price) {
			return false
		}
		if level.TotalQuantity() >= need-available {
			available = need
			return false
		}
		available += level.TotalQuantity()
		return true
	})
	return available
}

// CancelOrder removes a resting order and marks it CANCELLED. Unknown or
// already terminal ids are a silent no-op; ok reports whether anything changed.
func (ob *OrderBook) CancelOrder(orderID string) (Order, bool) {
	return ob.terminate(orderID, StatusCancelled)
}

// ExpireOrder is the hook for an external time-in-force timer. It behaves
// like CancelOrder but leaves the order EXPIRED.
func (ob *OrderBook) ExpireOrder(orderID string) (Order, bool) {
	return ob.terminate(orderID, StatusExpired)
}

func (ob *OrderBook) terminate(orderID string, status OrderStatus) (Order, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	order, exists := ob.orders[orderID]
	if !exists || order.Status.IsTerminal() {
		return Order{}, false
	}

	ob.remove(order)
	order.Status = status
	return *order, true
}

// remove unlinks a resting order from its level and the index together.
func (ob *OrderBook) remove(order *Order) {
	tree := ob.side(order.Side)

	level, ok := tree.Get(&PriceLevel{Price: order.Price})
	if !ok || !level.RemoveOrder(order.ID) {
		panic(fmt.Sprintf("engine: indexed order %s is not resting at %s %d", order.ID, order.Side, order.Price))
	}
	if level.IsEmpty() {
		tree.Delete(level)
	}
	delete(ob.orders, order.ID)
}

func (ob *OrderBook) side(side OrderSide) *btree.BTreeG[*PriceLevel] {
	if side == SideBuy {
		return ob.bids
	}
	return ob.asks
}

// GetRecentTrades returns the retained trades oldest first.
func (ob *OrderBook) GetRecentTrades() []Trade {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return ob.trades.snapshot()
}

// GetBestBidPrice returns 0 when there are no bids.
func (ob *OrderBook) GetBestBidPrice() int64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return bestPrice(ob.bids)
}

// GetBestAskPrice returns 0 when there are no asks.
func (ob *OrderBook) GetBestAskPrice() int64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return bestPrice(ob.asks)
}

func bestPrice(tree *btree.BTreeG[*PriceLevel]) int64 {
	level, ok := tree.Min()
	if !ok {
		return 0
	}
	return level.Price
}

func (ob *OrderBook) GetOrder(orderID string) (Order, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	order, exists := ob.orders[orderID]
	if !exists {
		return Order{}, false
	}
	return *order, true
}

type LevelSnapshot struct {
	Price      int64
	Quantity   int64
	OrderCount int
	Orders     []Order
}

// GetBuyLevels returns every bid level, highest price first, with its orders.
func (ob *OrderBook) GetBuyLevels() []LevelSnapshot {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return snapshotLevels(ob.bids, -1, true)
}

// GetSellLevels returns every ask level, lowest price first, with its orders.
func (ob *OrderBook) GetSellLevels() []LevelSnapshot {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return snapshotLevels(ob.asks, -1, true)
}

// Depth returns aggregated quantities for up to depth levels per side.
func (ob *OrderBook) Depth(depth int) (bids []LevelSnapshot, asks []LevelSnapshot) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return snapshotLevels(ob.bids, depth, false), snapshotLevels(ob.asks, depth, false)
}

func snapshotLevels(tree *btree.BTreeG[*PriceLevel], depth int, withOrders bool) []LevelSnapshot {
	size := tree.Len()
	if depth >= 0 && depth < size {
		size = depth
	}
	out := make([]LevelSnapshot, 0, size)

	tree.Ascend(func(level *PriceLevel) bool {
		if depth >= 0 && len(out) >= depth {
			return false
		}
		snap := LevelSnapshot{
			Price:      level.Price,
			Quantity:   level.TotalQuantity(),
			OrderCount: level.Len(),
		}
		if withOrders {
			snap.Orders = level.Orders()
		}
		out = append(out, snap)
		return true
	})
	return out
}

// RestingOrders lists every resting order, bids then asks, each in priority order.
func (ob *OrderBook) RestingOrders() []Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	out := make([]Order, 0, len(ob.orders))
	collect := func(level *PriceLevel) bool {
		out = append(out, level.Orders()...)
		return true
	}
	ob.bids.Ascend(collect)
	ob.asks.Ascend(collect)
	return out
}

type BookStats struct {
	RestingOrders int
	BidLevels     int
	AskLevels     int
	RecentTrades  int
}

func (ob *OrderBook) Stats() BookStats {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return BookStats{
		RestingOrders: len(ob.orders),
		BidLevels:     ob.bids.Len(),
		AskLevels:     ob.asks.Len(),
		RecentTrades:  ob.trades.len(),
	}
}

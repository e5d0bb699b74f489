package engine_test

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-core/src/engine"
)

func submit(t *testing.T, ob *engine.OrderBook, order *engine.Order) *engine.MatchResult {
	t.Helper()
	result, err := ob.AddOrder(order)
	require.NoError(t, err)
	require.NoError(t, ob.Validate())
	return result
}

func TestPartialFillKeepsBestBid(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")

	buy := submit(t, ob, engine.NewLimitOrder("b1", engine.SideBuy, 100, 10))
	assert.True(t, buy.Rested)
	assert.Empty(t, buy.Trades)
	assert.Equal(t, int64(100), ob.GetBestBidPrice())
	assert.Equal(t, int64(0), ob.GetBestAskPrice())

	sell := submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 100, 4))
	require.Len(t, sell.Trades, 1)

	trade := sell.Trades[0]
	assert.Equal(t, "b1", trade.BuyOrderID)
	assert.Equal(t, "s1", trade.SellOrderID)
	assert.Equal(t, int64(100), trade.Price)
	assert.Equal(t, int64(4), trade.Quantity)
	assert.Equal(t, engine.SideSell, trade.Aggressor)

	assert.Equal(t, engine.StatusFilled, sell.Order.Status)
	require.Len(t, sell.Counterparties, 1)
	assert.Equal(t, engine.StatusPartiallyFilled, sell.Counterparties[0].Status)
	assert.Equal(t, int64(6), sell.Counterparties[0].Remaining)

	resting, ok := ob.GetOrder("b1")
	require.True(t, ok)
	assert.Equal(t, engine.StatusPartiallyFilled, resting.Status)
	assert.Equal(t, int64(6), resting.Remaining)
	assert.Equal(t, int64(100), ob.GetBestBidPrice())
}

func TestPricePriorityAcrossLevels(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("s101", engine.SideSell, 101, 5))
	submit(t, ob, engine.NewLimitOrder("s100", engine.SideSell, 100, 5))

	result := submit(t, ob, engine.NewLimitOrder("b1", engine.SideBuy, 101, 8))

	require.Len(t, result.Trades, 2)
	assert.Equal(t, int64(100), result.Trades[0].Price)
	assert.Equal(t, int64(5), result.Trades[0].Quantity)
	assert.Equal(t, "s100", result.Trades[0].SellOrderID)
	assert.Equal(t, int64(101), result.Trades[1].Price)
	assert.Equal(t, int64(3), result.Trades[1].Quantity)
	assert.Equal(t, engine.StatusFilled, result.Order.Status)
	assert.False(t, result.Rested)

	asks := ob.GetSellLevels()
	require.Len(t, asks, 1)
	assert.Equal(t, int64(101), asks[0].Price)
	assert.Equal(t, int64(2), asks[0].Quantity)
	assert.Empty(t, ob.GetBuyLevels())
}

func TestIOCWithoutCrossDiscardsRemainder(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 100, 5))

	result := submit(t, ob, engine.NewOrder("b1", engine.SideBuy, engine.TypeLimit, engine.IOC, 99, 10))

	assert.Empty(t, result.Trades)
	assert.False(t, result.Rested)
	assert.Equal(t, engine.StatusExpired, result.Order.Status)
	assert.Equal(t, int64(10), result.Order.Remaining)
	assert.Equal(t, int64(0), ob.GetBestBidPrice())
	_, ok := ob.GetOrder("b1")
	assert.False(t, ok)
}

func TestIOCPartialFillDoesNotRest(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 100, 5))

	result := submit(t, ob, engine.NewOrder("b1", engine.SideBuy, engine.TypeLimit, engine.IOC, 100, 8))

	require.Len(t, result.Trades, 1)
	assert.Equal(t, engine.StatusPartiallyFilled, result.Order.Status)
	assert.Equal(t, int64(3), result.Order.Remaining)
	assert.False(t, result.Rested)
	assert.Zero(t, ob.Stats().RestingOrders)
}

func TestCancelUnknownOrderIsNoop(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("b1", engine.SideBuy, 100, 10))

	_, cancelled := ob.CancelOrder("never-submitted")

	assert.False(t, cancelled)
	assert.Equal(t, 1, ob.Stats().RestingOrders)
	assert.Equal(t, int64(100), ob.GetBestBidPrice())
	require.NoError(t, ob.Validate())
}

func TestCancelIsIdempotent(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("b1", engine.SideBuy, 100, 10))
	submit(t, ob, engine.NewLimitOrder("b2", engine.SideBuy, 100, 3))

	order, cancelled := ob.CancelOrder("b1")
	require.True(t, cancelled)
	assert.Equal(t, engine.StatusCancelled, order.Status)
	assert.Equal(t, int64(10), order.Remaining)

	_, cancelled = ob.CancelOrder("b1")
	assert.False(t, cancelled)

	bids := ob.GetBuyLevels()
	require.Len(t, bids, 1)
	assert.Equal(t, int64(3), bids[0].Quantity)
	assert.Equal(t, 1, bids[0].OrderCount)
	require.NoError(t, ob.Validate())
}

func TestCancelLastOrderRemovesLevel(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 105, 1))
	submit(t, ob, engine.NewLimitOrder("s2", engine.SideSell, 107, 1))

	_, cancelled := ob.CancelOrder("s1")
	require.True(t, cancelled)

	assert.Equal(t, int64(107), ob.GetBestAskPrice())
	assert.Equal(t, 1, ob.Stats().AskLevels)
}

func TestCancelFilledOrderIsNoop(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 100, 5))
	submit(t, ob, engine.NewLimitOrder("b1", engine.SideBuy, 100, 5))

	_, cancelled := ob.CancelOrder("s1")
	assert.False(t, cancelled)
	assert.Len(t, ob.GetRecentTrades(), 1)
}

func TestExpireOrder(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("b1", engine.SideBuy, 100, 10))

	order, expired := ob.ExpireOrder("b1")
	require.True(t, expired)
	assert.Equal(t, engine.StatusExpired, order.Status)

	_, cancelled := ob.CancelOrder("b1")
	assert.False(t, cancelled)
	assert.Equal(t, int64(0), ob.GetBestBidPrice())
}

func TestTimePriorityWithinLevel(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("small-first", engine.SideSell, 100, 1))
	submit(t, ob, engine.NewLimitOrder("large-second", engine.SideSell, 100, 50))

	result := submit(t, ob, engine.NewLimitOrder("b1", engine.SideBuy, 100, 1))

	require.Len(t, result.Trades, 1)
	assert.Equal(t, "small-first", result.Trades[0].SellOrderID)
}

func TestPartiallyFilledOrderKeepsQueuePosition(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 100, 10))
	submit(t, ob, engine.NewLimitOrder("s2", engine.SideSell, 100, 10))

	submit(t, ob, engine.NewLimitOrder("b1", engine.SideBuy, 100, 4))
	result := submit(t, ob, engine.NewLimitOrder("b2", engine.SideBuy, 100, 8))

	require.Len(t, result.Trades, 2)
	assert.Equal(t, "s1", result.Trades[0].SellOrderID)
	assert.Equal(t, int64(6), result.Trades[0].Quantity)
	assert.Equal(t, "s2", result.Trades[1].SellOrderID)
	assert.Equal(t, int64(2), result.Trades[1].Quantity)
}

func TestTradesPrintAtRestingPrice(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("b1", engine.SideBuy, 105, 5))

	result := submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 95, 5))

	require.Len(t, result.Trades, 1)
	assert.Equal(t, int64(105), result.Trades[0].Price)
}

func TestSellSweepsBidsHighestFirst(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("b98", engine.SideBuy, 98, 5))
	submit(t, ob, engine.NewLimitOrder("b100", engine.SideBuy, 100, 5))
	submit(t, ob, engine.NewLimitOrder("b99", engine.SideBuy, 99, 5))

	result := submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 99, 12))

	require.Len(t, result.Trades, 2)
	assert.Equal(t, int64(100), result.Trades[0].Price)
	assert.Equal(t, int64(99), result.Trades[1].Price)
	assert.True(t, result.Rested)
	assert.Equal(t, int64(98), ob.GetBestBidPrice())
	assert.Equal(t, int64(99), ob.GetBestAskPrice())

	rested, ok := ob.GetOrder("s1")
	require.True(t, ok)
	assert.Equal(t, int64(2), rested.Remaining)
	assert.Equal(t, engine.StatusPartiallyFilled, rested.Status)
}

func TestMarketOrderIgnoresPrice(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 100, 5))
	submit(t, ob, engine.NewLimitOrder("s2", engine.SideSell, 10000, 5))

	result := submit(t, ob, engine.NewMarketOrder("m1", engine.SideBuy, 12))

	require.Len(t, result.Trades, 2)
	assert.Equal(t, int64(10000), result.Trades[1].Price)
	assert.Equal(t, engine.StatusPartiallyFilled, result.Order.Status)
	assert.Equal(t, int64(2), result.Order.Remaining)
	assert.False(t, result.Rested)
	assert.Zero(t, ob.Stats().RestingOrders)
}

func TestMarketOrderOnEmptyBookExpires(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")

	result := submit(t, ob, engine.NewMarketOrder("m1", engine.SideSell, 3))

	assert.Empty(t, result.Trades)
	assert.Equal(t, engine.StatusExpired, result.Order.Status)
}

func TestFillOrKill(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 100, 5))
	submit(t, ob, engine.NewLimitOrder("s2", engine.SideSell, 102, 5))

	// only 5 available at or below 101
	killed := submit(t, ob, engine.NewOrder("f1", engine.SideBuy, engine.TypeLimit, engine.FOK, 101, 6))
	assert.Empty(t, killed.Trades)
	assert.Equal(t, engine.StatusExpired, killed.Order.Status)
	assert.Equal(t, 2, ob.Stats().RestingOrders)

	filled := submit(t, ob, engine.NewOrder("f2", engine.SideBuy, engine.TypeLimit, engine.FOK, 102, 6))
	require.Len(t, filled.Trades, 2)
	assert.Equal(t, engine.StatusFilled, filled.Order.Status)
	assert.Equal(t, int64(4), ob.GetSellLevels()[0].Quantity)
}

func TestAddOrderRejectsMalformed(t *testing.T) {
	cases := map[string]*engine.Order{
		"zero quantity":     engine.NewLimitOrder("x", engine.SideBuy, 100, 0),
		"negative quantity": engine.NewLimitOrder("x", engine.SideSell, 100, -3),
		"zero limit price":  engine.NewLimitOrder("x", engine.SideBuy, 0, 5),
		"missing id":        engine.NewLimitOrder("", engine.SideBuy, 100, 5),
		"unknown side":      engine.NewOrder("x", engine.OrderSide(9), engine.TypeLimit, engine.GTC, 100, 5),
		"unknown type":      engine.NewOrder("x", engine.SideBuy, engine.OrderType(9), engine.GTC, 100, 5),
		"unknown tif":       engine.NewOrder("x", engine.SideBuy, engine.TypeLimit, engine.TimeInForce(9), 100, 5),
		"market gtc":        engine.NewOrder("x", engine.SideBuy, engine.TypeMarket, engine.GTC, 0, 5),
	}

	for name, order := range cases {
		t.Run(name, func(t *testing.T) {
			ob := engine.NewOrderBook("XYZ")
			submit(t, ob, engine.NewLimitOrder("resting", engine.SideSell, 100, 5))

			result, err := ob.AddOrder(order)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, engine.ErrInvalidOrder))
			var validationErr *engine.ValidationError
			assert.True(t, errors.As(err, &validationErr))
			assert.Empty(t, ob.GetRecentTrades())
			assert.Equal(t, 1, ob.Stats().RestingOrders)
		})
	}
}

func TestAddOrderRejectsDuplicateRestingID(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("dup", engine.SideBuy, 100, 5))

	_, err := ob.AddOrder(engine.NewLimitOrder("dup", engine.SideSell, 100, 5))

	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrDuplicateOrder)
	assert.ErrorIs(t, err, engine.ErrInvalidOrder)
	var validationErr *engine.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "order_id", validationErr.Field)
	assert.Empty(t, ob.GetRecentTrades())
}

func TestFOKWithLiquidityNearInt64Limit(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 100, 5))
	submit(t, ob, engine.NewLimitOrder("s2", engine.SideSell, 101, math.MaxInt64))

	result := submit(t, ob, engine.NewOrder("fok", engine.SideBuy, engine.TypeLimit, engine.FOK, 200, math.MaxInt64))

	assert.Equal(t, engine.StatusFilled, result.Order.Status)
	require.Len(t, result.Trades, 2)
	assert.Equal(t, int64(5), result.Trades[0].Quantity)
	assert.Equal(t, int64(math.MaxInt64-5), result.Trades[1].Quantity)
	assert.Equal(t, int64(101), ob.GetBestAskPrice())
	assert.Equal(t, int64(5), ob.GetSellLevels()[0].Quantity)
}

func TestAddOrderRejectsLevelOverflow(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 101, math.MaxInt64))

	_, err := ob.AddOrder(engine.NewLimitOrder("s2", engine.SideSell, 101, 1))

	require.ErrorIs(t, err, engine.ErrInvalidOrder)
	var validationErr *engine.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "quantity", validationErr.Field)
	require.NoError(t, ob.Validate())

	// a different price level is unaffected
	submit(t, ob, engine.NewLimitOrder("s3", engine.SideSell, 102, math.MaxInt64))
}

func TestTradeTimestampsUseBookClock(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	ob := engine.NewOrderBook("XYZ", engine.WithClock(func() time.Time { return at }))

	buy := engine.NewLimitOrder("b1", engine.SideBuy, 100, 3)
	buy.Timestamp = time.Time{}
	submit(t, ob, buy)
	result := submit(t, ob, engine.NewLimitOrder("s1", engine.SideSell, 100, 3))

	require.Len(t, result.Trades, 1)
	assert.Equal(t, at, result.Trades[0].Timestamp)
	assert.Equal(t, at, ob.GetRecentTrades()[0].Timestamp)
	assert.Equal(t, at, result.Counterparties[0].Timestamp, "unstamped orders take the book clock")
}

func TestRecentTradesBounded(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")

	for i := 0; i < 130; i++ {
		submit(t, ob, engine.NewLimitOrder(fmt.Sprintf("s%d", i), engine.SideSell, 100, 1))
		submit(t, ob, engine.NewLimitOrder(fmt.Sprintf("b%d", i), engine.SideBuy, 100, 1))
	}

	trades := ob.GetRecentTrades()
	require.Len(t, trades, engine.DefaultTradeHistorySize)
	assert.Equal(t, "b30", trades[0].BuyOrderID)
	assert.Equal(t, "b129", trades[len(trades)-1].BuyOrderID)

	trades[0].Quantity = 999
	assert.Equal(t, int64(1), ob.GetRecentTrades()[0].Quantity)
}

func TestTradeHistorySizeOption(t *testing.T) {
	ob := engine.NewOrderBook("XYZ", engine.WithTradeHistorySize(3))

	for i := 0; i < 5; i++ {
		submit(t, ob, engine.NewLimitOrder(fmt.Sprintf("s%d", i), engine.SideSell, 100, 1))
		submit(t, ob, engine.NewLimitOrder(fmt.Sprintf("b%d", i), engine.SideBuy, 100, 1))
	}

	trades := ob.GetRecentTrades()
	require.Len(t, trades, 3)
	assert.Equal(t, "s2", trades[0].SellOrderID)
	assert.Equal(t, "s4", trades[2].SellOrderID)
}

func TestLevelViewsAreCopies(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("b1", engine.SideBuy, 100, 10))

	levels := ob.GetBuyLevels()
	levels[0].Orders[0].Remaining = 1
	levels[0].Quantity = 1

	order, _ := ob.GetOrder("b1")
	assert.Equal(t, int64(10), order.Remaining)
	assert.Equal(t, int64(10), ob.GetBuyLevels()[0].Quantity)
}

func TestDepthAndRestingOrders(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	submit(t, ob, engine.NewLimitOrder("b1", engine.SideBuy, 99, 1))
	submit(t, ob, engine.NewLimitOrder("b2", engine.SideBuy, 98, 2))
	submit(t, ob, engine.NewLimitOrder("b3", engine.SideBuy, 97, 3))
	submit(t, ob, engine.NewLimitOrder("a1", engine.SideSell, 101, 4))
	submit(t, ob, engine.NewLimitOrder("a2", engine.SideSell, 101, 5))

	bids, asks := ob.Depth(2)
	require.Len(t, bids, 2)
	assert.Equal(t, int64(99), bids[0].Price)
	assert.Equal(t, int64(98), bids[1].Price)
	assert.Nil(t, bids[0].Orders)
	require.Len(t, asks, 1)
	assert.Equal(t, int64(9), asks[0].Quantity)
	assert.Equal(t, 2, asks[0].OrderCount)

	ids := make([]string, 0, 5)
	for _, o := range ob.RestingOrders() {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"b1", "b2", "b3", "a1", "a2"}, ids)
}

func TestResubmittingProcessedOrderIsRejected(t *testing.T) {
	ob := engine.NewOrderBook("XYZ")
	order := engine.NewOrder("i1", engine.SideBuy, engine.TypeLimit, engine.IOC, 100, 5)
	submit(t, ob, order)

	_, err := ob.AddOrder(order)
	assert.ErrorIs(t, err, engine.ErrInvalidOrder)
}

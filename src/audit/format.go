package audit

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"matching-core/src/engine"
)

// Formatter renders audit records. Prices are integer ticks with PriceScale
// implied decimal places.
type Formatter struct {
	PriceScale int32
}

// StatusCode is the audit text for a status. Every status maps to a distinct
// value.
func StatusCode(s engine.OrderStatus) string {
	switch s {
	case engine.StatusNew:
		return "NEW"
	case engine.StatusPartiallyFilled:
		return "PARTIAL"
	case engine.StatusFilled:
		return "FILLED"
	case engine.StatusCancelled:
		return "CANCELLED"
	case engine.StatusExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

func (f Formatter) Price(ticks int64) string {
	return decimal.New(ticks, -f.PriceScale).String()
}

// Order renders timestamp,orderId,TYPE,SIDE,price,quantity,STATUS,remaining,actorId.
func (f Formatter) Order(o engine.Order) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(o.Timestamp.Unix(), 10))
	b.WriteByte(',')
	b.WriteString(o.ID)
	b.WriteByte(',')
	b.WriteString(o.Type.String())
	b.WriteByte(',')
	b.WriteString(o.Side.String())
	b.WriteByte(',')
	b.WriteString(f.Price(o.Price))
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(o.Quantity, 10))
	b.WriteByte(',')
	b.WriteString(StatusCode(o.Status))
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(o.Remaining, 10))
	b.WriteByte(',')
	b.WriteString(o.ActorID)
	return b.String()
}

// Trade renders TRADE|buyOrderId|sellOrderId|price|quantity|timestamp.
func (f Formatter) Trade(t engine.Trade) string {
	return strings.Join([]string{
		"TRADE",
		t.BuyOrderID,
		t.SellOrderID,
		f.Price(t.Price),
		strconv.FormatInt(t.Quantity, 10),
		strconv.FormatInt(t.Timestamp.Unix(), 10),
	}, "|")
}

// Cancel renders CANCEL|orderId|timestamp.
func (f Formatter) Cancel(orderID string, at time.Time) string {
	return "CANCEL|" + orderID + "|" + strconv.FormatInt(at.Unix(), 10)
}

// Line renders an event with its partition key. Order and cancel records are
// keyed by order id so one order's lifecycle stays in sequence; trade records
// involve two orders and are keyed by trade id.
func (f Formatter) Line(e Event) (key, text string) {
	switch e.Kind {
	case OrderEvent:
		return e.Order.ID, f.Order(e.Order)
	case TradeEvent:
		return e.Trade.TradeID, f.Trade(e.Trade)
	case CancelEvent:
		return e.OrderID, f.Cancel(e.OrderID, e.At)
	default:
		panic("audit: unknown event kind")
	}
}

package audit

import (
	"errors"
	"time"

	"matching-core/src/engine"
)

type EventKind uint8

const (
	OrderEvent EventKind = iota + 1
	TradeEvent
	CancelEvent
)

// Event is one audit record. Only the fields for its Kind are set.
type Event struct {
	Kind    EventKind
	Order   engine.Order
	Trade   engine.Trade
	OrderID string
	At      time.Time
}

// Batch holds the records of one book transition in the order they happened.
type Batch []Event

func (b *Batch) AddOrder(order engine.Order) {
	*b = append(*b, Event{Kind: OrderEvent, Order: order})
}

func (b *Batch) AddTrade(trade engine.Trade) {
	*b = append(*b, Event{Kind: TradeEvent, Trade: trade})
}

func (b *Batch) AddCancel(orderID string, at time.Time) {
	*b = append(*b, Event{Kind: CancelEvent, OrderID: orderID, At: at})
}

// Sink receives one batch per accepted transition. Implementations may
// assume batches arrive from a single serialized path.
type Sink interface {
	Publish(batch Batch) error
	Close() error
}

type line struct {
	key  string
	text string
}

// lineWriter is where a LineSink sends rendered records, one call per batch.
type lineWriter interface {
	WriteLines(lines []line) error
	Close() error
}

// LineSink formats records and hands them to a line-oriented writer.
type LineSink struct {
	Formatter
	out lineWriter
}

func (s *LineSink) Publish(batch Batch) error {
	if len(batch) == 0 {
		return nil
	}
	lines := make([]line, 0, len(batch))
	for _, event := range batch {
		key, text := s.Line(event)
		lines = append(lines, line{key: key, text: text})
	}
	return s.out.WriteLines(lines)
}

func (s *LineSink) Close() error {
	return s.out.Close()
}

type MultiSink []Sink

func (m MultiSink) Publish(batch Batch) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Publish(batch))
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

type NopSink struct{}

func (NopSink) Publish(Batch) error { return nil }
func (NopSink) Close() error        { return nil }

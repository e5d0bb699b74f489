package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"matching-core/src/audit"
	"matching-core/src/engine"
	"matching-core/src/logger"
)

type SubmitRequest struct {
	OrderID     string // engine-assigned when empty
	Side        engine.OrderSide
	Type        engine.OrderType
	TimeInForce engine.TimeInForce
	Price       int64
	Quantity    int64
	ActorID     string
}

// OrderService is the intake path in front of the book. It serializes book
// mutations with their audit records so the sink sees transitions in the
// order they happened.
type OrderService struct {
	book         *engine.OrderBook
	sink         audit.Sink
	defaultActor string
	now          func() time.Time
	log          zerolog.Logger

	mu sync.Mutex
}

type Option func(*OrderService)

// WithClock sets the clock used for order and cancel timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *OrderService) {
		s.now = now
	}
}

func NewOrderService(book *engine.OrderBook, sink audit.Sink, defaultActor string, opts ...Option) *OrderService {
	if sink == nil {
		sink = audit.NopSink{}
	}
	s := &OrderService{
		book:         book,
		sink:         sink,
		defaultActor: defaultActor,
		now:          time.Now,
		log:          logger.Component("order-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OrderService) Book() *engine.OrderBook {
	return s.book
}

func (s *OrderService) Submit(req SubmitRequest) (*engine.MatchResult, error) {
	orderID := req.OrderID
	if orderID == "" {
		orderID = uuid.New().String()
	}
	actorID := req.ActorID
	if actorID == "" {
		actorID = s.defaultActor
	}

	order := engine.NewOrder(orderID, req.Side, req.Type, req.TimeInForce, req.Price, req.Quantity)
	order.ActorID = actorID
	order.Timestamp = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.book.AddOrder(order)
	if err != nil {
		return nil, err
	}

	// fills first, so the incoming order's final state follows the trades that produced it
	batch := make(audit.Batch, 0, 2*len(result.Trades)+1)
	for i, trade := range result.Trades {
		batch.AddTrade(trade)
		batch.AddOrder(result.Counterparties[i])
	}
	batch.AddOrder(result.Order)
	s.publish(batch, result.Order.ID)

	return result, nil
}

// Cancel is idempotent; ok is false when nothing was resting under orderID.
func (s *OrderService) Cancel(orderID string) (engine.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.book.CancelOrder(orderID)
	if !ok {
		return order, false
	}

	var batch audit.Batch
	batch.AddCancel(orderID, s.now())
	batch.AddOrder(order)
	s.publish(batch, orderID)
	return order, true
}

// Expire is called by whatever enforces time-in-force deadlines.
func (s *OrderService) Expire(orderID string) (engine.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.book.ExpireOrder(orderID)
	if ok {
		var batch audit.Batch
		batch.AddOrder(order)
		s.publish(batch, orderID)
	}
	return order, ok
}

func (s *OrderService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sink.Close()
}

func (s *OrderService) publish(batch audit.Batch, orderID string) {
	if err := s.sink.Publish(batch); err != nil {
		s.log.Error().
			Err(err).
			Str("order_id", orderID).
			Int("records", len(batch)).
			Msg("Failed to write audit records")
	}
}

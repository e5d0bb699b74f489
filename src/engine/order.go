package engine

import (
	"time"
)

type OrderSide uint8

const (
	SideBuy OrderSide = iota + 1
	SideSell
)

func (s OrderSide) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the side a resting counterparty sits on.
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type OrderType uint8

const (
	TypeLimit OrderType = iota + 1
	TypeMarket
)

func (t OrderType) String() string {
	switch t {
	case TypeLimit:
		return "LIMIT"
	case TypeMarket:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

type TimeInForce uint8

const (
	GTC TimeInForce = iota + 1 // good till cancelled, remainder rests
	IOC                        // immediate or cancel, remainder discarded
	FOK                        // fill or kill, all or nothing
)

func (tif TimeInForce) String() string {
	switch tif {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return "UNKNOWN"
	}
}

type OrderStatus uint8

const (
	StatusNew OrderStatus = iota + 1
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further fills or removals can happen.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusExpired
}

// Order is owned by the book once submitted. Callers get value copies back
// and must not touch the submitted pointer afterwards.
//
// Price is in integer ticks. It is ignored for MARKET orders.
type Order struct {
	ID          string
	Side        OrderSide
	Type        OrderType
	TimeInForce TimeInForce
	Price       int64
	Quantity    int64
	Remaining   int64
	Status      OrderStatus
	ActorID     string
	Timestamp   time.Time
}

func NewOrder(id string, side OrderSide, orderType OrderType, tif TimeInForce, price, quantity int64) *Order {
	return &Order{
		ID:          id,
		Side:        side,
		Type:        orderType,
		TimeInForce: tif,
		Price:       price,
		Quantity:    quantity,
		Remaining:   quantity,
		Status:      StatusNew,
		Timestamp:   time.Now(),
	}
}

func NewLimitOrder(id string, side OrderSide, price, quantity int64) *Order {
	return NewOrder(id, side, TypeLimit, GTC, price, quantity)
}

func NewMarketOrder(id string, side OrderSide, quantity int64) *Order {
	return NewOrder(id, side, TypeMarket, IOC, 0, quantity)
}

func (o *Order) FilledQuantity() int64 {
	return o.Quantity - o.Remaining
}

func (o *Order) IsFilled() bool {
	return o.Remaining == 0
}

// crosses reports whether a resting price is acceptable to this order.
// MARKET orders carry no binding limit.
func (o *Order) crosses(restingPrice int64) bool {
	if o.Type == TypeMarket {
		return true
	}
	if o.Side == SideBuy {
		return restingPrice <= o.Price
	}
	return restingPrice >= o.Price
}

// canRest reports whether an unmatched remainder may be placed on the book.
func (o *Order) canRest() bool {
	return o.Type == TypeLimit && o.TimeInForce == GTC
}

func (o *Order) fill(quantity int64) {
	if quantity <= 0 || quantity > o.Remaining {
		panic("engine: fill quantity out of range for order " + o.ID)
	}
	o.Remaining -= quantity
	if o.Remaining == 0 {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
}

// Validate checks the order before it may enter the crossing loop.
func (o *Order) Validate() error {
	if o.ID == "" {
		return &ValidationError{Field: "order_id", Message: "order id is required"}
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return &ValidationError{Field: "side", Message: "side must be BUY or SELL"}
	}
	if o.Type != TypeLimit && o.Type != TypeMarket {
		return &ValidationError{Field: "type", Message: "type must be LIMIT or MARKET"}
	}
	if o.TimeInForce != GTC && o.TimeInForce != IOC && o.TimeInForce != FOK {
		return &ValidationError{Field: "time_in_force", Message: "time in force must be GTC, IOC or FOK"}
	}
	if o.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}
	if o.Remaining != o.Quantity || o.Status != StatusNew {
		return &ValidationError{Field: "status", Message: "order was already processed"}
	}

	switch o.Type {
	case TypeLimit:
		if o.Price <= 0 {
			return &ValidationError{Field: "price", Message: "price must be positive for LIMIT orders"}
		}
	case TypeMarket:
		// edge case: a market remainder has no price to rest at
		if o.TimeInForce == GTC {
			return &ValidationError{Field: "time_in_force", Message: "MARKET orders cannot be GTC"}
		}
	}

	return nil
}

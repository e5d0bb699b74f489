package engine

import "container/list"

// PriceLevel is the FIFO of resting orders at one price. It is not safe for
// concurrent use; the owning OrderBook's lock guards it.
type PriceLevel struct {
	Price    int64
	orders   *list.List // fifo ordering for time priority
	byID     map[string]*list.Element
	totalQty int64
}

func NewPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: list.New(),
		byID:   make(map[string]*list.Element),
	}
}

func (p *PriceLevel) AddOrder(order *Order) {
	p.byID[order.ID] = p.orders.PushBack(order)
	p.totalQty += order.Remaining
}

// FirstOrder returns the oldest resting order, or nil when the level is empty.
func (p *PriceLevel) FirstOrder() *Order {
	front := p.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*Order)
}

func (p *PriceLevel) RemoveOrder(orderID string) bool {
	elem, ok := p.byID[orderID]
	if !ok {
		return false
	}
	order := p.orders.Remove(elem).(*Order)
	delete(p.byID, orderID)
	p.totalQty -= order.Remaining
	return true
}

func (p *PriceLevel) Contains(orderID string) bool {
	_, ok := p.byID[orderID]
	return ok
}

func (p *PriceLevel) IsEmpty() bool {
	return p.orders.Len() == 0
}

func (p *PriceLevel) Len() int {
	return p.orders.Len()
}

// TotalQuantity is the aggregate remaining quantity at this price.
func (p *PriceLevel) TotalQuantity() int64 {
	return p.totalQty
}

// Orders returns copies of the resting orders in time priority.
func (p *PriceLevel) Orders() []Order {
	out := make([]Order, 0, p.orders.Len())
	for e := p.orders.Front(); e != nil; e = e.Next() {
		out = append(out, *e.Value.(*Order))
	}
	return out
}

// reduce keeps the aggregate in step with a fill on one of the level's orders.
func (p *PriceLevel) reduce(quantity int64) {
	p.totalQty -= quantity
}

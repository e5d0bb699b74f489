package engine

import (
	"fmt"

	"github.com/google/btree"
)

// Validate walks the whole book and reports the first broken invariant.
// Any error here is a bug in the engine, not a runtime condition.
func (ob *OrderBook) Validate() error {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	seen := make(map[string]struct{}, len(ob.orders))

	if err := validateSide(ob.bids, SideBuy, ob.orders, seen); err != nil {
		return err
	}
	if err := validateSide(ob.asks, SideSell, ob.orders, seen); err != nil {
		return err
	}
	if len(seen) != len(ob.orders) {
		return fmt.Errorf("index holds %d orders but %d are resting", len(ob.orders), len(seen))
	}

	bid, ask := bestPrice(ob.bids), bestPrice(ob.asks)
	if bid != 0 && ask != 0 && bid >= ask {
		return fmt.Errorf("book is crossed: best bid %d >= best ask %d", bid, ask)
	}
	return nil
}

func validateSide(tree *btree.BTreeG[*PriceLevel], side OrderSide, index map[string]*Order, seen map[string]struct{}) error {
	var err error
	tree.Ascend(func(level *PriceLevel) bool {
		if level.IsEmpty() {
			err = fmt.Errorf("%s level %d is empty", side, level.Price)
			return false
		}
		var total int64
		for e := level.orders.Front(); e != nil; e = e.Next() {
			order := e.Value.(*Order)
			switch {
			case order.Side != side:
				err = fmt.Errorf("order %s (%s) rests on the %s side", order.ID, order.Side, side)
			case order.Price != level.Price:
				err = fmt.Errorf("order %s priced %d rests at level %d", order.ID, order.Price, level.Price)
			case order.Remaining <= 0 || order.Remaining > order.Quantity:
				err = fmt.Errorf("order %s rests with remaining %d of %d", order.ID, order.Remaining, order.Quantity)
			case order.Status.IsTerminal():
				err = fmt.Errorf("order %s rests with terminal status %s", order.ID, order.Status)
			case index[order.ID] != order:
				err = fmt.Errorf("order %s rests but is not indexed", order.ID)
			case level.byID[order.ID] != e:
				err = fmt.Errorf("order %s has a stale level handle", order.ID)
			}
			if _, dup := seen[order.ID]; dup && err == nil {
				err = fmt.Errorf("order %s rests twice", order.ID)
			}
			if err != nil {
				return false
			}
			seen[order.ID] = struct{}{}
			total += order.Remaining
		}
		if total != level.TotalQuantity() {
			err = fmt.Errorf("%s level %d aggregates %d but holds %d", side, level.Price, level.TotalQuantity(), total)
			return false
		}
		if len(level.byID) != level.Len() {
			err = fmt.Errorf("%s level %d handle count %d != %d", side, level.Price, len(level.byID), level.Len())
			return false
		}
		return true
	})
	return err
}

package engine

import "sort"

// OrderBook keeps the two priority queues of one security. Each queue is
// totally ordered by price (buys descending, sells ascending) with ties kept
// in arrival order. The same structure also backs the pending stop book,
// where ordering follows stop prices (see Order.QueuesBefore).
type OrderBook struct {
	buy  []*Order
	sell []*Order
}

func NewOrderBook() *OrderBook {
	return &OrderBook{}
}

func (b *OrderBook) queue(side Side) *[]*Order {
	if side == Buy {
		return &b.buy
	}
	return &b.sell
}

// BuyQueue exposes the buy queue front-to-back.
func (b *OrderBook) BuyQueue() []*Order { return b.buy }

// SellQueue exposes the sell queue front-to-back.
func (b *OrderBook) SellQueue() []*Order { return b.sell }

// Enqueue inserts the order at the position its priority dictates and marks
// it queued. Equal-priority orders go behind existing ones.
func (b *OrderBook) Enqueue(o *Order) {
	q := b.queue(o.Side)
	pos := len(*q)
	for i, resting := range *q {
		if o.QueuesBefore(resting) {
			pos = i
			break
		}
	}
	o.Queue()
	*q = append(*q, nil)
	copy((*q)[pos+1:], (*q)[pos:])
	(*q)[pos] = o
}

// PutFront restores an order to the front of its queue, bypassing priority
// ordering. Used when unwinding a failed matching attempt.
func (b *OrderBook) PutFront(o *Order) {
	q := b.queue(o.Side)
	o.Queue()
	*q = append([]*Order{o}, *q...)
}

// FindByOrderID returns the order with the given id on the given side, or nil.
func (b *OrderBook) FindByOrderID(side Side, orderID int64) *Order {
	for _, o := range *b.queue(side) {
		if o.ID == orderID {
			return o
		}
	}
	return nil
}

// RemoveByOrderID removes the order with the given id from the given side.
// It reports whether an order was removed.
func (b *OrderBook) RemoveByOrderID(side Side, orderID int64) bool {
	q := b.queue(side)
	for i, o := range *q {
		if o.ID == orderID {
			*q = append((*q)[:i], (*q)[i+1:]...)
			return true
		}
	}
	return false
}

// HasOrders reports whether the given side holds any orders.
func (b *OrderBook) HasOrders(side Side) bool {
	return len(*b.queue(side)) > 0
}

// First returns the front of the given side's queue, or nil if empty.
func (b *OrderBook) First(side Side) *Order {
	q := *b.queue(side)
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

// RemoveFirst drops the front of the given side's queue.
func (b *OrderBook) RemoveFirst(side Side) {
	q := b.queue(side)
	if len(*q) > 0 {
		*q = (*q)[1:]
	}
}

// TotalSellQuantityByShareholder sums the total remaining quantity of the
// shareholder's queued sell orders, hidden iceberg reserve included. Used for
// position solvency checks.
func (b *OrderBook) TotalSellQuantityByShareholder(shareholderID int64) int {
	total := 0
	for _, o := range b.sell {
		if o.ShareholderID == shareholderID {
			total += o.TotalQuantity()
		}
	}
	return total
}

// CalculateOpeningPrice scans every resting limit price as an opening-price
// candidate and returns the one maximizing tradable volume, with that volume.
// Candidates are scanned ascending and only a strictly larger volume replaces
// the incumbent, so ties resolve to the lowest price. No crossing volume
// yields (0, 0).
func (b *OrderBook) CalculateOpeningPrice() (price int, quantity int) {
	candidates := make([]int, 0, len(b.buy)+len(b.sell))
	for _, o := range b.sell {
		candidates = append(candidates, o.Price)
	}
	for _, o := range b.buy {
		candidates = append(candidates, o.Price)
	}
	sort.Ints(candidates)

	for _, p := range candidates {
		buyQuantity, sellQuantity := 0, 0
		for _, o := range b.buy {
			if o.Price >= p {
				buyQuantity += o.VisibleQuantity()
			}
		}
		for _, o := range b.sell {
			if o.Price <= p {
				sellQuantity += o.VisibleQuantity()
			}
		}
		if tradable := min(buyQuantity, sellQuantity); tradable > quantity {
			quantity = tradable
			price = p
		}
	}
	return price, quantity
}

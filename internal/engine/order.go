package engine

import (
	"fmt"
	"time"
)

// Side identifies the buy or sell side of an order or book queue.
type Side int8

const (
	Buy Side = iota
	Sell
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// ParseSide converts the wire representation ("BUY"/"SELL") of a side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, fmt.Errorf("invalid side %q", s)
	}
}

// OrderStatus tracks an order through its lifecycle. NEW orders have never
// been queued; QUEUED orders rest in a book; INACTIVE stop orders wait in the
// pending stop book; ACTIVE marks a stop order that has just triggered and is
// flowing through the matcher; SNAPSHOT marks a detached copy used for
// rollback, never stored in a book.
type OrderStatus int8

const (
	StatusNew OrderStatus = iota
	StatusQueued
	StatusActive
	StatusInactive
	StatusSnapshot
)

func (s OrderStatus) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusQueued:
		return "QUEUED"
	case StatusActive:
		return "ACTIVE"
	case StatusInactive:
		return "INACTIVE"
	case StatusSnapshot:
		return "SNAPSHOT"
	default:
		return "UNKNOWN"
	}
}

// OrderKind tags the closed set of order variants.
type OrderKind int8

const (
	KindLimit OrderKind = iota
	KindIceberg
	KindMEQ
	KindStopLimit
)

// Order is a resting or incoming order. The variant-specific fields
// (PeakSize/DisplayedQuantity for icebergs, StopPrice for stop-limit orders,
// MinExecQuantity for minimum-execution-quantity orders) are only meaningful
// for the matching Kind. Quantity is the total remaining quantity; what the
// matcher sees is VisibleQuantity.
type Order struct {
	ID            int64
	Kind          OrderKind
	SecurityID    string
	Side          Side
	Quantity      int
	Price         int
	BrokerID      int64
	ShareholderID int64
	EntryTime     time.Time
	Status        OrderStatus
	RequestID     int64

	MinExecQuantity int

	PeakSize          int
	DisplayedQuantity int

	StopPrice int
}

// VisibleQuantity is the quantity the matcher may trade against: the total
// remaining quantity, except for iceberg orders already queued, which expose
// only their displayed peak.
func (o *Order) VisibleQuantity() int {
	if o.Kind == KindIceberg && o.Status != StatusNew {
		return o.DisplayedQuantity
	}
	return o.Quantity
}

// TotalQuantity is the full remaining quantity, hidden reserve included.
func (o *Order) TotalQuantity() int {
	return o.Quantity
}

// Value is the credit an order of this price and total quantity commits.
func (o *Order) Value() int64 {
	return int64(o.Price) * int64(o.Quantity)
}

// DecreaseQuantity reduces the order by a fill amount. Decreasing past the
// visible quantity is caller misuse and panics. Queued iceberg orders reduce
// total and displayed quantity in lockstep.
func (o *Order) DecreaseQuantity(amount int) {
	if o.Kind == KindIceberg && o.Status != StatusNew {
		if amount > o.DisplayedQuantity {
			panic(fmt.Sprintf("order %d: decrease %d exceeds displayed quantity %d", o.ID, amount, o.DisplayedQuantity))
		}
		o.Quantity -= amount
		o.DisplayedQuantity -= amount
		return
	}
	if amount > o.Quantity {
		panic(fmt.Sprintf("order %d: decrease %d exceeds quantity %d", o.ID, amount, o.Quantity))
	}
	o.Quantity -= amount
	if o.Kind == KindIceberg && o.DisplayedQuantity > o.Quantity {
		o.DisplayedQuantity = o.Quantity
	}
}

// MakeQuantityZero marks the order fully consumed.
func (o *Order) MakeQuantityZero() {
	o.Quantity = 0
	if o.Kind == KindIceberg {
		o.DisplayedQuantity = 0
	}
}

// Replenish resets an iceberg's displayed quantity from its hidden reserve
// after a fill exhausts the peak.
func (o *Order) Replenish() {
	if o.Kind != KindIceberg {
		return
	}
	o.DisplayedQuantity = min(o.Quantity, o.PeakSize)
}

// QueuesBefore reports whether this order takes priority over other in a book
// queue. Regular orders compare limit prices (higher first for buys, lower
// first for sells). Still-inactive stop orders compare stop prices: ascending
// for buys, descending for sells. Equal keys keep arrival order because
// insertion only moves ahead of strictly worse orders.
func (o *Order) QueuesBefore(other *Order) bool {
	if o.Status == StatusInactive {
		if o.Side == Buy {
			return o.StopPrice < other.StopPrice
		}
		return o.StopPrice > other.StopPrice
	}
	if o.Side == Buy {
		return o.Price > other.Price
	}
	return o.Price < other.Price
}

// Queue marks the order as resting. Inactive stop orders stay inactive while
// held in the pending stop book.
func (o *Order) Queue() {
	if o.Status == StatusInactive {
		return
	}
	o.Status = StatusQueued
}

// QuantityIncreased reports whether an update to newQuantity grows the order.
func (o *Order) QuantityIncreased(newQuantity int) bool {
	return newQuantity > o.Quantity
}

// CanActivate reports whether a stop order's trigger condition holds: sell
// stops trigger once the last trade price reaches or exceeds the stop price,
// buy stops once it falls to or below it.
func (o *Order) CanActivate(lastTradePrice int) bool {
	if o.Kind != KindStopLimit {
		return false
	}
	if o.Side == Sell {
		return lastTradePrice >= o.StopPrice
	}
	return lastTradePrice <= o.StopPrice
}

// ApplyUpdate replaces the updatable fields from an update request. Iceberg
// orders raise their displayed quantity when the peak grows; stop orders take
// the new stop price.
func (o *Order) ApplyUpdate(req *EnterOrderRequest) {
	o.Quantity = req.Quantity
	o.Price = req.Price
	o.RequestID = req.RequestID
	switch o.Kind {
	case KindIceberg:
		if req.PeakSize > o.PeakSize {
			o.DisplayedQuantity = min(o.Quantity, req.PeakSize)
		}
		o.PeakSize = req.PeakSize
	case KindStopLimit:
		o.StopPrice = req.StopPrice
	}
}

// Snapshot produces a detached point-in-time copy tagged SNAPSHOT, used to
// restore state after a failed transactional attempt.
func (o *Order) Snapshot() *Order {
	return o.SnapshotWithQuantity(o.Quantity)
}

// SnapshotWithQuantity is Snapshot with the remaining quantity overridden.
func (o *Order) SnapshotWithQuantity(quantity int) *Order {
	snap := *o
	snap.Quantity = quantity
	snap.Status = StatusSnapshot
	if snap.Kind == KindIceberg {
		snap.DisplayedQuantity = min(quantity, snap.PeakSize)
	}
	return &snap
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

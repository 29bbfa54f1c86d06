package engine

import "time"

// OrderEntryType discriminates new-order from update-order requests.
type OrderEntryType int8

const (
	EntryNew OrderEntryType = iota
	EntryUpdate
)

// EnterOrderRequest carries one validated order-entry request into the core.
// PeakSize 0 means not iceberg, MinExecQuantity 0 means no minimum fill,
// StopPrice 0 means not a stop order.
type EnterOrderRequest struct {
	EntryType       OrderEntryType
	RequestID       int64
	SecurityID      string
	OrderID         int64
	EntryTime       time.Time
	Side            Side
	Quantity        int
	Price           int
	BrokerID        int64
	ShareholderID   int64
	PeakSize        int
	MinExecQuantity int
	StopPrice       int
}

// DeleteOrderRequest asks for the removal of a resting or pending order.
type DeleteOrderRequest struct {
	RequestID  int64
	SecurityID string
	Side       Side
	OrderID    int64
}

// MatchingStateRequest asks a security to change trading regime.
type MatchingStateRequest struct {
	SecurityID string
	State      MatchingState
}

package orders

import (
	"gorm.io/gorm"
)

// Order statuses persisted alongside the live book.
const (
	StatusQueued         = "QUEUED"
	StatusPendingTrigger = "PENDING_TRIGGER"
	StatusExecuted       = "EXECUTED"
	StatusCancelled      = "CANCELLED"
	StatusRejected       = "REJECTED"
)

// OrderRecord is the written-through state of an order request. The live
// order book stays in memory; records exist for status queries and audit.
type OrderRecord struct {
	gorm.Model      `json:"-"`
	OrderID         int64  `gorm:"index" json:"order_id"`
	RequestID       int64  `json:"request_id"`
	SecurityID      string `gorm:"index" json:"security_id"`
	Side            string `json:"side"`
	Quantity        int    `json:"quantity"`
	Price           int    `json:"price"`
	BrokerID        int64  `json:"broker_id"`
	ShareholderID   int64  `json:"shareholder_id"`
	PeakSize        int    `json:"peak_size,omitempty"`
	MinExecQuantity int    `json:"min_exec_quantity,omitempty"`
	StopPrice       int    `json:"stop_price,omitempty"`
	Status          string `json:"status"`
}

// TradeRecord is one persisted execution.
type TradeRecord struct {
	gorm.Model   `json:"-"`
	TradeID      string `gorm:"uniqueIndex" json:"trade_id"`
	SecurityID   string `gorm:"index" json:"security_id"`
	Price        int    `json:"price"`
	Quantity     int    `json:"quantity"`
	BuyOrderID   int64  `json:"buy_order_id"`
	SellOrderID  int64  `json:"sell_order_id"`
	BuyBrokerID  int64  `json:"buy_broker_id"`
	SellBrokerID int64  `json:"sell_broker_id"`
}

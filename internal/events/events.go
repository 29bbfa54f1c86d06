package events

import "time"

// Type tags a venue event on the wire.
type Type string

const (
	TypeOrderAccepted        Type = "ORDER_ACCEPTED"
	TypeOrderUpdated         Type = "ORDER_UPDATED"
	TypeOrderDeleted         Type = "ORDER_DELETED"
	TypeOrderRejected        Type = "ORDER_REJECTED"
	TypeOrderExecuted        Type = "ORDER_EXECUTED"
	TypeOrderActivated       Type = "ORDER_ACTIVATED"
	TypeTrade                Type = "TRADE"
	TypeOpeningPrice         Type = "OPENING_PRICE"
	TypeSecurityStateChanged Type = "SECURITY_STATE_CHANGED"
)

// TradeInfo is one execution carried inside an event.
type TradeInfo struct {
	SecurityID  string `json:"security_id"`
	Price       int    `json:"price"`
	Quantity    int    `json:"quantity"`
	BuyOrderID  int64  `json:"buy_order_id"`
	SellOrderID int64  `json:"sell_order_id"`
}

// Event is the single envelope published for every venue outcome. Fields
// beyond Type, RequestID and SecurityID are populated per event type.
type Event struct {
	Type       Type        `json:"type"`
	RequestID  int64       `json:"request_id,omitempty"`
	OrderID    int64       `json:"order_id,omitempty"`
	SecurityID string      `json:"security_id,omitempty"`
	Reasons    []string    `json:"reasons,omitempty"`
	Trades     []TradeInfo `json:"trades,omitempty"`

	OpeningPrice     int `json:"opening_price,omitempty"`
	TradableQuantity int `json:"tradable_quantity,omitempty"`

	State     string    `json:"state,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

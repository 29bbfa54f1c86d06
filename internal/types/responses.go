package types

import "time"

// TradeResponse is one execution reported back to the caller.
type TradeResponse struct {
	SecurityID  string `json:"security_id"`
	Price       int    `json:"price"`
	Quantity    int    `json:"quantity"`
	BuyOrderID  int64  `json:"buy_order_id"`
	SellOrderID int64  `json:"sell_order_id"`
}

// OrderResponse summarizes the venue's handling of one order request.
type OrderResponse struct {
	OrderID           int64           `json:"order_id"`
	SecurityID        string          `json:"security_id"`
	Status            string          `json:"status"`
	RemainingQuantity int             `json:"remaining_quantity"`
	Trades            []TradeResponse `json:"trades,omitempty"`
	OpeningPrice      *int            `json:"opening_price,omitempty"`
	TradableQuantity  *int            `json:"tradable_quantity,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
}

// MatchingStateResponse reports a regime change and the trades its
// uncrossing pass produced.
type MatchingStateResponse struct {
	SecurityID string          `json:"security_id"`
	State      string          `json:"state"`
	Trades     []TradeResponse `json:"trades,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

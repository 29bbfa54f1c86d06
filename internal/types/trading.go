package types

// OrderRequest is the JSON body for order entry and order update calls.
type OrderRequest struct {
	RequestID       int64  `json:"request_id"`
	OrderID         int64  `json:"order_id"`
	SecurityID      string `json:"security_id"`
	Side            string `json:"side"` // BUY or SELL
	Quantity        int    `json:"quantity"`
	Price           int    `json:"price"`
	BrokerID        int64  `json:"broker_id"`
	ShareholderID   int64  `json:"shareholder_id"`
	PeakSize        int    `json:"peak_size,omitempty"`
	MinExecQuantity int    `json:"min_exec_quantity,omitempty"`
	StopPrice       int    `json:"stop_price,omitempty"`
}

// DeleteOrderRequest is the JSON body for order deletion calls.
type DeleteOrderRequest struct {
	RequestID  int64  `json:"request_id"`
	SecurityID string `json:"security_id"`
	Side       string `json:"side"`
	OrderID    int64  `json:"order_id"`
}

// MatchingStateRequest is the JSON body for regime-change calls.
type MatchingStateRequest struct {
	State string `json:"state"` // CONTINUOUS or AUCTION
}

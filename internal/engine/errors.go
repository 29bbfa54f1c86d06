package engine

import "strings"

// Reason strings surfaced to callers when a request fails validation or is
// rejected. Several can apply to one request at once.
const (
	ReasonInvalidOrderID             = "Invalid order ID"
	ReasonInvalidSide                = "Invalid order side"
	ReasonInvalidMatchingState       = "Invalid matching state"
	ReasonQuantityNotPositive        = "Order quantity is not positive"
	ReasonPriceNotPositive           = "Order price is not positive"
	ReasonUnknownSecurity            = "Unknown security ID"
	ReasonUnknownBroker              = "Unknown broker ID"
	ReasonUnknownShareholder         = "Unknown shareholder ID"
	ReasonOrderIDNotFound            = "Order ID not found in the order book"
	ReasonQuantityNotMultipleOfLot   = "Quantity is not a multiple of security lot size"
	ReasonPriceNotMultipleOfTick     = "Price is not a multiple of security tick size"
	ReasonInvalidPeakSize            = "Iceberg order peak size is out of range"
	ReasonPeakSizeOnNonIceberg       = "Cannot specify peak size for a non-iceberg order"
	ReasonInvalidMinExecQuantity     = "Minimum execution quantity is out of range"
	ReasonCannotUpdateMinExec        = "Minimum execution quantity cannot be changed"
	ReasonInvalidStopPrice           = "Stop price is invalid"
	ReasonStopPriceOnIceberg         = "Iceberg orders cannot carry a stop price"
	ReasonStopPriceOnMinExec         = "Minimum-execution-quantity orders cannot carry a stop price"
	ReasonStopPriceOnNonStop         = "Cannot specify a stop price for a non-stop order"
	ReasonMinExecOnIceberg           = "Minimum-execution-quantity orders cannot be iceberg orders"
	ReasonStopUpdateDuringAuction    = "Stop orders cannot be updated during an auction"
	ReasonNewStopOrMinExecInAuction  = "Stop and minimum-execution-quantity orders cannot enter during an auction"
	ReasonBuyerHasNotEnoughCredit    = "Buyer has not enough credit"
	ReasonSellerHasNotEnoughPosition = "Seller has not enough positions"
	ReasonMinExecQuantityNotMet      = "Minimum execution quantity not met"
)

// RequestError is a validation failure raised before any state mutation. It
// accumulates every reason that applies to the request.
type RequestError struct {
	Reasons []string
}

func (e *RequestError) Error() string {
	return "invalid request: " + strings.Join(e.Reasons, "; ")
}

func newRequestError(reasons ...string) *RequestError {
	return &RequestError{Reasons: reasons}
}

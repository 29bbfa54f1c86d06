package engine

// MatchingState is a security's trading regime.
type MatchingState int8

const (
	StateContinuous MatchingState = iota
	StateAuction
)

func (s MatchingState) String() string {
	if s == StateAuction {
		return "AUCTION"
	}
	return "CONTINUOUS"
}

// ParseMatchingState converts the wire representation of a regime.
func ParseMatchingState(s string) (MatchingState, bool) {
	switch s {
	case "CONTINUOUS":
		return StateContinuous, true
	case "AUCTION":
		return StateAuction, true
	}
	return 0, false
}

// Security is the per-instrument aggregate: it owns the active order book,
// the pending stop book, the trading regime and the last trade price, and
// orchestrates order entry, update, deletion and regime transitions. All
// matching work is delegated to a Matcher.
type Security struct {
	ID       string
	TickSize int
	LotSize  int

	Book     *OrderBook
	StopBook *OrderBook

	LastTradePrice int
	State          MatchingState
	Auction        AuctionData
}

func NewSecurity(id string, tickSize, lotSize int) *Security {
	return &Security{
		ID:       id,
		TickSize: tickSize,
		LotSize:  lotSize,
		Book:     NewOrderBook(),
		StopBook: NewOrderBook(),
		State:    StateContinuous,
	}
}

// buildOrder constructs the concrete order variant a request describes,
// without side effects. Stop orders come out inactive even when their trigger
// already holds; NewOrder decides activation.
func (s *Security) buildOrder(req *EnterOrderRequest) *Order {
	o := &Order{
		ID:              req.OrderID,
		Kind:            KindLimit,
		SecurityID:      s.ID,
		Side:            req.Side,
		Quantity:        req.Quantity,
		Price:           req.Price,
		BrokerID:        req.BrokerID,
		ShareholderID:   req.ShareholderID,
		EntryTime:       req.EntryTime,
		Status:          StatusNew,
		RequestID:       req.RequestID,
		MinExecQuantity: req.MinExecQuantity,
	}
	switch {
	case req.StopPrice != 0:
		o.Kind = KindStopLimit
		o.StopPrice = req.StopPrice
		o.Status = StatusInactive
	case req.PeakSize != 0:
		o.Kind = KindIceberg
		o.PeakSize = req.PeakSize
		o.DisplayedQuantity = min(req.Quantity, req.PeakSize)
	case req.MinExecQuantity != 0:
		o.Kind = KindMEQ
	}
	return o
}

// activateStopOrder converts a triggered stop order into an ordinary active
// order of equal side, price, quantity, broker and shareholder.
func activateStopOrder(o *Order) *Order {
	activated := *o
	activated.Kind = KindLimit
	activated.StopPrice = 0
	activated.Status = StatusActive
	return &activated
}

// NewOrder runs one order-entry request through solvency checks, constructs
// the order variant, and either parks it in the pending stop book or hands it
// to the matcher. Broker and shareholder must already be resolved.
func (s *Security) NewOrder(req *EnterOrderRequest, broker *Broker, shareholder *Shareholder, matcher *Matcher) []*MatchResult {
	order := s.buildOrder(req)

	if req.Side == Sell {
		committed := s.Book.TotalSellQuantityByShareholder(shareholder.ID) + req.Quantity
		if !shareholder.HasEnoughPositionsOn(s.ID, committed) {
			return []*MatchResult{notEnoughPositions(order.Snapshot())}
		}
	}

	if req.Side == Buy && req.StopPrice != 0 {
		if !broker.HasEnoughCredit(order.Value()) {
			return []*MatchResult{notEnoughCredit(order.Snapshot())}
		}
		broker.DecreaseCredit(order.Value())
	}

	if order.Kind == KindStopLimit {
		if !order.CanActivate(s.LastTradePrice) {
			s.StopBook.Enqueue(order)
			return []*MatchResult{noMatch(order.Snapshot())}
		}
		// The matcher reserves credit itself; give back the entry
		// reservation before routing through the normal path.
		if order.Side == Buy {
			broker.IncreaseCredit(order.Value())
		}
		activated := activateStopOrder(order)
		results := []*MatchResult{stopOrderActivated(activated.Snapshot(), nil)}
		return append(results, matcher.Execute(s, activated, order.MinExecQuantity)...)
	}

	return matcher.Execute(s, order, order.MinExecQuantity)
}

// DeleteOrder removes an order from the primary or pending stop book,
// refunding a queued buy order's reserved credit. In the auction regime the
// deletion re-runs opening-price discovery and surfaces the new price.
func (s *Security) DeleteOrder(req *DeleteOrderRequest, registry *Registry) (*MatchResult, error) {
	book := s.Book
	order := book.FindByOrderID(req.Side, req.OrderID)
	if order == nil {
		book = s.StopBook
		order = book.FindByOrderID(req.Side, req.OrderID)
		if order == nil {
			return nil, newRequestError(ReasonOrderIDNotFound)
		}
	}

	if order.Side == Buy {
		registry.Broker(order.BrokerID).IncreaseCredit(order.Value())
	}
	book.RemoveByOrderID(req.Side, req.OrderID)

	if s.State == StateAuction && book == s.Book {
		s.RecomputeOpeningPrice()
		return newOpeningPrice(s), nil
	}
	return nil, nil
}

// UpdateOrder validates and applies an update request. Inactive stop orders
// mutate in place after a credit re-reservation; regular orders that lose
// queue priority are removed and resubmitted through the matcher, with the
// pre-update snapshot restored if the resubmission does not succeed.
func (s *Security) UpdateOrder(req *EnterOrderRequest, matcher *Matcher) ([]*MatchResult, error) {
	order := s.StopBook.FindByOrderID(req.Side, req.OrderID)
	if order == nil {
		order = s.Book.FindByOrderID(req.Side, req.OrderID)
	}
	if err := s.validateUpdate(req, order); err != nil {
		return nil, err
	}

	shareholder := matcher.registry.Shareholder(order.ShareholderID)
	if req.Side == Sell {
		committed := s.Book.TotalSellQuantityByShareholder(shareholder.ID) - order.TotalQuantity() + req.Quantity
		if !shareholder.HasEnoughPositionsOn(s.ID, committed) {
			return []*MatchResult{notEnoughPositions(order.Snapshot())}, nil
		}
	}

	broker := matcher.registry.Broker(order.BrokerID)
	if order.Kind == KindStopLimit && order.Status == StatusInactive {
		return s.updateStopOrder(req, order, broker), nil
	}
	return s.updateRegularOrder(req, order, broker, matcher), nil
}

func (s *Security) validateUpdate(req *EnterOrderRequest, order *Order) error {
	if order == nil {
		return newRequestError(ReasonOrderIDNotFound)
	}
	var reasons []string
	if order.Kind == KindStopLimit && s.State == StateAuction {
		reasons = append(reasons, ReasonStopUpdateDuringAuction)
	}
	if order.Kind == KindIceberg && req.PeakSize == 0 {
		reasons = append(reasons, ReasonInvalidPeakSize)
	}
	if order.Kind != KindIceberg && req.PeakSize != 0 {
		reasons = append(reasons, ReasonPeakSizeOnNonIceberg)
	}
	if req.MinExecQuantity != order.MinExecQuantity {
		reasons = append(reasons, ReasonCannotUpdateMinExec)
	}
	if req.StopPrice != 0 && order.Kind != KindStopLimit {
		reasons = append(reasons, ReasonStopPriceOnNonStop)
	}
	if len(reasons) > 0 {
		return &RequestError{Reasons: reasons}
	}
	return nil
}

// updateStopOrder updates a still-inactive stop order in place. Buy credit is
// refunded and re-reserved against the new price and quantity, and the order
// re-queues under its new stop price. The order stays pending either way; even
// a trigger the last trade price already satisfies waits for the activation
// cascade of the next execution.
func (s *Security) updateStopOrder(req *EnterOrderRequest, order *Order, broker *Broker) []*MatchResult {
	if order.Side == Buy {
		broker.IncreaseCredit(order.Value())
		newValue := int64(req.Price) * int64(req.Quantity)
		if !broker.HasEnoughCredit(newValue) {
			broker.DecreaseCredit(order.Value())
			return []*MatchResult{notEnoughCredit(order.Snapshot())}
		}
	}
	s.StopBook.RemoveByOrderID(order.Side, order.ID)
	order.ApplyUpdate(req)
	if order.Side == Buy {
		broker.DecreaseCredit(order.Value())
	}
	s.StopBook.Enqueue(order)
	return []*MatchResult{executed(nil, nil)}
}

func (s *Security) updateRegularOrder(req *EnterOrderRequest, order *Order, broker *Broker, matcher *Matcher) []*MatchResult {
	losesPriority := order.QuantityIncreased(req.Quantity) ||
		req.Price != order.Price ||
		(order.Kind == KindIceberg && req.PeakSize > order.PeakSize)

	if order.Side == Buy {
		broker.IncreaseCredit(order.Value())
	}
	original := order.Snapshot()
	order.ApplyUpdate(req)

	if !losesPriority {
		if order.Side == Buy {
			broker.DecreaseCredit(order.Value())
		}
		return []*MatchResult{executed(nil, nil)}
	}

	s.Book.RemoveByOrderID(req.Side, req.OrderID)
	results := matcher.Execute(s, order, 0)
	last := results[len(results)-1]
	if last.Outcome != OutcomeExecuted && last.Outcome != OutcomeNewOpeningPrice {
		// Full rollback of the update attempt: the pre-update snapshot goes
		// back into the book with its credit re-reserved.
		s.Book.Enqueue(original)
		if original.Side == Buy {
			broker.DecreaseCredit(original.Value())
		}
	}
	return results
}

// crosses reports whether an incoming order trades against a resting
// candidate. Continuous regime uses the plain price-cross test; auction
// regime requires both orders on the crossing side of the discovered opening
// price.
func (s *Security) crosses(incoming, resting *Order) bool {
	if s.State == StateContinuous {
		if incoming.Side == Buy {
			return incoming.Price >= resting.Price
		}
		return incoming.Price <= resting.Price
	}
	opening := s.Auction.OpeningPrice
	if incoming.Side == Buy {
		return incoming.Price >= opening && resting.Price <= opening
	}
	return resting.Price >= opening && incoming.Price <= opening
}

// tradePrice is the execution price against a resting order: the resting
// order's limit in continuous trading, the discovered opening price in an
// auction.
func (s *Security) tradePrice(resting *Order) int {
	if s.State == StateContinuous {
		return resting.Price
	}
	return s.Auction.OpeningPrice
}

// RecomputeOpeningPrice refreshes the discovered auction opening price and
// tradable quantity from the current book.
func (s *Security) RecomputeOpeningPrice() {
	price, quantity := s.Book.CalculateOpeningPrice()
	s.Auction = AuctionData{OpeningPrice: price, TradableQuantity: quantity}
}

// ChangeMatchingState transitions the trading regime. Leaving or re-entering
// the auction regime first runs one uncrossing pass at the discovered opening
// price; the pass drains every buy order when the target regime is
// continuous.
func (s *Security) ChangeMatchingState(target MatchingState, matcher *Matcher) []*MatchResult {
	var results []*MatchResult
	if s.State == StateAuction {
		results = matcher.RunAuction(s, target == StateContinuous)
	}
	s.State = target
	if s.State == StateAuction {
		s.RecomputeOpeningPrice()
	}
	return results
}

package engine

// Matcher executes orders against a security's book. Every matching attempt
// is transactional: each trade's effects are journaled as they apply, and a
// mid-attempt failure unwinds the journal in reverse so books, balances,
// positions and the last trade price come back exactly as they were.
type Matcher struct {
	registry *Registry
}

func NewMatcher(registry *Registry) *Matcher {
	return &Matcher{registry: registry}
}

func (m *Matcher) Registry() *Registry {
	return m.registry
}

// appliedTrade is one journal entry: the trade plus everything needed to undo
// it. Resting-order bookkeeping records the pre-trade quantities and whether
// the order left or re-entered the queue.
type appliedTrade struct {
	trade *Trade

	resting              *Order
	restingPrevQty       int
	restingPrevDisplayed int
	restingRemoved       bool
	restingRequeued      bool

	incomingPrevQty       int
	incomingPrevDisplayed int

	buyerDebited  int64
	prevLastTrade int
}

// match walks the opposite queue and fills the incoming order while prices
// cross, journaling each trade. Buy orders are debited per trade at the trade
// price; resting buy orders already carry their reservation, so only the
// incoming side moves credit. Sellers are credited per trade.
//
// After the walk it enforces the minimum execution quantity and, for a buy
// remainder, reserves credit coverage at the order's own limit price. Any
// failure unwinds the journal and returns a rejection carrying the restored
// order's snapshot.
func (m *Matcher) match(s *Security, order *Order, minExecQuantity int) *MatchResult {
	book := s.Book
	var journal []appliedTrade
	var trades []*Trade
	executedQuantity := 0

	for order.Quantity > 0 && book.HasOrders(order.Side.Opposite()) {
		resting := book.First(order.Side.Opposite())
		if !s.crosses(order, resting) {
			break
		}
		if order.VisibleQuantity() == 0 {
			// A queued iceberg drained as the incoming order exposes its next
			// peak between fills without losing its turn.
			order.Replenish()
			continue
		}

		price := s.tradePrice(resting)
		quantity := min(order.VisibleQuantity(), resting.VisibleQuantity())
		trade := newTrade(s.ID, price, quantity, order, resting)

		entry := appliedTrade{
			trade:                 trade,
			resting:               resting,
			restingPrevQty:        resting.Quantity,
			restingPrevDisplayed:  resting.DisplayedQuantity,
			incomingPrevQty:       order.Quantity,
			incomingPrevDisplayed: order.DisplayedQuantity,
			prevLastTrade:         s.LastTradePrice,
		}

		if order.Side == Buy {
			buyer := m.registry.Broker(order.BrokerID)
			if !buyer.HasEnoughCredit(trade.Value()) {
				m.rollback(s, order, journal)
				return notEnoughCredit(order.Snapshot())
			}
			buyer.DecreaseCredit(trade.Value())
			entry.buyerDebited = trade.Value()
		}
		m.registry.Broker(trade.Sell.BrokerID).IncreaseCredit(trade.Value())

		if quantity == resting.VisibleQuantity() {
			book.RemoveFirst(resting.Side)
			entry.restingRemoved = true
			resting.DecreaseQuantity(quantity)
			if resting.Kind == KindIceberg && resting.Quantity > 0 {
				resting.Replenish()
				if resting.DisplayedQuantity > 0 {
					book.Enqueue(resting)
					entry.restingRequeued = true
				}
			}
		} else {
			resting.DecreaseQuantity(quantity)
		}
		order.DecreaseQuantity(quantity)

		s.LastTradePrice = trade.Price
		journal = append(journal, entry)
		trades = append(trades, trade)
		executedQuantity += quantity
	}

	if minExecQuantity > 0 && executedQuantity < minExecQuantity {
		m.rollback(s, order, journal)
		return meqNotMet(order.Snapshot())
	}

	if order.Side == Buy && order.Quantity > 0 {
		if !m.registry.Broker(order.BrokerID).HasEnoughCredit(order.Value()) {
			m.rollback(s, order, journal)
			return notEnoughCredit(order.Snapshot())
		}
	}

	return executed(order, trades)
}

// rollback unwinds journaled trades newest-first: sellers give back their
// proceeds, per-trade buy debits are refunded, resting orders regain their
// pre-trade quantities and queue slots, and the last trade price steps back.
func (m *Matcher) rollback(s *Security, order *Order, journal []appliedTrade) {
	book := s.Book
	for i := len(journal) - 1; i >= 0; i-- {
		e := journal[i]
		m.registry.Broker(e.trade.Sell.BrokerID).DecreaseCredit(e.trade.Value())
		if e.buyerDebited > 0 {
			m.registry.Broker(e.trade.Buy.BrokerID).IncreaseCredit(e.buyerDebited)
		}
		if e.restingRequeued {
			book.RemoveByOrderID(e.resting.Side, e.resting.ID)
		}
		e.resting.Quantity = e.restingPrevQty
		e.resting.DisplayedQuantity = e.restingPrevDisplayed
		if e.restingRemoved {
			book.PutFront(e.resting)
		}
		order.Quantity = e.incomingPrevQty
		order.DisplayedQuantity = e.incomingPrevDisplayed
		s.LastTradePrice = e.prevLastTrade
	}
}

// commit finalizes a successful matching attempt: a nonzero remainder is
// queued with its buy-side credit reserved at the limit price, and every
// trade's quantity moves between the two shareholders' positions.
func (m *Matcher) commit(s *Security, result *MatchResult) {
	order := result.Remainder
	if order != nil && order.Quantity > 0 {
		if order.Side == Buy {
			m.registry.Broker(order.BrokerID).DecreaseCredit(order.Value())
		}
		s.Book.Enqueue(order)
	}
	for _, t := range result.Trades {
		m.registry.Shareholder(t.Buy.ShareholderID).IncPosition(s.ID, t.Quantity)
		m.registry.Shareholder(t.Sell.ShareholderID).DecPosition(s.ID, t.Quantity)
	}
}

// stageForAuction books an order for the next uncrossing instead of matching
// it. Buy orders reserve credit at their limit price here; the reservation is
// released when the uncross drains them or the order is removed. The refreshed
// opening price is the result.
func (m *Matcher) stageForAuction(s *Security, order *Order) *MatchResult {
	if order.Side == Buy {
		broker := m.registry.Broker(order.BrokerID)
		if !broker.HasEnoughCredit(order.Value()) {
			return notEnoughCredit(order.Snapshot())
		}
		broker.DecreaseCredit(order.Value())
	}
	s.Book.Enqueue(order)
	s.RecomputeOpeningPrice()
	return newOpeningPrice(s)
}

// Execute runs one order through the current regime. In the auction regime
// the order is staged; in continuous trading it matches immediately, its
// effects commit, and any stop orders the new last trade price triggers are
// activated. The order's own result is always last in the returned slice.
func (m *Matcher) Execute(s *Security, order *Order, minExecQuantity int) []*MatchResult {
	if s.State == StateAuction {
		return []*MatchResult{m.stageForAuction(s, order)}
	}

	result := m.match(s, order, minExecQuantity)
	if result.Outcome.Rejected() {
		return []*MatchResult{result}
	}
	m.commit(s, result)

	results := m.activatePending(s)
	return append(results, result)
}

// nextTriggered scans the pending stop book, sells then buys, in queue order
// and returns the first order whose trigger holds at the current last trade
// price.
func (m *Matcher) nextTriggered(s *Security) *Order {
	for _, o := range s.StopBook.SellQueue() {
		if o.CanActivate(s.LastTradePrice) {
			return o
		}
	}
	for _, o := range s.StopBook.BuyQueue() {
		if o.CanActivate(s.LastTradePrice) {
			return o
		}
	}
	return nil
}

// activatePending drains triggered stop orders to a fixed point. Each
// activation refunds the buy-side entry reservation and converts the order to
// a plain active order; in continuous trading it matches and commits right
// away (and its trades may trigger further stops), in the auction regime it
// is staged for the next uncross.
func (m *Matcher) activatePending(s *Security) []*MatchResult {
	var results []*MatchResult
	for {
		triggered := m.nextTriggered(s)
		if triggered == nil {
			return results
		}
		s.StopBook.RemoveByOrderID(triggered.Side, triggered.ID)
		if triggered.Side == Buy {
			m.registry.Broker(triggered.BrokerID).IncreaseCredit(triggered.Value())
		}
		activated := activateStopOrder(triggered)

		if s.State == StateAuction {
			results = append(results, stopOrderActivated(activated.Snapshot(), nil))
			results = append(results, m.stageForAuction(s, activated))
			continue
		}

		result := m.match(s, activated, 0)
		if result.Outcome.Rejected() {
			results = append(results, result)
			continue
		}
		m.commit(s, result)
		results = append(results, stopOrderActivated(result.Remainder, result.Trades))
	}
}

// RunAuction uncrosses the book at the discovered opening price. Eligible buy
// orders (all of them when draining toward continuous trading, otherwise
// those at or above the opening price) leave the queue with their reservation
// refunded and rematch as incoming orders, trading at the opening price and
// re-reserving any remainder at their own limit. Triggered stop orders are
// then activated.
func (m *Matcher) RunAuction(s *Security, includeAllBuys bool) []*MatchResult {
	s.RecomputeOpeningPrice()
	opening := s.Auction.OpeningPrice

	staged := make([]*Order, 0, len(s.Book.BuyQueue()))
	for _, o := range s.Book.BuyQueue() {
		if includeAllBuys || o.Price >= opening {
			staged = append(staged, o)
		}
	}

	var results []*MatchResult
	for _, order := range staged {
		s.Book.RemoveByOrderID(Buy, order.ID)
		m.registry.Broker(order.BrokerID).IncreaseCredit(order.Value())
		result := m.match(s, order, 0)
		if result.Outcome.Rejected() {
			results = append(results, result)
			continue
		}
		m.commit(s, result)
		if len(result.Trades) > 0 {
			results = append(results, result)
		}
	}

	return append(results, m.activatePending(s)...)
}

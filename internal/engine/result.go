package engine

// Outcome classifies the result of handling one order through the matcher.
type Outcome int8

const (
	OutcomeExecuted Outcome = iota
	OutcomeNotEnoughCredit
	OutcomeNotEnoughPositions
	OutcomeMEQNotMet
	OutcomeStopOrderActivated
	OutcomeNoMatch
	OutcomeNewOpeningPrice
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExecuted:
		return "EXECUTED"
	case OutcomeNotEnoughCredit:
		return "NOT_ENOUGH_CREDIT"
	case OutcomeNotEnoughPositions:
		return "NOT_ENOUGH_POSITIONS"
	case OutcomeMEQNotMet:
		return "MINIMUM_EXECUTION_QUANTITY_NOT_MET"
	case OutcomeStopOrderActivated:
		return "STOP_ORDER_ACTIVATED"
	case OutcomeNoMatch:
		return "NO_MATCHING_OCCURRED"
	case OutcomeNewOpeningPrice:
		return "NEW_OPENING_PRICE_CALCULATED"
	default:
		return "UNKNOWN"
	}
}

// Rejected reports whether the outcome is a business rejection that left all
// state untouched.
func (o Outcome) Rejected() bool {
	switch o {
	case OutcomeNotEnoughCredit, OutcomeNotEnoughPositions, OutcomeMEQNotMet:
		return true
	}
	return false
}

// AuctionData is the opening price and tradable quantity discovered while a
// security is in the auction regime.
type AuctionData struct {
	OpeningPrice     int
	TradableQuantity int
}

// Trade records one execution between a buy and a sell order. Buy and Sell
// are snapshots taken at trade time with the traded quantity; the live orders
// keep mutating after the trade. Immutable once created.
type Trade struct {
	SecurityID string
	Price      int
	Quantity   int
	Buy        *Order
	Sell       *Order
}

func newTrade(securityID string, price, quantity int, a, b *Order) *Trade {
	t := &Trade{SecurityID: securityID, Price: price, Quantity: quantity}
	snapA := a.SnapshotWithQuantity(quantity)
	snapB := b.SnapshotWithQuantity(quantity)
	if a.Side == Buy {
		t.Buy, t.Sell = snapA, snapB
	} else {
		t.Buy, t.Sell = snapB, snapA
	}
	return t
}

// Value is the traded price times quantity.
func (t *Trade) Value() int64 {
	return int64(t.Price) * int64(t.Quantity)
}

// MatchResult is one tagged outcome of a matching attempt: the resulting
// order snapshot or remainder (when any), the trades produced in order, and
// the security's auction data for the opening-price outcome.
type MatchResult struct {
	Outcome   Outcome
	Remainder *Order
	Trades    []*Trade
	Auction   *AuctionData
}

func executed(remainder *Order, trades []*Trade) *MatchResult {
	return &MatchResult{Outcome: OutcomeExecuted, Remainder: remainder, Trades: trades}
}

func notEnoughCredit(snapshot *Order) *MatchResult {
	return &MatchResult{Outcome: OutcomeNotEnoughCredit, Remainder: snapshot}
}

func notEnoughPositions(snapshot *Order) *MatchResult {
	return &MatchResult{Outcome: OutcomeNotEnoughPositions, Remainder: snapshot}
}

func meqNotMet(snapshot *Order) *MatchResult {
	return &MatchResult{Outcome: OutcomeMEQNotMet, Remainder: snapshot}
}

func stopOrderActivated(remainder *Order, trades []*Trade) *MatchResult {
	return &MatchResult{Outcome: OutcomeStopOrderActivated, Remainder: remainder, Trades: trades}
}

func noMatch(snapshot *Order) *MatchResult {
	return &MatchResult{Outcome: OutcomeNoMatch, Remainder: snapshot}
}

func newOpeningPrice(s *Security) *MatchResult {
	auction := s.Auction
	return &MatchResult{Outcome: OutcomeNewOpeningPrice, Auction: &auction}
}

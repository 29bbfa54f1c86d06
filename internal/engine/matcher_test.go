package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testVenue wires a registry with one security, two brokers and two
// shareholders: broker/shareholder 1 buys, broker/shareholder 2 sells.
type testVenue struct {
	registry *Registry
	matcher  *Matcher
	security *Security
	buyer    *Broker
	seller   *Broker
}

func newTestVenue(t *testing.T, buyerCredit, sellerCredit int64, sellerPosition int) *testVenue {
	t.Helper()
	reg := NewRegistry()
	sec := NewSecurity("IRO3", 1, 1)
	reg.AddSecurity(sec)

	buyer := NewBroker(1, buyerCredit)
	seller := NewBroker(2, sellerCredit)
	reg.AddBroker(buyer)
	reg.AddBroker(seller)

	sh1 := NewShareholder(1)
	sh2 := NewShareholder(2)
	sh2.IncPosition(sec.ID, sellerPosition)
	reg.AddShareholder(sh1)
	reg.AddShareholder(sh2)

	return &testVenue{
		registry: reg,
		matcher:  NewMatcher(reg),
		security: sec,
		buyer:    buyer,
		seller:   seller,
	}
}

func (v *testVenue) enter(t *testing.T, req *EnterOrderRequest) []*MatchResult {
	t.Helper()
	broker := v.registry.Broker(req.BrokerID)
	shareholder := v.registry.Shareholder(req.ShareholderID)
	require.NotNil(t, broker)
	require.NotNil(t, shareholder)
	return v.security.NewOrder(req, broker, shareholder, v.matcher)
}

func buyOrder(id int64, quantity, price int) *EnterOrderRequest {
	return &EnterOrderRequest{
		EntryType: EntryNew, RequestID: id, SecurityID: "IRO3", OrderID: id,
		Side: Buy, Quantity: quantity, Price: price, BrokerID: 1, ShareholderID: 1,
	}
}

func sellOrder(id int64, quantity, price int) *EnterOrderRequest {
	return &EnterOrderRequest{
		EntryType: EntryNew, RequestID: id, SecurityID: "IRO3", OrderID: id,
		Side: Sell, Quantity: quantity, Price: price, BrokerID: 2, ShareholderID: 2,
	}
}

func lastResult(t *testing.T, results []*MatchResult) *MatchResult {
	t.Helper()
	require.NotEmpty(t, results)
	return results[len(results)-1]
}

func TestMatchSweepsBookInPriceTimeOrder(t *testing.T) {
	v := newTestVenue(t, 100_000_000, 0, 2000)

	v.enter(t, sellOrder(1, 350, 15800))
	v.enter(t, sellOrder(2, 285, 15810))
	v.enter(t, sellOrder(3, 800, 15810))
	v.enter(t, sellOrder(4, 340, 15820))
	v.enter(t, sellOrder(5, 65, 15820))

	results := v.enter(t, buyOrder(6, 2000, 15820))
	result := lastResult(t, results)

	require.Equal(t, OutcomeExecuted, result.Outcome)
	require.Len(t, result.Trades, 5)
	assert.Equal(t, 15800, result.Trades[0].Price)
	assert.Equal(t, 350, result.Trades[0].Quantity)
	assert.Equal(t, 15810, result.Trades[1].Price)
	assert.Equal(t, 285, result.Trades[1].Quantity)
	assert.Equal(t, 800, result.Trades[2].Quantity)
	assert.Equal(t, 340, result.Trades[3].Quantity)
	assert.Equal(t, 65, result.Trades[4].Quantity)

	// 1840 traded for 29,090,950; the 160 remainder reserves 160 x 15820.
	assert.Equal(t, int64(68_377_850), v.buyer.Credit())
	assert.Equal(t, int64(29_090_950), v.seller.Credit())

	remainder := v.security.Book.First(Buy)
	require.NotNil(t, remainder)
	assert.Equal(t, 160, remainder.Quantity)
	assert.Equal(t, 15820, remainder.Price)
	assert.False(t, v.security.Book.HasOrders(Sell))
	assert.Equal(t, 15820, v.security.LastTradePrice)

	assert.Equal(t, 1840, v.registry.Shareholder(1).PositionOn("IRO3"))
	assert.Equal(t, 160, v.registry.Shareholder(2).PositionOn("IRO3"))
}

func TestIcebergReplenishLosesQueuePriority(t *testing.T) {
	v := newTestVenue(t, 100_000_000, 0, 1000)

	iceberg := sellOrder(1, 450, 100)
	iceberg.PeakSize = 100
	v.enter(t, iceberg)
	v.enter(t, sellOrder(2, 150, 100))

	result := lastResult(t, v.enter(t, buyOrder(3, 120, 100)))
	require.Equal(t, OutcomeExecuted, result.Outcome)
	require.Len(t, result.Trades, 2)
	assert.Equal(t, 100, result.Trades[0].Quantity)
	assert.Equal(t, int64(1), result.Trades[0].Sell.ID)
	assert.Equal(t, 20, result.Trades[1].Quantity)
	assert.Equal(t, int64(2), result.Trades[1].Sell.ID)

	// The refreshed peak queues behind the order that was already waiting.
	queue := v.security.Book.SellQueue()
	require.Len(t, queue, 2)
	assert.Equal(t, int64(2), queue[0].ID)
	assert.Equal(t, 130, queue[0].Quantity)
	assert.Equal(t, int64(1), queue[1].ID)
	assert.Equal(t, 350, queue[1].Quantity)
	assert.Equal(t, 100, queue[1].DisplayedQuantity)
}

func TestMinimumExecutionQuantityNotMetRollsBack(t *testing.T) {
	v := newTestVenue(t, 100_000, 50_000, 1000)

	v.enter(t, sellOrder(1, 100, 100))

	req := buyOrder(2, 300, 100)
	req.MinExecQuantity = 200
	results := v.enter(t, req)

	require.Len(t, results, 1)
	assert.Equal(t, OutcomeMEQNotMet, results[0].Outcome)
	require.NotNil(t, results[0].Remainder)
	assert.Equal(t, 300, results[0].Remainder.Quantity)

	// Nothing moved: credits, book and last trade price are untouched.
	assert.Equal(t, int64(100_000), v.buyer.Credit())
	assert.Equal(t, int64(50_000), v.seller.Credit())
	resting := v.security.Book.First(Sell)
	require.NotNil(t, resting)
	assert.Equal(t, 100, resting.Quantity)
	assert.Equal(t, 0, v.security.LastTradePrice)
	assert.False(t, v.security.Book.HasOrders(Buy))
	assert.Equal(t, 0, v.registry.Shareholder(1).PositionOn("IRO3"))
	assert.Equal(t, 1000, v.registry.Shareholder(2).PositionOn("IRO3"))
}

func TestMinimumExecutionQuantityMetQueuesRemainder(t *testing.T) {
	v := newTestVenue(t, 100_000, 0, 1000)

	v.enter(t, sellOrder(1, 100, 100))

	req := buyOrder(2, 300, 100)
	req.MinExecQuantity = 100
	result := lastResult(t, v.enter(t, req))

	require.Equal(t, OutcomeExecuted, result.Outcome)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, 100, result.Trades[0].Quantity)

	remainder := v.security.Book.First(Buy)
	require.NotNil(t, remainder)
	assert.Equal(t, 200, remainder.Quantity)
	// 100 traded plus 200 reserved, all at 100.
	assert.Equal(t, int64(70_000), v.buyer.Credit())
}

func TestBuyerCreditExhaustedMidSweepRollsBack(t *testing.T) {
	v := newTestVenue(t, 25_000, 0, 1000)

	v.enter(t, sellOrder(1, 100, 100))
	v.enter(t, sellOrder(2, 100, 200))

	results := v.enter(t, buyOrder(3, 200, 200))
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeNotEnoughCredit, results[0].Outcome)

	assert.Equal(t, int64(25_000), v.buyer.Credit())
	assert.Equal(t, int64(0), v.seller.Credit())
	queue := v.security.Book.SellQueue()
	require.Len(t, queue, 2)
	assert.Equal(t, int64(1), queue[0].ID)
	assert.Equal(t, 100, queue[0].Quantity)
	assert.Equal(t, int64(2), queue[1].ID)
	assert.Equal(t, 0, v.security.LastTradePrice)
}

func TestBuyRemainderMustBeCoveredAtLimitPrice(t *testing.T) {
	// 10,000 covers the single trade but not the remainder reservation.
	v := newTestVenue(t, 15_000, 0, 1000)

	v.enter(t, sellOrder(1, 100, 100))

	results := v.enter(t, buyOrder(2, 200, 100))
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeNotEnoughCredit, results[0].Outcome)

	assert.Equal(t, int64(15_000), v.buyer.Credit())
	resting := v.security.Book.First(Sell)
	require.NotNil(t, resting)
	assert.Equal(t, 100, resting.Quantity)
	assert.False(t, v.security.Book.HasOrders(Buy))
}

func TestSellerAlwaysCreditedPerTrade(t *testing.T) {
	v := newTestVenue(t, 1_000_000, 0, 1000)

	v.enter(t, buyOrder(1, 100, 150))
	result := lastResult(t, v.enter(t, sellOrder(2, 40, 150)))

	require.Equal(t, OutcomeExecuted, result.Outcome)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, int64(6_000), v.seller.Credit())

	// The resting buyer paid up front at enqueue time; no further debit.
	assert.Equal(t, int64(1_000_000-100*150), v.buyer.Credit())
	remainder := v.security.Book.First(Buy)
	require.NotNil(t, remainder)
	assert.Equal(t, 60, remainder.Quantity)
}

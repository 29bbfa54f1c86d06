package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuctionEntryStagesAndReportsOpeningPrice(t *testing.T) {
	v := newTestVenue(t, 100_000_000, 100_000_000, 1000)
	v.security.State = StateAuction

	results := v.enter(t, sellOrder(1, 300, 15810))
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeNewOpeningPrice, results[0].Outcome)
	require.NotNil(t, results[0].Auction)
	assert.Equal(t, 0, results[0].Auction.OpeningPrice)

	results = v.enter(t, buyOrder(2, 300, 15820))
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeNewOpeningPrice, results[0].Outcome)
	require.NotNil(t, results[0].Auction)
	assert.Equal(t, 15810, results[0].Auction.OpeningPrice)
	assert.Equal(t, 300, results[0].Auction.TradableQuantity)

	// No trades yet; the buy reservation is at its own limit price.
	assert.Equal(t, int64(100_000_000-300*15820), v.buyer.Credit())
	assert.Equal(t, 0, v.security.LastTradePrice)
}

func TestAuctionBuyWithoutCreditIsRejected(t *testing.T) {
	v := newTestVenue(t, 1_000, 0, 0)
	v.security.State = StateAuction

	results := v.enter(t, buyOrder(1, 100, 100))
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeNotEnoughCredit, results[0].Outcome)
	assert.False(t, v.security.Book.HasOrders(Buy))
	assert.Equal(t, int64(1_000), v.buyer.Credit())
}

func TestUncrossTradesAtOpeningPrice(t *testing.T) {
	v := newTestVenue(t, 100_000_000, 100_000_000, 1000)
	v.security.State = StateAuction

	v.enter(t, sellOrder(1, 300, 15810))
	v.enter(t, buyOrder(2, 300, 15820))

	results := v.security.ChangeMatchingState(StateContinuous, v.matcher)
	require.Len(t, results, 1)
	require.Equal(t, OutcomeExecuted, results[0].Outcome)
	require.Len(t, results[0].Trades, 1)
	trade := results[0].Trades[0]
	assert.Equal(t, 15810, trade.Price)
	assert.Equal(t, 300, trade.Quantity)

	// The buy reserved at 15820 but traded at the 15810 opening price.
	assert.Equal(t, int64(95_257_000), v.buyer.Credit())
	assert.Equal(t, int64(104_743_000), v.seller.Credit())
	assert.Equal(t, 300, v.registry.Shareholder(1).PositionOn("IRO3"))
	assert.Equal(t, 700, v.registry.Shareholder(2).PositionOn("IRO3"))
	assert.Equal(t, 15810, v.security.LastTradePrice)
	assert.False(t, v.security.Book.HasOrders(Buy))
	assert.False(t, v.security.Book.HasOrders(Sell))
	assert.Equal(t, StateContinuous, v.security.State)
}

func TestUncrossSweepsMultipleSellLevels(t *testing.T) {
	v := newTestVenue(t, 100_000_000, 100_000_000, 1000)
	v.security.State = StateAuction

	v.enter(t, sellOrder(1, 285, 15800))
	v.enter(t, sellOrder(2, 15, 15810))
	v.enter(t, buyOrder(3, 300, 15820))
	assert.Equal(t, 15810, v.security.Auction.OpeningPrice)
	assert.Equal(t, 300, v.security.Auction.TradableQuantity)

	results := v.security.ChangeMatchingState(StateContinuous, v.matcher)
	require.Len(t, results, 1)
	require.Equal(t, OutcomeExecuted, results[0].Outcome)
	require.Len(t, results[0].Trades, 2)

	// One staged buy sweeps both sell levels, every fill at the opening price.
	assert.Equal(t, 15810, results[0].Trades[0].Price)
	assert.Equal(t, 285, results[0].Trades[0].Quantity)
	assert.Equal(t, int64(1), results[0].Trades[0].Sell.ID)
	assert.Equal(t, 15810, results[0].Trades[1].Price)
	assert.Equal(t, 15, results[0].Trades[1].Quantity)
	assert.Equal(t, int64(2), results[0].Trades[1].Sell.ID)

	assert.Equal(t, int64(95_257_000), v.buyer.Credit())
	assert.Equal(t, int64(104_743_000), v.seller.Credit())
	assert.Equal(t, 300, v.registry.Shareholder(1).PositionOn("IRO3"))
	assert.Equal(t, 700, v.registry.Shareholder(2).PositionOn("IRO3"))
	assert.Equal(t, 15810, v.security.LastTradePrice)
	assert.False(t, v.security.Book.HasOrders(Buy))
	assert.False(t, v.security.Book.HasOrders(Sell))
}

func TestUncrossBetweenAuctionsKeepsBelowOpeningBuys(t *testing.T) {
	v := newTestVenue(t, 1_000_000, 0, 1000)
	v.security.State = StateAuction

	v.enter(t, sellOrder(1, 100, 100))
	v.enter(t, buyOrder(2, 100, 102))
	v.enter(t, buyOrder(3, 50, 95))

	results := v.security.ChangeMatchingState(StateAuction, v.matcher)
	require.Len(t, results, 1)
	require.Len(t, results[0].Trades, 1)
	assert.Equal(t, 100, results[0].Trades[0].Price)
	assert.Equal(t, 100, results[0].Trades[0].Quantity)

	// The 95 buy sat below the opening price and stays staged.
	require.True(t, v.security.Book.HasOrders(Buy))
	assert.Equal(t, int64(3), v.security.Book.First(Buy).ID)
	assert.Equal(t, StateAuction, v.security.State)
	assert.Equal(t, 0, v.security.Auction.OpeningPrice)
	assert.Equal(t, int64(1_000_000-100*100-50*95), v.buyer.Credit())
}

func TestRegimeChangeToContinuousDrainsAllBuys(t *testing.T) {
	v := newTestVenue(t, 1_000_000, 0, 1000)
	v.security.State = StateAuction

	v.enter(t, sellOrder(1, 100, 100))
	v.enter(t, buyOrder(2, 100, 102))
	v.enter(t, buyOrder(3, 50, 95))

	results := v.security.ChangeMatchingState(StateContinuous, v.matcher)
	require.Len(t, results, 1)
	require.Len(t, results[0].Trades, 1)
	assert.Equal(t, 100, results[0].Trades[0].Price)

	// The non-crossing buy re-queues and keeps its reservation in the
	// continuous book.
	resting := v.security.Book.First(Buy)
	require.NotNil(t, resting)
	assert.Equal(t, int64(3), resting.ID)
	assert.Equal(t, int64(1_000_000-100*100-50*95), v.buyer.Credit())
	assert.Equal(t, StateContinuous, v.security.State)
}

func TestAuctionDeleteRecomputesOpeningPrice(t *testing.T) {
	v := newTestVenue(t, 1_000_000, 0, 1000)
	v.security.State = StateAuction

	v.enter(t, sellOrder(1, 100, 100))
	v.enter(t, buyOrder(2, 100, 100))
	assert.Equal(t, 100, v.security.Auction.OpeningPrice)

	result, err := v.security.DeleteOrder(&DeleteOrderRequest{SecurityID: "IRO3", Side: Buy, OrderID: 2}, v.registry)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, OutcomeNewOpeningPrice, result.Outcome)
	require.NotNil(t, result.Auction)
	assert.Equal(t, 0, result.Auction.OpeningPrice)
	assert.Equal(t, int64(1_000_000), v.buyer.Credit())
}

func TestParkedStopActivatesAtUncross(t *testing.T) {
	// A stop parked before the regime change survives the auction and
	// activates when the uncross moves the last trade price through it.
	v := newTestVenue(t, 1_000_000, 0, 1000)
	v.security.LastTradePrice = 100

	stop := buyOrder(1, 50, 90)
	stop.StopPrice = 95
	results := v.enter(t, stop)
	assert.Equal(t, OutcomeNoMatch, results[0].Outcome)

	v.security.ChangeMatchingState(StateAuction, v.matcher)
	v.enter(t, sellOrder(2, 100, 90))
	v.enter(t, buyOrder(3, 100, 92))

	results = v.security.ChangeMatchingState(StateContinuous, v.matcher)
	require.Len(t, results, 3)
	require.Equal(t, OutcomeExecuted, results[0].Outcome)
	require.Len(t, results[0].Trades, 1)
	assert.Equal(t, 90, results[0].Trades[0].Price)
	assert.Equal(t, OutcomeStopOrderActivated, results[1].Outcome)
	assert.Equal(t, OutcomeNewOpeningPrice, results[2].Outcome)

	// The activated stop was staged while the uncross still ran under the
	// auction regime and now rests as a plain buy.
	assert.False(t, v.security.StopBook.HasOrders(Buy))
	resting := v.security.Book.First(Buy)
	require.NotNil(t, resting)
	assert.Equal(t, int64(1), resting.ID)
	assert.Equal(t, StatusQueued, resting.Status)
	assert.Equal(t, 90, v.security.LastTradePrice)
	assert.Equal(t, int64(986_500), v.buyer.Credit())
	assert.Equal(t, StateContinuous, v.security.State)
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	buy, err := ParseSide("BUY")
	require.NoError(t, err)
	assert.Equal(t, Buy, buy)

	sell, err := ParseSide("SELL")
	require.NoError(t, err)
	assert.Equal(t, Sell, sell)

	_, err = ParseSide("HOLD")
	assert.Error(t, err)

	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
}

func TestIcebergVisibleQuantity(t *testing.T) {
	o := &Order{Kind: KindIceberg, Quantity: 500, PeakSize: 100, DisplayedQuantity: 100, Status: StatusNew}

	// Before queueing the whole quantity is exposed to the matcher.
	assert.Equal(t, 500, o.VisibleQuantity())

	o.Queue()
	assert.Equal(t, 100, o.VisibleQuantity())
	assert.Equal(t, 500, o.TotalQuantity())
}

func TestIcebergDecreaseQuantityLockstep(t *testing.T) {
	o := &Order{Kind: KindIceberg, Quantity: 500, PeakSize: 100, DisplayedQuantity: 100, Status: StatusQueued}

	o.DecreaseQuantity(60)
	assert.Equal(t, 440, o.Quantity)
	assert.Equal(t, 40, o.DisplayedQuantity)

	o.Replenish()
	assert.Equal(t, 100, o.DisplayedQuantity)

	assert.Panics(t, func() { o.DecreaseQuantity(101) })
}

func TestIcebergReplenishCapsAtRemaining(t *testing.T) {
	o := &Order{Kind: KindIceberg, Quantity: 70, PeakSize: 100, DisplayedQuantity: 0, Status: StatusQueued}
	o.Replenish()
	assert.Equal(t, 70, o.DisplayedQuantity)
}

func TestQueuesBeforeRegularOrders(t *testing.T) {
	high := &Order{Side: Buy, Price: 110}
	low := &Order{Side: Buy, Price: 100}
	assert.True(t, high.QueuesBefore(low))
	assert.False(t, low.QueuesBefore(high))

	cheap := &Order{Side: Sell, Price: 100}
	dear := &Order{Side: Sell, Price: 110}
	assert.True(t, cheap.QueuesBefore(dear))
	assert.False(t, dear.QueuesBefore(cheap))

	// Equal prices keep arrival order.
	same := &Order{Side: Buy, Price: 100}
	assert.False(t, low.QueuesBefore(same))
}

func TestQueuesBeforePendingStopOrders(t *testing.T) {
	buyLow := &Order{Side: Buy, Status: StatusInactive, StopPrice: 100}
	buyHigh := &Order{Side: Buy, Status: StatusInactive, StopPrice: 120}
	assert.True(t, buyLow.QueuesBefore(buyHigh))
	assert.False(t, buyHigh.QueuesBefore(buyLow))

	sellLow := &Order{Side: Sell, Status: StatusInactive, StopPrice: 100}
	sellHigh := &Order{Side: Sell, Status: StatusInactive, StopPrice: 120}
	assert.True(t, sellHigh.QueuesBefore(sellLow))
	assert.False(t, sellLow.QueuesBefore(sellHigh))
}

func TestCanActivate(t *testing.T) {
	sellStop := &Order{Kind: KindStopLimit, Side: Sell, StopPrice: 15300}
	assert.False(t, sellStop.CanActivate(15299))
	assert.True(t, sellStop.CanActivate(15300))
	assert.True(t, sellStop.CanActivate(16000))

	buyStop := &Order{Kind: KindStopLimit, Side: Buy, StopPrice: 15300}
	assert.True(t, buyStop.CanActivate(15300))
	assert.True(t, buyStop.CanActivate(15000))
	assert.False(t, buyStop.CanActivate(15301))

	plain := &Order{Kind: KindLimit, Side: Sell, Price: 100}
	assert.False(t, plain.CanActivate(200))
}

func TestApplyUpdateIceberg(t *testing.T) {
	o := &Order{Kind: KindIceberg, Quantity: 300, Price: 100, PeakSize: 50, DisplayedQuantity: 20, Status: StatusQueued}

	// Growing the peak re-exposes up to the new peak.
	o.ApplyUpdate(&EnterOrderRequest{Quantity: 300, Price: 100, PeakSize: 80})
	assert.Equal(t, 80, o.PeakSize)
	assert.Equal(t, 80, o.DisplayedQuantity)

	// Shrinking the peak leaves the current exposure alone.
	o.ApplyUpdate(&EnterOrderRequest{Quantity: 300, Price: 100, PeakSize: 40})
	assert.Equal(t, 40, o.PeakSize)
	assert.Equal(t, 80, o.DisplayedQuantity)
}

func TestSnapshotIsDetached(t *testing.T) {
	o := &Order{ID: 7, Kind: KindLimit, Side: Buy, Quantity: 100, Price: 50, Status: StatusQueued}
	snap := o.SnapshotWithQuantity(40)

	assert.Equal(t, StatusSnapshot, snap.Status)
	assert.Equal(t, 40, snap.Quantity)

	o.DecreaseQuantity(100)
	assert.Equal(t, 40, snap.Quantity)
}

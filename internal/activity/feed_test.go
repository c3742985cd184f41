package activity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/matchbook/internal/orderbook/core"
	"github.com/zappabad/matchbook/internal/trader"
)

func TestFeedKeepsMostRecent(t *testing.T) {
	f := NewFeed(Config{Capacity: 2})
	defer f.Close()

	for i := int64(1); i <= 3; i++ {
		f.Add(trader.TraderEvent{TraderID: 1, Tick: i, Type: trader.TraderEventCanceled, Quantity: 1, OrderID: core.OrderID(i)})
	}

	got := f.Recent(10)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].Tick)
	assert.Equal(t, int64(3), got[1].Tick)
	assert.Equal(t, 3, f.Count(trader.TraderEventCanceled))
	assert.Len(t, f.Recent(1), 1)
	assert.Nil(t, f.Recent(0))
}

func TestFeedAttach(t *testing.T) {
	f := NewFeed(DefaultConfig())
	events := make(chan trader.TraderEvent, 4)
	f.Attach(events)

	events <- trader.TraderEvent{TraderID: 3, Type: trader.TraderEventError, Message: "boom"}
	close(events)

	require.Eventually(t, func() bool { return f.Count(trader.TraderEventError) == 1 }, time.Second, 5*time.Millisecond)
	f.Close()
	assert.Equal(t, "T3 error: boom", f.Recent(1)[0].Text)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		ev   trader.TraderEvent
		want string
	}{
		{
			"limit",
			trader.TraderEvent{TraderID: 4, Type: trader.TraderEventPlacedOrder, OrderID: 9,
				Intent: &trader.OrderIntent{Kind: core.OrderKindLimit, Side: core.SideBuy, Price: decimal.RequireFromString("99.5"), Quantity: 3}},
			"T4 BUY 3 @ 99.5 #9",
		},
		{
			"market",
			trader.TraderEvent{TraderID: 4, Type: trader.TraderEventPlacedOrder, OrderID: 10,
				Intent: &trader.OrderIntent{Kind: core.OrderKindMarket, Side: core.SideSell, Quantity: 2}},
			"T4 SELL 2 @ MKT #10",
		},
		{
			"fill",
			trader.TraderEvent{TraderID: 2, Type: trader.TraderEventFilled, OrderID: 1, Quantity: 5, Price: decimal.NewFromInt(100)},
			"T2 filled 5 @ 100.00 #1",
		},
		{
			"cancel",
			trader.TraderEvent{TraderID: 2, Type: trader.TraderEventCanceled, OrderID: 1, Quantity: 5},
			"T2 canceled 5 #1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.ev))
		})
	}
}

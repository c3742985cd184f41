package view

import (
	"github.com/shopspring/decimal"

	"github.com/zappabad/matchbook/internal/orderbook/core"
)

// Level represents aggregate remaining size at a price level.
type Level struct {
	Price    core.Price
	Quantity core.Quantity
	Orders   int
}

// Levels folds resting orders, already in priority order, into price
// levels. Level order follows the input, so best comes first.
func Levels(orders []core.RestingOrder) []Level {
	var out []Level
	for _, o := range orders {
		if n := len(out); n > 0 && out[n-1].Price.Equal(o.Price) {
			out[n-1].Quantity += o.Remaining
			out[n-1].Orders++
			continue
		}
		out = append(out, Level{Price: o.Price, Quantity: o.Remaining, Orders: 1})
	}
	return out
}

// Top returns at most n levels from the front of levels.
func Top(levels []Level, n int) []Level {
	if n < 0 || n >= len(levels) {
		return levels
	}
	return levels[:n]
}

// Snapshot is a consistent read of the book taken between two commands.
type Snapshot struct {
	CurrentPrice core.Price
	BestBid      core.Price
	BestAsk      core.Price
	BidVolume    core.Quantity
	AskVolume    core.Quantity
	Bids         []Level
	Asks         []Level
	OpenOrders   int
}

// Spread returns best ask minus best bid, or false when a side is empty.
func (s Snapshot) Spread() (core.Price, bool) {
	if s.BestBid.IsZero() || s.BestAsk.IsZero() {
		return decimal.Zero, false
	}
	return s.BestAsk.Sub(s.BestBid), true
}

// Capture reads a snapshot straight off c. The caller must own c.
func Capture(c *core.Core) Snapshot {
	return Snapshot{
		CurrentPrice: c.CurrentPrice(),
		BestBid:      c.BestBid(),
		BestAsk:      c.BestAsk(),
		BidVolume:    c.BidVolume(),
		AskVolume:    c.AskVolume(),
		Bids:         Levels(c.Orders(core.SideBuy)),
		Asks:         Levels(c.Orders(core.SideSell)),
		OpenOrders:   c.OpenOrders(),
	}
}

package strategy

import (
	"context"

	"github.com/zappabad/matchbook/internal/orderbook/core"
	"github.com/zappabad/matchbook/internal/orderbook/view"
	"github.com/zappabad/matchbook/internal/trader"
)

// MarketReader provides read-only access to market data for one tick.
type MarketReader interface {
	Snapshot() view.Snapshot
	// MeanClose averages the closes of the last n days.
	MeanClose(days int) (core.Price, bool)
}

// OrderSender provides the ability to send orders to the book.
type OrderSender interface {
	Submit(ctx context.Context, qty core.Quantity, side core.Side, kind core.OrderKind, price core.Price) (core.SubmitReport, error)
	Cancel(ctx context.Context, id core.OrderID) (core.CancelReport, bool, error)
	Query(ctx context.Context, id core.OrderID) (core.Result, error)
	Snapshot(ctx context.Context) (view.Snapshot, error)
}

// Strategy is the interface for trading strategies.
type Strategy interface {
	Name() string
	// Step is called on each tick with the cash and position the trader
	// can still commit. It returns the orders to place.
	Step(ctx context.Context, tick int64, mr MarketReader, available trader.Account) []trader.OrderIntent
}

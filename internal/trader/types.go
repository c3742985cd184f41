package trader

import (
	"github.com/shopspring/decimal"

	"github.com/zappabad/matchbook/internal/orderbook/core"
)

// TraderID uniquely identifies a trader.
type TraderID int64

// Account is a trader's holdings. Position is in units of the instrument.
type Account struct {
	TraderID TraderID
	Strategy string
	Cash     decimal.Decimal
	Position int64
}

// Equity values the account at price.
func (a Account) Equity(price core.Price) decimal.Decimal {
	return a.Cash.Add(price.Mul(decimal.NewFromInt(a.Position)))
}

// OrderIntent represents a trader's intention to place an order.
type OrderIntent struct {
	Kind     core.OrderKind
	Side     core.Side
	Price    core.Price // for limit orders only
	Quantity core.Quantity
}

// TraderEventType indicates the type of trader event.
type TraderEventType int

const (
	TraderEventPlacedOrder TraderEventType = iota
	TraderEventFilled
	TraderEventCanceled
	TraderEventError
)

func (t TraderEventType) String() string {
	switch t {
	case TraderEventPlacedOrder:
		return "PLACED"
	case TraderEventFilled:
		return "FILLED"
	case TraderEventCanceled:
		return "CANCELED"
	case TraderEventError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// TraderEvent represents an action or event from a trader.
type TraderEvent struct {
	TraderID TraderID
	Tick     int64
	Type     TraderEventType
	OrderID  core.OrderID
	Intent   *OrderIntent    // for PlacedOrder
	Quantity core.Quantity   // for Filled and Canceled
	Price    decimal.Decimal // average price of the fill delta
	Message  string          // for errors
}

package strategy

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/zappabad/matchbook/internal/orderbook/core"
	"github.com/zappabad/matchbook/internal/trader"
)

// affordable returns how many units frac of cash buys at price.
func affordable(cash decimal.Decimal, price core.Price, frac float64) core.Quantity {
	if !cash.IsPositive() || !price.IsPositive() || frac <= 0 {
		return 0
	}
	q := cash.Mul(decimal.NewFromFloat(frac)).Div(price).Floor()
	if !q.IsPositive() {
		return 0
	}
	return core.Quantity(q.IntPart())
}

// sellable returns frac of position, rounded down.
func sellable(position int64, frac float64) core.Quantity {
	if position <= 0 || frac <= 0 {
		return 0
	}
	return core.Quantity(math.Floor(float64(position) * min(frac, 1)))
}

// quote scales price by (1+pct) and rounds it to the tick size.
func quote(price core.Price, pct float64, decimals int32) core.Price {
	return price.Mul(decimal.NewFromFloat(1 + pct)).Round(decimals)
}

func limit(side core.Side, price core.Price, qty core.Quantity) []trader.OrderIntent {
	if qty == 0 || !price.IsPositive() {
		return nil
	}
	return []trader.OrderIntent{{Kind: core.OrderKindLimit, Side: side, Price: price, Quantity: qty}}
}

func market(side core.Side, qty core.Quantity) []trader.OrderIntent {
	if qty == 0 {
		return nil
	}
	return []trader.OrderIntent{{Kind: core.OrderKindMarket, Side: side, Quantity: qty}}
}

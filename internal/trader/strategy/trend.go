package strategy

import (
	"context"
	"math/rand/v2"

	"github.com/zappabad/matchbook/internal/orderbook/core"
	"github.com/zappabad/matchbook/internal/trader"
)

// TrendParams tunes a Trend trader. Each trader scales Rise and Fall by
// a random factor in [0.5, 1.5) so the population does not move in step.
type TrendParams struct {
	Rise          float64
	Fall          float64
	TradeFraction float64
}

func DefaultTrendParams() TrendParams {
	return TrendParams{Rise: 0.03, Fall: -0.03, TradeFraction: 0.5}
}

// Trend buys with market orders once the price has risen Rise from its
// anchor and sells once it has fallen by Fall. Each trade moves the anchor
// to the current price.
type Trend struct {
	rise   float64
	fall   float64
	frac   float64
	anchor core.Price
}

func NewTrend(p TrendParams, rng *rand.Rand) *Trend {
	return &Trend{
		rise: p.Rise * (0.5 + rng.Float64()),
		fall: p.Fall * (0.5 + rng.Float64()),
		frac: p.TradeFraction,
	}
}

func (s *Trend) Name() string { return "trend" }

func (s *Trend) Step(_ context.Context, _ int64, mr MarketReader, available trader.Account) []trader.OrderIntent {
	price := mr.Snapshot().CurrentPrice
	if !price.IsPositive() {
		return nil
	}
	if !s.anchor.IsPositive() {
		s.anchor = price
		return nil
	}

	change := price.Sub(s.anchor).Div(s.anchor).InexactFloat64()
	switch {
	case change >= s.rise:
		s.anchor = price
		return market(core.SideBuy, affordable(available.Cash, price, s.frac))
	case change <= s.fall:
		s.anchor = price
		return market(core.SideSell, sellable(available.Position, s.frac))
	}
	return nil
}

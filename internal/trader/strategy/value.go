package strategy

import (
	"context"
	"math/rand/v2"

	"github.com/zappabad/matchbook/internal/orderbook/core"
	"github.com/zappabad/matchbook/internal/trader"
)

// ValueParams tunes a Value trader.
type ValueParams struct {
	OperationRate float64
	// Noise is the standard deviation of the relative error applied to
	// each moving average before deciding.
	Noise         float64
	TradeFraction float64
	LongDays      int
	ShortDays     int
	Decimals      int32
}

func DefaultValueParams() ValueParams {
	return ValueParams{
		OperationRate: 0.05,
		Noise:         0.035,
		TradeFraction: 0.25,
		LongDays:      20,
		ShortDays:     5,
		Decimals:      2,
	}
}

// Value compares the price with noisy long and short moving averages of
// the daily close and quotes a limit at the reference price.
type Value struct {
	p   ValueParams
	rng *rand.Rand
}

func NewValue(p ValueParams, rng *rand.Rand) *Value {
	return &Value{p: p, rng: rng}
}

func (s *Value) Name() string { return "value" }

func (s *Value) Step(_ context.Context, _ int64, mr MarketReader, available trader.Account) []trader.OrderIntent {
	if s.rng.Float64() >= s.p.OperationRate {
		return nil
	}
	long, ok := mr.MeanClose(s.p.LongDays)
	if !ok {
		return nil
	}
	short, ok := mr.MeanClose(s.p.ShortDays)
	if !ok {
		return nil
	}
	price := mr.Snapshot().CurrentPrice
	if !price.IsPositive() {
		return nil
	}

	p := price.InexactFloat64()
	l := long.InexactFloat64() * (1 + s.rng.NormFloat64()*s.p.Noise)
	sh := short.InexactFloat64() * (1 + s.rng.NormFloat64()*s.p.Noise)

	side := core.SideBuy
	switch {
	case p < l && p < sh:
		// below both averages
	case p > l && p > sh:
		side = core.SideSell
	case l < p && p < sh:
		side = core.SideSell
	}

	px := price.Round(s.p.Decimals)
	if side == core.SideBuy {
		return limit(side, px, affordable(available.Cash, px, s.p.TradeFraction))
	}
	return limit(side, px, sellable(available.Position, s.p.TradeFraction))
}
